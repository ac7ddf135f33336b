package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.True(t, Valid(id1))
	assert.True(t, Valid(id2))
	assert.Less(t, id1, id2, "v7 ids sort by creation time")
}

func TestValidRejectsOtherVersions(t *testing.T) {
	t.Parallel()

	assert.False(t, Valid(""))
	assert.False(t, Valid("not-a-uuid"))
	assert.False(t, Valid(goUUID.NewString()))
}
