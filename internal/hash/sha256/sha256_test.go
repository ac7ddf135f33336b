package sha256

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)

	again, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestMatches(t *testing.T) {
	t.Parallel()

	data := []byte("<html></html>")
	digest := Digest(data)

	assert.True(t, Matches(digest, data))
	assert.True(t, Matches("sha256:"+strings.ToUpper(strings.TrimPrefix(digest, "sha256:")), data))
	assert.False(t, Matches(digest, []byte("<html> </html>")))
	assert.False(t, Matches(strings.TrimPrefix(digest, "sha256:"), data))
}
