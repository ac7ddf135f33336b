package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockNowIsUTC(t *testing.T) {
	t.Parallel()

	now := New().Now()
	require.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Minute)
}

func TestSteppedAdvancesPerRead(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	c := Stepped(start, 2*time.Second)

	first := c.Now()
	assert.True(t, first.Equal(start))
	assert.Equal(t, time.UTC, first.Location())
	assert.Equal(t, 2*time.Second, c.Since(first))
	assert.True(t, c.Now().Equal(start.Add(4*time.Second)))
}
