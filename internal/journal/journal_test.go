package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-mirror/internal/crawler"
)

var _ crawler.Journal = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "  ")
	require.Error(t, err)
}

func TestRecordAndEntries(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 10, 30, 0, 123, time.UTC)

	require.NoError(t, store.Record(ctx, crawler.Entry{
		RunID:        "run-a",
		URL:          "https://example.com/",
		VisitedKey:   "https://example.com/",
		Outcome:      crawler.OutcomeSaved,
		ArtifactPath: "result/example.com//index.html",
		Bytes:        512,
		Digest:       "sha256:abc",
		Status:       200,
		RecordedAt:   at,
	}))
	require.NoError(t, store.Record(ctx, crawler.Entry{
		RunID:      "run-a",
		URL:        "https://example.com/broken",
		VisitedKey: "https://example.com/broken",
		Outcome:    crawler.OutcomeRenderFailed,
		Error:      "navigate: net::ERR_NAME_NOT_RESOLVED",
		RecordedAt: at.Add(time.Second),
	}))
	require.NoError(t, store.Record(ctx, crawler.Entry{
		RunID:      "run-b",
		URL:        "https://example.org/",
		VisitedKey: "https://example.org/",
		Outcome:    crawler.OutcomeSaved,
		RecordedAt: at,
	}))

	entries, err := store.Entries(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, crawler.OutcomeSaved, entries[0].Outcome)
	assert.Equal(t, "result/example.com//index.html", entries[0].ArtifactPath)
	assert.Equal(t, 512, entries[0].Bytes)
	assert.Equal(t, "sha256:abc", entries[0].Digest)
	assert.Equal(t, 200, entries[0].Status)
	assert.Empty(t, entries[0].Error)
	assert.True(t, entries[0].RecordedAt.Equal(at))

	assert.Equal(t, crawler.OutcomeRenderFailed, entries[1].Outcome)
	assert.Empty(t, entries[1].ArtifactPath)
	assert.Contains(t, entries[1].Error, "ERR_NAME_NOT_RESOLVED")

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-b", "run-a"}, runs)
}

func TestEntriesUnknownRun(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	entries, err := store.Entries(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReopenKeepsRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	store, err := Open(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	require.NoError(t, store.Record(ctx, crawler.Entry{RunID: "r", URL: "u", VisitedKey: "u", Outcome: crawler.OutcomeSaveFailed}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	entries, err := store.Entries(ctx, "r")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, crawler.OutcomeSaveFailed, entries[0].Outcome)
	assert.False(t, entries[0].RecordedAt.IsZero())
}
