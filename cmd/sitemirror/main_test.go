package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-mirror/internal/id/uuid"
	"github.com/JakeFAU/site-mirror/internal/renderer"
)

type stubSession struct{}

func (stubSession) Open(context.Context) error { return nil }
func (stubSession) Restart(context.Context) error { return nil }
func (stubSession) Close() error { return nil }
func (stubSession) NewTab(context.Context) (renderer.Tab, error) {
	return &stubTab{}, nil
}

type stubTab struct{ url string }

func (t *stubTab) Navigate(_ context.Context, rawURL string) error {
	t.url = rawURL
	return nil
}
func (t *stubTab) WaitReady(context.Context, string, time.Duration) error { return nil }
func (t *stubTab) Links(context.Context) ([]string, error) {
	if t.url == "https://example.com/" {
		return []string{"https://example.com/about", "https://other.net/"}, nil
	}
	return nil, nil
}
func (t *stubTab) Markup(context.Context) (string, error) { return "<html></html>", nil }
func (t *stubTab) Status() int { return 200 }
func (t *stubTab) Close() error { return nil }

func useStubSession(t *testing.T) {
	t.Helper()
	prev := sessionFactory
	sessionFactory = func(renderer.Config, *zap.Logger) renderer.Session { return stubSession{} }
	t.Cleanup(func() { sessionFactory = prev })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCrawlThenInspectJournal(t *testing.T) {
	useStubSession(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "result")
	db := filepath.Join(dir, "crawl.db")

	out, err := execute(t, "crawl", "https://www.example.com", "--output", output, "--journal", db, "--dev=false", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "2 visited, 2 saved")
	assert.FileExists(t, filepath.Join(output, "example.com", "index.html"))
	assert.FileExists(t, filepath.Join(output, "example.com", "about.html"))

	runID := regexp.MustCompile(`run (\S+):`).FindStringSubmatch(out)
	require.Len(t, runID, 2)

	out, err = execute(t, "journal", "--journal", db)
	require.NoError(t, err)
	assert.Equal(t, runID[1], strings.TrimSpace(out))

	out, err = execute(t, "journal", runID[1], "--journal", db)
	require.NoError(t, err)
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "https://example.com/about")
	assert.Equal(t, 2, strings.Count(out, "saved"))
}

func TestCrawlRejectsInvalidSeed(t *testing.T) {
	useStubSession(t)

	_, err := execute(t, "crawl", "ftp://example.com", "--output", t.TempDir())
	require.ErrorContains(t, err, "http or https")
}

func TestCrawlRejectsExtraArgs(t *testing.T) {
	_, err := execute(t, "crawl", "https://a.example", "https://b.example")
	require.Error(t, err)
}

func TestJournalRequiresPath(t *testing.T) {
	_, err := execute(t, "journal")
	require.ErrorContains(t, err, "no journal configured")
}

func TestJournalUnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "crawl.db")
	runID, err := uuid.New().NewID()
	require.NoError(t, err)
	_, err = execute(t, "journal", runID, "--journal", db)
	require.ErrorContains(t, err, "not found")
}

func TestJournalRejectsMalformedRunID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "crawl.db")
	_, err := execute(t, "journal", "missing", "--journal", db)
	require.ErrorContains(t, err, "invalid run id")
	assert.NoFileExists(t, db)
}
