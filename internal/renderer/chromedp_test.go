package renderer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewChromedpDefaults(t *testing.T) {
	t.Parallel()

	s := NewChromedp(Config{}, nil)
	assert.Equal(t, defaultNavigationTimeout, s.cfg.NavigationTimeout)
	assert.NotNil(t, s.logger)
}

func TestLaunchOptionsAppendOptionalFlags(t *testing.T) {
	t.Parallel()

	base := len(LaunchOptions(Config{Headless: true}))
	assert.Greater(t, base, len(chromedp.DefaultExecAllocatorOptions))
	assert.Len(t, LaunchOptions(Config{Headless: true, UserAgent: "ua", ExecPath: "/usr/bin/chromium"}), base+2)
}

func TestNewTabOnClosedSession(t *testing.T) {
	t.Parallel()

	s := NewChromedp(Config{}, zap.NewNop())
	_, err := s.NewTab(context.Background())
	require.ErrorIs(t, err, ErrSessionClosed)
	require.NoError(t, s.Close())
}

func TestOpenHonoursCanceledContext(t *testing.T) {
	t.Parallel()

	s := NewChromedp(Config{Headless: true}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Open(ctx), context.Canceled)
}

func TestDocumentMetaCapturesDocumentStatus(t *testing.T) {
	t.Parallel()

	meta := &documentMeta{}
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 404},
	})
	assert.Zero(t, meta.status())

	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 203},
	})
	assert.Equal(t, 203, meta.status())

	meta.captureEvent("not an event")
	assert.Equal(t, 203, meta.status())
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()
	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not canceled")
	}
}

func TestChromedpRendersClientSideContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body><div id="app"></div><script>
setTimeout(function () {
  document.getElementById('app').innerHTML = '<a href="/about">About</a><footer>late content</footer>';
}, 200);
</script></body></html>`)
	}))
	defer srv.Close()

	s := NewChromedp(Config{Headless: true, NavigationTimeout: 10 * time.Second}, zap.NewNop())
	if err := s.Open(context.Background()); err != nil {
		t.Skipf("chromedp unavailable: %v", err)
	}
	defer s.Close() //nolint:errcheck // best-effort shutdown

	ctx := context.Background()
	tab, err := s.NewTab(ctx)
	require.NoError(t, err)
	defer tab.Close() //nolint:errcheck // best-effort shutdown

	require.NoError(t, tab.Navigate(ctx, srv.URL))
	require.NoError(t, tab.WaitReady(ctx, DefaultReadySelector, 5*time.Second))

	links, err := tab.Links(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/about"}, links)

	markup, err := tab.Markup(ctx)
	require.NoError(t, err)
	assert.Contains(t, markup, "late content")
	assert.Equal(t, http.StatusOK, tab.Status())

	err = tab.WaitReady(ctx, "#never-there", 300*time.Millisecond)
	require.ErrorIs(t, err, ErrReadyTimeout)

	require.NoError(t, s.Restart(ctx))
	second, err := s.NewTab(ctx)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
