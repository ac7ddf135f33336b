package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrReadyTimeout is returned when the readiness selector did not appear in
// time.
var ErrReadyTimeout = errors.New("readiness selector timed out")

const (
	defaultNavigationTimeout = 30 * time.Second

	anchorsScript = `Array.from(document.querySelectorAll('a')).map((a) => typeof a.href === 'string' ? a.href : '')`
	markupScript  = `document.documentElement.outerHTML`
)

// Config controls the browser launch.
type Config struct {
	Headless          bool
	UserAgent         string
	ExecPath          string
	NavigationTimeout time.Duration
}

// Chromedp is a Session backed by headless Chrome via chromedp.
type Chromedp struct {
	cfg    Config
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedp returns an unopened session.
func NewChromedp(cfg Config, logger *zap.Logger) *Chromedp {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chromedp{cfg: cfg, logger: logger}
}

// LaunchOptions is the static launch configuration. The sandbox, GPU and
// site-isolation switches keep Chrome usable inside containers.
func LaunchOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.NoSandbox,
		chromedp.NoFirstRun,
		chromedp.Flag("no-zygote", true),
		chromedp.Flag("deterministic-fetch", true),
		chromedp.Flag("disable-features", "site-per-process,Translate,BlinkGenPropertyTrees,IsolateOrigins"),
		chromedp.Flag("disable-site-isolation-trials", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Open launches the browser and waits for it to accept commands.
func (s *Chromedp) Open(ctx context.Context) error {
	if s.browserCtx != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), LaunchOptions(s.cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("chromedp warmup: %w", err)
	}
	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.logger.Debug("Browser launched", zap.Bool("headless", s.cfg.Headless))
	return nil
}

// Close shuts the browser down. Closing a closed session is a no-op.
func (s *Chromedp) Close() error {
	if s.browserCtx == nil {
		return nil
	}
	err := chromedp.Cancel(s.browserCtx)
	s.browserCancel()
	s.allocCancel()
	s.browserCtx, s.browserCancel, s.allocCancel = nil, nil, nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// Restart replaces the browser process wholesale.
func (s *Chromedp) Restart(ctx context.Context) error {
	if err := s.Close(); err != nil {
		s.logger.Warn("Browser close failed during restart", zap.Error(err))
	}
	return s.Open(ctx)
}

// NewTab opens a new target in the running browser.
func (s *Chromedp) NewTab(ctx context.Context) (Tab, error) {
	if s.browserCtx == nil {
		return nil, ErrSessionClosed
	}
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	stop := forwardCancel(ctx, cancel)
	defer stop()

	tab := &chromedpTab{
		ctx:        tabCtx,
		cancel:     cancel,
		navTimeout: s.cfg.NavigationTimeout,
		meta:       &documentMeta{},
	}
	chromedp.ListenTarget(tabCtx, tab.meta.captureEvent)
	if err := chromedp.Run(tabCtx, tab.setupAction(s.cfg.UserAgent)); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return tab, nil
}

type chromedpTab struct {
	ctx        context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration
	meta       *documentMeta
}

func (t *chromedpTab) setupAction(userAgent string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if userAgent != "" {
			if err := emulation.SetUserAgentOverride(userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// Navigate resolves on DOMContentLoaded rather than the load event so that
// slow subresources do not hold up the readiness wait.
func (t *chromedpTab) Navigate(ctx context.Context, rawURL string) error {
	navCtx, cancel := context.WithTimeout(t.ctx, t.navTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(navCtx, navigateDOMContentLoaded(rawURL)); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return nil
}

func navigateDOMContentLoaded(rawURL string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		lctx, lcancel := context.WithCancel(ctx)
		defer lcancel()
		fired := make(chan struct{}, 1)
		chromedp.ListenTarget(lctx, func(ev any) {
			if _, ok := ev.(*page.EventDomContentEventFired); ok {
				select {
				case fired <- struct{}{}:
				default:
				}
			}
		})

		_, _, errorText, err := page.Navigate(rawURL).Do(ctx)
		switch {
		case err != nil:
			return err
		case errorText != "":
			return fmt.Errorf("page load error %s", errorText)
		}

		select {
		case <-fired:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func (t *chromedpTab) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	switch {
	case err == nil:
		return nil
	case errors.Is(waitCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("wait for %q after %s: %w", selector, timeout, ErrReadyTimeout)
	default:
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
}

func (t *chromedpTab) Links(ctx context.Context) ([]string, error) {
	var hrefs []string
	if err := t.run(ctx, chromedp.Evaluate(anchorsScript, &hrefs)); err != nil {
		return nil, fmt.Errorf("collect anchors: %w", err)
	}
	return hrefs, nil
}

func (t *chromedpTab) Markup(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, chromedp.Evaluate(markupScript, &html)); err != nil {
		return "", fmt.Errorf("collect markup: %w", err)
	}
	return html, nil
}

func (t *chromedpTab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (t *chromedpTab) Status() int {
	return t.meta.status()
}

func (t *chromedpTab) Close() error {
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close tab: %w", err)
	}
	return nil
}

// documentMeta remembers the status of the last main-document response.
type documentMeta struct {
	mu   sync.RWMutex
	code int
}

func (m *documentMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.code = int(resp.Response.Status)
	m.mu.Unlock()
}

func (m *documentMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.code
}

// forwardCancel cancels the chromedp-derived context when the caller's
// context ends. The returned func stops the forwarding goroutine.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
