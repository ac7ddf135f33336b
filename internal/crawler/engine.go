package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-mirror/internal/clock/system"
	"github.com/JakeFAU/site-mirror/internal/frontier"
	"github.com/JakeFAU/site-mirror/internal/hash/sha256"
	"github.com/JakeFAU/site-mirror/internal/id/uuid"
	"github.com/JakeFAU/site-mirror/internal/links"
	"github.com/JakeFAU/site-mirror/internal/metrics"
	"github.com/JakeFAU/site-mirror/internal/renderer"
	"github.com/JakeFAU/site-mirror/internal/scope"
)

// DefaultReadyTimeout bounds the wait for the ready selector.
const DefaultReadyTimeout = 10 * time.Second

// Options wires the collaborators of an Engine. Session and Persister are
// required; everything else has a usable default.
type Options struct {
	Session      renderer.Session
	Persister    Persister
	Selectors    *renderer.Selectors
	AllowRules   scope.Rules
	ReadyTimeout time.Duration
	Resolve      Resolver
	Journal      Journal
	Metrics      *metrics.Crawl
	Logger       *zap.Logger
	Clock        Clock
	IDs          IDGenerator
	Hasher       Hasher
}

// Engine runs crawls one at a time. Each Run gets its own frontier, so an
// Engine may be reused for several sequential runs.
type Engine struct {
	session      renderer.Session
	persister    Persister
	selectors    *renderer.Selectors
	rules        scope.Rules
	readyTimeout time.Duration
	resolve      Resolver
	journal      Journal
	metrics      *metrics.Crawl
	logger       *zap.Logger
	clock        Clock
	ids          IDGenerator
	hasher       Hasher

	mu    sync.Mutex
	state State
}

// run is the per-crawl state threaded through one Run call.
type run struct {
	id       string
	logger   *zap.Logger
	frontier *frontier.Frontier
	filter   *links.Filter
	summary  Summary
}

// New validates opts and returns an idle Engine.
func New(opts Options) (*Engine, error) {
	if opts.Session == nil {
		return nil, errors.New("crawler: renderer session is required")
	}
	if opts.Persister == nil {
		return nil, errors.New("crawler: persister is required")
	}
	e := &Engine{
		session:      opts.Session,
		persister:    opts.Persister,
		selectors:    opts.Selectors,
		rules:        opts.AllowRules,
		readyTimeout: opts.ReadyTimeout,
		resolve:      opts.Resolve,
		journal:      opts.Journal,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		clock:        opts.Clock,
		ids:          opts.IDs,
		hasher:       opts.Hasher,
	}
	if e.selectors == nil {
		sel, err := renderer.NewSelectors(renderer.DefaultReadySelector, nil)
		if err != nil {
			return nil, fmt.Errorf("crawler: default selectors: %w", err)
		}
		e.selectors = sel
	}
	if e.readyTimeout <= 0 {
		e.readyTimeout = DefaultReadyTimeout
	}
	if e.resolve == nil {
		e.resolve = scope.Resolve
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.clock == nil {
		e.clock = system.New()
	}
	if e.ids == nil {
		e.ids = uuid.New()
	}
	if e.hasher == nil {
		e.hasher = sha256.New()
	}
	return e, nil
}

// State reports where the engine currently is.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run crawls every in-scope page reachable from seed, breadth first, and
// returns when the frontier is exhausted or ctx is cancelled. The returned
// error is non-nil only for an unusable seed, an unresolvable domain, a
// browser that cannot be launched, or cancellation; page-level failures are
// logged and counted in the Summary.
func (e *Engine) Run(ctx context.Context, seed string) (Summary, error) {
	given, err := frontier.Canonicalize(seed)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if given.Hostname() == "" {
		return Summary{}, fmt.Errorf("%w: %q has no host", ErrInvalidSeed, seed)
	}
	// The domain comes from the seed as given; the queued seed is normalized
	// like any discovered link.
	domain, err := e.resolve(given.Hostname())
	if err != nil {
		return Summary{}, fmt.Errorf("resolve domain of %q: %w", given.Hostname(), err)
	}
	seedURL, err := links.Normalize(seed)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	runID, err := e.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("crawler: %w", err)
	}

	r := &run{
		id:       runID,
		logger:   e.logger.With(zap.String("run_id", runID)),
		frontier: frontier.New(),
		summary:  Summary{RunID: runID, Domain: domain, Started: e.clock.Now()},
	}
	r.filter = links.NewFilter(domain, e.rules.For(domain), r.logger)
	r.frontier.Offer(seedURL)

	if err := e.session.Open(ctx); err != nil {
		return r.summary, fmt.Errorf("open renderer: %w", err)
	}
	defer func() {
		if err := e.session.Close(); err != nil {
			r.logger.Warn("Failed to close renderer", zap.Error(err))
		}
	}()

	e.setState(StateRunning)
	defer e.setState(StateTerminated)
	r.logger.Info("Crawl started", zap.String("seed", frontier.Href(seedURL)), zap.String("domain", domain))

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		next, err := r.frontier.Next()
		if errors.Is(err, frontier.ErrEmpty) {
			break
		}
		r.frontier.MarkVisited(next)
		r.summary.Visited++
		e.iterate(ctx, r, next)
		e.metrics.SetFrontier(r.frontier.Len(), r.frontier.VisitedCount())
		e.setState(StateRunning)
	}

	r.summary.Finished = e.clock.Now()
	r.logger.Info("Crawl finished",
		zap.Int("visited", r.summary.Visited),
		zap.Int("saved", r.summary.Saved),
		zap.Int("render_failures", r.summary.RenderFailures),
		zap.Int("save_failures", r.summary.SaveFailures),
		zap.Int("links_admitted", r.summary.LinksAdmitted),
		zap.Int("link_errors", r.summary.LinkErrors),
		zap.Duration("elapsed", r.summary.Finished.Sub(r.summary.Started)),
		zap.Bool("interrupted", runErr != nil),
	)
	return r.summary, runErr
}

// iterate renders, filters and persists a single page.
func (e *Engine) iterate(ctx context.Context, r *run, pageURL *url.URL) {
	href := frontier.Href(pageURL)
	entry := Entry{RunID: r.id, URL: href, VisitedKey: frontier.VisitedKey(pageURL)}

	e.setState(StateRendering)
	page, err := e.render(ctx, pageURL)
	if err != nil {
		r.summary.RenderFailures++
		r.logger.Error("Failed to open page", zap.String("url", href), zap.Error(err))
		e.metrics.ObservePage(metrics.OutcomeRenderFailed, 0)
		entry.Outcome = OutcomeRenderFailed
		entry.Error = err.Error()
		e.record(ctx, r, entry)
		e.restartRenderer(ctx, r)
		return
	}
	e.metrics.ObserveRender(page.Duration)
	entry.Status = page.Status

	e.setState(StateExtracting)
	res := r.filter.Apply(page.Links, r.frontier)
	r.summary.LinksAdmitted += res.Admitted
	r.summary.LinkErrors += res.Errors
	e.metrics.ObserveLinks(res.Admitted, res.Errors)

	e.setState(StatePersisting)
	markup := []byte(page.Markup)
	path, err := e.persister.Save(ctx, pageURL, markup)
	if err != nil {
		r.summary.SaveFailures++
		r.logger.Error("Failed to save page", zap.String("url", href), zap.Error(err))
		e.metrics.ObservePage(metrics.OutcomeSaveFailed, 0)
		entry.Outcome = OutcomeSaveFailed
		entry.Error = err.Error()
		e.record(ctx, r, entry)
		return
	}
	r.summary.Saved++
	r.logger.Info("Saved page",
		zap.String("url", href),
		zap.String("path", path),
		zap.Int("bytes", len(markup)),
		zap.Int("status", page.Status),
		zap.Int("links", res.Admitted),
	)
	e.metrics.ObservePage(metrics.OutcomeSaved, len(markup))
	entry.Outcome = OutcomeSaved
	entry.ArtifactPath = path
	entry.Bytes = len(markup)
	if entry.Digest, err = e.hasher.Hash(markup); err != nil {
		r.logger.Warn("Failed to hash page", zap.String("url", href), zap.Error(err))
	}
	e.record(ctx, r, entry)
}

// render loads pageURL in a fresh tab and extracts its links and markup. The
// tab is closed on every path.
func (e *Engine) render(ctx context.Context, pageURL *url.URL) (page RenderedPage, err error) {
	href := frontier.Href(pageURL)
	start := e.clock.Now()

	tab, err := e.session.NewTab(ctx)
	if err != nil {
		return RenderedPage{}, fmt.Errorf("open tab: %w", err)
	}
	defer func() {
		if cerr := tab.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close tab: %w", cerr)
		}
	}()

	if err := tab.Navigate(ctx, href); err != nil {
		return RenderedPage{}, fmt.Errorf("navigate: %w", err)
	}
	if err := tab.WaitReady(ctx, e.selectors.For(href), e.readyTimeout); err != nil {
		return RenderedPage{}, fmt.Errorf("wait ready: %w", err)
	}
	found, err := tab.Links(ctx)
	if err != nil {
		return RenderedPage{}, fmt.Errorf("extract links: %w", err)
	}
	markup, err := tab.Markup(ctx)
	if err != nil {
		return RenderedPage{}, fmt.Errorf("extract markup: %w", err)
	}
	return RenderedPage{
		URL:      pageURL,
		Links:    found,
		Markup:   markup,
		Status:   tab.Status(),
		Duration: e.clock.Since(start),
	}, nil
}

// restartRenderer replaces the browser after a failed render. A failed restart is
// logged; the next NewTab then fails and triggers another attempt.
func (e *Engine) restartRenderer(ctx context.Context, r *run) {
	if ctx.Err() != nil {
		return
	}
	if err := e.session.Restart(ctx); err != nil {
		r.logger.Error("Failed to restart renderer", zap.Error(err))
		return
	}
	e.metrics.IncRestarts()
	r.logger.Info("Renderer restarted")
}

func (e *Engine) record(ctx context.Context, r *run, entry Entry) {
	if e.journal == nil {
		return
	}
	entry.RecordedAt = e.clock.Now()
	if err := e.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Warn("Failed to record journal entry", zap.String("url", entry.URL), zap.Error(err))
	}
}
