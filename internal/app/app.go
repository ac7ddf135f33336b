// Package app initializes and holds the long-lived services of a crawl run,
// acting as the dependency injection container between the CLI and the
// internal packages.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-mirror/internal/clock/system"
	"github.com/JakeFAU/site-mirror/internal/config"
	"github.com/JakeFAU/site-mirror/internal/crawler"
	"github.com/JakeFAU/site-mirror/internal/hash/sha256"
	"github.com/JakeFAU/site-mirror/internal/id/uuid"
	"github.com/JakeFAU/site-mirror/internal/journal"
	"github.com/JakeFAU/site-mirror/internal/metrics"
	"github.com/JakeFAU/site-mirror/internal/mirror"
	"github.com/JakeFAU/site-mirror/internal/renderer"
	"github.com/JakeFAU/site-mirror/internal/server"
)

// SessionFactory builds the browser session for a run.
type SessionFactory func(cfg renderer.Config, logger *zap.Logger) renderer.Session

// ChromeSession is the production SessionFactory.
func ChromeSession(cfg renderer.Config, logger *zap.Logger) renderer.Session {
	return renderer.NewChromedp(cfg, logger)
}

// App holds the services shared by one crawl.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *mirror.Store
	journal  *journal.Store
	registry *prometheus.Registry
	engine   *crawler.Engine
	ops      *server.Server
}

// New initializes every service cfg enables. It fails fast when the mirror
// root is unusable or the journal cannot be opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, newSession SessionFactory) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if newSession == nil {
		newSession = ChromeSession
	}
	a := &App{cfg: cfg, logger: logger}

	store, err := mirror.New(cfg.OutputDir, logger.Named("mirror"))
	if err != nil {
		return nil, fmt.Errorf("init mirror: %w", err)
	}
	a.store = store

	var jrnl crawler.Journal
	if cfg.Journal.Path != "" {
		a.journal, err = journal.Open(ctx, cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		jrnl = a.journal
		logger.Info("Journal enabled", zap.String("path", a.journal.Path()))
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	crawlMetrics, err := metrics.NewCrawl(a.registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	selectors, err := cfg.Selectors()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init selectors: %w", err)
	}

	a.engine, err = crawler.New(crawler.Options{
		Session:      newSession(cfg.Renderer.Session(), logger.Named("renderer")),
		Persister:    store,
		Selectors:    selectors,
		AllowRules:   cfg.AllowRules(),
		ReadyTimeout: cfg.Renderer.ReadyTimeout,
		Journal:      jrnl,
		Metrics:      crawlMetrics,
		Logger:       logger.Named("crawler"),
		Clock:        system.New(),
		IDs:          uuid.New(),
		Hasher:       sha256.New(),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init crawler: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		a.ops = server.New(a.registry, a.engine, logger.Named("ops"))
	}
	return a, nil
}

// Registry is the Prometheus registry the crawl reports into.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Journal returns the crawl journal, or nil when disabled.
func (a *App) Journal() *journal.Store { return a.journal }

// Run crawls from seed. When an ops address is configured the endpoint is
// served for the duration of the crawl.
func (a *App) Run(ctx context.Context, seed string) (crawler.Summary, error) {
	if a.ops == nil {
		return a.engine.Run(ctx, seed)
	}

	opsCtx, stopOps := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.ops.ListenAndServe(opsCtx, a.cfg.Metrics.Addr); err != nil {
			a.logger.Error("Ops server failed", zap.Error(err))
		}
	}()

	summary, err := a.engine.Run(ctx, seed)
	stopOps()
	wg.Wait()
	return summary, err
}

// Close releases the services held by the App.
func (a *App) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("Error closing journal", zap.Error(err))
		}
	}
}

// Interrupted reports whether err came from cancelling the crawl.
func Interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
