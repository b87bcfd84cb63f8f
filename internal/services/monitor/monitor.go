package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"

	"cardwatch/internal/engine"
	"cardwatch/internal/models"
	"cardwatch/internal/repository"
	"cardwatch/internal/scraper"
	"cardwatch/internal/services/tracker"
)

// ScraperFactory builds a single-use scraper per (shop, product) scan.
type ScraperFactory interface {
	Create(shop models.ShopConfig, browser *rod.Browser) scraper.Scraper
}

// Deps are the collaborators a Monitor runs against.
type Deps struct {
	Shops       repository.ShopRepository
	Watchlist   repository.WatchlistRepository
	Subscribers repository.SubscriberRepository
	Results     repository.ResultRepository
	Dispatcher  repository.AlertDispatcher
	Factory     ScraperFactory
	Tracker     *tracker.Tracker

	// Launch overrides how the rendering cycle acquires its shared
	// browser. Leave nil for a real headless launch.
	Launch func() (*rod.Browser, error)
}

// Config are the scheduling knobs of a run.
type Config struct {
	ShopWorkers    int
	ProductWorkers int
}

// Summary describes one completed run.
type Summary struct {
	Duration       time.Duration
	ShopsStatic    int
	ShopsRendering int
	Products       int
	Scanned        int64
	Found          int64
	Alerts         int64
	TaskErrors     int64
}

type counters struct {
	scanned    atomic.Int64
	found      atomic.Int64
	alerts     atomic.Int64
	taskErrors atomic.Int64
}

// Monitor is the top-level orchestrator: it loads the watchlist and shop
// definitions, runs the static and rendering scan cycles and flushes the
// result buffer and the notification tracker.
type Monitor struct {
	log        *slog.Logger
	shops      repository.ShopRepository
	watchlist  repository.WatchlistRepository
	subs       repository.SubscriberRepository
	dispatcher repository.AlertDispatcher
	factory    ScraperFactory
	tracker    *tracker.Tracker
	buffer     *Buffer
	cfg        Config

	// launch acquires the shared browser for the rendering cycle. Tests
	// replace it; production uses engine.LaunchBrowser.
	launch func() (*rod.Browser, error)

	counters counters
}

func New(log *slog.Logger, deps Deps, cfg Config) *Monitor {
	m := &Monitor{
		log:        log,
		shops:      deps.Shops,
		watchlist:  deps.Watchlist,
		subs:       deps.Subscribers,
		dispatcher: deps.Dispatcher,
		factory:    deps.Factory,
		tracker:    deps.Tracker,
		buffer:     NewBuffer(log, deps.Results),
		cfg:        cfg,
	}
	m.launch = deps.Launch
	if m.launch == nil {
		m.launch = func() (*rod.Browser, error) { return engine.LaunchBrowser(log) }
	}

	return m
}

// Run executes one full scan over every enabled shop and watched product.
// The static cycle runs first with wide fan-out, then the rendering cycle
// walks its shops behind one shared browser. Static results persist even
// when the rendering cycle or a flush fails; those errors are joined into
// the returned error.
func (m *Monitor) Run(ctx context.Context) (Summary, error) {
	const opn = "monitor.Run"
	log := m.log.With("op", opn)
	start := time.Now()

	m.counters.scanned.Store(0)
	m.counters.found.Store(0)
	m.counters.alerts.Store(0)
	m.counters.taskErrors.Store(0)

	shops, err := m.shops.GetEnabled(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: failed to load shops: %w", opn, err)
	}
	products, err := m.watchlist.GetAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: failed to load watchlist: %w", opn, err)
	}

	if len(shops) == 0 || len(products) == 0 {
		log.InfoContext(ctx, "Nothing to scan", "shops", len(shops), "products", len(products))
		return Summary{Duration: time.Since(start)}, nil
	}

	recipients, err := m.subs.GetSubscribedChats(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: failed to load subscribers: %w", opn, err)
	}

	static, rendering := scraper.GroupByEngine(shops)
	log.InfoContext(ctx, "Scan run started",
		"shops_static", len(static), "shops_rendering", len(rendering),
		"products", len(products), "recipients", len(recipients))

	m.runStaticCycle(ctx, static, products, recipients)
	renderErr := m.runRenderingCycle(ctx, rendering, products, recipients)
	if renderErr != nil {
		log.ErrorContext(ctx, "Rendering cycle failed", "error", renderErr)
	}

	flushErr := errors.Join(m.buffer.Flush(ctx), m.tracker.Flush(ctx))

	summary := Summary{
		Duration:       time.Since(start),
		ShopsStatic:    len(static),
		ShopsRendering: len(rendering),
		Products:       len(products),
		Scanned:        m.counters.scanned.Load(),
		Found:          m.counters.found.Load(),
		Alerts:         m.counters.alerts.Load(),
		TaskErrors:     m.counters.taskErrors.Load(),
	}

	log.InfoContext(ctx, "Scan run finished",
		"duration", summary.Duration.Round(time.Millisecond),
		"scanned", summary.Scanned, "found", summary.Found,
		"alerts", summary.Alerts, "task_errors", summary.TaskErrors)

	return summary, errors.Join(renderErr, flushErr)
}
