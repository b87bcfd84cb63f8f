package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"cardwatch/internal/bot"
	"cardwatch/internal/config"
	"cardwatch/internal/engine"
	"cardwatch/internal/matcher"
	"cardwatch/internal/navigator"
	"cardwatch/internal/notifylog"
	"cardwatch/internal/repository"
	"cardwatch/internal/repository/configfile"
	"cardwatch/internal/repository/sqlite"
	"cardwatch/internal/scraper"
	"cardwatch/internal/services/monitor"
	"cardwatch/internal/services/tracker"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	repo, err := sqlite.NewRepository(ctx, logger, cfg.StoragePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer repo.Close()

	watch, err := configfile.New(logger, cfg.WatchFile)
	if err != nil {
		log.Fatalf("Failed to load watch file: %v", err)
	}

	// Without a Telegram token alerts fall back to the log.
	var dispatcher repository.AlertDispatcher = notifylog.New(logger)
	var alertBot *bot.Bot
	if cfg.Tg.Token != "" {
		alertBot, err = bot.NewBot(logger, cfg.Tg.Token, cfg.Tg.Timeout, repo, watch)
		if err != nil {
			log.Fatalf("Failed to init bot: %v", err)
		}
		dispatcher = alertBot
		go alertBot.Start()
	}

	tracked := tracker.New(logger, repo)
	if err = tracked.Load(ctx); err != nil {
		log.Fatalf("Failed to load notification states: %v", err)
	}

	nav := navigator.New(logger, matcher.New(logger), navigator.Config{
		DirectHitThreshold: cfg.Scan.DirectHitThreshold,
		ListingThreshold:   cfg.Scan.ListingThreshold,
		MaxCandidates:      cfg.Scan.MaxCandidates,
	})
	factory := scraper.NewFactory(logger, nav, engine.Options{
		FetchTimeout: cfg.Scan.FetchTimeout,
		ElementWait:  cfg.Scan.ElementWait,
		SettleDelay:  cfg.Scan.SettleDelay,
		UserAgent:    cfg.Scan.UserAgent,
	})

	mon := monitor.New(logger, monitor.Deps{
		Shops:       watch,
		Watchlist:   watch,
		Subscribers: repo,
		Results:     repo,
		Dispatcher:  dispatcher,
		Factory:     factory,
		Tracker:     tracked,
	}, monitor.Config{
		ShopWorkers:    cfg.Scan.ShopWorkers,
		ProductWorkers: cfg.Scan.ProductWorkers,
	})

	runScan := func() {
		if _, runErr := mon.Run(ctx); runErr != nil {
			logger.ErrorContext(ctx, "Scan run failed", "error", runErr)
		}
	}

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "schedule", cfg.Schedule)

	// First scan right away, then on the cron schedule.
	runScan()

	scheduler := cron.New()
	if _, err = scheduler.AddFunc(cfg.Schedule, runScan); err != nil {
		log.Fatalf("Failed to schedule scans: %v", err)
	}
	scheduler.Start()

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	// Let an in-flight scan finish before exiting.
	<-scheduler.Stop().Done()
	if alertBot != nil {
		alertBot.Stop()
	}

	// Log graceful shutdown completion.
	logger.InfoContext(ctx, "Application stopped gracefully.")
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified	 or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
