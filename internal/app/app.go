package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"spotwatch/internal/alerting"
	"spotwatch/internal/config"
	"spotwatch/internal/fetcher"
	"spotwatch/internal/limits"
	"spotwatch/internal/localstore"
	"spotwatch/internal/metrics"
	"spotwatch/internal/scheduler"
	"spotwatch/internal/service"
	"spotwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.PriceFetcher {
	return fetcher.NewClient(fetcher.Options{
		BaseURL:   a.Config.Pricing.BaseURL,
		Timeout:   a.Config.Pricing.RequestTimeout,
		UserAgent: a.Config.Pricing.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) openLocalStore() (*localstore.Store, func(), error) {
	store, err := localstore.Open(a.Config.LocalStore.Path)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		_ = store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running watcher service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; sample history disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	local, closeLocal, err := a.openLocalStore()
	if err != nil {
		return err
	}
	defer closeLocal()

	limitRepo := limits.NewRepository(local, a.Logger)
	if _, err := limitRepo.Load(); err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	var collector *metrics.Collector
	if a.Config.Metrics.Enabled {
		collector, err = metrics.NewCollector(nil)
		if err != nil {
			return err
		}
		go func() {
			if err := metrics.StartServer(ctx, a.Config.Metrics.ListenAddr, a.Logger); err != nil {
				a.Logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	var sampleStore storage.PriceSampleStore
	var alertStore storage.AlertStore
	if store != nil {
		sampleStore = store
		alertStore = store
	}

	svc := service.New(a.Config, sched, a.newFetcher(), limitRepo, sampleStore, alertStore, a.newNotifier(), collector, a.Logger)

	a.Logger.Info().Msg("starting spot price watcher")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("spot price watcher stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical samples.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Alerts bool
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}

// EstimateOptions configure the estimate command.
type EstimateOptions struct {
	Month       string
	ProducedKWh float64
}
