package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"spotwatch/internal/alerting"
	"spotwatch/internal/config"
	"spotwatch/internal/fetcher"
	"spotwatch/internal/metrics"
	"spotwatch/internal/scheduler"
	"spotwatch/internal/storage"
	"spotwatch/internal/threshold"
)

// LimitSource supplies the current threshold configuration. The limit set is
// re-read on every tick so edits made through the CLI take effect without a
// restart.
type LimitSource interface {
	Load() (threshold.LimitSet, error)
}

// Service orchestrates fetching, evaluation, persistence, and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	prices     fetcher.PriceFetcher
	limits     LimitSource
	store      storage.PriceSampleStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	collector  *metrics.Collector
	logger     zerolog.Logger

	avgWindow int
	channels  []string
	alertsOn  bool
	locker    storage.AdvisoryLocker
	lockKey   int64

	// Notified-hour bookkeeping lives here, outside the pure engine. Each
	// device notifies at most once per hour; the map resets when the hour
	// bucket advances.
	mu       sync.Mutex
	lastHour time.Time
	notified map[string]struct{}
}

// New constructs the watcher service.
func New(cfg *config.Config, sched *scheduler.Scheduler, prices fetcher.PriceFetcher, limitSource LimitSource, store storage.PriceSampleStore, alertStore storage.AlertStore, notifier alerting.Notifier, collector *metrics.Collector, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:  sched,
		prices:     prices,
		limits:     limitSource,
		store:      store,
		alertStore: alertStore,
		notifier:   notifier,
		collector:  collector,
		logger:     logger.With().Str("component", "service").Logger(),
		avgWindow:  cfg.Pricing.AvgWindowHours,
		channels:   cfg.Alerting.Channels,
		alertsOn:   cfg.Alerting.Enabled,
		locker:     locker,
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
		notified:   make(map[string]struct{}),
	}
}

// Run begins the aligned hourly sampling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessHour)
}

// ProcessHour 执行单个小时桶的采样与评估逻辑。
func (s *Service) ProcessHour(ctx context.Context, hour time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("hour", hour).Msg("skip hour because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeHour(ctx, hour)
}

func (s *Service) executeHour(ctx context.Context, hour time.Time) error {
	hour = hour.Truncate(time.Hour)

	sample, err := s.prices.FetchPrice(ctx, hour)
	if err != nil {
		s.collector.RecordSample("errored")
		s.markErrored(ctx, hour, err)
		return fmt.Errorf("fetch spot price: %w", err)
	}

	avg := s.rollingAverage(ctx)

	if !sample.Valid {
		s.collector.RecordSample("errored")
		s.markErrored(ctx, hour, fmt.Errorf("price not published for hour"))
	} else {
		s.collector.RecordSample("complete")
		s.collector.SetCurrentPrice(sample.Price.InexactFloat64())
		s.persistSample(ctx, sample, avg)
	}

	set, err := s.limits.Load()
	if err != nil {
		return fmt.Errorf("load device limits: %w", err)
	}

	result := threshold.Evaluate(sample, set)

	s.logger.Info().Time("hour", hour).
		Str("price", priceString(sample)).
		Int("events", len(result.Events)).
		Msg("sample evaluated")

	if !s.alertsOn || len(result.Events) == 0 {
		return nil
	}

	for _, event := range result.Events {
		if !s.shouldNotify(ctx, hour, event) {
			continue
		}
		s.collector.RecordNotification(string(event.Kind))
		if s.notifier == nil {
			continue
		}
		note := alerting.Notification{
			Hour:     hour,
			Event:    event,
			Avg7d:    avg,
			Channels: s.channels,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Time("hour", hour).Str("device", event.Device).Msg("failed to dispatch notification")
		}
	}

	return nil
}

// shouldNotify enforces one notification per device per hour. When an alert
// store is available the insert doubles as a cross-process, restart-proof
// gate; the in-memory map covers store-less runs.
func (s *Service) shouldNotify(ctx context.Context, hour time.Time, event threshold.NotificationEvent) bool {
	s.mu.Lock()
	if !s.lastHour.Equal(hour) {
		s.lastHour = hour
		s.notified = make(map[string]struct{})
	}
	if _, seen := s.notified[event.Device]; seen {
		s.mu.Unlock()
		return false
	}
	s.notified[event.Device] = struct{}{}
	s.mu.Unlock()

	if s.alertStore == nil {
		return true
	}

	inserted, err := s.alertStore.InsertAlert(ctx, storage.AlertRecord{
		SampleTS:  hour,
		Device:    event.Device,
		Kind:      string(event.Kind),
		Price:     event.Price,
		Threshold: event.Threshold,
		Message:   event.Title,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("device", event.Device).Msg("failed to persist alert record")
		return true
	}
	return inserted
}

func (s *Service) rollingAverage(ctx context.Context) *decimal.Decimal {
	latest, err := s.prices.FetchLatestPrices(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch latest prices for rolling average")
		return nil
	}
	avg, ok := fetcher.RollingAverage(latest, s.avgWindow)
	if !ok {
		return nil
	}
	return &avg
}

func (s *Service) persistSample(ctx context.Context, sample threshold.PriceSample, avg *decimal.Decimal) {
	if s.store == nil {
		return
	}
	price := sample.Price
	record := storage.PriceSampleRecord{
		Hour:      sample.Hour,
		Price:     &price,
		Avg7d:     avg,
		Status:    "complete",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertPriceSample(ctx, record); err != nil {
		s.logger.Error().Err(err).Time("hour", sample.Hour).Msg("failed to upsert sample")
	}
}

func (s *Service) markErrored(ctx context.Context, hour time.Time, cause error) {
	if s.store == nil {
		return
	}
	if err := s.store.MarkSampleErrored(ctx, hour, cause.Error()); err != nil {
		s.logger.Error().Err(err).Time("hour", hour).Msg("failed to mark sample errored")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func priceString(sample threshold.PriceSample) string {
	if !sample.Valid {
		return "unknown"
	}
	return sample.Price.StringFixed(1)
}
