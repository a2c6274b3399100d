package app

import (
	"context"
	"errors"
	"time"

	"spotwatch/internal/service"
	"spotwatch/internal/storage"
)

// Backfill fetches historical hourly prices into the sample store。
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	start := opts.From.UTC().Truncate(time.Hour)
	end := opts.To.UTC().Truncate(time.Hour)
	if !start.Before(end) {
		return errors.New("回填范围为空，请检查 --from/--to")
	}

	var sampleStore storage.PriceSampleStore
	if opts.DryRun {
		a.Logger.Warn().Msg("回填 dry-run：不会写入数据库")
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn 未配置，无法回填")
		}
		if closeStore != nil {
			defer closeStore()
		}
		sampleStore = store
	}

	// Backfill only records prices. Alerting for hours in the past would be
	// noise, so alerting is forced off for the replay.
	cfg := *a.Config
	cfg.Alerting.Enabled = false
	svc := service.New(&cfg, nil, a.newFetcher(), staticLimitSource{}, sampleStore, nil, nil, nil, a.Logger)

	processed := 0
	failed := 0
	for hour := start; hour.Before(end); hour = hour.Add(time.Hour) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := svc.ProcessHour(ctx, hour); err != nil {
			failed++
			a.Logger.Error().Err(err).Time("hour", hour).Msg("回填失败")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("回填完成")
	if failed > 0 {
		return errors.New("部分小时回填失败，请检查日志")
	}
	return nil
}
