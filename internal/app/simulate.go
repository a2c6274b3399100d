package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"spotwatch/internal/fetcher"
	"spotwatch/internal/limits"
	"spotwatch/internal/service"
	"spotwatch/internal/threshold"
)

// SimulateAlert 以给定的价格走一遍完整的评估与推送流程。
func (a *App) SimulateAlert(ctx context.Context, price decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	local, closeLocal, err := a.openLocalStore()
	if err != nil {
		return err
	}
	defer closeLocal()

	hour := time.Now().UTC().Truncate(time.Hour)
	fetch := &staticPriceFetcher{
		sample: threshold.PriceSample{Hour: hour, Price: price.Round(1), Valid: true},
	}

	limitRepo := limits.NewRepository(local, a.Logger)
	svc := service.New(a.Config, nil, fetch, limitRepo, nil, nil, notifier, nil, a.Logger)

	return svc.ProcessHour(ctx, hour)
}

type staticPriceFetcher struct {
	sample threshold.PriceSample
}

func (s *staticPriceFetcher) FetchPrice(ctx context.Context, t time.Time) (threshold.PriceSample, error) {
	return s.sample, nil
}

func (s *staticPriceFetcher) FetchLatestPrices(ctx context.Context) ([]threshold.PriceSample, error) {
	return []threshold.PriceSample{s.sample}, nil
}

// staticLimitSource serves the built-in defaults when no settings store is in
// play, e.g. during backfill.
type staticLimitSource struct{}

func (staticLimitSource) Load() (threshold.LimitSet, error) {
	return threshold.DefaultLimitSet(), nil
}

var _ fetcher.PriceFetcher = (*staticPriceFetcher)(nil)
