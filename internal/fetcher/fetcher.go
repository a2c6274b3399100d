package fetcher

import (
	"context"
	"time"

	"spotwatch/internal/threshold"
)

// PriceFetcher retrieves hourly spot prices from the public price API.
type PriceFetcher interface {
	// FetchPrice returns the spot price for the hour containing t.
	FetchPrice(ctx context.Context, t time.Time) (threshold.PriceSample, error)
	// FetchLatestPrices returns the most recent published hourly prices,
	// newest first.
	FetchLatestPrices(ctx context.Context) ([]threshold.PriceSample, error)
}
