package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"spotwatch/internal/threshold"
)

const (
	pricePath        = "/v1/price.json"
	latestPricesPath = "/v1/latest-prices.json"
)

// Options parameterise the porssisahko.net client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches spot prices from api.porssisahko.net.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a spot price client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.porssisahko.net"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "price_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type priceResponse struct {
	Price *json.Number `json:"price"`
}

type latestPricesResponse struct {
	Prices []struct {
		Price     json.Number `json:"price"`
		StartDate time.Time   `json:"startDate"`
		EndDate   time.Time   `json:"endDate"`
	} `json:"prices"`
}

// FetchPrice retrieves the spot price for the hour containing t.
// Prices are normalized to one decimal place in c/kWh.
func (c *Client) FetchPrice(ctx context.Context, t time.Time) (threshold.PriceSample, error) {
	hour := t.Truncate(time.Hour)
	url := fmt.Sprintf("%s%s?date=%s&hour=%d", c.baseURL, pricePath, hour.Format("2006-01-02"), hour.Hour())

	payload, err := c.get(ctx, url)
	if err != nil {
		return threshold.PriceSample{Hour: hour}, err
	}

	var res priceResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return threshold.PriceSample{Hour: hour}, fmt.Errorf("parse price response: %w", err)
	}
	if res.Price == nil {
		// The API answers with an empty body shape when the hour is not
		// published yet; callers treat this as an Unknown-classifying sample.
		return threshold.PriceSample{Hour: hour}, nil
	}

	price, err := decimal.NewFromString(res.Price.String())
	if err != nil {
		return threshold.PriceSample{Hour: hour}, fmt.Errorf("parse price value: %w", err)
	}

	return threshold.PriceSample{Hour: hour, Price: price.Round(1), Valid: true}, nil
}

// FetchLatestPrices retrieves the published hourly prices of the last 48
// hours, newest first.
func (c *Client) FetchLatestPrices(ctx context.Context) ([]threshold.PriceSample, error) {
	payload, err := c.get(ctx, c.baseURL+latestPricesPath)
	if err != nil {
		return nil, err
	}

	var res latestPricesResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("parse latest prices: %w", err)
	}

	samples := make([]threshold.PriceSample, 0, len(res.Prices))
	for _, entry := range res.Prices {
		price, err := decimal.NewFromString(entry.Price.String())
		if err != nil {
			return nil, fmt.Errorf("parse price value: %w", err)
		}
		samples = append(samples, threshold.PriceSample{
			Hour:  entry.StartDate.UTC().Truncate(time.Hour),
			Price: price.Round(1),
			Valid: true,
		})
	}

	return samples, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "spotwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	return payload, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("price api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("price api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("price api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("price api error (%d)", status)
}

// RollingAverage computes the mean of the newest n samples, rounded to one
// decimal. It returns a zero decimal and false when no samples are available.
func RollingAverage(samples []threshold.PriceSample, n int) (decimal.Decimal, bool) {
	if n <= 0 || len(samples) == 0 {
		return decimal.Decimal{}, false
	}
	if n > len(samples) {
		n = len(samples)
	}

	sum := decimal.Zero
	for _, s := range samples[:n] {
		sum = sum.Add(s.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(1), true
}

var _ PriceFetcher = (*Client)(nil)
