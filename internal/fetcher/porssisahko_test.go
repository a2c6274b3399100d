package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchPriceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/price.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("date") != "2026-08-31" || r.URL.Query().Get("hour") != "14" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price": 3.47}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	at := time.Date(2026, 8, 31, 14, 22, 5, 0, time.UTC)

	sample, err := c.FetchPrice(context.Background(), at)
	if err != nil {
		t.Fatalf("FetchPrice: %v", err)
	}
	if !sample.Valid {
		t.Fatal("sample should be valid")
	}
	if sample.Price.String() != "3.5" {
		t.Fatalf("price should round to one decimal, got %s", sample.Price)
	}
	if !sample.Hour.Equal(at.Truncate(time.Hour)) {
		t.Fatalf("hour = %s", sample.Hour)
	}
}

func TestFetchPriceMissingValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	sample, err := c.FetchPrice(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("missing price is not an error: %v", err)
	}
	if sample.Valid {
		t.Fatal("sample without price must be invalid")
	}
}

func TestFetchPriceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := c.FetchPrice(context.Background(), time.Now()); err == nil {
		t.Fatal("HTTP 500 应返回错误")
	}
}

func TestFetchLatestPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/latest-prices.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"prices":[
			{"price":2.941,"startDate":"2026-08-31T13:00:00.000Z","endDate":"2026-08-31T14:00:00.000Z"},
			{"price":3.112,"startDate":"2026-08-31T12:00:00.000Z","endDate":"2026-08-31T13:00:00.000Z"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	samples, err := c.FetchLatestPrices(context.Background())
	if err != nil {
		t.Fatalf("FetchLatestPrices: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Price.String() != "2.9" {
		t.Fatalf("price = %s", samples[0].Price)
	}
	if samples[0].Hour.Hour() != 13 {
		t.Fatalf("hour = %s", samples[0].Hour)
	}
}

func TestRollingAverage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prices":[
			{"price":2.0,"startDate":"2026-08-31T13:00:00.000Z","endDate":"2026-08-31T14:00:00.000Z"},
			{"price":4.0,"startDate":"2026-08-31T12:00:00.000Z","endDate":"2026-08-31T13:00:00.000Z"},
			{"price":9.0,"startDate":"2026-08-31T11:00:00.000Z","endDate":"2026-08-31T12:00:00.000Z"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	samples, err := c.FetchLatestPrices(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	avg, ok := RollingAverage(samples, 2)
	if !ok {
		t.Fatal("average should be available")
	}
	if avg.String() != "3" {
		t.Fatalf("avg = %s", avg)
	}

	// Window longer than the data falls back to all samples.
	avg, ok = RollingAverage(samples, 168)
	if !ok {
		t.Fatal("average should be available")
	}
	if avg.String() != "5" {
		t.Fatalf("avg = %s", avg)
	}

	if _, ok := RollingAverage(nil, 24); ok {
		t.Fatal("no samples should yield no average")
	}
}
