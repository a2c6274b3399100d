package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Collector records sampling and notification activity in Prometheus
// metrics. If the collectors are already registered, the existing ones are
// reused so repeated construction in tests is harmless.
type Collector struct {
	samples       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	currentPrice  prometheus.Gauge
}

// NewCollector registers the spotwatch metrics on the provided registerer.
// A nil registerer falls back to the default one.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	samples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotwatch_samples_total",
		Help: "Total number of hourly price samples processed",
	}, []string{"status"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotwatch_notifications_total",
		Help: "Total number of notifications emitted",
	}, []string{"kind"})
	currentPrice := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spotwatch_current_price_cents_per_kwh",
		Help: "Most recently sampled spot price in c/kWh",
	})

	if err := reg.Register(samples); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			samples = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(notifications); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			notifications = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(currentPrice); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			currentPrice = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &Collector{samples: samples, notifications: notifications, currentPrice: currentPrice}, nil
}

// RecordSample counts a processed hour by outcome ("complete" or "errored").
func (c *Collector) RecordSample(status string) {
	if c == nil {
		return
	}
	c.samples.WithLabelValues(status).Inc()
}

// RecordNotification counts an emitted notification by trigger kind.
func (c *Collector) RecordNotification(kind string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(kind).Inc()
}

// SetCurrentPrice publishes the latest sampled price.
func (c *Collector) SetCurrentPrice(price float64) {
	if c == nil {
		return
	}
	c.currentPrice.Set(price)
}

// StartServer exposes /metrics on addr until ctx is cancelled. A dedicated
// ServeMux is used so the listener carries nothing but the metrics handler.
func StartServer(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
