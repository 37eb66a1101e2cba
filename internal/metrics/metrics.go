// Package metrics exports pool activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/andrei-cloud/go_assetpool/pkg/pool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "go_assetpool"

// PoolObserver is a pool.Observer backed by Prometheus collectors, labeled by
// pool name.
type PoolObserver struct {
	gets    *prometheus.CounterVec
	grows   *prometheus.CounterVec
	returns *prometheus.CounterVec
	size    *prometheus.GaugeVec
}

var _ pool.Observer = (*PoolObserver)(nil)

// NewPoolObserver registers the pool collectors with reg.
func NewPoolObserver(reg prometheus.Registerer) *PoolObserver {
	f := promauto.With(reg)

	return &PoolObserver{
		gets: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "gets_total",
				Help:      "Total number of acquisitions, by whether they grew the pool",
			},
			[]string{"pool", "grown"},
		),
		grows: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "slots_added_total",
				Help:      "Total number of slots added by growth",
			},
			[]string{"pool"},
		),
		returns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "returns_total",
				Help:      "Total number of items returned to the pool",
			},
			[]string{"pool"},
		),
		size: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "slots",
				Help:      "Current number of slots in the pool",
			},
			[]string{"pool"},
		),
	}
}

// ObserveGet implements pool.Observer.
func (o *PoolObserver) ObserveGet(name string, grown bool) {
	o.gets.WithLabelValues(name, strconv.FormatBool(grown)).Inc()
}

// ObserveGrow implements pool.Observer.
func (o *PoolObserver) ObserveGrow(name string, added, size int) {
	o.grows.WithLabelValues(name).Add(float64(added))
	o.size.WithLabelValues(name).Set(float64(size))
}

// ObserveSize implements pool.Observer.
func (o *PoolObserver) ObserveSize(name string, size int) {
	o.size.WithLabelValues(name).Set(float64(size))
}

// ObserveReturn implements pool.Observer.
func (o *PoolObserver) ObserveReturn(name string) {
	o.returns.WithLabelValues(name).Inc()
}

// Serve exposes gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}()

	log.Info().Str("address", addr).Msg("metrics endpoint started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
