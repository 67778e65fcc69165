// internal/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the relay and poller update.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	queued     *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	delivered  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	queueLen   *prometheus.GaugeVec
	connState  *prometheus.GaugeVec
	sendLag    *prometheus.HistogramVec
	cycles     prometheus.Counter
	cycleTime  prometheus.Histogram
	readErrors prometheus.Counter
	health     prometheus.Gauge
	errorSecs  prometheus.Gauge
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_samples_queued_total",
			Help: "Samples accepted into a sink queue.",
		}, []string{"sink"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_samples_dropped_total",
			Help: "Samples dropped because a sink queue stayed full.",
		}, []string{"sink"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_samples_delivered_total",
			Help: "Samples transmitted to a sink.",
		}, []string{"sink"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_transmit_failures_total",
			Help: "Failed transmission attempts by error code.",
		}, []string{"sink", "code"}),
		queueLen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_queue_length",
			Help: "Samples currently buffered per sink.",
		}, []string{"sink"}),
		connState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_connection_state",
			Help: "Sink connection state (0=disconnected, 1=connecting, 2=connected).",
		}, []string{"sink"}),
		sendLag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_delivery_lag_seconds",
			Help:    "Time from sample creation to successful transmission.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"sink"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poller_cycles_total",
			Help: "Completed poll cycles.",
		}),
		cycleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "poller_cycle_duration_seconds",
			Help:    "Duration of one poll cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poller_read_failures_total",
			Help: "Register batch reads that failed.",
		}),
		health: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poller_source_health",
			Help: "Register source health (0=unknown, 1=ok, 2=error).",
		}),
		errorSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poller_source_seconds_in_error",
			Help: "Seconds the register source has been failing.",
		}),
	}

	reg.MustRegister(
		m.queued, m.dropped, m.delivered, m.failures,
		m.queueLen, m.connState, m.sendLag,
		m.cycles, m.cycleTime, m.readErrors, m.health, m.errorSecs,
	)
	return m
}

func (m *Metrics) SampleQueued(sink string, queueLen int) {
	if m == nil {
		return
	}
	m.queued.WithLabelValues(sink).Inc()
	m.queueLen.WithLabelValues(sink).Set(float64(queueLen))
}

func (m *Metrics) SampleDropped(sink string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(sink).Inc()
}

func (m *Metrics) SampleDelivered(sink string, queueLen int, lag time.Duration) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(sink).Inc()
	m.queueLen.WithLabelValues(sink).Set(float64(queueLen))
	if lag >= 0 {
		m.sendLag.WithLabelValues(sink).Observe(lag.Seconds())
	}
}

func (m *Metrics) TransmitFailed(sink, code string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(sink, code).Inc()
}

func (m *Metrics) ConnState(sink string, state int) {
	if m == nil {
		return
	}
	m.connState.WithLabelValues(sink).Set(float64(state))
}

func (m *Metrics) PollCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.cycleTime.Observe(d.Seconds())
}

func (m *Metrics) ReadFailed() {
	if m == nil {
		return
	}
	m.readErrors.Inc()
}

func (m *Metrics) SourceStatus(health, secondsInError uint16) {
	if m == nil {
		return
	}
	m.health.Set(float64(health))
	m.errorSecs.Set(float64(secondsInError))
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
