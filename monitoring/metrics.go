package monitoring

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"festival-tickets/models"
	"festival-tickets/store"
)

var (
	ticketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_validations_total",
			Help: "Validation attempts by verdict and scanner source",
		},
		[]string{"verdict", "source"},
	)

	validationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_validation_duration_seconds",
			Help:    "End to end duration of validate calls",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	rateLimitedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	galleryCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_cache_events_total",
			Help: "Gallery cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	ticketsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_by_status_total",
			Help: "Ticket counts grouped by status",
		},
		[]string{"status"},
	)
)

// Monitor tracks validation traffic and periodically refreshes the ticket
// census gauges from the database. A nil Monitor is valid and tracks nothing.
type Monitor struct {
	store    *store.TicketStore
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewMonitor(st *store.TicketStore) *Monitor {
	monitor := &Monitor{
		store:    st,
		stopChan: make(chan struct{}),
	}

	monitor.wg.Add(1)
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	defer m.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collectTicketCensus()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) collectTicketCensus() {
	stats, err := m.store.Stats()
	if err != nil {
		slog.Error("ticket census collection failed", "error", err)
		return
	}
	for status, count := range stats.ByStatus {
		ticketsByStatus.WithLabelValues(status).Set(float64(count))
	}
}

// Shutdown stops the census collector and waits for it to exit.
func (m *Monitor) Shutdown() {
	if m == nil {
		return
	}
	close(m.stopChan)
	m.wg.Wait()
}

func (m *Monitor) TrackValidation(code models.VerdictCode, source string, duration time.Duration) {
	if m == nil {
		return
	}
	ticketValidations.WithLabelValues(string(code), source).Inc()
	validationDuration.Observe(duration.Seconds())
}

func (m *Monitor) TrackRateLimited(route string) {
	if m == nil {
		return
	}
	rateLimitedRequests.WithLabelValues(route).Inc()
}

func (m *Monitor) TrackGalleryCache(outcome string) {
	if m == nil {
		return
	}
	galleryCacheEvents.WithLabelValues(outcome).Inc()
}

// StartMetricsServer exposes the Prometheus endpoint on its own port so the
// scrape surface never shares a listener with the public API.
func StartMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		slog.Info("metrics server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}
