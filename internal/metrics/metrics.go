package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warden"

// Metrics holds the service collectors. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	LoginOutcomes    *prometheus.CounterVec
	OtpVerifications *prometheus.CounterVec
	OtpThrottled     prometheus.Counter
	Lockouts         prometheus.Counter
	RoleGrantChanges *prometheus.CounterVec
	CatalogRefreshes *prometheus.CounterVec

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// New creates the collectors and registers them with reg. Collectors that are already
// registered are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		LoginOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_outcomes_total",
			Help:      "Login attempts partitioned by outcome kind.",
		}, []string{"outcome"}),
		OtpVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "otp_verifications_total",
			Help:      "OTP checks partitioned by result code.",
		}, []string{"result"}),
		OtpThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "otp_requests_throttled_total",
			Help:      "OTP requests refused by the per-email throttle.",
		}),
		Lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "account_lockouts_total",
			Help:      "Accounts locked after repeated credential failures.",
		}),
		RoleGrantChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roles",
			Name:      "grant_changes_total",
			Help:      "Role grants inserted or deleted.",
		}, []string{"action"}),
		CatalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roles",
			Name:      "catalog_refreshes_total",
			Help:      "Permission catalog reloads partitioned by result.",
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}

	var err error
	if m.LoginOutcomes, err = register(reg, m.LoginOutcomes); err != nil {
		return nil, err
	}
	if m.OtpVerifications, err = register(reg, m.OtpVerifications); err != nil {
		return nil, err
	}
	if m.OtpThrottled, err = register(reg, m.OtpThrottled); err != nil {
		return nil, err
	}
	if m.Lockouts, err = register(reg, m.Lockouts); err != nil {
		return nil, err
	}
	if m.RoleGrantChanges, err = register(reg, m.RoleGrantChanges); err != nil {
		return nil, err
	}
	if m.CatalogRefreshes, err = register(reg, m.CatalogRefreshes); err != nil {
		return nil, err
	}
	if m.Requests, err = register(reg, m.Requests); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, m.Duration); err != nil {
		return nil, err
	}
	if m.InFlight, err = register(reg, m.InFlight); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveOtp(result string) {
	if m == nil {
		return
	}
	m.OtpVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveThrottled() {
	if m == nil {
		return
	}
	m.OtpThrottled.Inc()
}

func (m *Metrics) ObserveLockout() {
	if m == nil {
		return
	}
	m.Lockouts.Inc()
}

// ObserveGrantChanges records grants inserted and deleted by one role update.
func (m *Metrics) ObserveGrantChanges(granted, revoked int) {
	if m == nil {
		return
	}
	m.RoleGrantChanges.WithLabelValues("granted").Add(float64(granted))
	m.RoleGrantChanges.WithLabelValues("revoked").Add(float64(revoked))
}

func (m *Metrics) ObserveCatalogRefresh(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CatalogRefreshes.WithLabelValues(result).Inc()
}

// Middleware records request count, latency and in-flight requests, labelled by the
// matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		m.Requests.With(labels).Inc()
		m.Duration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// PoolStat is the subset of pool statistics exported as gauges
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// RegisterPool exports connection pool gauges read from stat at scrape time.
func RegisterPool(reg prometheus.Registerer, stat func() PoolStat) error {
	gauges := map[string]func(PoolStat) int32{
		"acquired": PoolStat.AcquiredConns,
		"idle":     PoolStat.IdleConns,
		"total":    PoolStat.TotalConns,
	}
	for state, read := range gauges {
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "db_pool",
			Name:        "connections",
			Help:        "Database pool connections by state.",
			ConstLabels: prometheus.Labels{"state": state},
		}, func() float64 { return float64(read(stat())) })
		if _, err := register(reg, g); err != nil {
			return err
		}
	}
	return nil
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
