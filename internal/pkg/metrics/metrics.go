package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldtrace",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldtrace",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Tracking-specific metrics
	PositionsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "tracking",
		Name:      "positions_ingested_total",
		Help:      "Total position samples consumed from the stream",
	})

	PositionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "tracking",
		Name:      "positions_dropped_total",
		Help:      "Total position samples dropped before evaluation",
	}, []string{"reason"}) // invalid, out_of_order

	DecisionsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "tracking",
		Name:      "decisions_evaluated_total",
		Help:      "Total geofence decisions evaluated",
	}, []string{"status"})

	AutoPunchIns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "tracking",
		Name:      "auto_punch_ins_total",
		Help:      "Total automatic punch-in transitions",
	})

	StopsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "tracking",
		Name:      "stops_detected_total",
		Help:      "Total stops reconstructed from route samples",
	})

	IdleAlertsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "tracking",
		Name:      "idle_alerts_published_total",
		Help:      "Total idle alerts published",
	}, []string{"severity"})

	SessionsSweptOffline = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "tracking",
		Name:      "sessions_swept_offline_total",
		Help:      "Total live sessions marked offline by the sweeper",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldtrace",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrace",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldtrace",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldtrace",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldtrace",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// Serve exposes /metrics on its own listener, for workers that carry no
// Fiber app. Blocks; intended to run in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
