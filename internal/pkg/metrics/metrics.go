package metrics

import (
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
		Namespace: "photoeye",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "photoeye",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "photoeye",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Capture pipeline metrics
	CapturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photoeye",
		Subsystem: "capture",
		Name:      "captures_total",
		Help:      "Capture attempts by outcome (ok, validation, no_imagery, upstream, not_configured, internal)",
	}, []string{"outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "photoeye",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the imagery/geocoding upstream",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photoeye",
		Subsystem: "upstream",
		Name:      "errors_total",
		Help:      "Upstream calls that failed, by endpoint and status",
	}, []string{"endpoint", "status"})

	CaptureBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "photoeye",
		Subsystem: "capture",
		Name:      "image_bytes",
		Help:      "Size of captured images in bytes",
		Buckets:   prometheus.ExponentialBuckets(4096, 2, 9),
	})

	PanoramaSearchSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "photoeye",
		Subsystem: "location",
		Name:      "panorama_search_steps",
		Help:      "Radius steps tried before a nearest-panorama search finished",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8},
	})

	PhotosArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "photoeye",
		Subsystem: "album",
		Name:      "photos_archived_total",
		Help:      "Captures archived into user albums",
	})

	ActiveViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photoeye",
		Subsystem: "ws",
		Name:      "active_viewers",
		Help:      "Current number of connected viewer sockets",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photoeye",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photoeye",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photoeye",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photoeye",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photoeye",
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
		path := c.Route().Path // route pattern keeps label cardinality bounded
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
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

// ObserveUpstream records one upstream call. status 0 means a transport failure.
func ObserveUpstream(endpoint string, started time.Time, status int) {
	UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	if status == 0 || status >= 300 {
		UpstreamErrors.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	// Matches *pgxpool.Stat without importing pgx here.
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
