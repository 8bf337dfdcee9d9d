package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamio_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})

	// UploadsTotal counts stored uploads by kind (profile, cover, video, stream_video).
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamio_uploads_total",
		Help: "Total number of stored media uploads",
	}, []string{"kind"})

	// UploadBytes records the size of stored uploads.
	UploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dreamio_upload_bytes",
		Help:    "Size of stored media uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
	}, []string{"kind"})

	// ActiveWebSockets is the number of open live-stream viewer sockets.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dreamio_active_websockets",
		Help: "Number of open live-stream viewer websocket connections",
	})

	// WebSocketDrops counts viewer messages dropped because a client could not keep up.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamio_websocket_dropped_messages_total",
		Help: "Total number of websocket messages dropped by reason",
	}, []string{"hub", "reason"})

	// EditorOperations counts timeline operations applied through editor sessions.
	EditorOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamio_editor_operations_total",
		Help: "Total number of timeline operations applied to editor sessions",
	}, []string{"op"})
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the request metrics collector once per process.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware records request counts and latency.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
