package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by operation name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "discussify_redis_errors_total",
	Help: "Total number of Redis errors by operation type",
}, []string{"operation"})

// MembershipMutations counts membership changes by operation and outcome.
var MembershipMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "discussify_membership_mutations_total",
	Help: "Total number of community membership mutations by operation and outcome",
}, []string{"operation", "outcome"})

// NotificationEmitFailures counts swallowed notification side-effect failures.
var NotificationEmitFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "discussify_notification_emit_failures_total",
	Help: "Total number of best-effort notification emissions that failed",
})

// WebSocketDrops counts messages dropped on slow or closed websocket clients.
var WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "discussify_websocket_drops_total",
	Help: "Total number of websocket messages dropped by reason",
}, []string{"reason"})

// InitMetrics creates the Prometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the request-instrumentation handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
