package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AuthDenials counts rejected requests by denial reason so operators
	// can spot token abuse or misconfigured clients.
	AuthDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_denials_total",
			Help: "Authentication and authorization denials by reason.",
		},
		[]string{"reason"},
	)

	// AuditWriteFailures is the alerting hook for lost audit entries: the
	// write path never fails the triggering request, so this counter is
	// how repeated failures surface.
	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Audit log writes that failed and were dropped.",
	})
)

// Init registers the metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(AuthDenials, AuditWriteFailures)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
