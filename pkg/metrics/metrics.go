package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ImagesUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "picload", Name: "images_uploaded_total", Help: "Number of images stored and attached to a user."},
	)
	ImagesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "picload", Name: "images_deleted_total", Help: "Number of images removed from the remote store and the user list."},
	)
	RemoteStoreFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "picload", Name: "remote_store_failures_total", Help: "Number of failed remote asset store calls by operation."},
		[]string{"op"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "picload", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "picload", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(ImagesUploaded)
	reg.MustRegister(ImagesDeleted)
	reg.MustRegister(RemoteStoreFailures)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
