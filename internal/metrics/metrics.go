package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Latency of storefront HTTP requests by route and status class",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	CartOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Cart mutations by operation and outcome",
	}, []string{"op", "result"})

	Checkouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by outcome",
	}, []string{"result"})

	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders created from converted cart lines",
	})

	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"result"})

	EventPublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_event_publish_failures_total",
		Help: "Domain events that could not be delivered, by topic",
	}, []string{"topic"})
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestDuration,
			CartOperations,
			Checkouts,
			OrdersCreated,
			Logins,
			EventPublishFailures,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, StatusClass(status)).Observe(elapsed.Seconds())
}

func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Result maps an operation error to a low-cardinality label.
func Result(err error, classify func(error) string) string {
	if err == nil {
		return "ok"
	}
	if classify != nil {
		if r := classify(err); r != "" {
			return r
		}
	}
	return "error"
}
