package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)
	// AuthOutcomes counts signup/login/link/reset results by error kind ("ok" on success).
	AuthOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_outcomes_total", Help: "Auth operation outcomes"},
		[]string{"op", "result"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "auth_rate_limited_total", Help: "Requests rejected by the rate limiter"},
	)
)

func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{RequestsTotal, ReqDuration, InFlight, AuthOutcomes, RateLimited} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func MustRegister() {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		panic(err)
	}
}

// Middleware records request count, latency and in-flight requests per route
// template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		InFlight.Inc()
		start := time.Now()
		c.Next()
		InFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
