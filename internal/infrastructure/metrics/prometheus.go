package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus owns a private registry with the service's collectors
type Prometheus struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	vouchersCreated  prometheus.Counter
	vouchersRedeemed prometheus.Counter
	messagesReceived prometheus.Counter
	alpakasCreated   prometheus.Counter
	eventsCreated    prometheus.Counter
}

// NewPrometheus registers all collectors on a fresh registry
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		vouchersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vouchers_created_total",
			Help: "Vouchers stored.",
		}),
		vouchersRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vouchers_redeemed_total",
			Help: "Vouchers redeemed.",
		}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_received_total",
			Help: "Contact messages stored.",
		}),
		alpakasCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alpakas_created_total",
			Help: "Alpakas added to the herd.",
		}),
		eventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_created_total",
			Help: "Herd events recorded, counted once per event.",
		}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.requests,
		p.requestDuration,
		p.vouchersCreated,
		p.vouchersRedeemed,
		p.messagesReceived,
		p.alpakasCreated,
		p.eventsCreated,
	)
	return p
}

func (p *Prometheus) VoucherCreated()  { p.vouchersCreated.Inc() }
func (p *Prometheus) VoucherRedeemed() { p.vouchersRedeemed.Inc() }
func (p *Prometheus) MessageReceived() { p.messagesReceived.Inc() }
func (p *Prometheus) AlpakaCreated()   { p.alpakasCreated.Inc() }
func (p *Prometheus) EventCreated()    { p.eventsCreated.Inc() }

// Registry exposes the registry for tests and custom collectors
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template
func (p *Prometheus) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		p.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		p.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Verify interface compliance
var _ port.Metrics = (*Prometheus)(nil)
