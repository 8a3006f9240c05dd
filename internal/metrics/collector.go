package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service registry: license decision outcomes, OTP
// issuance, DRM round-trip latency and HTTP timings.
type Collector struct {
	registry *prometheus.Registry

	validations *prometheus.CounterVec
	binds       *prometheus.CounterVec
	otpIssued   prometheus.Counter
	otpFailed   prometheus.Counter
	drmLatency  prometheus.Histogram
	httpTimings *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_license_validations_total",
			Help: "License validation attempts by outcome.",
		}, []string{"outcome"}),
		binds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_license_binds_total",
			Help: "Account bind attempts by outcome.",
		}, []string{"outcome"}),
		otpIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lms_playback_otp_issued_total",
			Help: "Playback credentials issued.",
		}),
		otpFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lms_playback_otp_failures_total",
			Help: "Playback credential issuance failures.",
		}),
		drmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lms_drm_request_seconds",
			Help:    "DRM provider round-trip latency.",
			Buckets: prometheus.DefBuckets,
		}),
		httpTimings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_http_request_seconds",
			Help:    "HTTP request duration by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	reg.MustRegister(c.validations, c.binds, c.otpIssued, c.otpFailed, c.drmLatency, c.httpTimings)
	return c
}

func (c *Collector) ValidationResult(outcome string) { c.validations.WithLabelValues(outcome).Inc() }
func (c *Collector) BindResult(outcome string)       { c.binds.WithLabelValues(outcome).Inc() }
func (c *Collector) OTPIssued()                      { c.otpIssued.Inc() }
func (c *Collector) OTPFailed()                      { c.otpFailed.Inc() }
func (c *Collector) ObserveDRM(d time.Duration)      { c.drmLatency.Observe(d.Seconds()) }

func (c *Collector) ObserveHTTP(route, status string, d time.Duration) {
	c.httpTimings.WithLabelValues(route, status).Observe(d.Seconds())
}

// Handler exposes the registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
