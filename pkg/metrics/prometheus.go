package metrics

/* based on https://github.com/zsais/go-gin-prometheus
edits:
- zap-compatible logger interface
- no push gateway
- metrics served from a dedicated listener only
*/

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "How many HTTP requests processed, partitioned by status code and HTTP method.",
	Type:        "counter_vec",
	Args:        []string{"code", "method", "url", "ref"},
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "The HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"code", "method", "url", "ref"},
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "The HTTP response sizes in bytes.",
	Type:        "summary_vec",
	Args:        []string{"code", "method", "url", "ref"},
}

var defaultMetricPath = "/metrics"

type Logger interface {
	Errorf(format string, v ...interface{})
}

// RequestCounterURLLabelMappingFn controls the cardinality of the "url"
// label, e.g. by mapping /api/payments/pay_1/status to its route template.
type RequestCounterURLLabelMappingFn func(c *gin.Context) string

// Prometheus contains the HTTP collectors and the metrics endpoint.
type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec
	resSz  *prometheus.SummaryVec

	registerer    prometheus.Registerer
	gatherer      prometheus.Gatherer
	listenAddress string
	MetricsPath   string

	ReqCntURLLabelMappingFn RequestCounterURLLabelMappingFn

	logger Logger
}

type NewPrometheusOptions struct {
	Subsystem               string
	MetricsPath             string
	ListenAddress           string
	ReqCntURLLabelMappingFn RequestCounterURLLabelMappingFn
	Logger                  Logger
	// Registerer/Gatherer default to the prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewPrometheus generates the HTTP collectors with a certain subsystem name.
func NewPrometheus(options NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		MetricsPath:             options.MetricsPath,
		listenAddress:           options.ListenAddress,
		ReqCntURLLabelMappingFn: options.ReqCntURLLabelMappingFn,
		logger:                  options.Logger,
		registerer:              options.Registerer,
		gatherer:                options.Gatherer,
	}
	if p.MetricsPath == "" {
		p.MetricsPath = defaultMetricPath
	}
	if p.ReqCntURLLabelMappingFn == nil {
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return "unmatched"
		}
	}
	if p.registerer == nil {
		p.registerer = prometheus.DefaultRegisterer
	}
	if p.gatherer == nil {
		p.gatherer = prometheus.DefaultGatherer
	}

	p.reqCnt = p.register(reqCnt, options.Subsystem).(*prometheus.CounterVec)
	p.reqDur = p.register(reqDur, options.Subsystem).(*prometheus.HistogramVec)
	p.resSz = p.register(resSz, options.Subsystem).(*prometheus.SummaryVec)
	return p
}

func (p *Prometheus) register(def *Metric, subsystem string) prometheus.Collector {
	metric := NewMetric(def, subsystem)
	if err := p.registerer.Register(metric); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		if p.logger != nil {
			p.logger.Errorf("%s could not be registered in Prometheus, err=%v", def.Name, err)
		}
	}
	return metric
}

// Handler serves the gathered metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Server returns the dedicated metrics listener, or nil if none is configured.
func (p *Prometheus) Server() *http.Server {
	if p.listenAddress == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(p.MetricsPath, p.Handler())
	return &http.Server{Addr: p.listenAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// Use adds the middleware to a gin engine.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.HandlerFunc())
}

// HandlerFunc defines handler function for middleware
func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		url := p.ReqCntURLLabelMappingFn(c)
		ref := c.Request.Header.Get(RefererKey)

		p.reqDur.WithLabelValues(status, c.Request.Method, url, ref).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(status, c.Request.Method, url, ref).Inc()
		p.resSz.WithLabelValues(status, c.Request.Method, url, ref).Observe(float64(c.Writer.Size()))
	}
}

func MillisecondsSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
