package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// HistogramBuckets covers request latencies in milliseconds; provider calls
// routinely take a few seconds.
var HistogramBuckets = []float64{
	25, 50, 100, 200, 300, 500,
	750, 1000, 1500, 2000,
	3000, 5000, 7500, 10000, 15000, 30000,
}

// Metric is a definition for the name, description, type and label set of
// each collector.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: HistogramBuckets},
			m.Args,
		)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(
			prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	}
	return metric
}

const businessSubsystem = "paymint"

var (
	paymentsCreated = &Metric{
		ID:          "paymentsCreated",
		Name:        "payments_created_total",
		Description: "Payments accepted by a provider and persisted as pending.",
		Type:        "counter_vec",
		Args:        []string{"provider"},
	}
	paymentsReconciled = &Metric{
		ID:          "paymentsReconciled",
		Name:        "payments_reconciled_total",
		Description: "Pending payments moved to a terminal status.",
		Type:        "counter_vec",
		Args:        []string{"provider", "status"},
	}
	webhookDeliveries = &Metric{
		ID:          "webhookDeliveries",
		Name:        "webhook_deliveries_total",
		Description: "Merchant webhook delivery attempts by result.",
		Type:        "counter_vec",
		Args:        []string{"result"},
	}
	providerLatency = &Metric{
		ID:          "providerLatency",
		Name:        "provider_call_ms",
		Description: "Provider adapter call latency in milliseconds.",
		Type:        "histogram_vec",
		Args:        []string{"provider", "op"},
	}
)

var (
	PaymentsCreated    = NewMetric(paymentsCreated, businessSubsystem).(*prometheus.CounterVec)
	PaymentsReconciled = NewMetric(paymentsReconciled, businessSubsystem).(*prometheus.CounterVec)
	WebhookDeliveries  = NewMetric(webhookDeliveries, businessSubsystem).(*prometheus.CounterVec)
	ProviderLatency    = NewMetric(providerLatency, businessSubsystem).(*prometheus.HistogramVec)

	businessOnce sync.Once
)

// RegisterBusiness registers the domain collectors once per process.
func RegisterBusiness(reg prometheus.Registerer, log Logger) {
	businessOnce.Do(func() {
		for _, c := range []prometheus.Collector{PaymentsCreated, PaymentsReconciled, WebhookDeliveries, ProviderLatency} {
			if err := reg.Register(c); err != nil {
				log.Errorf("business metric could not be registered, err=%v", err)
			}
		}
	})
}

const (
	RefererKey = "X-Referer"
)
