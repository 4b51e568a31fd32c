package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ProviderRequestsTotal counts Mollie API calls by operation and outcome.
	ProviderRequestsTotal *prometheus.CounterVec
	// ProviderRequestLatency records Mollie API call latency in milliseconds.
	ProviderRequestLatency *prometheus.HistogramVec
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// SubscriptionsCreatedTotal counts subscription creation outcomes of the demo flow.
	SubscriptionsCreatedTotal *prometheus.CounterVec
	// MandatePollAttempts counts mandate lookups issued while awaiting a valid mandate.
	MandatePollAttempts prometheus.Counter
	// RateLimitedTotal counts requests rejected by a rate limiter, by limiter name.
	RateLimitedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Count of payment provider API calls by operation and result.",
		}, []string{"operation", "result"})
		ProviderRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_ms",
			Help:      "Latency of payment provider API calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"result"})
		SubscriptionsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_created_total",
			Help:      "Count of subscription creation attempts by result.",
		}, []string{"result"})
		MandatePollAttempts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mandate_poll_attempts_total",
			Help:      "Total number of mandate lookups issued while awaiting a valid mandate.",
		})
		RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by a rate limiter.",
		}, []string{"limiter"})

		ProviderRequestsTotal = registerOrReuse(reg, ProviderRequestsTotal)
		ProviderRequestLatency = registerOrReuse(reg, ProviderRequestLatency)
		PaymentWebhookTotal = registerOrReuse(reg, PaymentWebhookTotal)
		SubscriptionsCreatedTotal = registerOrReuse(reg, SubscriptionsCreatedTotal)
		MandatePollAttempts = registerOrReuse(reg, MandatePollAttempts)
		RateLimitedTotal = registerOrReuse(reg, RateLimitedTotal)
	})
}

// ObserveProviderCall records the outcome and latency of a provider API call.
// It is a no-op until MustRegisterDomainMetrics has run.
func ObserveProviderCall(operation, result string, millis float64) {
	if ProviderRequestsTotal != nil {
		ProviderRequestsTotal.WithLabelValues(operation, result).Inc()
	}
	if ProviderRequestLatency != nil {
		ProviderRequestLatency.WithLabelValues(operation).Observe(millis)
	}
}
