package quoteengine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// engineMetrics holds the eleven named metrics §6 requires the engine to
// emit: ten counters and one histogram. Each FailureKind retry counter is
// incremented at most once per call (§8 "the corresponding retry metric
// is emitted at most once per call") -- enforcement lives in the Retry
// Controller, which already tracks a per-kind "retried" flag for its own
// decision table and reuses it to gate the metric.
type engineMetrics struct {
	blockConflictRetry   prometheus.Counter
	blockHeaderRetry     prometheus.Counter
	timeoutRetry         prometheus.Counter
	outOfGasRetry        prometheus.Counter
	successRateRetry     prometheus.Counter
	unknownReasonRetry   prometheus.Counter
	approxGasPerSuccess  prometheus.Histogram
	numRetryLoops        prometheus.Counter
	totalCallsToProvider prometheus.Counter
	expectedCalls        prometheus.Counter
	numRetriedCalls      prometheus.Counter
}

var (
	defaultMetrics     *engineMetrics
	defaultMetricsOnce sync.Once
)

// newEngineMetrics registers the engine's prometheus collectors exactly
// once per process, matching the promauto.NewCounter/NewHistogram idiom
// the pack's batch-engine example uses.
func newEngineMetrics() *engineMetrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = &engineMetrics{
			blockConflictRetry: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_block_conflict_error_retry_total",
				Help: "Count of QuoteBlockConflictErrorRetry events.",
			}),
			blockHeaderRetry: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_block_header_not_found_retry_total",
				Help: "Count of QuoteBlockHeaderNotFoundRetry events.",
			}),
			timeoutRetry: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_timeout_retry_total",
				Help: "Count of QuoteTimeoutRetry events.",
			}),
			outOfGasRetry: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_out_of_gas_exception_retry_total",
				Help: "Count of QuoteOutOfGasExceptionRetry events.",
			}),
			successRateRetry: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_success_rate_retry_total",
				Help: "Count of QuoteSuccessRateRetry events.",
			}),
			unknownReasonRetry: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_unknown_reason_retry_total",
				Help: "Count of QuoteUnknownReasonRetry events.",
			}),
			approxGasPerSuccess: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "quote_approx_gas_used_per_successful_call",
				Help:    "Approximate gas used per successful quote call, as reported by the aggregator.",
				Buckets: prometheus.ExponentialBuckets(10_000, 2, 12),
			}),
			numRetryLoops: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_num_retry_loops_total",
				Help: "Count of QuoteNumRetryLoops events (one per failed attempt).",
			}),
			totalCallsToProvider: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_total_calls_to_provider_total",
				Help: "Count of QuoteTotalCallsToProvider events.",
			}),
			expectedCalls: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_expected_calls_to_provider_total",
				Help: "Count of QuoteExpectedCallsToProvider events.",
			}),
			numRetriedCalls: promauto.NewCounter(prometheus.CounterOpts{
				Name: "quote_num_retried_calls_total",
				Help: "Count of QuoteNumRetriedCalls events.",
			}),
		}
	})
	return defaultMetrics
}
