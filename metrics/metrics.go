package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsGenerator is what the relayer and the analysis engine report to.
type MetricsGenerator interface {
	IncAnalysis()
	IncTransferDecoded(kind string)
	IncDecodeFailure()
	IncClassifierLookup(result string)
	AddProfitTakers(n int)

	IncFlashLoanRequest(status string)
	IncSimulation(status string)
	AddUptime(float64)
}

// RelayerMetrics contains instrumented metrics that should be incremented by the relayer using the methods below
type RelayerMetrics struct {
	uptime prometheus.Counter

	numAnalyses         prometheus.Counter
	numTransfersDecoded *prometheus.CounterVec
	numDecodeFailures   prometheus.Counter
	numClassifierLookup *prometheus.CounterVec
	numProfitTakers     prometheus.Counter

	numFlashLoanRequests *prometheus.CounterVec
	numSimulations       *prometheus.CounterVec
}

const relayerNamespace = "relayer"

func NewRelayerMetrics(reg prometheus.Registerer) *RelayerMetrics {
	return &RelayerMetrics{
		uptime: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: relayerNamespace,
				Name:      "uptime_milliseconds_total",
				Help:      "The elapse time in milliseconds since the relayer is booted",
			}),

		numAnalyses: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: relayerNamespace,
				Name:      "num_trace_analyses_total",
				Help:      "The number of simulated traces walked for profit attribution",
			}),

		numTransfersDecoded: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: relayerNamespace,
				Name:      "num_transfers_decoded_total",
				Help:      "The number of value transfers decoded from call frames",
			}, []string{"kind"}),

		numDecodeFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: relayerNamespace,
				Name:      "num_decode_failures_total",
				Help:      "The number of call frames skipped because their payload could not be decoded",
			}),

		numClassifierLookup: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: relayerNamespace,
				Name:      "num_wrapped_asset_lookups_total",
				Help:      "The number of wrapped-asset checks by result",
			}, []string{"result"}),

		numProfitTakers: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: relayerNamespace,
				Name:      "num_profit_takers_total",
				Help:      "The number of profit records emitted",
			}),

		numFlashLoanRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: relayerNamespace,
				Name:      "num_flashloan_requests_total",
				Help:      "The number of flash loan requests handled, by outcome",
			}, []string{"status"}),

		numSimulations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: relayerNamespace,
				Name:      "num_simulations_total",
				Help:      "The number of tenderly simulations, by outcome",
			}, []string{"status"}),
	}
}

func (m *RelayerMetrics) IncAnalysis() {
	m.numAnalyses.Inc()
}

func (m *RelayerMetrics) IncTransferDecoded(kind string) {
	m.numTransfersDecoded.WithLabelValues(kind).Inc()
}

func (m *RelayerMetrics) IncDecodeFailure() {
	m.numDecodeFailures.Inc()
}

func (m *RelayerMetrics) IncClassifierLookup(result string) {
	m.numClassifierLookup.WithLabelValues(result).Inc()
}

func (m *RelayerMetrics) AddProfitTakers(n int) {
	m.numProfitTakers.Add(float64(n))
}

func (m *RelayerMetrics) IncFlashLoanRequest(status string) {
	m.numFlashLoanRequests.WithLabelValues(status).Inc()
}

func (m *RelayerMetrics) IncSimulation(status string) {
	m.numSimulations.WithLabelValues(status).Inc()
}

func (m *RelayerMetrics) AddUptime(total float64) {
	m.uptime.Add(total)
}
