package profit

// Metrics receives counters from an analysis. metrics.RelayerMetrics satisfies it.
type Metrics interface {
	IncAnalysis()
	IncTransferDecoded(kind string)
	IncDecodeFailure()
	IncClassifierLookup(result string)
	AddProfitTakers(n int)
}

const (
	LookupKnown   = "known"
	LookupMatched = "matched"
	LookupNoMatch = "no_match"
	LookupNoCode  = "no_code"
	LookupFailed  = "error"
)

type noopMetrics struct{}

func (noopMetrics) IncAnalysis()               {}
func (noopMetrics) IncTransferDecoded(string)  {}
func (noopMetrics) IncDecodeFailure()          {}
func (noopMetrics) IncClassifierLookup(string) {}
func (noopMetrics) AddProfitTakers(int)        {}

func ensureMetrics(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
