package profit

import (
	"context"
	"errors"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/oklog/ulid/v2"

	"github.com/AvaProtocol/mizan-relayer/pkg/logger"
)

var ErrNotWalked = errors.New("trace has not been walked yet")

// Engine holds the collaborators shared by every analysis: the wrapped-asset check, logger and
// metrics. Accounting state is never stored here; each request gets its own Analysis.
type Engine struct {
	isWrapped WrappedCheck
	logger    sdklogging.Logger
	metrics   Metrics
}

func NewEngine(isWrapped WrappedCheck, log sdklogging.Logger, m Metrics) *Engine {
	return &Engine{
		isWrapped: isWrapped,
		logger:    logger.EnsureLogger(log),
		metrics:   ensureMetrics(m),
	}
}

// Analysis is the state of one run: fresh ledgers and participation records, discarded with it.
type Analysis struct {
	ID string

	ledger     *LedgerAccumulator
	walker     *TraceWalker
	attributor *ProfitAttributor
	logger     sdklogging.Logger
	metrics    Metrics

	walked bool
	stats  WalkStats
}

func (e *Engine) NewAnalysis(runCtx RunContext) *Analysis {
	id := ulid.Make().String()
	log := e.logger.With("run", id)

	ledger := NewLedgerAccumulator(runCtx, NewParticipationTracker())
	return &Analysis{
		ID:         id,
		ledger:     ledger,
		walker:     NewTraceWalker(NewTransferDecoder(e.isWrapped), ledger, log, e.metrics),
		attributor: NewProfitAttributor(ledger),
		logger:     log,
		metrics:    e.metrics,
	}
}

// Analyze runs a fresh analysis over roots and returns its profit takers.
func (e *Engine) Analyze(ctx context.Context, runCtx RunContext, roots []*TraceNode) ([]ProfitRecord, *Analysis) {
	a := e.NewAnalysis(runCtx)
	a.Walk(ctx, roots)
	return a.attribute(), a
}

// Walk accumulates the whole forest. Attribution is only possible afterwards.
func (a *Analysis) Walk(ctx context.Context, roots []*TraceNode) WalkStats {
	a.metrics.IncAnalysis()
	a.logger.Info("processing trace",
		"contract", ToLowerHex(a.ledger.runCtx.Contract),
		"sender", ToLowerHex(a.ledger.runCtx.Sender),
		"roots", len(roots))

	a.stats = a.walker.Walk(ctx, roots)
	a.walked = true
	return a.stats
}

func (a *Analysis) Attribute() ([]ProfitRecord, error) {
	if !a.walked {
		return nil, ErrNotWalked
	}
	return a.attribute(), nil
}

func (a *Analysis) attribute() []ProfitRecord {
	profits := a.attributor.Attribute()
	for _, p := range profits {
		a.logger.Info("profit taker",
			"taker", ToLowerHex(p.Taker),
			"token", ToLowerHex(p.Token),
			"participation", a.ledger.participation.TotalScore(p.Taker))
	}
	a.metrics.AddProfitTakers(len(profits))
	return profits
}

func (a *Analysis) Run(ctx context.Context, roots []*TraceNode) ([]ProfitRecord, error) {
	a.Walk(ctx, roots)
	return a.Attribute()
}

func (a *Analysis) Ledger() *LedgerAccumulator {
	return a.ledger
}

func (a *Analysis) Stats() WalkStats {
	return a.stats
}

// LedgerSnapshot is a printable copy of both ledgers keyed by lowercase hex.
type LedgerSnapshot struct {
	Revenue map[string]map[string]AddressBalance `json:"revenue"`
	Cost    map[string]map[string]AddressBalance `json:"cost"`
}

func (a *Analysis) Snapshot() LedgerSnapshot {
	return LedgerSnapshot{
		Revenue: snapshotSheet(a.ledger.Revenue),
		Cost:    snapshotSheet(a.ledger.Cost),
	}
}

func snapshotSheet(s *BalanceSheet) map[string]map[string]AddressBalance {
	out := make(map[string]map[string]AddressBalance)
	for _, asset := range s.Assets() {
		byAddr := make(map[string]AddressBalance)
		for _, e := range s.Entries(asset) {
			byAddr[ToLowerHex(e.Address)] = e.Balance
		}
		out[ToLowerHex(asset)] = byAddr
	}
	return out
}
