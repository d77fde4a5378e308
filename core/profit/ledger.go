package profit

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type BalanceClass string

const (
	ClassRevenue       BalanceClass = "Revenue"
	ClassCost          BalanceClass = "Cost"
	ClassTokenTransfer BalanceClass = "TokenTransfer"
)

// AddressBalance is a running signed total. Class is fixed on the first touch.
type AddressBalance struct {
	Amount *big.Int     `json:"amount"`
	Class  BalanceClass `json:"type"`
}

type BalanceEntry struct {
	Address common.Address
	Balance AddressBalance
}

// BalanceSheet maps asset -> address -> balance and remembers the order in which assets and
// addresses were first added.
type BalanceSheet struct {
	assets  []common.Address
	byAsset map[common.Address]*assetBalances
}

type assetBalances struct {
	order   []common.Address
	entries map[common.Address]*AddressBalance
}

func NewBalanceSheet() *BalanceSheet {
	return &BalanceSheet{byAsset: make(map[common.Address]*assetBalances)}
}

func (s *BalanceSheet) Assets() []common.Address {
	out := make([]common.Address, len(s.assets))
	copy(out, s.assets)
	return out
}

// HasAsset reports whether addr is an asset key of the sheet.
func (s *BalanceSheet) HasAsset(addr common.Address) bool {
	_, ok := s.byAsset[addr]
	return ok
}

// Entries lists the balances of one asset in first-touch order. Amounts are copies.
func (s *BalanceSheet) Entries(asset common.Address) []BalanceEntry {
	ab, ok := s.byAsset[asset]
	if !ok {
		return nil
	}
	out := make([]BalanceEntry, 0, len(ab.order))
	for _, addr := range ab.order {
		bal := ab.entries[addr]
		out = append(out, BalanceEntry{
			Address: addr,
			Balance: AddressBalance{Amount: new(big.Int).Set(bal.Amount), Class: bal.Class},
		})
	}
	return out
}

func (s *BalanceSheet) Get(asset, addr common.Address) (AddressBalance, bool) {
	ab, ok := s.byAsset[asset]
	if !ok {
		return AddressBalance{}, false
	}
	bal, ok := ab.entries[addr]
	if !ok {
		return AddressBalance{}, false
	}
	return AddressBalance{Amount: new(big.Int).Set(bal.Amount), Class: bal.Class}, true
}

// Total sums every balance of an asset.
func (s *BalanceSheet) Total(asset common.Address) *big.Int {
	total := new(big.Int)
	if ab, ok := s.byAsset[asset]; ok {
		for _, bal := range ab.entries {
			total.Add(total, bal.Amount)
		}
	}
	return total
}

func (s *BalanceSheet) entry(asset, addr common.Address, class BalanceClass) *AddressBalance {
	ab, ok := s.byAsset[asset]
	if !ok {
		ab = &assetBalances{entries: make(map[common.Address]*AddressBalance)}
		s.byAsset[asset] = ab
		s.assets = append(s.assets, asset)
	}
	bal, ok := ab.entries[addr]
	if !ok {
		bal = &AddressBalance{Amount: new(big.Int), Class: class}
		ab.entries[addr] = bal
		ab.order = append(ab.order, addr)
	}
	return bal
}

// RunContext names the two parties whose balances count as the run's own revenue and cost:
// the contract the simulated transaction entered and the address that initiated it.
type RunContext struct {
	Contract common.Address
	Sender   common.Address
}

func (c RunContext) IsParty(addr common.Address) bool {
	return addr == c.Contract || addr == c.Sender
}

// LedgerAccumulator keeps the inbound (Revenue) and outbound (Cost) ledgers of one analysis.
type LedgerAccumulator struct {
	runCtx        RunContext
	participation *ParticipationTracker

	Revenue *BalanceSheet
	Cost    *BalanceSheet
}

func NewLedgerAccumulator(runCtx RunContext, participation *ParticipationTracker) *LedgerAccumulator {
	if participation == nil {
		participation = NewParticipationTracker()
	}
	return &LedgerAccumulator{
		runCtx:        runCtx,
		participation: participation,
		Revenue:       NewBalanceSheet(),
		Cost:          NewBalanceSheet(),
	}
}

func (l *LedgerAccumulator) RunContext() RunContext {
	return l.runCtx
}

func (l *LedgerAccumulator) Participation() *ParticipationTracker {
	return l.participation
}

// Record books one transfer. The null address is tracked for participation but never gets a
// ledger entry.
func (l *LedgerAccumulator) Record(asset, from, to common.Address, amount *big.Int) {
	if amount == nil {
		amount = new(big.Int)
	}

	l.participation.Touch(asset, from, to)

	if !IsNullAddress(to) {
		class := ClassTokenTransfer
		if l.runCtx.IsParty(to) {
			class = ClassRevenue
		}
		bal := l.Revenue.entry(asset, to, class)
		bal.Amount.Add(bal.Amount, amount)
	}

	if !IsNullAddress(from) {
		class := ClassTokenTransfer
		if l.runCtx.IsParty(from) {
			class = ClassCost
		}
		bal := l.Cost.entry(asset, from, class)
		bal.Amount.Sub(bal.Amount, amount)
	}
}

// RecordTransfer books a decoded transfer; unrecognized ones are ignored.
func (l *LedgerAccumulator) RecordTransfer(t Transfer) {
	if !t.Recognized() {
		return
	}
	l.Record(t.Asset, t.From, t.To, t.Amount)
}
