package profit

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// ProfitRecord names an address that took value out of the transaction for a token. Field
// names follow the FlashLoan.ProfitMetadata tuple so it can be ABI-packed as is.
type ProfitRecord struct {
	Taker common.Address
	Token common.Address
}

func (p ProfitRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Taker string `json:"taker"`
		Token string `json:"token"`
	}{ToLowerHex(p.Taker), ToLowerHex(p.Token)})
}

func (p *ProfitRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Taker string `json:"taker"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Taker = common.HexToAddress(raw.Taker)
	p.Token = common.HexToAddress(raw.Token)
	return nil
}

// ProfitAttributor reads the final state of an analysis. A receiver whose sends and receives
// pair up across all the assets it touched (a swap leg) ends with an even participation total;
// one that only received something ends odd and is reported.
type ProfitAttributor struct {
	revenue       *BalanceSheet
	participation *ParticipationTracker
}

func NewProfitAttributor(ledger *LedgerAccumulator) *ProfitAttributor {
	return &ProfitAttributor{
		revenue:       ledger.Revenue,
		participation: ledger.Participation(),
	}
}

// Attribute does not mutate anything, so calling it twice yields the same list. Duplicates
// are not removed.
func (a *ProfitAttributor) Attribute() []ProfitRecord {
	takers := []ProfitRecord{}
	for _, asset := range a.revenue.Assets() {
		for _, entry := range a.revenue.Entries(asset) {
			if a.isTaker(entry) {
				takers = append(takers, ProfitRecord{Taker: entry.Address, Token: asset})
			}
		}
	}
	return takers
}

func (a *ProfitAttributor) isTaker(entry BalanceEntry) bool {
	// the run's own contract and sender are never takers
	if entry.Balance.Class == ClassRevenue || entry.Balance.Class == ClassCost {
		return false
	}
	if IsNullAddress(entry.Address) {
		return false
	}
	// a token contract that was itself moved in this run is not a recipient
	if a.revenue.HasAsset(entry.Address) {
		return false
	}
	return a.participation.TotalScore(entry.Address)%2 == 1
}
