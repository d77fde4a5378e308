package profit

import "github.com/ethereum/go-ethereum/common"

// ParticipationRecord counts how an address took part in the transfers of one asset. Score
// grows by one the first time the address sends and by one the first time it receives.
type ParticipationRecord struct {
	SentCount     int
	ReceivedCount int
	Score         int
}

// ParticipationTracker is single-writer state scoped to one analysis.
type ParticipationTracker struct {
	records map[common.Address]map[common.Address]*ParticipationRecord
}

func NewParticipationTracker() *ParticipationTracker {
	return &ParticipationTracker{
		records: make(map[common.Address]map[common.Address]*ParticipationRecord),
	}
}

// Touch is applied to every decoded transfer, the null address included.
func (p *ParticipationTracker) Touch(asset, from, to common.Address) {
	sender := p.record(from, asset)
	if sender.SentCount == 0 {
		sender.Score++
	}
	sender.SentCount++

	receiver := p.record(to, asset)
	if receiver.ReceivedCount == 0 {
		receiver.Score++
	}
	receiver.ReceivedCount++
}

// Get returns a copy of the record for (address, asset); ok is false if the pair never appeared.
func (p *ParticipationTracker) Get(addr, asset common.Address) (ParticipationRecord, bool) {
	byAsset, ok := p.records[addr]
	if !ok {
		return ParticipationRecord{}, false
	}
	rec, ok := byAsset[asset]
	if !ok {
		return ParticipationRecord{}, false
	}
	return *rec, true
}

// TotalScore sums the score of addr over every asset it touched.
func (p *ParticipationTracker) TotalScore(addr common.Address) int {
	total := 0
	for _, rec := range p.records[addr] {
		total += rec.Score
	}
	return total
}

func (p *ParticipationTracker) Addresses() int {
	return len(p.records)
}

func (p *ParticipationTracker) record(addr, asset common.Address) *ParticipationRecord {
	byAsset, ok := p.records[addr]
	if !ok {
		byAsset = make(map[common.Address]*ParticipationRecord)
		p.records[addr] = byAsset
	}
	rec, ok := byAsset[asset]
	if !ok {
		rec = &ParticipationRecord{}
		byAsset[asset] = rec
	}
	return rec
}
