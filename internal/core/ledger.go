package core

import (
	"sort"
	"time"

	"github.com/gridwatt/energy-market/internal/domain"
)

// Ledger maps participant identity to that participant's single current
// trade. Entries are never deleted; they remain as the audit record after
// close.
type Ledger struct {
	entries map[string]domain.Trade
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]domain.Trade)}
}

// Upsert replaces any existing entry for the trade's participant and
// returns the previous entry, if present, so its volume contribution can
// be reversed.
func (l *Ledger) Upsert(t domain.Trade) (domain.Trade, bool) {
	prev, ok := l.entries[t.Participant]
	l.entries[t.Participant] = t
	return prev, ok
}

func (l *Ledger) Get(participant string) (domain.Trade, bool) {
	t, ok := l.entries[participant]
	return t, ok
}

func (l *Ledger) Len() int { return len(l.entries) }

// Snapshot returns all current entries ordered by participant, so one
// closure pass enumerates them deterministically.
func (l *Ledger) Snapshot(marketID string, now time.Time) *domain.LedgerSnapshot {
	entries := make([]domain.Trade, 0, len(l.entries))
	for _, t := range l.entries {
		entries = append(entries, t)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Participant < entries[j].Participant
	})
	return &domain.LedgerSnapshot{
		MarketID:  marketID,
		Entries:   entries,
		Timestamp: now,
	}
}

// Volumes holds the running totals of pushed and requested energy. The
// invariant is that each total equals the sum over current ledger entries
// of the matching side, which Apply preserves by reversing a replaced
// trade's contribution before adding the new one.
type Volumes struct {
	Pushed    int64 `json:"pushed"`
	Requested int64 `json:"requested"`
}

// Apply records next and reverses prev (the replaced trade, if any).
func (v *Volumes) Apply(prev *domain.Trade, next domain.Trade) error {
	if next.EnergyAmount < 0 {
		return domain.ErrInvalidAmount
	}
	if prev != nil {
		v.add(prev.Side, -prev.EnergyAmount)
	}
	v.add(next.Side, next.EnergyAmount)
	return nil
}

func (v *Volumes) add(side domain.Side, amount int64) {
	switch side {
	case domain.Push:
		v.Pushed += amount
	case domain.Request:
		v.Requested += amount
	}
}
