package domain

import "time"

// LedgerSnapshot is a point-in-time view of all current trades, taken for
// the closure pass and for the query API.
type LedgerSnapshot struct {
	MarketID  string    `json:"market_id"`
	Entries   []Trade   `json:"entries"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *LedgerSnapshot) DeepCopy() *LedgerSnapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Entries = make([]Trade, len(s.Entries))
	copy(cp.Entries, s.Entries)
	return &cp
}
