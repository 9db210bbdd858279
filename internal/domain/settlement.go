package domain

import "time"

// Payout is the settlement amount owed to one participant.
type Payout struct {
	Participant string `json:"participant"`
	Amount      int64  `json:"amount"`
}

// SettlementFailure records a per-participant settlement or transfer error.
// Failures never abort the settlement pass for the remaining participants.
type SettlementFailure struct {
	Participant string `json:"participant"`
	Reason      string `json:"reason"`
}

// Settlement is the persisted outcome of closing the market.
type Settlement struct {
	ID       string              `json:"id"`
	MarketID string              `json:"market_id"`
	Payouts  []Payout            `json:"payouts"`
	Failures []SettlementFailure `json:"failures"`
	ClosedAt time.Time           `json:"closed_at"`
}

type TransferStatus string

const (
	TransferSent   TransferStatus = "SENT"
	TransferFailed TransferStatus = "FAILED"
)

// Transfer is the audit record of one fund disbursement attempt.
type Transfer struct {
	ID           string         `json:"id"`
	SettlementID string         `json:"settlement_id"`
	Participant  string         `json:"participant"`
	Amount       int64          `json:"amount"`
	Status       TransferStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	SentAt       time.Time      `json:"sent_at"`
}
