package dto

import (
	"time"

	"github.com/gridwatt/energy-market/internal/domain"
)

type InitMarketRequest struct {
	// TradeEndUTC is an optional "YYYY-MM-DD HH:MM" UTC deadline; empty
	// means trading never auto-closes by time.
	TradeEndUTC string `json:"trade_end_utc,omitempty"`
}

type Market struct {
	ID             string    `json:"id"`
	State          string    `json:"state"`
	TradeDeadline  string    `json:"trade_deadline,omitempty"`
	TotalPushed    int64     `json:"total_pushed"`
	TotalRequested int64     `json:"total_requested"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type MarketResponse struct {
	Market Market `json:"market"`
}

type SubmitTradeRequest struct {
	Side         string `json:"side" binding:"required"`
	EnergyAmount int64  `json:"energy_amount"`
	Currency     int64  `json:"currency"`
}

type Trade struct {
	Participant  string    `json:"participant"`
	Side         string    `json:"side"`
	EnergyAmount int64     `json:"energy_amount"`
	Currency     int64     `json:"currency"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type SubmitTradeResponse struct {
	Trade          Trade `json:"trade"`
	TotalPushed    int64 `json:"total_pushed"`
	TotalRequested int64 `json:"total_requested"`
}

type LedgerResponse struct {
	MarketID  string    `json:"market_id"`
	Entries   []Trade   `json:"entries"`
	Timestamp time.Time `json:"timestamp"`
}

type TradeResponse struct {
	Trade Trade `json:"trade"`
}

type Payout struct {
	Participant string `json:"participant"`
	Amount      int64  `json:"amount"`
}

type Failure struct {
	Participant string `json:"participant"`
	Reason      string `json:"reason"`
}

type SettlementResponse struct {
	SettlementID string    `json:"settlement_id"`
	MarketID     string    `json:"market_id"`
	Payouts      []Payout  `json:"payouts"`
	Failures     []Failure `json:"failures"`
	ClosedAt     time.Time `json:"closed_at"`
	Message      string    `json:"message,omitempty"`
}

func FromMarket(m *domain.Market) Market {
	out := Market{
		ID:             m.ID,
		State:          string(m.State),
		TotalPushed:    m.TotalPushed,
		TotalRequested: m.TotalRequested,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if !m.TradeDeadline.IsZero() {
		out.TradeDeadline = m.TradeDeadline.UTC().Format(domain.DeadlineLayout)
	}
	return out
}

func FromTrade(t *domain.Trade) Trade {
	return Trade{
		Participant:  t.Participant,
		Side:         string(t.Side),
		EnergyAmount: t.EnergyAmount,
		Currency:     t.Currency,
		SubmittedAt:  t.SubmittedAt,
	}
}

func FromSettlement(s *domain.Settlement) SettlementResponse {
	out := SettlementResponse{
		SettlementID: s.ID,
		MarketID:     s.MarketID,
		Payouts:      make([]Payout, 0, len(s.Payouts)),
		Failures:     make([]Failure, 0, len(s.Failures)),
		ClosedAt:     s.ClosedAt,
	}
	for _, p := range s.Payouts {
		out.Payouts = append(out.Payouts, Payout{Participant: p.Participant, Amount: p.Amount})
	}
	for _, f := range s.Failures {
		out.Failures = append(out.Failures, Failure{Participant: f.Participant, Reason: f.Reason})
	}
	return out
}
