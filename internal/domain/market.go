package domain

import (
	"time"
)

type MarketState string

const (
	Uninitialized MarketState = "UNINITIALIZED"
	Open          MarketState = "OPEN"
	Closed        MarketState = "CLOSED"
)

// DeadlineLayout is the wire format for the optional trading deadline,
// interpreted as UTC.
const DeadlineLayout = "2006-01-02 15:04"

// Market is the singleton trading-window state. TradeDeadline's zero value
// means no deadline: trading never auto-closes by time.
type Market struct {
	ID             string      `json:"id"`
	Owner          string      `json:"owner"`
	State          MarketState `json:"state"`
	TradeDeadline  time.Time   `json:"trade_deadline"`
	TotalPushed    int64       `json:"total_pushed"`
	TotalRequested int64       `json:"total_requested"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// AcceptsTrade reports whether a trade arriving at now is still in time.
func (m *Market) AcceptsTrade(now time.Time) bool {
	if m.State != Open {
		return false
	}
	if m.TradeDeadline.IsZero() {
		return true
	}
	return !now.After(m.TradeDeadline)
}

// CanClose reports whether the market may be settled at now.
func (m *Market) CanClose(now time.Time) bool {
	if m.State != Open {
		return false
	}
	if m.TradeDeadline.IsZero() {
		return true
	}
	return now.After(m.TradeDeadline)
}

// ParseDeadline parses a "YYYY-MM-DD HH:MM" UTC deadline string.
// An empty string yields the zero time, meaning no deadline.
func ParseDeadline(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DeadlineLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
