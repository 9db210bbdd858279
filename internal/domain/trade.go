package domain

import "time"

type Side string

const (
	Push    Side = "PUSH"
	Request Side = "REQUEST"
)

// Wire values accepted for the trade side parameter.
const (
	wirePushed    = "pushed"
	wireRequested = "requested"
)

// ParseSide maps a wire-level side value to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case wirePushed, string(Push):
		return Push, nil
	case wireRequested, string(Request):
		return Request, nil
	default:
		return "", ErrInvalidSide
	}
}

// Trade is one participant's current position in the market. A participant
// has at most one active trade; resubmission replaces it entirely.
type Trade struct {
	Participant  string    `json:"participant"`
	Side         Side      `json:"side"`
	EnergyAmount int64     `json:"energy_amount"` // watts
	Currency     int64     `json:"currency"`      // settlement currency escrowed with the submission
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Validate checks the trade's own fields, independent of market phase.
func (t *Trade) Validate() error {
	if t.Participant == "" {
		return ErrInvalidParticipant
	}
	if _, err := ParseSide(string(t.Side)); err != nil {
		return err
	}
	if t.EnergyAmount < 0 || t.Currency < 0 {
		return ErrInvalidAmount
	}
	return nil
}
