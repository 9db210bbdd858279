package core

import (
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energy-market/internal/domain"
)

// ScalingMode selects how the oversubscribed side's payouts are scaled
// down by the clearing ratio.
type ScalingMode string

const (
	// ScaleInteger truncates the minority/majority ratio to an integer
	// before applying it, so any imbalance short of an exact multiple
	// zeroes the majority side's payouts.
	ScaleInteger ScalingMode = "integer"
	// ScaleRational applies the exact minority/majority ratio and floors
	// the final payout.
	ScaleRational ScalingMode = "rational"
)

var one = decimal.NewFromInt(1)

// Settle computes the payout owed to each participant in the snapshot.
// Pure: no state is read or written. Per-entry failures (negative payout,
// overflow) are collected and never abort the pass; the order of payouts
// follows the order of entries.
func Settle(entries []domain.Trade, vol Volumes, pricePerUnit int64, mode ScalingMode) ([]domain.Payout, []domain.SettlementFailure) {
	if vol.Pushed == 0 && vol.Requested == 0 {
		return nil, nil
	}

	pushRatio := clearingRatio(vol.Requested, vol.Pushed, mode)
	requestRatio := clearingRatio(vol.Pushed, vol.Requested, mode)
	price := decimal.NewFromInt(pricePerUnit)

	var payouts []domain.Payout
	var failures []domain.SettlementFailure

	for _, t := range entries {
		base := decimal.NewFromInt(t.EnergyAmount).Mul(price)

		var amount decimal.Decimal
		switch t.Side {
		case domain.Push:
			amount = base.Mul(pushRatio).Floor()
		case domain.Request:
			gross := decimal.NewFromInt(t.Currency).Sub(base)
			if gross.IsNegative() {
				failures = append(failures, domain.SettlementFailure{
					Participant: t.Participant,
					Reason:      domain.ErrNegativePayout.Error(),
				})
				continue
			}
			amount = gross.Mul(requestRatio).Floor()
		default:
			failures = append(failures, domain.SettlementFailure{
				Participant: t.Participant,
				Reason:      domain.ErrInvalidSide.Error(),
			})
			continue
		}

		if !amount.BigInt().IsInt64() {
			failures = append(failures, domain.SettlementFailure{
				Participant: t.Participant,
				Reason:      domain.ErrArithmeticOverflow.Error(),
			})
			continue
		}
		payouts = append(payouts, domain.Payout{
			Participant: t.Participant,
			Amount:      amount.IntPart(),
		})
	}
	return payouts, failures
}

// clearingRatio is minority/majority when majority oversubscribes the
// minority, 1 otherwise. majority > minority implies majority > 0, so the
// division is always defined.
func clearingRatio(minority, majority int64, mode ScalingMode) decimal.Decimal {
	if majority <= minority {
		return one
	}
	if mode == ScaleRational {
		return decimal.NewFromInt(minority).Div(decimal.NewFromInt(majority))
	}
	return decimal.NewFromInt(minority / majority)
}
