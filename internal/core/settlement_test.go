package core

import (
	"math"
	"testing"

	"github.com/gridwatt/energy-market/internal/domain"
)

const price = 2500

func push(p string, energy int64) domain.Trade {
	return domain.Trade{Participant: p, Side: domain.Push, EnergyAmount: energy}
}

func request(p string, energy, currency int64) domain.Trade {
	return domain.Trade{Participant: p, Side: domain.Request, EnergyAmount: energy, Currency: currency}
}

func TestSettleBalanced(t *testing.T) {
	entries := []domain.Trade{
		push("pusher", 100),
		request("requester", 100, 100*price),
	}
	vol := Volumes{Pushed: 100, Requested: 100}

	payouts, failures := Settle(entries, vol, price, ScaleInteger)
	if len(failures) != 0 {
		t.Fatalf("failures = %v, want none", failures)
	}
	if len(payouts) != 2 {
		t.Fatalf("payouts = %d, want 2", len(payouts))
	}
	if payouts[0].Participant != "pusher" || payouts[0].Amount != 100*price {
		t.Errorf("pusher payout = %+v, want %d", payouts[0], 100*price)
	}
	if payouts[1].Participant != "requester" || payouts[1].Amount != 0 {
		t.Errorf("requester payout = %+v, want 0", payouts[1])
	}
}

func TestSettleImbalancedInteger(t *testing.T) {
	// 200 pushed vs 100 requested: the integer ratio 100/200 truncates to
	// zero, so the pushers receive nothing.
	entries := []domain.Trade{
		push("p1", 100),
		push("p2", 100),
		request("r1", 100, 300000),
	}
	vol := Volumes{Pushed: 200, Requested: 100}

	payouts, failures := Settle(entries, vol, price, ScaleInteger)
	if len(failures) != 0 {
		t.Fatalf("failures = %v, want none", failures)
	}
	want := map[string]int64{
		"p1": 0,
		"p2": 0,
		"r1": 300000 - 100*price, // minority side paid in full
	}
	for _, p := range payouts {
		if p.Amount != want[p.Participant] {
			t.Errorf("%s payout = %d, want %d", p.Participant, p.Amount, want[p.Participant])
		}
	}
}

func TestSettleImbalancedRational(t *testing.T) {
	entries := []domain.Trade{
		push("p1", 100),
		push("p2", 100),
		request("r1", 100, 300000),
	}
	vol := Volumes{Pushed: 200, Requested: 100}

	payouts, failures := Settle(entries, vol, price, ScaleRational)
	if len(failures) != 0 {
		t.Fatalf("failures = %v, want none", failures)
	}
	want := map[string]int64{
		"p1": 125000, // 100*2500 * 100/200
		"p2": 125000,
		"r1": 50000, // minority, ratio 1
	}
	for _, p := range payouts {
		if p.Amount != want[p.Participant] {
			t.Errorf("%s payout = %d, want %d", p.Participant, p.Amount, want[p.Participant])
		}
	}
}

func TestSettleRationalFloors(t *testing.T) {
	// 100/300 requested-to-pushed leaves a non-terminating ratio; the final
	// payout must floor, never round up.
	entries := []domain.Trade{push("p1", 1)}
	vol := Volumes{Pushed: 300, Requested: 100}

	payouts, _ := Settle(entries, vol, price, ScaleRational)
	if len(payouts) != 1 {
		t.Fatalf("payouts = %d, want 1", len(payouts))
	}
	// 1*2500/3 = 833.33...
	if payouts[0].Amount != 833 {
		t.Errorf("payout = %d, want 833", payouts[0].Amount)
	}
}

func TestSettleNegativePayout(t *testing.T) {
	// r1 escrowed less currency than the price of the energy claimed. The
	// failure is reported for r1 only; the rest of the ledger still settles.
	entries := []domain.Trade{
		push("p1", 100),
		request("r1", 100, 1000),
		request("r2", 0, 5000),
	}
	vol := Volumes{Pushed: 100, Requested: 100}

	payouts, failures := Settle(entries, vol, price, ScaleInteger)
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want exactly one", failures)
	}
	if failures[0].Participant != "r1" || failures[0].Reason != domain.ErrNegativePayout.Error() {
		t.Errorf("failure = %+v, want r1 negative payout", failures[0])
	}
	if len(payouts) != 2 {
		t.Fatalf("payouts = %d, want 2", len(payouts))
	}
	for _, p := range payouts {
		if p.Participant == "r1" {
			t.Error("r1 received a payout despite the failure")
		}
	}
}

func TestSettleOverflow(t *testing.T) {
	big := int64(math.MaxInt64 / 1000)
	entries := []domain.Trade{
		push("whale", big),
		request("r1", big, 0),
	}
	vol := Volumes{Pushed: big, Requested: big}

	payouts, failures := Settle(entries, vol, price, ScaleInteger)
	if len(payouts) != 0 {
		t.Errorf("payouts = %v, want none", payouts)
	}
	if len(failures) != 2 {
		t.Fatalf("failures = %v, want 2", failures)
	}
	reasons := map[string]string{}
	for _, f := range failures {
		reasons[f.Participant] = f.Reason
	}
	if reasons["whale"] != domain.ErrArithmeticOverflow.Error() {
		t.Errorf("whale failure = %q, want overflow", reasons["whale"])
	}
	if reasons["r1"] != domain.ErrNegativePayout.Error() {
		t.Errorf("r1 failure = %q, want negative payout", reasons["r1"])
	}
}

func TestSettleEmptyMarket(t *testing.T) {
	payouts, failures := Settle(nil, Volumes{}, price, ScaleInteger)
	if payouts != nil || failures != nil {
		t.Errorf("Settle(empty) = %v, %v, want nil, nil", payouts, failures)
	}

	// Zero totals produce no payouts even when zero-volume entries exist.
	entries := []domain.Trade{request("r1", 0, 5000)}
	payouts, failures = Settle(entries, Volumes{}, price, ScaleInteger)
	if payouts != nil || failures != nil {
		t.Errorf("Settle(zero totals) = %v, %v, want nil, nil", payouts, failures)
	}
}

func TestClearingRatio(t *testing.T) {
	cases := []struct {
		name               string
		minority, majority int64
		mode               ScalingMode
		want               string
	}{
		{"BalancedIsOne", 100, 100, ScaleInteger, "1"},
		{"MinoritySideIsOne", 200, 100, ScaleInteger, "1"},
		{"IntegerTruncates", 100, 200, ScaleInteger, "0"},
		{"IntegerTruncatesLargeImbalance", 1, 1000000, ScaleInteger, "0"},
		{"RationalExact", 100, 200, ScaleRational, "0.5"},
		{"ZeroMinority", 0, 100, ScaleInteger, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := clearingRatio(tc.minority, tc.majority, tc.mode)
			if got.String() != tc.want {
				t.Errorf("clearingRatio(%d, %d, %s) = %s, want %s",
					tc.minority, tc.majority, tc.mode, got.String(), tc.want)
			}
		})
	}
}
