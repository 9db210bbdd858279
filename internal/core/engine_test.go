package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gridwatt/energy-market/internal/adapter/in_memory"
	"github.com/gridwatt/energy-market/internal/core"
	"github.com/gridwatt/energy-market/internal/domain"
)

const (
	owner    = "owner-1"
	deadline = "2026-01-01 12:00"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	eng      *core.Engine
	repo     *in_memory.MemoryRepo
	treasury *in_memory.Treasury
	clock    *fakeClock
}

func newFixture(t *testing.T, opts core.Options) *fixture {
	t.Helper()
	if opts.MarketID == "" {
		opts.MarketID = "energy"
	}
	if opts.Owner == "" {
		opts.Owner = owner
	}
	if opts.PricePerUnit == 0 {
		opts.PricePerUnit = 2500
	}
	repo := in_memory.NewMemoryRepo()
	treasury := in_memory.NewTreasury()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := core.NewEngine(repo, in_memory.NewCache(), treasury, clock, log, opts)
	return &fixture{eng: eng, repo: repo, treasury: treasury, clock: clock}
}

func (f *fixture) submit(t *testing.T, participant string, side domain.Side, energy, currency int64) {
	t.Helper()
	_, err := f.eng.SubmitTrade(context.Background(), domain.Trade{
		Participant:  participant,
		Side:         side,
		EnergyAmount: energy,
		Currency:     currency,
	})
	if err != nil {
		t.Fatalf("SubmitTrade(%s): %v", participant, err)
	}
}

func TestInitMarket(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsNonOwner", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, "mallory", ""); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("OpensWithDeadline", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		m, err := f.eng.InitMarket(ctx, owner, deadline)
		if err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		if m.State != domain.Open {
			t.Errorf("state = %s, want OPEN", m.State)
		}
		want := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		if !m.TradeDeadline.Equal(want) {
			t.Errorf("deadline = %v, want %v", m.TradeDeadline, want)
		}
		if m.TotalPushed != 0 || m.TotalRequested != 0 {
			t.Errorf("totals = %d/%d, want 0/0", m.TotalPushed, m.TotalRequested)
		}
	})

	t.Run("OpensWithoutDeadline", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		m, err := f.eng.InitMarket(ctx, owner, "")
		if err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		if !m.TradeDeadline.IsZero() {
			t.Errorf("deadline = %v, want zero", m.TradeDeadline)
		}
	})

	t.Run("RejectsReinit", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, ""); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		if _, err := f.eng.InitMarket(ctx, owner, ""); !errors.Is(err, domain.ErrAlreadyInitialized) {
			t.Errorf("err = %v, want ErrAlreadyInitialized", err)
		}
	})

	t.Run("RejectsBadDeadline", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, "tomorrow-ish"); err == nil {
			t.Error("InitMarket accepted a malformed deadline")
		}
	})
}

func TestSubmitTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsBeforeInit", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		_, err := f.eng.SubmitTrade(ctx, domain.Trade{Participant: "alice", Side: domain.Push, EnergyAmount: 1})
		if !errors.Is(err, domain.ErrNotInitialized) {
			t.Errorf("err = %v, want ErrNotInitialized", err)
		}
	})

	t.Run("AccumulatesTotals", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, deadline); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		f.submit(t, "alice", domain.Push, 100, 0)
		f.submit(t, "bob", domain.Request, 60, 150000)

		m, err := f.eng.Market(ctx)
		if err != nil {
			t.Fatalf("Market: %v", err)
		}
		if m.TotalPushed != 100 || m.TotalRequested != 60 {
			t.Errorf("totals = %d/%d, want 100/60", m.TotalPushed, m.TotalRequested)
		}
	})

	t.Run("ResubmissionReversesTotals", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, deadline); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		f.submit(t, "alice", domain.Push, 100, 0)
		f.submit(t, "alice", domain.Request, 40, 100000)

		m, _ := f.eng.Market(ctx)
		if m.TotalPushed != 0 || m.TotalRequested != 40 {
			t.Errorf("totals = %d/%d, want 0/40", m.TotalPushed, m.TotalRequested)
		}
		snap, err := f.eng.Ledger(ctx)
		if err != nil {
			t.Fatalf("Ledger: %v", err)
		}
		if len(snap.Entries) != 1 {
			t.Fatalf("ledger has %d entries, want 1", len(snap.Entries))
		}
		if snap.Entries[0].Side != domain.Request || snap.Entries[0].EnergyAmount != 40 {
			t.Errorf("entry = %+v, want Request/40", snap.Entries[0])
		}
	})

	t.Run("RejectsAfterDeadlineWithoutMutation", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, deadline); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		f.submit(t, "alice", domain.Push, 100, 0)

		f.clock.Advance(3 * time.Hour) // past 12:00
		_, err := f.eng.SubmitTrade(ctx, domain.Trade{Participant: "bob", Side: domain.Request, EnergyAmount: 50})
		if !errors.Is(err, domain.ErrTradingClosed) {
			t.Fatalf("err = %v, want ErrTradingClosed", err)
		}
		m, _ := f.eng.Market(ctx)
		if m.TotalPushed != 100 || m.TotalRequested != 0 {
			t.Errorf("totals mutated after rejection: %d/%d", m.TotalPushed, m.TotalRequested)
		}
		snap, _ := f.eng.Ledger(ctx)
		if len(snap.Entries) != 1 {
			t.Errorf("ledger mutated after rejection: %d entries", len(snap.Entries))
		}
	})

	t.Run("RejectsInvalidTrade", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, ""); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		cases := []struct {
			name  string
			trade domain.Trade
			want  error
		}{
			{"BadSide", domain.Trade{Participant: "a", Side: "LEND", EnergyAmount: 1}, domain.ErrInvalidSide},
			{"NegativeEnergy", domain.Trade{Participant: "a", Side: domain.Push, EnergyAmount: -5}, domain.ErrInvalidAmount},
			{"NegativeCurrency", domain.Trade{Participant: "a", Side: domain.Request, EnergyAmount: 5, Currency: -1}, domain.ErrInvalidAmount},
			{"NoParticipant", domain.Trade{Side: domain.Push, EnergyAmount: 1}, domain.ErrInvalidParticipant},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := f.eng.SubmitTrade(ctx, tc.trade); !errors.Is(err, tc.want) {
					t.Errorf("err = %v, want %v", err, tc.want)
				}
			})
		}
	})
}

func TestCloseMarket(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsNonOwnerRegardlessOfPhase", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.CloseMarket(ctx, "mallory"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("uninitialized: err = %v, want ErrUnauthorized", err)
		}
		if _, err := f.eng.InitMarket(ctx, owner, ""); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		if _, err := f.eng.CloseMarket(ctx, "mallory"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("open: err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("RejectsBeforeDeadline", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, deadline); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		if _, err := f.eng.CloseMarket(ctx, owner); !errors.Is(err, domain.ErrNotYetClosable) {
			t.Errorf("err = %v, want ErrNotYetClosable", err)
		}
	})

	t.Run("BalancedMarketPaysInFull", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, deadline); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		f.submit(t, "pusher", domain.Push, 100, 0)
		f.submit(t, "requester", domain.Request, 100, 100*2500)
		f.clock.Advance(3 * time.Hour)

		s, err := f.eng.CloseMarket(ctx, owner)
		if err != nil {
			t.Fatalf("CloseMarket: %v", err)
		}
		if len(s.Failures) != 0 {
			t.Errorf("failures = %v, want none", s.Failures)
		}
		if got := f.treasury.Balance("pusher"); got != 100*2500 {
			t.Errorf("pusher balance = %d, want %d", got, 100*2500)
		}
		if got := f.treasury.Balance("requester"); got != 0 {
			t.Errorf("requester balance = %d, want 0", got)
		}
		if transfers := f.repo.Transfers(); len(transfers) != 2 {
			t.Errorf("transfer records = %d, want 2", len(transfers))
		}
		m, _ := f.eng.Market(ctx)
		if m.State != domain.Closed {
			t.Errorf("state = %s, want CLOSED", m.State)
		}
	})

	t.Run("SecondCloseIsNoOp", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, ""); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		f.submit(t, "pusher", domain.Push, 10, 0)
		f.submit(t, "requester", domain.Request, 10, 10*2500)

		if _, err := f.eng.CloseMarket(ctx, owner); err != nil {
			t.Fatalf("first close: %v", err)
		}
		paid := f.treasury.Balance("pusher")
		transfers := len(f.repo.Transfers())

		if _, err := f.eng.CloseMarket(ctx, owner); !errors.Is(err, domain.ErrAlreadyClosed) {
			t.Fatalf("second close: err = %v, want ErrAlreadyClosed", err)
		}
		if got := f.treasury.Balance("pusher"); got != paid {
			t.Errorf("pusher balance changed on second close: %d != %d", got, paid)
		}
		if got := len(f.repo.Transfers()); got != transfers {
			t.Errorf("transfer records changed on second close: %d != %d", got, transfers)
		}
	})

	t.Run("NoTradesStillCloses", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, ""); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		s, err := f.eng.CloseMarket(ctx, owner)
		if err != nil {
			t.Fatalf("CloseMarket: %v", err)
		}
		if len(s.Payouts) != 0 || len(s.Failures) != 0 {
			t.Errorf("settlement = %+v, want empty", s)
		}
		m, _ := f.eng.Market(ctx)
		if m.State != domain.Closed {
			t.Errorf("state = %s, want CLOSED", m.State)
		}
	})

	t.Run("TransferFailureRecorded", func(t *testing.T) {
		f := newFixture(t, core.Options{})
		if _, err := f.eng.InitMarket(ctx, owner, ""); err != nil {
			t.Fatalf("InitMarket: %v", err)
		}
		f.submit(t, "pusher", domain.Push, 10, 0)
		f.submit(t, "requester", domain.Request, 10, 10*2500)
		f.treasury.FailFor("pusher", errors.New("address unreachable"))

		s, err := f.eng.CloseMarket(ctx, owner)
		if err != nil {
			t.Fatalf("CloseMarket: %v", err)
		}
		if len(s.Failures) != 1 || s.Failures[0].Participant != "pusher" {
			t.Fatalf("failures = %v, want one for pusher", s.Failures)
		}
		var failed int
		for _, tr := range f.repo.Transfers() {
			if tr.Status == domain.TransferFailed {
				failed++
				if tr.Participant != "pusher" {
					t.Errorf("failed transfer participant = %s, want pusher", tr.Participant)
				}
			}
		}
		if failed != 1 {
			t.Errorf("failed transfer records = %d, want 1", failed)
		}
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, core.Options{})
	if _, err := f.eng.InitMarket(ctx, owner, deadline); err != nil {
		t.Fatalf("InitMarket: %v", err)
	}
	f.submit(t, "alice", domain.Push, 100, 0)
	f.submit(t, "bob", domain.Request, 60, 150000)
	f.submit(t, "alice", domain.Push, 80, 0) // resubmission must survive restart

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng2 := core.NewEngine(f.repo, in_memory.NewCache(), f.treasury, f.clock, log, core.Options{
		MarketID: "energy", Owner: owner, PricePerUnit: 2500,
	})
	if err := eng2.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	m, err := eng2.Market(ctx)
	if err != nil {
		t.Fatalf("Market after restore: %v", err)
	}
	if m.TotalPushed != 80 || m.TotalRequested != 60 {
		t.Errorf("restored totals = %d/%d, want 80/60", m.TotalPushed, m.TotalRequested)
	}
	snap, _ := eng2.Ledger(ctx)
	if len(snap.Entries) != 2 {
		t.Errorf("restored ledger has %d entries, want 2", len(snap.Entries))
	}

	// Close on the restored engine, then restore a third time and check the
	// settlement is loadable.
	f.clock.Advance(3 * time.Hour)
	if _, err := eng2.CloseMarket(ctx, owner); err != nil {
		t.Fatalf("CloseMarket after restore: %v", err)
	}
	eng3 := core.NewEngine(f.repo, in_memory.NewCache(), f.treasury, f.clock, log, core.Options{
		MarketID: "energy", Owner: owner, PricePerUnit: 2500,
	})
	if err := eng3.Restore(ctx); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	if _, err := eng3.Settlement(ctx); err != nil {
		t.Errorf("Settlement after restore: %v", err)
	}
	if _, err := eng3.CloseMarket(ctx, owner); !errors.Is(err, domain.ErrAlreadyClosed) {
		t.Errorf("close after restore: err = %v, want ErrAlreadyClosed", err)
	}
}
