package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/gridwatt/energy-market/internal/domain"
	"github.com/gridwatt/energy-market/internal/port"
)

// Options fix the market's identity and settlement parameters at startup.
// Owner stands in for the contract creator: only it may open or close the
// market.
type Options struct {
	MarketID     string
	Owner        string
	PricePerUnit int64
	Scaling      ScalingMode
}

// Engine implements the market lifecycle (init, submit, close) over the
// collaborator ports. Each operation runs to completion under one lock and
// commits its in-memory state only after persistence succeeds.
type Engine struct {
	repo     port.Repository
	cache    port.Cache
	treasury port.Treasury
	clock    port.Clock
	log      *slog.Logger
	opts     Options

	mu         sync.Mutex
	market     *domain.Market
	ledger     *Ledger
	volumes    Volumes
	settlement *domain.Settlement
}

func NewEngine(repo port.Repository, cache port.Cache, treasury port.Treasury, clock port.Clock, log *slog.Logger, opts Options) *Engine {
	if clock == nil {
		clock = port.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Scaling == "" {
		opts.Scaling = ScaleInteger
	}
	return &Engine{
		repo:     repo,
		cache:    cache,
		treasury: treasury,
		clock:    clock,
		log:      log,
		opts:     opts,
		ledger:   NewLedger(),
	}
}

// Restore reloads persisted market state into memory (used on startup).
func (e *Engine) Restore(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.repo.LoadMarket(ctx, e.opts.MarketID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	trades, err := e.repo.LoadTrades(ctx, m.ID)
	if err != nil {
		return err
	}
	ledger := NewLedger()
	var vol Volumes
	for _, t := range trades {
		prev, ok := ledger.Upsert(*t)
		var prevPtr *domain.Trade
		if ok {
			prevPtr = &prev
		}
		if err := vol.Apply(prevPtr, *t); err != nil {
			return err
		}
	}
	e.market = m
	e.ledger = ledger
	e.volumes = vol

	if m.State == domain.Closed {
		if s, err := e.repo.LoadSettlement(ctx, m.ID); err == nil {
			e.settlement = s
		}
	}
	e.refreshCache(ctx)
	e.log.Info("market state restored",
		slog.String("market_id", m.ID),
		slog.String("state", string(m.State)),
		slog.Int("trades", ledger.Len()))
	return nil
}

// InitMarket opens the trading window. Only the owner may call it, and
// only once: re-initialization of an open or closed market is rejected.
func (e *Engine) InitMarket(ctx context.Context, caller, deadlineUTC string) (*domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.opts.Owner {
		return nil, domain.ErrUnauthorized
	}
	if err := ensureInitializable(e.market); err != nil {
		return nil, err
	}
	deadline, err := domain.ParseDeadline(deadlineUTC)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	m := &domain.Market{
		ID:            e.opts.MarketID,
		Owner:         e.opts.Owner,
		State:         domain.Open,
		TradeDeadline: deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if e.repo != nil {
		if err := e.repo.SaveMarket(ctx, m); err != nil {
			return nil, err
		}
	}
	e.market = m
	e.ledger = NewLedger()
	e.volumes = Volumes{}
	e.settlement = nil
	e.refreshCache(ctx)

	e.log.Info("market opened",
		slog.String("market_id", m.ID),
		slog.Time("trade_deadline", m.TradeDeadline))
	cp := *m
	return &cp, nil
}

// SubmitTrade records or overwrites the caller's trade and updates the
// volume totals, reversing a replaced trade's contribution.
func (e *Engine) SubmitTrade(ctx context.Context, t domain.Trade) (*domain.Market, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if err := ensureTradable(e.market, now); err != nil {
		return nil, err
	}
	t.SubmittedAt = now

	// Compute the post-submission state first; nothing is committed until
	// persistence succeeds.
	var prevPtr *domain.Trade
	if prev, ok := e.ledger.Get(t.Participant); ok {
		prevPtr = &prev
	}
	vol := e.volumes
	if err := vol.Apply(prevPtr, t); err != nil {
		return nil, err
	}
	m := *e.market
	m.TotalPushed = vol.Pushed
	m.TotalRequested = vol.Requested
	m.UpdatedAt = now

	if e.repo != nil {
		err := withTx(ctx, e.repo, func(tx port.Tx) error {
			if err := tx.UpsertTrade(ctx, m.ID, &t); err != nil {
				return err
			}
			return tx.SaveMarket(ctx, &m)
		})
		if err != nil {
			return nil, err
		}
	}
	e.ledger.Upsert(t)
	e.volumes = vol
	e.market = &m
	e.refreshCache(ctx)

	e.log.Info("trade recorded",
		slog.String("participant", t.Participant),
		slog.String("side", string(t.Side)),
		slog.Int64("energy_amount", t.EnergyAmount),
		slog.Int64("currency", t.Currency))
	cp := m
	return &cp, nil
}

// CloseMarket settles the ledger and disburses payouts. Only the owner may
// call it, regardless of phase. A second close reports ErrAlreadyClosed
// and moves no funds. The closed market and settlement record commit in
// one transaction before any disbursement, so a replayed close cannot
// re-pay.
func (e *Engine) CloseMarket(ctx context.Context, caller string) (*domain.Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.opts.Owner {
		return nil, domain.ErrUnauthorized
	}
	now := e.clock.Now()
	if err := ensureClosable(e.market, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyClosed) {
			return e.settlementCopy(), err
		}
		return nil, err
	}

	snap := e.ledger.Snapshot(e.market.ID, now)
	payouts, failures := Settle(snap.Entries, e.volumes, e.opts.PricePerUnit, e.opts.Scaling)
	settlement := &domain.Settlement{
		ID:       uuid.NewString(),
		MarketID: e.market.ID,
		Payouts:  payouts,
		Failures: failures,
		ClosedAt: now,
	}
	m := *e.market
	m.State = domain.Closed
	m.UpdatedAt = now

	if e.repo != nil {
		err := withTx(ctx, e.repo, func(tx port.Tx) error {
			if err := tx.SaveMarket(ctx, &m); err != nil {
				return err
			}
			return tx.SaveSettlement(ctx, settlement)
		})
		if err != nil {
			return nil, err
		}
	}
	e.market = &m
	e.settlement = settlement
	e.refreshCache(ctx)

	if len(snap.Entries) == 0 {
		e.log.Warn("market closed with no trades", slog.String("market_id", m.ID))
	}
	e.disburse(ctx, settlement)

	e.log.Info("market closed",
		slog.String("market_id", m.ID),
		slog.Int("payouts", len(settlement.Payouts)),
		slog.Int("failures", len(settlement.Failures)))
	return e.settlementCopy(), nil
}

// disburse requests one fund transfer per payout, in settlement order.
// Transfer errors are recorded per participant and never abort the loop.
func (e *Engine) disburse(ctx context.Context, s *domain.Settlement) {
	for _, p := range s.Payouts {
		tr := &domain.Transfer{
			ID:           uuid.NewString(),
			SettlementID: s.ID,
			Participant:  p.Participant,
			Amount:       p.Amount,
			Status:       domain.TransferSent,
			SentAt:       e.clock.Now(),
		}
		var err error
		if e.treasury != nil {
			err = e.treasury.SendFunds(ctx, p.Participant, p.Amount)
		}
		if err != nil {
			tr.Status = domain.TransferFailed
			tr.Error = err.Error()
			s.Failures = append(s.Failures, domain.SettlementFailure{
				Participant: p.Participant,
				Reason:      "transfer failed: " + err.Error(),
			})
			e.log.Error("transfer failed",
				slog.String("participant", p.Participant),
				slog.Int64("amount", p.Amount),
				slog.String("error", err.Error()))
		}
		if e.repo != nil {
			if err := e.repo.SaveTransfer(ctx, tr); err != nil {
				e.log.Error("transfer record not persisted",
					slog.String("participant", p.Participant),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Market returns the current market state, preferring the cache.
func (e *Engine) Market(ctx context.Context) (*domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil {
		if m, err := e.cache.GetMarket(ctx, e.opts.MarketID); err == nil && m != nil {
			return m, nil
		}
	}
	if e.market == nil {
		return nil, domain.ErrNotInitialized
	}
	cp := *e.market
	return &cp, nil
}

// Ledger returns a snapshot of all current trades, preferring the cache.
func (e *Engine) Ledger(ctx context.Context) (*domain.LedgerSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil {
		if snap, err := e.cache.GetLedger(ctx, e.opts.MarketID); err == nil && snap != nil {
			return snap, nil
		}
	}
	if e.market == nil {
		return nil, domain.ErrNotInitialized
	}
	return e.ledger.Snapshot(e.market.ID, e.clock.Now()), nil
}

// Trade returns one participant's current ledger entry.
func (e *Engine) Trade(ctx context.Context, participant string) (*domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.market == nil {
		return nil, domain.ErrNotInitialized
	}
	t, ok := e.ledger.Get(participant)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

// Settlement returns the settlement outcome after close.
func (e *Engine) Settlement(ctx context.Context) (*domain.Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settlement == nil {
		return nil, domain.ErrNotFound
	}
	return e.settlementCopy(), nil
}

func (e *Engine) settlementCopy() *domain.Settlement {
	if e.settlement == nil {
		return nil
	}
	cp := *e.settlement
	cp.Payouts = append([]domain.Payout(nil), e.settlement.Payouts...)
	cp.Failures = append([]domain.SettlementFailure(nil), e.settlement.Failures...)
	return &cp
}

// refreshCache best-effort mirrors the market and ledger into the cache.
func (e *Engine) refreshCache(ctx context.Context) {
	if e.cache == nil || e.market == nil {
		return
	}
	_ = e.cache.SetMarket(ctx, e.market)
	_ = e.cache.SetLedger(ctx, e.ledger.Snapshot(e.market.ID, e.market.UpdatedAt))
}
