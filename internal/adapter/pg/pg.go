package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridwatt/energy-market/internal/domain"
	"github.com/gridwatt/energy-market/internal/port"
)

var _ port.Repository = (*PgRepo)(nil)

type PgRepo struct {
	pool *pgxpool.Pool
}

// call Close when finished working with the database.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

func (p *PgRepo) Close(ctx context.Context) {
	if p.pool != nil {
		p.pool.Close()
	}
}

const saveMarketSQL = `
INSERT INTO markets(id, owner_id, state, trade_deadline, total_pushed, total_requested, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  owner_id = EXCLUDED.owner_id,
  state = EXCLUDED.state,
  trade_deadline = EXCLUDED.trade_deadline,
  total_pushed = EXCLUDED.total_pushed,
  total_requested = EXCLUDED.total_requested,
  updated_at = EXCLUDED.updated_at
`

const upsertTradeSQL = `
INSERT INTO trades(market_id, participant, side, energy_amount, currency, submitted_at)
VALUES($1,$2,$3,$4,$5,$6)
ON CONFLICT (market_id, participant) DO UPDATE SET
  side = EXCLUDED.side,
  energy_amount = EXCLUDED.energy_amount,
  currency = EXCLUDED.currency,
  submitted_at = EXCLUDED.submitted_at
`

const saveSettlementSQL = `
INSERT INTO settlements(id, market_id, payouts_json, failures_json, closed_at)
VALUES($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
  payouts_json = EXCLUDED.payouts_json,
  failures_json = EXCLUDED.failures_json,
  closed_at = EXCLUDED.closed_at
`

func marketArgs(m *domain.Market) []any {
	var deadline *time.Time
	if !m.TradeDeadline.IsZero() {
		d := m.TradeDeadline
		deadline = &d
	}
	return []any{m.ID, m.Owner, string(m.State), deadline, m.TotalPushed, m.TotalRequested, m.CreatedAt, m.UpdatedAt}
}

func tradeArgs(marketID string, t *domain.Trade) []any {
	return []any{marketID, t.Participant, string(t.Side), t.EnergyAmount, t.Currency, t.SubmittedAt}
}

func settlementArgs(s *domain.Settlement) ([]any, error) {
	payouts, err := json.Marshal(s.Payouts)
	if err != nil {
		return nil, err
	}
	failures, err := json.Marshal(s.Failures)
	if err != nil {
		return nil, err
	}
	return []any{s.ID, s.MarketID, string(payouts), string(failures), s.ClosedAt}, nil
}

func (p *PgRepo) SaveMarket(ctx context.Context, m *domain.Market) error {
	if m == nil {
		return errors.New("nil market")
	}
	_, err := p.pool.Exec(ctx, saveMarketSQL, marketArgs(m)...)
	return err
}

func (p *PgRepo) LoadMarket(ctx context.Context, id string) (*domain.Market, error) {
	row := p.pool.QueryRow(ctx, `
SELECT id, owner_id, state, trade_deadline, total_pushed, total_requested, created_at, updated_at
FROM markets WHERE id = $1
`, id)
	var m domain.Market
	var state string
	var deadline *time.Time
	if err := row.Scan(&m.ID, &m.Owner, &state, &deadline, &m.TotalPushed, &m.TotalRequested, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	m.State = domain.MarketState(state)
	if deadline != nil {
		m.TradeDeadline = *deadline
	}
	return &m, nil
}

func (p *PgRepo) UpsertTrade(ctx context.Context, marketID string, t *domain.Trade) error {
	if t == nil {
		return errors.New("nil trade")
	}
	_, err := p.pool.Exec(ctx, upsertTradeSQL, tradeArgs(marketID, t)...)
	return err
}

func (p *PgRepo) LoadTrades(ctx context.Context, marketID string) ([]*domain.Trade, error) {
	rows, err := p.pool.Query(ctx, `
SELECT participant, side, energy_amount, currency, submitted_at
FROM trades
WHERE market_id = $1
ORDER BY participant ASC
`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side string
		if err := rows.Scan(&t.Participant, &side, &t.EnergyAmount, &t.Currency, &t.SubmittedAt); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		res = append(res, &t)
	}
	return res, rows.Err()
}

func (p *PgRepo) SaveSettlement(ctx context.Context, s *domain.Settlement) error {
	if s == nil {
		return errors.New("nil settlement")
	}
	args, err := settlementArgs(s)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, saveSettlementSQL, args...)
	return err
}

func (p *PgRepo) LoadSettlement(ctx context.Context, marketID string) (*domain.Settlement, error) {
	row := p.pool.QueryRow(ctx, `
SELECT id, market_id, payouts_json, failures_json, closed_at
FROM settlements WHERE market_id = $1
ORDER BY closed_at DESC LIMIT 1
`, marketID)
	var s domain.Settlement
	var payouts, failures string
	if err := row.Scan(&s.ID, &s.MarketID, &payouts, &failures, &s.ClosedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(payouts), &s.Payouts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(failures), &s.Failures); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *PgRepo) SaveTransfer(ctx context.Context, t *domain.Transfer) error {
	if t == nil {
		return errors.New("nil transfer")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO transfers(id, settlement_id, participant, amount, status, error, sent_at)
VALUES($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING
`, t.ID, t.SettlementID, t.Participant, t.Amount, string(t.Status), t.Error, t.SentAt)
	return err
}

func (p *PgRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) SaveMarket(ctx context.Context, m *domain.Market) error {
	_, err := t.tx.Exec(ctx, saveMarketSQL, marketArgs(m)...)
	return err
}

func (t *pgTx) UpsertTrade(ctx context.Context, marketID string, tr *domain.Trade) error {
	_, err := t.tx.Exec(ctx, upsertTradeSQL, tradeArgs(marketID, tr)...)
	return err
}

func (t *pgTx) SaveSettlement(ctx context.Context, s *domain.Settlement) error {
	args, err := settlementArgs(s)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, saveSettlementSQL, args...)
	return err
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
