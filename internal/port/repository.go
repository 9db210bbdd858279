package port

import (
	"context"

	"github.com/gridwatt/energy-market/internal/domain"
)

type Repository interface {
	SaveMarket(ctx context.Context, m *domain.Market) error
	LoadMarket(ctx context.Context, id string) (*domain.Market, error)
	UpsertTrade(ctx context.Context, marketID string, t *domain.Trade) error
	LoadTrades(ctx context.Context, marketID string) ([]*domain.Trade, error)
	SaveSettlement(ctx context.Context, s *domain.Settlement) error
	LoadSettlement(ctx context.Context, marketID string) (*domain.Settlement, error)
	SaveTransfer(ctx context.Context, t *domain.Transfer) error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx groups the writes of one operation so they commit atomically: a trade
// submission's ledger entry and totals, or a closure's market state and
// settlement record.
type Tx interface {
	SaveMarket(ctx context.Context, m *domain.Market) error
	UpsertTrade(ctx context.Context, marketID string, t *domain.Trade) error
	SaveSettlement(ctx context.Context, s *domain.Settlement) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
