package port

import (
	"context"

	"github.com/gridwatt/energy-market/internal/domain"
)

type Cache interface {
	SetMarket(ctx context.Context, m *domain.Market) error
	GetMarket(ctx context.Context, id string) (*domain.Market, error)
	SetLedger(ctx context.Context, snap *domain.LedgerSnapshot) error
	GetLedger(ctx context.Context, marketID string) (*domain.LedgerSnapshot, error)
	Invalidate(ctx context.Context, marketID string) error
}
