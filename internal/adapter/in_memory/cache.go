package in_memory

import (
	"context"
	"sync"

	"github.com/gridwatt/energy-market/internal/domain"
	"github.com/gridwatt/energy-market/internal/port"
)

var _ port.Cache = (*Cache)(nil)

type Cache struct {
	mu      sync.Mutex
	markets map[string]*domain.Market
	ledgers map[string]*domain.LedgerSnapshot
}

func NewCache() *Cache {
	return &Cache{
		markets: make(map[string]*domain.Market),
		ledgers: make(map[string]*domain.LedgerSnapshot),
	}
}

func (c *Cache) SetMarket(ctx context.Context, m *domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *m
	c.markets[m.ID] = &cp
	return nil
}

func (c *Cache) GetMarket(ctx context.Context, id string) (*domain.Market, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.markets[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (c *Cache) SetLedger(ctx context.Context, snap *domain.LedgerSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledgers[snap.MarketID] = snap.DeepCopy()
	return nil
}

func (c *Cache) GetLedger(ctx context.Context, marketID string) (*domain.LedgerSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.ledgers[marketID]
	if !ok {
		return nil, nil
	}
	return snap.DeepCopy(), nil
}

func (c *Cache) Invalidate(ctx context.Context, marketID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.markets, marketID)
	delete(c.ledgers, marketID)
	return nil
}
