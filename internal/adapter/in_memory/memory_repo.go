package in_memory

import (
	"context"
	"sync"

	"github.com/gridwatt/energy-market/internal/domain"
	"github.com/gridwatt/energy-market/internal/port"
)

var _ port.Repository = (*MemoryRepo)(nil)

type MemoryRepo struct {
	mu          sync.Mutex
	markets     map[string]*domain.Market
	trades      map[string]map[string]*domain.Trade
	settlements map[string]*domain.Settlement
	transfers   []*domain.Transfer
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		markets:     make(map[string]*domain.Market),
		trades:      make(map[string]map[string]*domain.Trade),
		settlements: make(map[string]*domain.Settlement),
	}
}

func (r *MemoryRepo) SaveMarket(ctx context.Context, m *domain.Market) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.markets[m.ID] = &cp
	return nil
}

func (r *MemoryRepo) LoadMarket(ctx context.Context, id string) (*domain.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepo) UpsertTrade(ctx context.Context, marketID string, t *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertTradeLocked(marketID, t)
	return nil
}

func (r *MemoryRepo) upsertTradeLocked(marketID string, t *domain.Trade) {
	byParticipant, ok := r.trades[marketID]
	if !ok {
		byParticipant = make(map[string]*domain.Trade)
		r.trades[marketID] = byParticipant
	}
	cp := *t
	byParticipant[t.Participant] = &cp
}

func (r *MemoryRepo) LoadTrades(ctx context.Context, marketID string) ([]*domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Trade
	for _, t := range r.trades[marketID] {
		cp := *t
		res = append(res, &cp)
	}
	return res, nil
}

func (r *MemoryRepo) SaveSettlement(ctx context.Context, s *domain.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.settlements[s.MarketID] = &cp
	return nil
}

func (r *MemoryRepo) LoadSettlement(ctx context.Context, marketID string) (*domain.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settlements[marketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepo) SaveTransfer(ctx context.Context, t *domain.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transfers = append(r.transfers, &cp)
	return nil
}

// Transfers returns all recorded transfer attempts, in insertion order.
func (r *MemoryRepo) Transfers() []*domain.Transfer {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*domain.Transfer, len(r.transfers))
	for i, t := range r.transfers {
		cp := *t
		res[i] = &cp
	}
	return res
}

// BeginTx returns a transaction that buffers writes and applies them all
// on Commit.
func (r *MemoryRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	return &memTx{repo: r}, nil
}

type memTx struct {
	repo *MemoryRepo
	ops  []func()
	done bool
}

func (t *memTx) SaveMarket(ctx context.Context, m *domain.Market) error {
	cp := *m
	t.ops = append(t.ops, func() { t.repo.markets[cp.ID] = &cp })
	return nil
}

func (t *memTx) UpsertTrade(ctx context.Context, marketID string, tr *domain.Trade) error {
	cp := *tr
	t.ops = append(t.ops, func() { t.repo.upsertTradeLocked(marketID, &cp) })
	return nil
}

func (t *memTx) SaveSettlement(ctx context.Context, s *domain.Settlement) error {
	cp := *s
	t.ops = append(t.ops, func() { t.repo.settlements[cp.MarketID] = &cp })
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	for _, op := range t.ops {
		op()
	}
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.done = true
	t.ops = nil
	return nil
}
