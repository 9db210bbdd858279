package in_memory

import (
	"context"
	"sync"

	"github.com/gridwatt/energy-market/internal/port"
)

var _ port.Treasury = (*Treasury)(nil)

// Treasury is an in-process stand-in for the host ledger's fund transfer
// primitive. It credits balances per participant and can be primed to fail
// for specific participants.
type Treasury struct {
	mu       sync.Mutex
	balances map[string]int64
	failFor  map[string]error
}

func NewTreasury() *Treasury {
	return &Treasury{
		balances: make(map[string]int64),
		failFor:  make(map[string]error),
	}
}

func (t *Treasury) SendFunds(ctx context.Context, participant string, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.failFor[participant]; ok {
		return err
	}
	t.balances[participant] += amount
	return nil
}

// Balance returns the total credited to a participant.
func (t *Treasury) Balance(participant string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[participant]
}

// FailFor makes subsequent transfers to participant return err.
func (t *Treasury) FailFor(participant string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failFor[participant] = err
}
