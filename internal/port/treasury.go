package port

import "context"

// Treasury executes fund transfers on the host ledger. Transfers are
// fire-and-forget from the engine's point of view: a failed transfer is
// recorded, not retried.
type Treasury interface {
	SendFunds(ctx context.Context, participant string, amount int64) error
}
