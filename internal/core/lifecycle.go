package core

import (
	"time"

	"github.com/gridwatt/energy-market/internal/domain"
)

// Lifecycle gating helpers. State only moves forward:
// Uninitialized -> Open -> Closed.

func ensureInitializable(m *domain.Market) error {
	if m != nil && m.State != domain.Uninitialized {
		return domain.ErrAlreadyInitialized
	}
	return nil
}

func ensureTradable(m *domain.Market, now time.Time) error {
	if m == nil || m.State == domain.Uninitialized {
		return domain.ErrNotInitialized
	}
	if m.State == domain.Closed {
		return domain.ErrMarketClosed
	}
	if !m.AcceptsTrade(now) {
		return domain.ErrTradingClosed
	}
	return nil
}

func ensureClosable(m *domain.Market, now time.Time) error {
	if m == nil || m.State == domain.Uninitialized {
		return domain.ErrNotInitialized
	}
	if m.State == domain.Closed {
		return domain.ErrAlreadyClosed
	}
	if !m.CanClose(now) {
		return domain.ErrNotYetClosable
	}
	return nil
}
