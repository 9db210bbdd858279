package domain

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotInitialized     = errors.New("market not initialized")
	ErrAlreadyInitialized = errors.New("market already initialized")
	ErrMarketClosed       = errors.New("market closed")
	ErrAlreadyClosed      = errors.New("market already closed")
	ErrTradingClosed      = errors.New("trading window closed")
	ErrNotYetClosable     = errors.New("trading window still open")
	ErrInvalidSide        = errors.New("invalid trade side")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativePayout     = errors.New("negative payout")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrNoTrades           = errors.New("no trades recorded")
	ErrNotFound           = errors.New("not found")
)
