package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrSigningFailed = errors.New("signing failed")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrLockHeld      = errors.New("lock already held")
	ErrPaused        = errors.New("protocol is paused")
	ErrBetTooLarge   = errors.New("bet exceeds maximum amount")
	ErrMarketClosed  = errors.New("market is not accepting bets")
)
