package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrLockHeld       = errors.New("lock already held")
	ErrMissingFixture = errors.New("missing fixture")
	ErrInvalidFixture = errors.New("invalid fixture")
	ErrInvalidMatch   = errors.New("invalid match")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownNetwork = errors.New("unknown network")
	ErrTxReverted     = errors.New("transaction reverted")
	ErrSigningFailed  = errors.New("signing failed")
)
