package telegram

import "errors"

var (
	// ErrNotFound means the channel does not exist or is not reachable
	// by this account anymore.
	ErrNotFound = errors.New("telegram entity not found")

	// ErrRateLimited signals a flood wait; the caller defers the
	// operation instead of retrying inline.
	ErrRateLimited = errors.New("telegram rate limited")

	// ErrUnavailable wraps transient transport or RPC failures.
	ErrUnavailable = errors.New("telegram unavailable")
)
