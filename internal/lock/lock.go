package lock

import (
	"context"
	"errors"
)

// ErrTimeout is returned when a lock could not be acquired before the
// context ended
var ErrTimeout = errors.New("lock wait timed out")

// Locker provides exclusive sections keyed by an order id. Holders of
// different keys never wait on each other.
type Locker interface {
	// Acquire blocks until key is held or ctx ends. The returned release
	// function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
