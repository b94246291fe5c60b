package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/roomservice/internal/lock"
	"github.com/dshills/roomservice/internal/order"
	"github.com/dshills/roomservice/internal/storage"
	"github.com/dshills/roomservice/pkg/types"
)

const (
	// DefaultLockTimeout bounds the wait for an order's exclusive section
	DefaultLockTimeout = 5 * time.Second

	// createAttempts covers order number races between instances
	createAttempts = 3
)

// Mutation changes an order in place. Returning an error discards the change.
type Mutation func(o *types.Order) error

// Options configures a Repository
type Options struct {
	Locker      lock.Locker    // defaults to an in-process KeyedMutex
	LockTimeout time.Duration  // defaults to DefaultLockTimeout
	Location    *time.Location // day boundary for order numbers, defaults to UTC
	Logger      *slog.Logger
}

// Repository persists orders. All writes to one order id go through a single
// exclusive section; writes to different orders proceed independently.
type Repository struct {
	store       storage.Storage
	locker      lock.Locker
	lockTimeout time.Duration
	loc         *time.Location
	logger      *slog.Logger
}

// New creates a Repository over store
func New(store storage.Storage, opts Options) *Repository {
	r := &Repository{
		store:       store,
		locker:      opts.Locker,
		lockTimeout: opts.LockTimeout,
		loc:         opts.Location,
		logger:      opts.Logger,
	}
	if r.locker == nil {
		r.locker = lock.NewKeyedMutex()
	}
	if r.lockTimeout <= 0 {
		r.lockTimeout = DefaultLockTimeout
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Create stores a new order with its items and history and assigns its
// order number, all in one transaction. o is updated in place.
func (r *Repository) Create(ctx context.Context, o *types.Order) (*types.Order, error) {
	if err := order.CheckInvariants(o); err != nil {
		return nil, err
	}

	var err error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		err = r.create(ctx, o)
		if !errors.Is(err, storage.ErrAlreadyExists) {
			break
		}
		r.logger.Warn("order number taken, retrying",
			"action", "order_create_retry", "attempt", attempt, "order_no", o.OrderNo)
	}
	if err != nil {
		o.OrderNo = ""
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Info("order created",
		"action", "order_created", "order_id", o.ID, "order_no", o.OrderNo,
		"room_no", o.RoomNo, "total", o.Total)
	return o, nil
}

func (r *Repository) create(ctx context.Context, o *types.Order) error {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	orderNo, err := tx.NextOrderNo(ctx, o.CreatedAt.In(r.loc))
	if err != nil {
		return err
	}
	o.OrderNo = orderNo

	if err := tx.InsertOrder(ctx, o); err != nil {
		return err
	}
	if err := tx.ReplaceOrderItems(ctx, o.ID, o.Items); err != nil {
		return err
	}
	if err := tx.AppendHistory(ctx, o.ID, 0, o.History); err != nil {
		return err
	}
	return tx.Commit()
}

// Get loads one order with its items and history
func (r *Repository) Get(ctx context.Context, id string) (*types.Order, error) {
	o, err := r.store.GetOrder(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewNotFoundError("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return o, nil
}

// List returns order summaries, newest first
func (r *Repository) List(ctx context.Context, filter types.ListFilter) ([]*types.OrderSummary, error) {
	return r.store.ListOrders(ctx, filter)
}

// ListCreatedBetween returns full orders with start <= created_at <= end,
// oldest first
func (r *Repository) ListCreatedBetween(ctx context.Context, start, end time.Time) ([]*types.Order, error) {
	return r.store.ListOrdersCreatedBetween(ctx, start, end)
}

// SaveMutation applies fn to the stored order id under its exclusive
// section and persists the result atomically.
//
// Nothing is written when fn returns an error or appends no history entry;
// in the latter case the stored order is returned unchanged. A lock wait
// longer than the configured timeout yields a *types.ConcurrencyError.
func (r *Repository) SaveMutation(ctx context.Context, id string, fn Mutation) (*types.Order, error) {
	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	release, err := r.locker.Acquire(lockCtx, id)
	cancel()
	if err != nil {
		r.logger.Warn("order lock not acquired", "action", "order_lock_timeout", "order_id", id, "error", err)
		return nil, &types.ConcurrencyError{OrderID: id, Err: err}
	}
	defer release()

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := tx.GetOrder(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewNotFoundError("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}

	seq := len(current.History)
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if len(next.History) == seq {
		return current, nil
	}
	if len(next.History) < seq {
		return nil, fmt.Errorf("%w: history of %s shrank", order.ErrInvariant, id)
	}
	if err := order.CheckInvariants(next); err != nil {
		return nil, err
	}

	if err := tx.UpdateOrder(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if err := tx.ReplaceOrderItems(ctx, id, next.Items); err != nil {
		return nil, err
	}
	if err := tx.AppendHistory(ctx, id, seq, next.History[seq:]); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order %s: %w", id, err)
	}

	r.logger.Info("order updated",
		"action", "order_updated", "order_id", id, "order_no", next.OrderNo,
		"change", next.History[len(next.History)-1].Action, "total", next.Total)
	return next, nil
}
