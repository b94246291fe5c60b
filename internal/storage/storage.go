package storage

import (
	"context"
	"time"

	"github.com/dshills/roomservice/pkg/types"
)

// Storage defines the interface for persisting menus and orders
type Storage interface {
	// Menu operations
	InsertMenuItems(ctx context.Context, items []*types.MenuItem) error
	ListMenuItems(ctx context.Context, version string) ([]*types.MenuItem, error)
	ListMenuVersions(ctx context.Context) ([]string, error)
	CountMenuItems(ctx context.Context) (int, error)

	// Order operations
	InsertOrder(ctx context.Context, order *types.Order) error
	NextOrderNo(ctx context.Context, day time.Time) (string, error)
	GetOrder(ctx context.Context, orderID string) (*types.Order, error)
	UpdateOrder(ctx context.Context, order *types.Order) error
	ListOrders(ctx context.Context, filter types.ListFilter) ([]*types.OrderSummary, error)
	ListOrdersCreatedBetween(ctx context.Context, start, end time.Time) ([]*types.Order, error)

	// Line item operations
	ReplaceOrderItems(ctx context.Context, orderID string, items []types.OrderLine) error
	ListOrderItems(ctx context.Context, orderID string) ([]types.OrderLine, error)

	// History operations
	AppendHistory(ctx context.Context, orderID string, startSeq int, entries []types.HistoryEntry) error
	ListHistory(ctx context.Context, orderID string) ([]types.HistoryEntry, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}
