package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/roomservice/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// timeLayout is fixed-width UTC so that text comparison matches time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// readTx runs fn in a read transaction so multi-statement reads see one
// snapshot
func (s *SQLiteStorage) readTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", v, err)
	}
	return t, nil
}

// isUniqueViolation matches the constraint error text of both drivers
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Menu operations

// insertMenuItemsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertMenuItemsWithQuerier(ctx context.Context, q querier, items []*types.MenuItem) error {
	query := `
		INSERT INTO menu_items (id, version, item_key, name, description, price, category, image, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := formatTime(time.Now())
	for i, item := range items {
		_, err := q.ExecContext(ctx, query,
			item.ID, item.Version, item.ItemKey, item.Name, item.Description,
			item.Price, item.Category, item.Image, i, now)
		if isUniqueViolation(err) {
			return fmt.Errorf("menu item %s@%s: %w", item.ItemKey, item.Version, ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert menu item %s: %w", item.ItemKey, err)
		}
	}
	return nil
}

// InsertMenuItems stores all items in one transaction
func (s *SQLiteStorage) InsertMenuItems(ctx context.Context, items []*types.MenuItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertMenuItemsWithQuerier(ctx, tx, items); err != nil {
		return err
	}
	return tx.Commit()
}

// listMenuItemsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listMenuItemsWithQuerier(ctx context.Context, q querier, version string) ([]*types.MenuItem, error) {
	query := `
		SELECT id, version, item_key, name, description, price, category, image
		FROM menu_items
		WHERE version = ?
		ORDER BY position, item_key
	`
	rows, err := q.QueryContext(ctx, query, version)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]*types.MenuItem, 0)
	for rows.Next() {
		var item types.MenuItem
		if err := rows.Scan(&item.ID, &item.Version, &item.ItemKey, &item.Name,
			&item.Description, &item.Price, &item.Category, &item.Image); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) ListMenuItems(ctx context.Context, version string) ([]*types.MenuItem, error) {
	return s.listMenuItemsWithQuerier(ctx, s.querier(), version)
}

// listMenuVersionsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listMenuVersionsWithQuerier(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT version FROM menu_items
		GROUP BY version
		ORDER BY MIN(created_at), version
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	versions := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLiteStorage) ListMenuVersions(ctx context.Context) ([]string, error) {
	return s.listMenuVersionsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) countMenuItemsWithQuerier(ctx context.Context, q querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM menu_items").Scan(&n)
	return n, err
}

func (s *SQLiteStorage) CountMenuItems(ctx context.Context) (int, error) {
	return s.countMenuItemsWithQuerier(ctx, s.querier())
}

// Order operations

// insertOrderWithQuerier writes the order row only. Items and history are
// written separately so callers can group them in one transaction.
func (s *SQLiteStorage) insertOrderWithQuerier(ctx context.Context, q querier, o *types.Order) error {
	query := `
		INSERT INTO orders (id, order_no, created_at, updated_at, guest_name, room_no, notes,
		                    source, menu_version, status, payment_status, requested_time, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		o.ID, o.OrderNo, formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
		o.GuestName, o.RoomNo, o.Notes, o.Source, o.MenuVersion,
		string(o.Status), string(o.PaymentStatus), o.RequestedTime, o.Total)
	if isUniqueViolation(err) {
		return fmt.Errorf("order %s: %w", o.OrderNo, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) InsertOrder(ctx context.Context, o *types.Order) error {
	return s.insertOrderWithQuerier(ctx, s.querier(), o)
}

// nextOrderNoWithQuerier allocates ORD-YYYYMMDD-NNN for the given day
func (s *SQLiteStorage) nextOrderNoWithQuerier(ctx context.Context, q querier, day time.Time) (string, error) {
	prefix := "ORD-" + day.Format("20060102") + "-"
	query := `
		SELECT COALESCE(MAX(CAST(substr(order_no, ?) AS INTEGER)), 0) + 1
		FROM orders
		WHERE order_no LIKE ?
	`
	var seq int
	if err := q.QueryRowContext(ctx, query, len(prefix)+1, prefix+"%").Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

func (s *SQLiteStorage) NextOrderNo(ctx context.Context, day time.Time) (string, error) {
	return s.nextOrderNoWithQuerier(ctx, s.querier(), day)
}

const orderColumns = `id, order_no, created_at, updated_at, guest_name, room_no, notes,
		       source, menu_version, status, payment_status, requested_time, total`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*types.Order, error) {
	var o types.Order
	var createdAt, updatedAt, status, paymentStatus string
	err := row.Scan(&o.ID, &o.OrderNo, &createdAt, &updatedAt, &o.GuestName, &o.RoomNo,
		&o.Notes, &o.Source, &o.MenuVersion, &status, &paymentStatus, &o.RequestedTime, &o.Total)
	if err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	o.Status = types.Status(status)
	o.PaymentStatus = types.PaymentStatus(paymentStatus)
	return &o, nil
}

// getOrderWithQuerier loads the order row, its items and its history
func (s *SQLiteStorage) getOrderWithQuerier(ctx context.Context, q querier, orderID string) (*types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(q.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if o.Items, err = s.listOrderItemsWithQuerier(ctx, q, orderID); err != nil {
		return nil, err
	}
	if o.History, err = s.listHistoryWithQuerier(ctx, q, orderID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder reads the order and its children in one read transaction
func (s *SQLiteStorage) GetOrder(ctx context.Context, orderID string) (*types.Order, error) {
	var o *types.Order
	err := s.readTx(ctx, func(q querier) error {
		var err error
		o, err = s.getOrderWithQuerier(ctx, q, orderID)
		return err
	})
	return o, err
}

// updateOrderWithQuerier writes the mutable columns of the order row
func (s *SQLiteStorage) updateOrderWithQuerier(ctx context.Context, q querier, o *types.Order) error {
	query := `
		UPDATE orders
		SET updated_at = ?, guest_name = ?, room_no = ?, notes = ?, status = ?,
		    payment_status = ?, requested_time = ?, total = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query,
		formatTime(o.UpdatedAt), o.GuestName, o.RoomNo, o.Notes, string(o.Status),
		string(o.PaymentStatus), o.RequestedTime, o.Total, o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) UpdateOrder(ctx context.Context, o *types.Order) error {
	return s.updateOrderWithQuerier(ctx, s.querier(), o)
}

// listOrdersWithQuerier returns summaries newest first
func (s *SQLiteStorage) listOrdersWithQuerier(ctx context.Context, q querier, filter types.ListFilter) ([]*types.OrderSummary, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "o.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.PaymentStatus != "" {
		where = append(where, "o.payment_status = ?")
		args = append(args, string(filter.PaymentStatus))
	}
	if filter.RoomNo != "" {
		where = append(where, "o.room_no = ?")
		args = append(args, filter.RoomNo)
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "o.created_at >= ?")
		args = append(args, formatTime(filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "o.created_at <= ?")
		args = append(args, formatTime(filter.CreatedTo))
	}

	query := `
		SELECT o.id, o.order_no, o.created_at, o.guest_name, o.room_no, o.status,
		       o.payment_status, o.total, COALESCE(SUM(i.qty), 0)
		FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY o.id ORDER BY o.created_at DESC, o.order_no DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]*types.OrderSummary, 0)
	for rows.Next() {
		var sum types.OrderSummary
		var createdAt, status, paymentStatus string
		if err := rows.Scan(&sum.ID, &sum.OrderNo, &createdAt, &sum.GuestName, &sum.RoomNo,
			&status, &paymentStatus, &sum.Total, &sum.ItemCount); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		sum.Status = types.Status(status)
		sum.PaymentStatus = types.PaymentStatus(paymentStatus)
		summaries = append(summaries, &sum)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStorage) ListOrders(ctx context.Context, filter types.ListFilter) ([]*types.OrderSummary, error) {
	return s.listOrdersWithQuerier(ctx, s.querier(), filter)
}

// listOrdersCreatedBetweenWithQuerier loads full orders with start <= created_at <= end,
// oldest first
func (s *SQLiteStorage) listOrdersCreatedBetweenWithQuerier(ctx context.Context, q querier, start, end time.Time) ([]*types.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC, order_no ASC`
	rows, err := q.QueryContext(ctx, query, formatTime(start), formatTime(end))
	if err != nil {
		return nil, err
	}

	orders := make([]*types.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Children are loaded after the cursor is closed; the pool has one connection.
	for _, o := range orders {
		if o.Items, err = s.listOrderItemsWithQuerier(ctx, q, o.ID); err != nil {
			return nil, err
		}
		if o.History, err = s.listHistoryWithQuerier(ctx, q, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *SQLiteStorage) ListOrdersCreatedBetween(ctx context.Context, start, end time.Time) ([]*types.Order, error) {
	var orders []*types.Order
	err := s.readTx(ctx, func(q querier) error {
		var err error
		orders, err = s.listOrdersCreatedBetweenWithQuerier(ctx, q, start, end)
		return err
	})
	return orders, err
}

// Line item operations

// replaceOrderItemsWithQuerier rewrites the full item set of an order
func (s *SQLiteStorage) replaceOrderItemsWithQuerier(ctx context.Context, q querier, orderID string, items []types.OrderLine) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", orderID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}

	query := `
		INSERT INTO order_items (id, order_id, position, item_key, name, qty, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i, l := range items {
		if _, err := q.ExecContext(ctx, query, l.ID, orderID, i, l.ItemKey, l.Name, l.Qty, l.Price); err != nil {
			return fmt.Errorf("failed to insert order item %s: %w", l.ItemKey, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) ReplaceOrderItems(ctx context.Context, orderID string, items []types.OrderLine) error {
	return s.replaceOrderItemsWithQuerier(ctx, s.querier(), orderID, items)
}

// listOrderItemsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listOrderItemsWithQuerier(ctx context.Context, q querier, orderID string) ([]types.OrderLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, item_key, name, qty, price
		FROM order_items
		WHERE order_id = ?
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]types.OrderLine, 0)
	for rows.Next() {
		var l types.OrderLine
		if err := rows.Scan(&l.ID, &l.ItemKey, &l.Name, &l.Qty, &l.Price); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) ListOrderItems(ctx context.Context, orderID string) ([]types.OrderLine, error) {
	return s.listOrderItemsWithQuerier(ctx, s.querier(), orderID)
}

// History operations

// appendHistoryWithQuerier inserts entries with seq startSeq, startSeq+1, ...
// An existing seq makes the insert fail; stored entries are never rewritten.
func (s *SQLiteStorage) appendHistoryWithQuerier(ctx context.Context, q querier, orderID string, startSeq int, entries []types.HistoryEntry) error {
	query := `INSERT INTO order_history (order_id, seq, at, action) VALUES (?, ?, ?, ?)`
	for i, e := range entries {
		_, err := q.ExecContext(ctx, query, orderID, startSeq+i, formatTime(e.When), e.Action)
		if isUniqueViolation(err) {
			return fmt.Errorf("history seq %d of order %s: %w", startSeq+i, orderID, ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) AppendHistory(ctx context.Context, orderID string, startSeq int, entries []types.HistoryEntry) error {
	return s.appendHistoryWithQuerier(ctx, s.querier(), orderID, startSeq, entries)
}

// listHistoryWithQuerier returns entries in write order
func (s *SQLiteStorage) listHistoryWithQuerier(ctx context.Context, q querier, orderID string) ([]types.HistoryEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT at, action FROM order_history
		WHERE order_id = ?
		ORDER BY seq
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	history := make([]types.HistoryEntry, 0)
	for rows.Next() {
		var at string
		var e types.HistoryEntry
		if err := rows.Scan(&at, &e.Action); err != nil {
			return nil, err
		}
		if e.When, err = parseTime(at); err != nil {
			return nil, err
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

func (s *SQLiteStorage) ListHistory(ctx context.Context, orderID string) ([]types.HistoryEntry, error) {
	return s.listHistoryWithQuerier(ctx, s.querier(), orderID)
}

// Transaction implementations

func (t *sqliteTx) InsertMenuItems(ctx context.Context, items []*types.MenuItem) error {
	return t.storage.insertMenuItemsWithQuerier(ctx, t.querier(), items)
}

func (t *sqliteTx) ListMenuItems(ctx context.Context, version string) ([]*types.MenuItem, error) {
	return t.storage.listMenuItemsWithQuerier(ctx, t.querier(), version)
}

func (t *sqliteTx) ListMenuVersions(ctx context.Context) ([]string, error) {
	return t.storage.listMenuVersionsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) CountMenuItems(ctx context.Context) (int, error) {
	return t.storage.countMenuItemsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) InsertOrder(ctx context.Context, o *types.Order) error {
	return t.storage.insertOrderWithQuerier(ctx, t.querier(), o)
}

func (t *sqliteTx) NextOrderNo(ctx context.Context, day time.Time) (string, error) {
	return t.storage.nextOrderNoWithQuerier(ctx, t.querier(), day)
}

func (t *sqliteTx) GetOrder(ctx context.Context, orderID string) (*types.Order, error) {
	return t.storage.getOrderWithQuerier(ctx, t.querier(), orderID)
}

func (t *sqliteTx) UpdateOrder(ctx context.Context, o *types.Order) error {
	return t.storage.updateOrderWithQuerier(ctx, t.querier(), o)
}

func (t *sqliteTx) ListOrders(ctx context.Context, filter types.ListFilter) ([]*types.OrderSummary, error) {
	return t.storage.listOrdersWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) ListOrdersCreatedBetween(ctx context.Context, start, end time.Time) ([]*types.Order, error) {
	return t.storage.listOrdersCreatedBetweenWithQuerier(ctx, t.querier(), start, end)
}

func (t *sqliteTx) ReplaceOrderItems(ctx context.Context, orderID string, items []types.OrderLine) error {
	return t.storage.replaceOrderItemsWithQuerier(ctx, t.querier(), orderID, items)
}

func (t *sqliteTx) ListOrderItems(ctx context.Context, orderID string) ([]types.OrderLine, error) {
	return t.storage.listOrderItemsWithQuerier(ctx, t.querier(), orderID)
}

func (t *sqliteTx) AppendHistory(ctx context.Context, orderID string, startSeq int, entries []types.HistoryEntry) error {
	return t.storage.appendHistoryWithQuerier(ctx, t.querier(), orderID, startSeq, entries)
}

func (t *sqliteTx) ListHistory(ctx context.Context, orderID string) ([]types.HistoryEntry, error) {
	return t.storage.listHistoryWithQuerier(ctx, t.querier(), orderID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
