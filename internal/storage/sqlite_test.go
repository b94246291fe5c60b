package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/roomservice/pkg/types"
)

var testDay = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func testOrder(orderNo string, created time.Time, lines ...types.OrderLine) *types.Order {
	o := &types.Order{
		ID:            uuid.NewString(),
		OrderNo:       orderNo,
		CreatedAt:     created,
		UpdatedAt:     created,
		GuestName:     "Asha",
		RoomNo:        "204",
		Source:        "staff",
		MenuVersion:   types.DefaultMenuVersion,
		Status:        types.StatusNew,
		PaymentStatus: types.PaymentNotPaid,
		Items:         lines,
		History:       []types.HistoryEntry{{When: created, Action: "Order created"}},
	}
	o.Total = o.ComputeTotal()
	return o
}

func line(key, name string, qty int, price int64) types.OrderLine {
	return types.OrderLine{ID: uuid.NewString(), ItemKey: key, Name: name, Qty: qty, Price: price}
}

// storeOrder writes an order the way the repository does
func storeOrder(t *testing.T, s *SQLiteStorage, o *types.Order) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	require.NoError(t, tx.InsertOrder(ctx, o))
	require.NoError(t, tx.ReplaceOrderItems(ctx, o.ID, o.Items))
	require.NoError(t, tx.AppendHistory(ctx, o.ID, 0, o.History))
	require.NoError(t, tx.Commit())
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.db)
	assert.NoError(t, storage.Ping(context.Background()))
}

func TestClose(t *testing.T) {
	storage := setupTestDB(t)
	err := storage.Close()
	assert.NoError(t, err)
}

func TestMenuItems_InsertAndList(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	items := []*types.MenuItem{
		{ID: uuid.NewString(), Version: "v1", ItemKey: "naan", Name: "Naan", Price: 60, Category: "Bread"},
		{ID: uuid.NewString(), Version: "v1", ItemKey: "dal_makhani", Name: "Dal Makhani", Price: 200, Category: "Main"},
	}
	require.NoError(t, storage.InsertMenuItems(ctx, items))

	listed, err := storage.ListMenuItems(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "naan", listed[0].ItemKey)
	assert.Equal(t, int64(200), listed[1].Price)

	empty, err := storage.ListMenuItems(ctx, "v2")
	require.NoError(t, err)
	assert.Empty(t, empty)

	n, err := storage.CountMenuItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMenuItems_DuplicateKeyRejectedAtomically(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	items := []*types.MenuItem{
		{ID: uuid.NewString(), Version: "v1", ItemKey: "naan", Name: "Naan", Price: 60},
		{ID: uuid.NewString(), Version: "v1", ItemKey: "naan", Name: "Butter Naan", Price: 70},
	}
	err := storage.InsertMenuItems(ctx, items)
	require.ErrorIs(t, err, ErrAlreadyExists)

	n, err := storage.CountMenuItems(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "partial batch must not be stored")
}

func TestListMenuVersions(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	for _, v := range []string{"RestoVersion", "Winter"} {
		require.NoError(t, storage.InsertMenuItems(ctx, []*types.MenuItem{
			{ID: uuid.NewString(), Version: v, ItemKey: "naan", Name: "Naan", Price: 60},
		}))
	}

	versions, err := storage.ListMenuVersions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"RestoVersion", "Winter"}, versions)
}

func TestOrder_RoundTrip(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	o := testOrder("ORD-20240115-001", testDay,
		line("naan", "Naan", 2, 60),
		line("dal_makhani", "Dal Makhani", 1, 200))
	o.RequestedTime = "20:30"
	o.Notes = "extra spicy"
	storeOrder(t, storage, o)

	got, err := storage.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNo, got.OrderNo)
	assert.True(t, o.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, int64(320), got.Total)
	assert.Equal(t, "20:30", got.RequestedTime)
	assert.Equal(t, "extra spicy", got.Notes)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "naan", got.Items[0].ItemKey, "line order preserved")
	require.Len(t, got.History, 1)
	assert.Equal(t, "Order created", got.History[0].Action)
}

func TestGetOrder_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertOrder_DuplicateOrderNo(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	storeOrder(t, storage, testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 1, 60)))
	err := storage.InsertOrder(ctx, testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 1, 60)))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestNextOrderNo(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	first, err := storage.NextOrderNo(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240115-001", first)

	storeOrder(t, storage, testOrder(first, testDay, line("naan", "Naan", 1, 60)))
	storeOrder(t, storage, testOrder("ORD-20240115-009", testDay, line("naan", "Naan", 1, 60)))

	next, err := storage.NextOrderNo(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240115-010", next)

	otherDay, err := storage.NextOrderNo(ctx, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240116-001", otherDay)
}

func TestUpdateOrder(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	o := testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 1, 60))
	storeOrder(t, storage, o)

	o.Status = types.StatusPreparing
	o.PaymentStatus = types.PaymentPaid
	o.UpdatedAt = testDay.Add(time.Hour)
	require.NoError(t, storage.UpdateOrder(ctx, o))

	got, err := storage.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPreparing, got.Status)
	assert.Equal(t, types.PaymentPaid, got.PaymentStatus)
	assert.True(t, o.UpdatedAt.Equal(got.UpdatedAt))

	missing := testOrder("ORD-20240115-002", testDay, line("naan", "Naan", 1, 60))
	assert.ErrorIs(t, storage.UpdateOrder(ctx, missing), ErrNotFound)
}

func TestUpdateOrder_RejectsUnknownStatus(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	o := testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 1, 60))
	storeOrder(t, storage, o)

	o.Status = "Cooking"
	assert.Error(t, storage.UpdateOrder(ctx, o), "CHECK constraint guards the enumeration")
}

func TestReplaceOrderItems(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	o := testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 1, 60))
	storeOrder(t, storage, o)

	items := []types.OrderLine{line("paneer_tikka", "Paneer Tikka Masala", 2, 255)}
	require.NoError(t, storage.ReplaceOrderItems(ctx, o.ID, items))

	got, err := storage.ListOrderItems(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "paneer_tikka", got[0].ItemKey)
	assert.Equal(t, 2, got[0].Qty)
}

func TestAppendHistory_IsAppendOnly(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	o := testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 1, 60))
	storeOrder(t, storage, o)

	entries := []types.HistoryEntry{
		{When: testDay.Add(time.Minute), Action: "Added 1 item(s)"},
		{When: testDay.Add(2 * time.Minute), Action: "Status: New -> Preparing"},
	}
	require.NoError(t, storage.AppendHistory(ctx, o.ID, 1, entries))

	history, err := storage.ListHistory(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Order created", history[0].Action)
	assert.Equal(t, "Status: New -> Preparing", history[2].Action)

	// Reusing a seq must not overwrite the stored entry
	err = storage.AppendHistory(ctx, o.ID, 1, []types.HistoryEntry{{When: testDay, Action: "rewritten"}})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = storage.db.ExecContext(ctx, "UPDATE order_history SET action = 'x' WHERE order_id = ?", o.ID)
	assert.Error(t, err)
	_, err = storage.db.ExecContext(ctx, "DELETE FROM order_history WHERE order_id = ?", o.ID)
	assert.Error(t, err)
}

func TestListOrders_Filters(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	a := testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 2, 60), line("dal_makhani", "Dal Makhani", 1, 200))
	b := testOrder("ORD-20240115-002", testDay.Add(time.Hour), line("naan", "Naan", 1, 60))
	b.RoomNo = "310"
	b.Status = types.StatusServed
	storeOrder(t, storage, a)
	storeOrder(t, storage, b)

	all, err := storage.ListOrders(ctx, types.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.OrderNo, all[0].OrderNo, "newest first")
	assert.Equal(t, 3, all[1].ItemCount)

	byRoom, err := storage.ListOrders(ctx, types.ListFilter{RoomNo: "310"})
	require.NoError(t, err)
	require.Len(t, byRoom, 1)
	assert.Equal(t, b.ID, byRoom[0].ID)

	byStatus, err := storage.ListOrders(ctx, types.ListFilter{Status: types.StatusNew})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	limited, err := storage.ListOrders(ctx, types.ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListOrdersCreatedBetween(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	late := testOrder("ORD-20240115-002", testDay.Add(10*time.Hour), line("naan", "Naan", 1, 60))
	early := testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 2, 60))
	nextDay := testOrder("ORD-20240116-001", testDay.AddDate(0, 0, 1), line("naan", "Naan", 1, 60))
	storeOrder(t, storage, late)
	storeOrder(t, storage, early)
	storeOrder(t, storage, nextDay)

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	orders, err := storage.ListOrdersCreatedBetween(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, early.ID, orders[0].ID, "ascending by created_at")
	assert.Equal(t, late.ID, orders[1].ID)
	require.Len(t, orders[0].Items, 1)
	require.Len(t, orders[0].History, 1)
}

func TestBeginTx_CommitRollback(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	o := testOrder("ORD-20240115-001", testDay, line("naan", "Naan", 1, 60))

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertOrder(ctx, o))
	require.NoError(t, tx.Rollback())

	_, err = storage.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	storeOrder(t, storage, o)
	_, err = storage.GetOrder(ctx, o.ID)
	assert.NoError(t, err)
}

func TestNestedTxNotSupported(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
}
