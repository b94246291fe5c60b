package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/roomservice/internal/menu"
	"github.com/dshills/roomservice/internal/repository"
	"github.com/dshills/roomservice/internal/service"
	"github.com/dshills/roomservice/internal/storage"
	"github.com/dshills/roomservice/pkg/types"
)

type stubBridge struct {
	err  error
	sent int
}

func (s *stubBridge) Channel() string { return "Kitchen log" }

func (s *stubBridge) Send(context.Context, *types.Order) error {
	if s.err != nil {
		return s.err
	}
	s.sent++
	return nil
}

func (s *stubBridge) Close() error { return nil }

func setupServer(t *testing.T) (*Server, *stubBridge) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	catalog := menu.NewCatalog(store, "", nil)
	_, err = catalog.SeedDefault(context.Background())
	require.NoError(t, err)

	bridge := &stubBridge{}
	svc := service.New(repository.New(store, repository.Options{}), catalog, bridge, service.Options{})
	return NewServer(svc, nil), bridge
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func resultOrder(t *testing.T, res *mcp.CallToolResult) *types.Order {
	t.Helper()
	var o types.Order
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &o))
	return &o
}

func mcpCode(t *testing.T, err error) int {
	t.Helper()
	var merr *MCPError
	require.True(t, errors.As(err, &merr), "want *MCPError, got %v", err)
	return merr.Code
}

func createOrder(t *testing.T, s *Server) *types.Order {
	res, err := s.handleCreateOrder(context.Background(), call(map[string]interface{}{
		"room_no":    "204",
		"guest_name": "Asha",
		"items": []interface{}{
			map[string]interface{}{"item_key": "paneer_tikka", "qty": float64(2)},
		},
	}))
	require.NoError(t, err)
	return resultOrder(t, res)
}

func TestHandleListMenu(t *testing.T) {
	s, _ := setupServer(t)

	res, err := s.handleListMenu(context.Background(), call(nil))
	require.NoError(t, err)
	var out struct {
		Version string            `json:"version"`
		Items   []*types.MenuItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, types.DefaultMenuVersion, out.Version)
	assert.Len(t, out.Items, 6)

	_, err = s.handleListMenu(context.Background(), call(map[string]interface{}{"version": "Nope"}))
	assert.Equal(t, ErrorCodeNotFound, mcpCode(t, err))
}

func TestHandleCreateOrder(t *testing.T) {
	s, _ := setupServer(t)

	o := createOrder(t, s)
	assert.Equal(t, int64(510), o.Total)
	assert.Equal(t, "mcp", o.Source)
	assert.True(t, strings.HasPrefix(o.OrderNo, "ORD-"))

	t.Run("missing items", func(t *testing.T) {
		_, err := s.handleCreateOrder(context.Background(), call(map[string]interface{}{"room_no": "204"}))
		assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := s.handleCreateOrder(context.Background(), call(map[string]interface{}{
			"room_no": "204",
			"items":   []interface{}{map[string]interface{}{"item_key": "pizza", "qty": float64(1)}},
		}))
		var merr *MCPError
		require.True(t, errors.As(err, &merr))
		assert.Equal(t, ErrorCodeInvalidParams, merr.Code)
		assert.Equal(t, "items[0].item_key", merr.Data.(map[string]interface{})["param"])
	})

	t.Run("bad arguments", func(t *testing.T) {
		var req mcp.CallToolRequest
		req.Params.Arguments = "not a map"
		_, err := s.handleCreateOrder(context.Background(), req)
		assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
	})
}

func TestHandleOrderMutations(t *testing.T) {
	s, _ := setupServer(t)
	ctx := context.Background()
	o := createOrder(t, s)

	res, err := s.handleAddItems(ctx, call(map[string]interface{}{
		"order_id": o.ID,
		"items":    []interface{}{map[string]interface{}{"item_key": "naan", "qty": float64(3)}},
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(690), resultOrder(t, res).Total)

	res, err = s.handleUpdateItemQuantity(ctx, call(map[string]interface{}{
		"order_id": o.ID, "item_key": "paneer_tikka", "qty": float64(1),
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(435), resultOrder(t, res).Total)

	_, err = s.handleUpdateItemQuantity(ctx, call(map[string]interface{}{"order_id": o.ID, "item_key": "naan"}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	res, err = s.handleRemoveItem(ctx, call(map[string]interface{}{"order_id": o.ID, "item_key": "naan"}))
	require.NoError(t, err)
	assert.Len(t, resultOrder(t, res).Items, 1)

	_, err = s.handleRemoveItem(ctx, call(map[string]interface{}{"order_id": o.ID, "item_key": "naan"}))
	assert.Equal(t, ErrorCodeNotFound, mcpCode(t, err))

	res, err = s.handleUpdateOrder(ctx, call(map[string]interface{}{"order_id": o.ID, "status": "Ready"}))
	require.NoError(t, err)
	updated := resultOrder(t, res)
	assert.Equal(t, types.StatusReady, updated.Status)
	assert.Equal(t, "Status: New -> Ready", updated.History[len(updated.History)-1].Action)

	_, err = s.handleUpdateOrder(ctx, call(map[string]interface{}{"order_id": o.ID, "payment_status": "Maybe"}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	res, err = s.handleGetOrder(ctx, call(map[string]interface{}{"order_id": o.ID}))
	require.NoError(t, err)
	assert.Len(t, resultOrder(t, res).History, 5)

	_, err = s.handleGetOrder(ctx, call(map[string]interface{}{"order_id": "missing"}))
	assert.Equal(t, ErrorCodeNotFound, mcpCode(t, err))
	_, err = s.handleGetOrder(ctx, call(map[string]interface{}{}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestHandleListOrders(t *testing.T) {
	s, _ := setupServer(t)
	createOrder(t, s)
	createOrder(t, s)

	res, err := s.handleListOrders(context.Background(), call(map[string]interface{}{"limit": float64(1)}))
	require.NoError(t, err)
	var out struct {
		Count  int                   `json:"count"`
		Orders []*types.OrderSummary `json:"orders"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, 1, out.Count)

	_, err = s.handleListOrders(context.Background(), call(map[string]interface{}{"from": "yesterday"}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
	_, err = s.handleListOrders(context.Background(), call(map[string]interface{}{"status": "Lost"}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestHandleNotifyKitchen(t *testing.T) {
	s, bridge := setupServer(t)
	o := createOrder(t, s)

	bridge.err = errors.New("queue closed")
	_, err := s.handleNotifyKitchen(context.Background(), call(map[string]interface{}{"order_id": o.ID}))
	assert.Equal(t, ErrorCodeNotificationFailed, mcpCode(t, err))

	bridge.err = nil
	res, err := s.handleNotifyKitchen(context.Background(), call(map[string]interface{}{"order_id": o.ID}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Kitchen log sent to kitchen")
	assert.Equal(t, 1, bridge.sent)
}

func TestHandleRenderBill(t *testing.T) {
	s, _ := setupServer(t)
	o := createOrder(t, s)
	ctx := context.Background()

	res, err := s.handleRenderBill(ctx, call(map[string]interface{}{"order_id": o.ID}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Paneer Tikka Masala")

	res, err = s.handleRenderBill(ctx, call(map[string]interface{}{"order_id": o.ID, "format": "html"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "<html")

	_, err = s.handleRenderBill(ctx, call(map[string]interface{}{"order_id": o.ID, "format": "pdf"}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestHandleExportOrders(t *testing.T) {
	s, _ := setupServer(t)

	res, err := s.handleExportOrders(context.Background(), call(map[string]interface{}{"date": "2024-01-15"}))
	require.NoError(t, err)
	assert.Equal(t, "order_no,created_at,guest_name,room_no,total,status,payment_status,items\n", resultText(t, res))

	_, err = s.handleExportOrders(context.Background(), call(map[string]interface{}{"date": "15/01/2024"}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
	_, err = s.handleExportOrders(context.Background(), call(map[string]interface{}{}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestToMCPError(t *testing.T) {
	busy := &types.ConcurrencyError{OrderID: "1", Err: errors.New("timeout")}
	assert.Equal(t, ErrorCodeBusy, mcpCode(t, toMCPError(busy)))
	assert.Equal(t, ErrorCodeInternalError, mcpCode(t, toMCPError(errors.New("disk"))))
}

func TestIntegerArgumentsMustBeWhole(t *testing.T) {
	s, _ := setupServer(t)
	ctx := context.Background()
	o := createOrder(t, s)

	_, err := s.handleUpdateItemQuantity(ctx, call(map[string]interface{}{
		"order_id": o.ID, "item_key": "paneer_tikka", "qty": 0.5,
	}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	_, err = s.handleAddItems(ctx, call(map[string]interface{}{
		"order_id": o.ID,
		"items":    []interface{}{map[string]interface{}{"item_key": "naan", "qty": 1.9}},
	}))
	var merr *MCPError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, ErrorCodeInvalidParams, merr.Code)
	assert.Equal(t, "items[0].qty", merr.Data.(map[string]interface{})["param"])

	_, err = s.handleListOrders(ctx, call(map[string]interface{}{"limit": "ten"}))
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	res, err := s.handleGetOrder(ctx, call(map[string]interface{}{"order_id": o.ID}))
	require.NoError(t, err)
	stored := resultOrder(t, res)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2, stored.Items[0].Qty)
	assert.Len(t, stored.History, 1)
}

func TestGetIntDefault(t *testing.T) {
	args := map[string]interface{}{"whole": float64(3), "int": 4, "frac": 2.5, "text": "5", "null": nil}

	n, err := getIntDefault(args, "whole", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = getIntDefault(args, "int", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = getIntDefault(args, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	n, err = getIntDefault(args, "null", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = getIntDefault(args, "frac", 0)
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
	_, err = getIntDefault(args, "text", 0)
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestListen_StopsOnCancel(t *testing.T) {
	s, _ := setupServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	defer func() { _ = inW.Close() }()
	defer func() { _ = outR.Close() }()

	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx, inR, outW) }()

	_, err := io.WriteString(inW, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n")
	require.NoError(t, err)

	line, err := bufio.NewReader(outR).ReadString('\n')
	require.NoError(t, err)
	var resp struct {
		ID     int `json:"id"`
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	assert.Equal(t, 1, resp.ID)
	names := make([]string, 0, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_menu", "create_order", "get_order", "list_orders", "add_items",
		"update_item_quantity", "remove_item", "update_order", "notify_kitchen",
		"render_bill", "export_orders",
	}, names)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancellation")
	}
}

func TestListen_ClosedInputEndsCleanly(t *testing.T) {
	s, _ := setupServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := s.Listen(ctx, strings.NewReader(""), io.Discard)
	assert.NoError(t, err)
}
