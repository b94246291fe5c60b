package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/roomservice/internal/order"
	"github.com/dshills/roomservice/internal/report"
	"github.com/dshills/roomservice/internal/service"
	"github.com/dshills/roomservice/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound           = -32001 // Unknown order, item or menu version
	ErrorCodeBusy               = -32002 // Order lock not acquired in time
	ErrorCodeNotificationFailed = -32003 // Kitchen channel rejected the message
)

func (s *Server) handleListMenu(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}
	version := getStringDefault(args, "version", s.svc.DefaultMenuVersion())

	items, err := s.svc.Menu(ctx, version)
	if err != nil {
		return nil, toMCPError(err)
	}
	versions, err := s.svc.MenuVersions(ctx)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"version":  version,
		"versions": versions,
		"items":    items,
	})), nil
}

func (s *Server) handleCreateOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	items, err := parseItems(args)
	if err != nil {
		return nil, err
	}

	o, err := s.svc.CreateOrder(ctx, service.CreateOrderInput{
		GuestName:     getStringDefault(args, "guest_name", ""),
		RoomNo:        getStringDefault(args, "room_no", ""),
		Notes:         getStringDefault(args, "notes", ""),
		Source:        getStringDefault(args, "source", "mcp"),
		MenuVersion:   getStringDefault(args, "menu_version", ""),
		RequestedTime: getStringDefault(args, "requested_time", ""),
		Items:         items,
	})
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(o)), nil
}

func (s *Server) handleGetOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, id, err := orderArgs(request)
	if err != nil {
		return nil, err
	}

	o, err := s.svc.GetOrder(ctx, id)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(o)), nil
}

func (s *Server) handleListOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}
	limit, err := getIntDefault(args, "limit", 0)
	if err != nil {
		return nil, err
	}
	filter := types.ListFilter{
		Status:        types.Status(getStringDefault(args, "status", "")),
		PaymentStatus: types.PaymentStatus(getStringDefault(args, "payment_status", "")),
		RoomNo:        getStringDefault(args, "room_no", ""),
		Limit:         limit,
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &filter.CreatedFrom}, {"to", &filter.CreatedTo}} {
		v := getStringDefault(args, p.name, "")
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, p.name+" must be RFC 3339", map[string]interface{}{
				"param": p.name,
				"value": v,
			})
		}
		*p.dst = t
	}

	orders, err := s.svc.ListOrders(ctx, filter)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":  len(orders),
		"orders": orders,
	})), nil
}

func (s *Server) handleAddItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, id, err := orderArgs(request)
	if err != nil {
		return nil, err
	}
	items, err := parseItems(args)
	if err != nil {
		return nil, err
	}

	o, err := s.svc.AddItemsToOrder(ctx, id, items)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(o)), nil
}

func (s *Server) handleUpdateItemQuantity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, id, err := orderArgs(request)
	if err != nil {
		return nil, err
	}
	key, err := requireString(args, "item_key")
	if err != nil {
		return nil, err
	}
	if _, present := args["qty"]; !present {
		return nil, newMCPError(ErrorCodeInvalidParams, "qty parameter is required", map[string]interface{}{
			"param":  "qty",
			"reason": "missing",
		})
	}

	qty, err := getIntDefault(args, "qty", 0)
	if err != nil {
		return nil, err
	}

	o, err := s.svc.UpdateItemQuantity(ctx, id, key, qty)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(o)), nil
}

func (s *Server) handleRemoveItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, id, err := orderArgs(request)
	if err != nil {
		return nil, err
	}
	key, err := requireString(args, "item_key")
	if err != nil {
		return nil, err
	}

	o, err := s.svc.RemoveItem(ctx, id, key)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(o)), nil
}

func (s *Server) handleUpdateOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, id, err := orderArgs(request)
	if err != nil {
		return nil, err
	}

	var u order.FieldUpdate
	if v, ok := args["status"].(string); ok {
		st := types.Status(v)
		u.Status = &st
	}
	if v, ok := args["payment_status"].(string); ok {
		ps := types.PaymentStatus(v)
		u.PaymentStatus = &ps
	}
	if v, ok := args["requested_time"].(string); ok {
		u.RequestedTime = &v
	}
	if v, ok := args["notes"].(string); ok {
		u.Notes = &v
	}

	o, err := s.svc.UpdateOrder(ctx, id, u)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(o)), nil
}

func (s *Server) handleNotifyKitchen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, id, err := orderArgs(request)
	if err != nil {
		return nil, err
	}

	o, err := s.svc.NotifyKitchen(ctx, id)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"ok":    true,
		"order": o,
	})), nil
}

func (s *Server) handleRenderBill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, id, err := orderArgs(request)
	if err != nil {
		return nil, err
	}
	format := getStringDefault(args, "format", "text")

	b, err := s.svc.RenderBill(ctx, id)
	if err != nil {
		return nil, toMCPError(err)
	}

	var buf bytes.Buffer
	switch format {
	case "text":
		err = report.RenderText(&buf, b)
	case "html":
		err = report.RenderHTML(&buf, b)
	case "json":
		return mcp.NewToolResultText(formatJSON(b)), nil
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "format must be text, html or json", map[string]interface{}{
			"param": "format",
			"value": format,
		})
	}
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleExportOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	date, err := requireString(args, "date")
	if err != nil {
		return nil, err
	}

	out, err := s.svc.ExportCSV(ctx, date)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(out), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toMCPError maps a service error onto an MCP error code
func toMCPError(err error) error {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
			"param":  verr.Field,
			"reason": verr.Reason,
		})
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrInvalidState):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, err.Error(), nil)
	case errors.Is(err, types.ErrConcurrency):
		return newMCPError(ErrorCodeBusy, err.Error(), nil)
	case errors.Is(err, types.ErrNotification):
		return newMCPError(ErrorCodeNotificationFailed, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, "internal error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// orderArgs extracts the arguments map and the required order_id
func orderArgs(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	id, err := requireString(args, "order_id")
	if err != nil {
		return nil, "", err
	}
	return args, id, nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return v, nil
}

// parseItems reads the items array of {item_key, qty} objects
func parseItems(args map[string]interface{}) ([]types.ItemRequest, error) {
	raw, ok := args["items"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "items parameter is required", map[string]interface{}{
			"param":  "items",
			"reason": "missing or empty",
		})
	}
	items := make([]types.ItemRequest, 0, len(raw))
	for i, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "items must be objects", map[string]interface{}{
				"param": fmt.Sprintf("items[%d]", i),
			})
		}
		qty, err := getIntDefault(m, "qty", 0)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "qty must be a whole number", map[string]interface{}{
				"param": fmt.Sprintf("items[%d].qty", i),
				"value": m["qty"],
			})
		}
		items = append(items, types.ItemRequest{
			ItemKey: getStringDefault(m, "item_key", ""),
			Qty:     qty,
		})
	}
	return items, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(out)
}

// getIntDefault extracts an integer parameter with a default value. JSON
// numbers arrive as float64; a fractional or non-numeric value is rejected
// rather than truncated.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) (int, error) {
	raw, present := args[key]
	if !present || raw == nil {
		return defaultValue, nil
	}
	switch val := raw.(type) {
	case int:
		return val, nil
	case float64:
		if val == math.Trunc(val) && val >= math.MinInt32 && val <= math.MaxInt32 {
			return int(val), nil
		}
	}
	return 0, newMCPError(ErrorCodeInvalidParams, key+" must be a whole number", map[string]interface{}{
		"param": key,
		"value": raw,
	})
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
