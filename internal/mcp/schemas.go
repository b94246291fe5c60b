package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/roomservice/internal/order"
	"github.com/dshills/roomservice/pkg/types"
)

func orderIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Order id returned by create_order",
	}
}

func itemsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Menu items to order; name and price come from the menu",
		"minItems":    1,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"item_key": map[string]interface{}{"type": "string"},
				"qty":      map[string]interface{}{"type": "integer", "minimum": 1, "maximum": order.MaxLineQty},
			},
			"required": []string{"item_key", "qty"},
		},
	}
}

func statusEnum() []string {
	out := make([]string, len(types.AllStatuses))
	for i, s := range types.AllStatuses {
		out[i] = string(s)
	}
	return out
}

func paymentEnum() []string {
	out := make([]string, len(types.AllPaymentStatuses))
	for i, p := range types.AllPaymentStatuses {
		out[i] = string(p)
	}
	return out
}

func listMenuTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_menu",
		Description: "List the dishes of a menu version, sorted by category then name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"version": map[string]interface{}{
					"type":        "string",
					"description": "Menu version tag; defaults to the active version",
				},
			},
		},
	}
}

func createOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_order",
		Description: "Place a new in-room dining order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_no":        map[string]interface{}{"type": "string", "description": "Guest room number"},
				"guest_name":     map[string]interface{}{"type": "string"},
				"notes":          map[string]interface{}{"type": "string", "description": "Kitchen notes"},
				"source":         map[string]interface{}{"type": "string", "description": "Where the order came from, e.g. phone or qr"},
				"menu_version":   map[string]interface{}{"type": "string"},
				"requested_time": map[string]interface{}{"type": "string", "description": "Requested delivery time, HH:MM"},
				"items":          itemsProperty(),
			},
			Required: []string{"room_no", "items"},
		},
	}
}

func getOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_order",
		Description: "Fetch an order with its items and history",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"order_id": orderIDProperty()},
			Required:   []string{"order_id"},
		},
	}
}

func listOrdersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_orders",
		Description: "List recent orders, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status":         map[string]interface{}{"type": "string", "enum": statusEnum()},
				"payment_status": map[string]interface{}{"type": "string", "enum": paymentEnum()},
				"room_no":        map[string]interface{}{"type": "string"},
				"from":           map[string]interface{}{"type": "string", "description": "RFC 3339 lower bound on created_at"},
				"to":             map[string]interface{}{"type": "string", "description": "RFC 3339 upper bound on created_at"},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum rows to return; 0 means no limit",
					"minimum":     0,
				},
			},
		},
	}
}

func addItemsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_items",
		Description: "Add items to an order; existing lines have their quantity increased",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": orderIDProperty(),
				"items":    itemsProperty(),
			},
			Required: []string{"order_id", "items"},
		},
	}
}

func updateItemQuantityTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_item_quantity",
		Description: "Set the quantity of one line; 0 removes the line",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": orderIDProperty(),
				"item_key": map[string]interface{}{"type": "string"},
				"qty":      map[string]interface{}{"type": "integer", "minimum": 0, "maximum": order.MaxLineQty},
			},
			Required: []string{"order_id", "item_key", "qty"},
		},
	}
}

func removeItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_item",
		Description: "Remove one line from an order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": orderIDProperty(),
				"item_key": map[string]interface{}{"type": "string"},
			},
			Required: []string{"order_id", "item_key"},
		},
	}
}

func updateOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_order",
		Description: "Change status, payment status, requested time or notes. Omitted fields are left alone.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id":       orderIDProperty(),
				"status":         map[string]interface{}{"type": "string", "enum": statusEnum()},
				"payment_status": map[string]interface{}{"type": "string", "enum": paymentEnum()},
				"requested_time": map[string]interface{}{"type": "string"},
				"notes":          map[string]interface{}{"type": "string"},
			},
			Required: []string{"order_id"},
		},
	}
}

func notifyKitchenTool() mcp.Tool {
	return mcp.Tool{
		Name:        "notify_kitchen",
		Description: "Send the order summary to the kitchen channel and record it in history",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"order_id": orderIDProperty()},
			Required:   []string{"order_id"},
		},
	}
}

func renderBillTool() mcp.Tool {
	return mcp.Tool{
		Name:        "render_bill",
		Description: "Render the printable bill for an order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": orderIDProperty(),
				"format": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"text", "html", "json"},
					"default": "text",
				},
			},
			Required: []string{"order_id"},
		},
	}
}

func exportOrdersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "export_orders",
		Description: "Export all orders created on one day as CSV",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"date": map[string]interface{}{"type": "string", "description": "Day to export, YYYY-MM-DD"},
			},
			Required: []string{"date"},
		},
	}
}
