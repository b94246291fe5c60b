// Package mcp exposes the order service as Model Context Protocol tools so
// an assistant can take and manage room service orders.
//
// Tools:
//   - list_menu: dishes of a menu version
//   - create_order, get_order, list_orders
//   - add_items, update_item_quantity, remove_item, update_order
//   - notify_kitchen: send the order to the kitchen channel
//   - render_bill: printable bill as text, html or json
//   - export_orders: one day of orders as CSV
//
// The server speaks JSON-RPC 2.0 over stdio:
//
//	roomservice mcp
//
// Stdout carries protocol messages only, so logs go to stderr.
//
// # Example
//
//	Request:
//	{
//	  "name": "create_order",
//	  "arguments": {
//	    "room_no": "204",
//	    "guest_name": "Asha",
//	    "items": [{"item_key": "paneer_tikka", "qty": 2}]
//	  }
//	}
//
// The result is the stored order as JSON, including its order number,
// total and history.
//
// # Errors
//
// Service errors are returned as MCPError values:
//   - -32602: invalid params, including validation failures
//   - -32603: internal error
//   - -32001: unknown order, item or menu version
//   - -32002: order busy, retry
//   - -32003: kitchen notification failed
package mcp
