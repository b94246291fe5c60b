package notify

import (
	"fmt"
	"strings"

	"github.com/dshills/roomservice/pkg/types"
)

// KitchenMessage is the structured form published to queue consumers
type KitchenMessage struct {
	OrderID       string        `json:"order_id"`
	OrderNo       string        `json:"order_no"`
	RoomNo        string        `json:"room_no"`
	GuestName     string        `json:"guest_name"`
	Items         []KitchenItem `json:"items"`
	Total         int64         `json:"total"`
	Notes         string        `json:"notes"`
	RequestedTime string        `json:"requested_time,omitempty"`
	Text          string        `json:"text"`
}

// KitchenItem is one line of a KitchenMessage
type KitchenItem struct {
	ItemKey string `json:"item_key"`
	Name    string `json:"name"`
	Qty     int    `json:"qty"`
}

// RenderKitchenMessage builds the chat text sent to the kitchen:
//
//	NEW ORDER: ORD-20240115-001
//	Room: 204
//	Guest: Asha
//	Items:
//	2 x Naan
//	Total: ₹120
//	Notes: -
func RenderKitchenMessage(o *types.Order, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NEW ORDER: %s\n", o.OrderNo)
	fmt.Fprintf(&b, "Room: %s\n", o.RoomNo)
	fmt.Fprintf(&b, "Guest: %s\n", o.GuestName)
	b.WriteString("Items:\n")
	for _, l := range o.Items {
		fmt.Fprintf(&b, "%d x %s\n", l.Qty, l.Name)
	}
	fmt.Fprintf(&b, "Total: %s%d\n", currency, o.Total)
	if o.RequestedTime != "" {
		fmt.Fprintf(&b, "Requested: %s\n", o.RequestedTime)
	}
	notes := strings.TrimSpace(o.Notes)
	if notes == "" {
		notes = "-"
	}
	fmt.Fprintf(&b, "Notes: %s", notes)
	return b.String()
}

// NewKitchenMessage builds the structured message for o
func NewKitchenMessage(o *types.Order, currency string) KitchenMessage {
	items := make([]KitchenItem, len(o.Items))
	for i, l := range o.Items {
		items[i] = KitchenItem{ItemKey: l.ItemKey, Name: l.Name, Qty: l.Qty}
	}
	return KitchenMessage{
		OrderID:       o.ID,
		OrderNo:       o.OrderNo,
		RoomNo:        o.RoomNo,
		GuestName:     o.GuestName,
		Items:         items,
		Total:         o.Total,
		Notes:         o.Notes,
		RequestedTime: o.RequestedTime,
		Text:          RenderKitchenMessage(o, currency),
	}
}
