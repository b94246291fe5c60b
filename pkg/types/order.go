package types

import (
	"time"
)

// Status is the kitchen-facing progress of an order
type Status string

const (
	StatusNew       Status = "New"
	StatusPreparing Status = "Preparing"
	StatusReady     Status = "Ready"
	StatusServed    Status = "Served"
	StatusCompleted Status = "Completed"
	StatusUpdated   Status = "Updated"
)

// AllStatuses lists every accepted Status in lifecycle order
var AllStatuses = []Status{
	StatusNew, StatusPreparing, StatusReady, StatusServed, StatusCompleted, StatusUpdated,
}

// Valid reports whether s is one of the enumerated statuses
func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// PaymentStatus tracks settlement of the bill
type PaymentStatus string

const (
	PaymentNotPaid PaymentStatus = "Not Paid"
	PaymentPartial PaymentStatus = "Partial"
	PaymentPaid    PaymentStatus = "Paid"
)

// AllPaymentStatuses lists every accepted PaymentStatus
var AllPaymentStatuses = []PaymentStatus{PaymentNotPaid, PaymentPartial, PaymentPaid}

// Valid reports whether p is one of the enumerated payment statuses
func (p PaymentStatus) Valid() bool {
	for _, v := range AllPaymentStatuses {
		if p == v {
			return true
		}
	}
	return false
}

// OrderLine is one item on an order. Name and Price are copies taken from
// the menu when the line was added and are never re-resolved.
type OrderLine struct {
	ID      string `json:"id"`
	ItemKey string `json:"item_key"`
	Name    string `json:"name"`
	Qty     int    `json:"qty"`
	Price   int64  `json:"price"`
}

// Amount returns qty * price
func (l OrderLine) Amount() int64 {
	return int64(l.Qty) * l.Price
}

// HistoryEntry is one audit record on an order
type HistoryEntry struct {
	When   time.Time `json:"when"`
	Action string    `json:"action"`
}

// Order is a single guest order with its line items and audit trail
type Order struct {
	ID            string         `json:"id"`
	OrderNo       string         `json:"order_no"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	GuestName     string         `json:"guest_name"`
	RoomNo        string         `json:"room_no"`
	Notes         string         `json:"notes"`
	Source        string         `json:"source"`
	MenuVersion   string         `json:"menu_version"`
	Status        Status         `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	RequestedTime string         `json:"requested_time,omitempty"`
	Items         []OrderLine    `json:"items"`
	History       []HistoryEntry `json:"history"`
	Total         int64          `json:"total"`
}

// LineIndex returns the position of the line carrying itemKey, or -1
func (o *Order) LineIndex(itemKey string) int {
	for i := range o.Items {
		if o.Items[i].ItemKey == itemKey {
			return i
		}
	}
	return -1
}

// ComputeTotal sums qty * price over the current items
func (o *Order) ComputeTotal() int64 {
	var total int64
	for _, l := range o.Items {
		total += l.Amount()
	}
	return total
}

// Clone returns a deep copy so a mutation can be attempted without touching
// the caller's value
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]OrderLine(nil), o.Items...)
	c.History = append([]HistoryEntry(nil), o.History...)
	return &c
}

// OrderSummary is the list projection of an order
type OrderSummary struct {
	ID            string        `json:"id"`
	OrderNo       string        `json:"order_no"`
	CreatedAt     time.Time     `json:"created_at"`
	GuestName     string        `json:"guest_name"`
	RoomNo        string        `json:"room_no"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Total         int64         `json:"total"`
	ItemCount     int           `json:"item_count"`
}

// ListFilter narrows an order listing. Zero values mean "any".
type ListFilter struct {
	Status        Status
	PaymentStatus PaymentStatus
	RoomNo        string
	CreatedFrom   time.Time
	CreatedTo     time.Time
	Limit         int
}
