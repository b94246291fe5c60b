package report

import (
	"time"

	"github.com/dshills/roomservice/pkg/types"
)

const (
	// DefaultPropertyName heads every bill unless configured otherwise
	DefaultPropertyName = "Lucent's Resto"

	// DefaultCurrency is the symbol printed before amounts
	DefaultCurrency = "₹"

	// BillFooter closes every bill
	BillFooter = "Thank you. Please settle at checkout."
)

// BillOptions controls presentation details that are not part of the order
type BillOptions struct {
	PropertyName string
	Currency     string
	Location     *time.Location
}

// BillLine is one printed row
type BillLine struct {
	Name   string `json:"name"`
	Qty    int    `json:"qty"`
	Rate   int64  `json:"rate"`
	Amount int64  `json:"amount"`
}

// Bill is the printable document for one order
type Bill struct {
	PropertyName  string              `json:"property_name"`
	OrderID       string              `json:"order_id"`
	OrderNo       string              `json:"order_no"`
	GuestName     string              `json:"guest_name"`
	RoomNo        string              `json:"room_no"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Lines         []BillLine          `json:"lines"`
	Subtotal      int64               `json:"subtotal"`
	Tax           int64               `json:"tax"`
	Total         int64               `json:"total"`
	PaymentStatus types.PaymentStatus `json:"payment_status"`
	Currency      string              `json:"currency"`
	Footer        string              `json:"footer"`
}

// ToPrintableBill builds the bill for o. Tax is always zero; the subtotal is
// the order's stored total.
func ToPrintableBill(o *types.Order, opts BillOptions) *Bill {
	if opts.PropertyName == "" {
		opts.PropertyName = DefaultPropertyName
	}
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	lines := make([]BillLine, len(o.Items))
	for i, l := range o.Items {
		lines[i] = BillLine{Name: l.Name, Qty: l.Qty, Rate: l.Price, Amount: l.Amount()}
	}
	payment := o.PaymentStatus
	if payment == "" {
		payment = types.PaymentNotPaid
	}

	return &Bill{
		PropertyName:  opts.PropertyName,
		OrderID:       o.ID,
		OrderNo:       o.OrderNo,
		GuestName:     o.GuestName,
		RoomNo:        o.RoomNo,
		CreatedAt:     o.CreatedAt.In(loc),
		UpdatedAt:     o.UpdatedAt.In(loc),
		Lines:         lines,
		Subtotal:      o.Total,
		Tax:           0,
		Total:         o.Total,
		PaymentStatus: payment,
		Currency:      opts.Currency,
		Footer:        BillFooter,
	}
}
