package order

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/roomservice/pkg/types"
)

const (
	// MaxLineQty caps the quantity of a single line
	MaxLineQty = 999

	// MaxNotesLength caps free-text notes
	MaxNotesLength = 1000

	// DefaultSource is recorded when the caller does not say who placed the order
	DefaultSource = "staff"

	// ActionCreated is the first history entry of every order
	ActionCreated = "Order created"
)

// ErrInvariant is returned by CheckInvariants when an order is inconsistent
var ErrInvariant = errors.New("order invariant violated")

// requestedTimeLayouts are the accepted forms of Order.RequestedTime
var requestedTimeLayouts = []string{"15:04", "2006-01-02T15:04", time.RFC3339}

// NewParams holds the input for New. Items must already carry the menu
// snapshot (name and price).
type NewParams struct {
	GuestName     string
	RoomNo        string
	Notes         string
	Source        string
	MenuVersion   string
	RequestedTime string
	Items         []types.OrderLine
	At            time.Time
}

// FieldUpdate carries the optional fields of UpdateFields. Nil means "leave
// as is".
type FieldUpdate struct {
	Status        *types.Status        `json:"status,omitempty"`
	PaymentStatus *types.PaymentStatus `json:"payment_status,omitempty"`
	RequestedTime *string              `json:"requested_time,omitempty"`
	Notes         *string              `json:"notes,omitempty"`
}

// New builds a fresh order with status New and payment Not Paid. OrderNo is
// left empty; the repository allocates it when the order is stored.
func New(p NewParams) (*types.Order, error) {
	roomNo := strings.TrimSpace(p.RoomNo)
	if roomNo == "" {
		return nil, types.NewValidationError("room_no", "is required")
	}
	menuVersion := strings.TrimSpace(p.MenuVersion)
	if menuVersion == "" {
		return nil, types.NewValidationError("menu_version", "is required")
	}
	if len(p.Items) == 0 {
		return nil, types.NewValidationError("items", "must contain at least one item")
	}
	if err := validateNotes(p.Notes); err != nil {
		return nil, err
	}
	requested, err := normalizeRequestedTime(p.RequestedTime)
	if err != nil {
		return nil, err
	}
	if err := validateLines(p.Items); err != nil {
		return nil, err
	}

	source := strings.TrimSpace(p.Source)
	if source == "" {
		source = DefaultSource
	}
	at := p.At
	if at.IsZero() {
		at = time.Now()
	}

	o := &types.Order{
		ID:            uuid.NewString(),
		CreatedAt:     at,
		UpdatedAt:     at,
		GuestName:     strings.TrimSpace(p.GuestName),
		RoomNo:        roomNo,
		Notes:         p.Notes,
		Source:        source,
		MenuVersion:   menuVersion,
		Status:        types.StatusNew,
		PaymentStatus: types.PaymentNotPaid,
		RequestedTime: requested,
		Items:         mergeLines(nil, p.Items),
	}
	for _, l := range o.Items {
		if l.Qty > MaxLineQty {
			return nil, types.NewValidationError("qty", fmt.Sprintf("of %s exceeds %d", l.ItemKey, MaxLineQty))
		}
	}
	if err := Recompute(o); err != nil {
		return nil, err
	}
	o.History = []types.HistoryEntry{{When: at, Action: ActionCreated}}
	return o, nil
}

// AddItems merges items into o. A key already on the order has its quantity
// increased; a new key is appended as a new line. The whole batch is
// validated before anything changes.
func AddItems(o *types.Order, items []types.OrderLine, at time.Time) error {
	if len(items) == 0 {
		return types.NewValidationError("items", "must contain at least one item")
	}
	if err := validateLines(items); err != nil {
		return err
	}
	merged := mergeLines(o.Items, items)
	for _, l := range merged {
		if l.Qty > MaxLineQty {
			return types.NewValidationError("qty", fmt.Sprintf("of %s exceeds %d", l.ItemKey, MaxLineQty))
		}
	}

	o.Items = merged
	return touch(o, at, fmt.Sprintf("Added %d item(s)", len(items)))
}

// UpdateQuantity sets the quantity of the line for itemKey. A quantity of
// zero or less removes the line. Setting the current quantity again is a
// no-op and records nothing.
func UpdateQuantity(o *types.Order, itemKey string, qty int, at time.Time) error {
	idx := o.LineIndex(itemKey)
	if idx < 0 {
		return types.NewNotFoundError("item", itemKey)
	}
	if qty > MaxLineQty {
		return types.NewValidationError("qty", fmt.Sprintf("exceeds %d", MaxLineQty))
	}

	line := o.Items[idx]
	if qty <= 0 {
		items := make([]types.OrderLine, 0, len(o.Items)-1)
		items = append(items, o.Items[:idx]...)
		o.Items = append(items, o.Items[idx+1:]...)
		return touch(o, at, fmt.Sprintf("Removed %s", line.Name))
	}
	if qty == line.Qty {
		return nil
	}

	o.Items[idx].Qty = qty
	return touch(o, at, fmt.Sprintf("Qty %s: %d -> %d", line.Name, line.Qty, qty))
}

// RemoveItem drops the line for itemKey. Removing a key that is not on the
// order returns a NotFoundError, so a repeated removal is reported rather
// than silently ignored.
func RemoveItem(o *types.Order, itemKey string, at time.Time) error {
	return UpdateQuantity(o, itemKey, 0, at)
}

// UpdateFields applies the fields of u that differ from the current values
// and records them in a single history entry. When nothing differs the order
// is left untouched and no entry is written.
func UpdateFields(o *types.Order, u FieldUpdate, at time.Time) error {
	if u.Status != nil && !u.Status.Valid() {
		return &types.InvalidStateError{Field: "status", Value: string(*u.Status)}
	}
	if u.PaymentStatus != nil && !u.PaymentStatus.Valid() {
		return &types.InvalidStateError{Field: "payment_status", Value: string(*u.PaymentStatus)}
	}
	var requested string
	if u.RequestedTime != nil {
		var err error
		if requested, err = normalizeRequestedTime(*u.RequestedTime); err != nil {
			return err
		}
	}
	if u.Notes != nil {
		if err := validateNotes(*u.Notes); err != nil {
			return err
		}
	}

	var changes []string
	if u.Status != nil && *u.Status != o.Status {
		changes = append(changes, fmt.Sprintf("Status: %s -> %s", o.Status, *u.Status))
		o.Status = *u.Status
	}
	if u.PaymentStatus != nil && *u.PaymentStatus != o.PaymentStatus {
		changes = append(changes, fmt.Sprintf("Payment: %s -> %s", o.PaymentStatus, *u.PaymentStatus))
		o.PaymentStatus = *u.PaymentStatus
	}
	if u.RequestedTime != nil && requested != o.RequestedTime {
		changes = append(changes, fmt.Sprintf("Requested time: %s -> %s", dash(o.RequestedTime), dash(requested)))
		o.RequestedTime = requested
	}
	if u.Notes != nil && *u.Notes != o.Notes {
		changes = append(changes, "Notes updated")
		o.Notes = *u.Notes
	}
	if len(changes) == 0 {
		return nil
	}

	o.UpdatedAt = at
	o.History = append(o.History, types.HistoryEntry{When: at, Action: strings.Join(changes, "; ")})
	return nil
}

// RecordNotification notes a confirmed delivery on channel, e.g.
// "WhatsApp sent to kitchen". Only call it after the bridge reported success.
func RecordNotification(o *types.Order, channel, outcome string, at time.Time) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return types.NewValidationError("channel", "is required")
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = "sent to kitchen"
	}
	o.UpdatedAt = at
	o.History = append(o.History, types.HistoryEntry{When: at, Action: channel + " " + outcome})
	return nil
}

// CheckInvariants verifies the cached total, line keys, quantities and enum
// values of o
func CheckInvariants(o *types.Order) error {
	seen := make(map[string]struct{}, len(o.Items))
	for _, l := range o.Items {
		if _, dup := seen[l.ItemKey]; dup {
			return fmt.Errorf("%w: duplicate line for %s", ErrInvariant, l.ItemKey)
		}
		seen[l.ItemKey] = struct{}{}
		if l.Qty <= 0 {
			return fmt.Errorf("%w: line %s has qty %d", ErrInvariant, l.ItemKey, l.Qty)
		}
		if l.Price < 0 {
			return fmt.Errorf("%w: line %s has negative price", ErrInvariant, l.ItemKey)
		}
	}
	total, err := sumLines(o.Items)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	if total != o.Total {
		return fmt.Errorf("%w: total %d, lines sum to %d", ErrInvariant, o.Total, total)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvariant, o.Status)
	}
	if !o.PaymentStatus.Valid() {
		return fmt.Errorf("%w: payment status %q", ErrInvariant, o.PaymentStatus)
	}
	return nil
}

// Recompute sets the cached total from the lines. A sum that does not fit
// in an int64 is rejected and leaves Total untouched.
func Recompute(o *types.Order) error {
	total, err := sumLines(o.Items)
	if err != nil {
		return err
	}
	o.Total = total
	return nil
}

// touch recomputes the total and appends one history entry
func touch(o *types.Order, at time.Time, action string) error {
	if err := Recompute(o); err != nil {
		return err
	}
	o.UpdatedAt = at
	o.History = append(o.History, types.HistoryEntry{When: at, Action: action})
	return nil
}

// sumLines adds up qty * price, failing instead of wrapping around
func sumLines(items []types.OrderLine) (int64, error) {
	var total int64
	for _, l := range items {
		if l.Qty < 0 || l.Price < 0 {
			return 0, types.NewValidationError("items", fmt.Sprintf("line %s has a negative amount", l.ItemKey))
		}
		if l.Qty > 0 && l.Price > math.MaxInt64/int64(l.Qty) {
			return 0, types.NewValidationError("total", fmt.Sprintf("line %s overflows", l.ItemKey))
		}
		amount := int64(l.Qty) * l.Price
		if total > math.MaxInt64-amount {
			return 0, types.NewValidationError("total", "overflows")
		}
		total += amount
	}
	return total, nil
}

// mergeLines adds incoming onto existing, summing quantities of equal keys.
// The existing slice is not modified.
func mergeLines(existing, incoming []types.OrderLine) []types.OrderLine {
	out := make([]types.OrderLine, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	index := make(map[string]int, len(out))
	for i, l := range out {
		index[l.ItemKey] = i
	}
	for _, l := range incoming {
		if i, ok := index[l.ItemKey]; ok {
			out[i].Qty += l.Qty
			continue
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		index[l.ItemKey] = len(out)
		out = append(out, l)
	}
	return out
}

func validateLines(items []types.OrderLine) error {
	for i, l := range items {
		if strings.TrimSpace(l.ItemKey) == "" {
			return types.NewValidationError(fmt.Sprintf("items[%d].item_key", i), "is required")
		}
		if strings.TrimSpace(l.Name) == "" {
			return types.NewValidationError(fmt.Sprintf("items[%d].name", i), "is required")
		}
		if l.Qty <= 0 {
			return types.NewValidationError(fmt.Sprintf("items[%d].qty", i), "must be at least 1")
		}
		if l.Qty > MaxLineQty {
			return types.NewValidationError(fmt.Sprintf("items[%d].qty", i), fmt.Sprintf("exceeds %d", MaxLineQty))
		}
		if l.Price < 0 {
			return types.NewValidationError(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
		if l.Price > types.MaxPrice {
			return types.NewValidationError(fmt.Sprintf("items[%d].price", i), fmt.Sprintf("exceeds %d", types.MaxPrice))
		}
	}
	return nil
}

func validateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return types.NewValidationError("notes", fmt.Sprintf("exceeds %d characters", MaxNotesLength))
	}
	return nil
}

func normalizeRequestedTime(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	for _, layout := range requestedTimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return v, nil
		}
	}
	return "", types.NewValidationError("requested_time", "must be HH:MM, YYYY-MM-DDTHH:MM or RFC 3339")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
