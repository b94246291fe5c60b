package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("Cooking").Valid())
	assert.False(t, Status("new").Valid(), "statuses are case sensitive")
	assert.False(t, Status("").Valid())

	for _, p := range AllPaymentStatuses {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, PaymentStatus("NotPaid").Valid())
}

func TestOrderTotals(t *testing.T) {
	o := &Order{Items: []OrderLine{
		{ItemKey: "paneer_tikka", Qty: 1, Price: 255},
		{ItemKey: "naan", Qty: 3, Price: 60},
	}}
	assert.Equal(t, int64(435), o.ComputeTotal())
	assert.Equal(t, 1, o.LineIndex("naan"))
	assert.Equal(t, -1, o.LineIndex("dal_makhani"))

	assert.Equal(t, int64(0), (&Order{}).ComputeTotal())
}

func TestOrderClone(t *testing.T) {
	o := &Order{
		ID:      "o1",
		Items:   []OrderLine{{ItemKey: "naan", Qty: 2, Price: 60}},
		History: []HistoryEntry{{Action: "Order created"}},
	}
	c := o.Clone()
	c.Items[0].Qty = 5
	c.History = append(c.History, HistoryEntry{Action: "Qty Naan: 2 -> 5"})

	assert.Equal(t, 2, o.Items[0].Qty)
	assert.Len(t, o.History, 1)
	assert.Nil(t, (*Order)(nil).Clone())
}

func TestMenuItemValidate(t *testing.T) {
	ok := &MenuItem{ItemKey: "naan", Name: "Naan", Price: 60}
	require.NoError(t, ok.Validate())
	require.NoError(t, (&MenuItem{ItemKey: "thali", Name: "Thali", Price: MaxPrice}).Validate())

	tests := []struct {
		name  string
		item  MenuItem
		field string
	}{
		{"missing key", MenuItem{Name: "Naan"}, "item_key"},
		{"missing name", MenuItem{ItemKey: "naan"}, "name"},
		{"negative price", MenuItem{ItemKey: "naan", Name: "Naan", Price: -1}, "price"},
		{"price above cap", MenuItem{ItemKey: "naan", Name: "Naan", Price: MaxPrice + 1}, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestErrorClasses(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class error
		not   error
	}{
		{"validation", NewValidationError("room_no", "is required"), ErrValidation, ErrNotFound},
		{"not found", NewNotFoundError("order", "x"), ErrNotFound, ErrValidation},
		{"invalid state", &InvalidStateError{Field: "status", Value: "Cooking"}, ErrInvalidState, ErrNotFound},
		{"concurrency", &ConcurrencyError{OrderID: "x", Err: errors.New("timeout")}, ErrConcurrency, ErrValidation},
		{"notification", &NotificationError{Channel: "WhatsApp", Err: errors.New("401")}, ErrNotification, ErrConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.class)
			assert.NotErrorIs(t, wrapped, tt.not)
		})
	}

	assert.ErrorIs(t, &InvalidStateError{Field: "status"}, ErrValidation)
	assert.Equal(t, "validation failed: room_no is required", NewValidationError("room_no", "is required").Error())
	assert.Equal(t, `order "x" not found`, NewNotFoundError("order", "x").Error())

	cause := errors.New("twilio 500")
	assert.ErrorIs(t, &NotificationError{Channel: "WhatsApp", Err: cause}, cause)
}
