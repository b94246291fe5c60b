// Package order implements the in-memory rules of an order's lifecycle.
//
// Every function here mutates a *types.Order passed in by the caller and
// either applies completely or returns an error before touching it. Each
// applied change appends exactly one history entry and keeps Total equal to
// the sum of qty * price over the lines.
//
// The functions do no I/O. The repository loads an order under its per-order
// lock, applies one of these functions, runs CheckInvariants and persists the
// result in a single transaction:
//
//	o, err := order.New(order.NewParams{
//	    RoomNo:      "204",
//	    MenuVersion: types.DefaultMenuVersion,
//	    Items:       []types.OrderLine{{ItemKey: "naan", Name: "Naan", Qty: 2, Price: 60}},
//	})
//
//	err = order.AddItems(o, []types.OrderLine{{ItemKey: "naan", Name: "Naan", Qty: 1, Price: 60}}, time.Now())
//	// o.Items[0].Qty == 3, o.Total == 180
//
// # Quantity Semantics
//
// AddItems is additive: a key already on the order has its quantity
// increased. UpdateQuantity replaces the quantity, and a quantity of zero
// removes the line. RemoveItem on a key that is not present returns a
// *types.NotFoundError.
//
// # Field Updates
//
// UpdateFields only applies values that differ from the current ones. All
// changes of one call share a single history entry:
//
//	Status: New -> Preparing; Payment: Not Paid -> Paid
//
// A call that changes nothing records nothing.
package order
