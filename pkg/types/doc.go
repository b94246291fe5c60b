// Package types provides the shared domain types for roomservice.
//
// # Core Types
//
// MenuItem is a priced dish inside one menu version. Versions are append-only:
// a correction is published as a new version rather than an edit.
//
// Order is one guest order. Its Items are OrderLine values whose Name and
// Price are copied from the menu when the line is added, so later menu changes
// never alter an existing bill:
//
//	order := &types.Order{
//	    RoomNo:      "204",
//	    MenuVersion: types.DefaultMenuVersion,
//	    Status:      types.StatusNew,
//	    Items: []types.OrderLine{
//	        {ItemKey: "naan", Name: "Naan", Qty: 2, Price: 60},
//	    },
//	}
//	order.Total = order.ComputeTotal() // 120
//
// History is an append-only sequence of HistoryEntry values, one per applied
// mutation.
//
// # Errors
//
// Errors fall into five classes, each with a sentinel usable with errors.Is:
//
//	ErrValidation   // *ValidationError, *InvalidStateError
//	ErrNotFound     // *NotFoundError
//	ErrInvalidState // *InvalidStateError
//	ErrConcurrency  // *ConcurrencyError
//	ErrNotification // *NotificationError
package types
