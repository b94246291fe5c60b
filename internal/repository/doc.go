// Package repository stores orders and serializes their mutations.
//
// SaveMutation is the only write path for an existing order:
//
//	o, err := repo.SaveMutation(ctx, id, func(o *types.Order) error {
//	    return order.AddItems(o, lines, time.Now())
//	})
//
// The order lock is held while the transaction loads, mutates and writes,
// so two writers to the same order never interleave. Readers use their own
// transaction and see the order either before or after a mutation.
package repository
