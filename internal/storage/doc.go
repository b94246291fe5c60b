// Package storage provides SQLite-based persistence for menus and orders.
//
// # Database Schema
//
// Tables:
//   - menu_items: versioned menu rows, unique on (version, item_key)
//   - orders: one row per order, including the cached total
//   - order_items: order lines with their name and price snapshot
//   - order_history: append-only audit entries keyed by (order_id, seq)
//
// Triggers reject UPDATE and DELETE on order_history.
//
// Timestamps are stored as fixed-width UTC text, so both drivers read and
// write the same representation and range filters compare lexically.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("roomservice.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	o, err := db.GetOrder(ctx, orderID)
//
// # Transactions
//
// Tx embeds Storage, so every operation is also available inside a
// transaction:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpdateOrder(ctx, o); err != nil {
//	    return err
//	}
//	if err := tx.ReplaceOrderItems(ctx, o.ID, o.Items); err != nil {
//	    return err
//	}
//	if err := tx.AppendHistory(ctx, o.ID, seq, entries); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// The pool holds a single connection. Inside a transaction, use only the
// Tx; a query on the parent storage would wait for the connection the
// transaction holds.
package storage
