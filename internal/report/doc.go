// Package report derives exports and bills from stored orders.
//
// Every transform here reads only what the order carries. Names and prices
// come from the line snapshots, never from the live menu, so a bill printed
// after a menu change still matches what the guest ordered.
package report
