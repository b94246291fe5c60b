// Package service exposes the order operations used by the HTTP and MCP
// transports.
//
// Each mutating call resolves menu items where needed, then hands a single
// order mutation to the repository, which runs it under the order's lock.
// Kitchen notification is the exception: the message is sent first, outside
// the lock, and the history entry is recorded only after delivery succeeds.
package service
