// Package lock provides per-order exclusive sections.
//
// KeyedMutex serves a single process. RedisLocker serves several instances
// sharing one database and one Redis. Both bound the wait with the caller's
// context and return ErrTimeout when it ends first.
package lock
