// Package pool provides the pooled intrusive lists the driver moves its
// jobs, requests and replies through.
//
// A [Pool] owns an arena of [Node] values of one payload type and hands them
// out with [Pool.Acquire]. The arena grows by a fixed batch when the free list
// runs dry and never shrinks; an optional capacity cap turns growth into
// [pkg.ErrPoolExhausted]. A [Store] is a named, lock-protected, doubly-linked
// list that borrows nodes from exactly one pool.
//
// # Ownership
//
// At any instant a node is owned by exactly one of:
//
//   - its pool's free list
//   - one store
//   - the caller that acquired, popped or unlinked it
//
// Moving a node always goes through the detached state:
//
//	n, err := jobs.Acquire()
//	pending.PushFront(n)
//	...
//	n = pending.PopBack()
//	jobs.Release(n)
//
// The payload type parameter keeps nodes of one kind out of containers of
// another at compile time. Inserting a node into a store of a different pool,
// inserting a node that is still linked somewhere, or releasing a node that
// is not detached is a programming error and panics with a [*MisuseError].
// These panics are not meant to be recovered.
//
// # Locking
//
// Every pool and every store has its own mutex; each method acquires and
// releases it. [Store.Update] runs a function with the store lock held so a
// caller can walk and edit the list as one step. Node links ([Node.Next],
// [Node.Prev]) are only meaningful while the owning store's lock is held.
package pool
