package pool

import "fmt"

// MisuseError describes a violated ownership rule. It is raised with panic.
type MisuseError struct {
	Op        string // Operation that detected the misuse
	Container string // Name of the pool or store involved
	Reason    string // What was wrong
}

// Error implements error.
func (e *MisuseError) Error() string {
	return fmt.Sprintf("pool misuse: %s on %q: %s", e.Op, e.Container, e.Reason)
}

func misuse(op, container, format string, args ...any) {
	panic(&MisuseError{Op: op, Container: container, Reason: fmt.Sprintf(format, args...)})
}

// Node is one slot of a pool arena. Value is the payload; it is zeroed when
// the node is released.
type Node[T any] struct {
	Value T

	prev, next *Node[T]
	pool       *Pool[T]
	owner      *List[T] // nil while detached
	gen        uint32   // bumped on every release
}

// Next returns the node after n in its list, or nil.
// Only valid while the owning store's lock is held.
func (n *Node[T]) Next() *Node[T] {
	return n.next
}

// Prev returns the node before n in its list, or nil.
// Only valid while the owning store's lock is held.
func (n *Node[T]) Prev() *Node[T] {
	return n.prev
}

// Generation counts how many times the node has been released.
func (n *Node[T]) Generation() uint32 {
	return n.gen
}

// Detached reports whether the node is held by a caller rather than a list.
func (n *Node[T]) Detached() bool {
	return n.owner == nil
}

// List is an intrusive doubly-linked list of nodes from one pool. Lists are
// never used on their own; they back a pool's free list and each store, and
// are handed to [Store.Update] callbacks with the store lock held.
type List[T any] struct {
	name       string
	pool       *Pool[T]
	head, tail *Node[T]
	n          int
}

// Name returns the name of the container backed by the list.
func (l *List[T]) Name() string {
	return l.name
}

// Len returns the number of linked nodes.
func (l *List[T]) Len() int {
	return l.n
}

// Front returns the head node, or nil if the list is empty.
func (l *List[T]) Front() *Node[T] {
	return l.head
}

// Back returns the tail node, or nil if the list is empty.
func (l *List[T]) Back() *Node[T] {
	return l.tail
}

func (l *List[T]) checkInsert(op string, n *Node[T]) {
	if n == nil {
		misuse(op, l.name, "nil node")
	}
	if n.pool != l.pool {
		other := "<none>"
		if n.pool != nil {
			other = n.pool.name
		}
		misuse(op, l.name, "node belongs to pool %q, container uses pool %q", other, l.pool.name)
	}
	if n.owner != nil {
		misuse(op, l.name, "node is still linked in %q", n.owner.name)
	}
}

// PushFront links a detached node at the head.
func (l *List[T]) PushFront(n *Node[T]) {
	l.checkInsert("push_front", n)
	n.owner = l
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.n++
}

// PushBack links a detached node at the tail.
func (l *List[T]) PushBack(n *Node[T]) {
	l.checkInsert("push_back", n)
	n.owner = l
	n.next = nil
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.n++
}

// PopFront unlinks and returns the head node, or nil if the list is empty.
func (l *List[T]) PopFront() *Node[T] {
	n := l.head
	if n == nil {
		return nil
	}
	l.Unlink(n)
	return n
}

// PopBack unlinks and returns the tail node, or nil if the list is empty.
func (l *List[T]) PopBack() *Node[T] {
	n := l.tail
	if n == nil {
		return nil
	}
	l.Unlink(n)
	return n
}

// Unlink removes n from the list. The node becomes detached.
func (l *List[T]) Unlink(n *Node[T]) {
	if n == nil {
		misuse("unlink", l.name, "nil node")
	}
	if n.owner != l {
		where := "detached"
		if n.owner != nil {
			where = "linked in " + n.owner.name
		}
		misuse("unlink", l.name, "node is %s", where)
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next, n.owner = nil, nil, nil
	l.n--
	if l.n < 0 {
		misuse("unlink", l.name, "negative length")
	}
}

// DetachAll unlinks every node, returning them head first.
func (l *List[T]) DetachAll() []*Node[T] {
	out := make([]*Node[T], 0, l.n)
	for n := l.head; n != nil; {
		next := n.next
		n.prev, n.next, n.owner = nil, nil, nil
		out = append(out, n)
		n = next
	}
	l.head, l.tail, l.n = nil, nil, 0
	return out
}
