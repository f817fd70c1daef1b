package pool

import "sync"

// Store is a named, lock-protected ordered collection of nodes borrowed from
// one pool.
type Store[T any] struct {
	mu   sync.Mutex
	list List[T]
}

// NewStore creates an empty store that accepts nodes from p.
func NewStore[T any](name string, p *Pool[T]) *Store[T] {
	return &Store[T]{list: List[T]{name: name, pool: p}}
}

// Name returns the store name.
func (s *Store[T]) Name() string {
	return s.list.name
}

// Len returns the number of nodes in the store.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Len()
}

// PushFront links a detached node at the head.
func (s *Store[T]) PushFront(n *Node[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.PushFront(n)
}

// PushBack links a detached node at the tail.
func (s *Store[T]) PushBack(n *Node[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.PushBack(n)
}

// PopFront detaches and returns the head node, or nil.
func (s *Store[T]) PopFront() *Node[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.PopFront()
}

// PopBack detaches and returns the tail node, or nil.
func (s *Store[T]) PopBack() *Node[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.PopBack()
}

// Unlink detaches n, which must be linked in this store.
func (s *Store[T]) Unlink(n *Node[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Unlink(n)
}

// Update calls fn with the store locked. fn must not block on the bus or
// call back into the same store.
func (s *Store[T]) Update(fn func(l *List[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.list)
}
