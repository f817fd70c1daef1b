package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(s *Store[payload]) []int {
	var out []int
	s.Update(func(l *List[payload]) {
		for n := l.Front(); n != nil; n = n.Next() {
			out = append(out, n.Value.id)
		}
	})
	return out
}

func fill(t *testing.T, p *Pool[payload], s *Store[payload], ids ...int) []*Node[payload] {
	t.Helper()
	nodes := make([]*Node[payload], 0, len(ids))
	for _, id := range ids {
		n, err := p.Acquire()
		require.NoError(t, err)
		n.Value.id = id
		s.PushBack(n)
		nodes = append(nodes, n)
	}
	return nodes
}

func TestStore_PushPop(t *testing.T) {
	p := New[payload]("jobs", 4, 0)
	s := NewStore("pending", p)
	assert.Equal(t, "pending", s.Name())

	a, b, c := p.MustAcquire(), p.MustAcquire(), p.MustAcquire()
	a.Value.id, b.Value.id, c.Value.id = 1, 2, 3

	s.PushFront(b)
	s.PushFront(a)
	s.PushBack(c)
	assert.Equal(t, []int{1, 2, 3}, values(s))
	assert.Equal(t, 3, s.Len())

	assert.Same(t, c, s.PopBack())
	assert.Same(t, a, s.PopFront())
	assert.Same(t, b, s.PopFront())
	assert.Nil(t, s.PopFront())
	assert.Nil(t, s.PopBack())
	assert.Equal(t, 0, s.Len())

	for _, n := range []*Node[payload]{a, b, c} {
		assert.True(t, n.Detached())
	}
}

func TestStore_HeadPushTailDrainIsFIFO(t *testing.T) {
	p := New[payload]("replies", 2, 0)
	s := NewStore("reply-queue", p)

	for i := 1; i <= 5; i++ {
		n := p.MustAcquire()
		n.Value.id = i
		s.PushFront(n)
	}
	var got []int
	for n := s.PopBack(); n != nil; n = s.PopBack() {
		got = append(got, n.Value.id)
		p.Release(n)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
	assert.Equal(t, p.Stats().Size, p.Stats().Free)
}

func TestStore_Unlink(t *testing.T) {
	tests := []struct {
		name   string
		remove int // index into nodes
		want   []int
	}{
		{"head", 0, []int{2, 3, 4}},
		{"middle", 2, []int{1, 2, 4}},
		{"tail", 3, []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New[payload]("jobs", 4, 0)
			s := NewStore("table", p)
			nodes := fill(t, p, s, 1, 2, 3, 4)

			s.Unlink(nodes[tt.remove])
			assert.Equal(t, tt.want, values(s))
			assert.True(t, nodes[tt.remove].Detached())
			assert.Nil(t, nodes[tt.remove].Next())
			assert.Nil(t, nodes[tt.remove].Prev())
		})
	}
}

func TestStore_UnlinkSingle(t *testing.T) {
	p := New[payload]("jobs", 1, 0)
	s := NewStore("table", p)
	nodes := fill(t, p, s, 9)

	s.Update(func(l *List[payload]) {
		l.Unlink(nodes[0])
		assert.Nil(t, l.Front())
		assert.Nil(t, l.Back())
		assert.Equal(t, 0, l.Len())
	})
}

func TestStore_UpdateWalkAndEdit(t *testing.T) {
	p := New[payload]("jobs", 8, 0)
	s := NewStore("table", p)
	fill(t, p, s, 1, 2, 3, 4, 5, 6)

	// Remove every even id while walking.
	s.Update(func(l *List[payload]) {
		for n := l.Front(); n != nil; {
			next := n.Next()
			if n.Value.id%2 == 0 {
				l.Unlink(n)
				p.Release(n)
			}
			n = next
		}
	})
	assert.Equal(t, []int{1, 3, 5}, values(s))
	assert.Equal(t, 5, p.Stats().Free)
}

func TestStore_DetachAll(t *testing.T) {
	p := New[payload]("jobs", 4, 0)
	s := NewStore("pending", p)
	fill(t, p, s, 1, 2, 3)

	var detached []*Node[payload]
	s.Update(func(l *List[payload]) {
		detached = l.DetachAll()
	})
	require.Len(t, detached, 3)
	assert.Equal(t, 0, s.Len())
	for i, n := range detached {
		assert.Equal(t, i+1, n.Value.id)
		assert.True(t, n.Detached())
		p.Release(n)
	}
}

func TestStore_Misuse(t *testing.T) {
	t.Run("insert twice", func(t *testing.T) {
		p := New[payload]("jobs", 2, 0)
		s := NewStore("a", p)
		n := p.MustAcquire()
		s.PushFront(n)
		requireMisuse(t, "push_back", func() { s.PushBack(n) })
	})

	t.Run("insert into second store", func(t *testing.T) {
		p := New[payload]("jobs", 2, 0)
		a := NewStore("a", p)
		b := NewStore("b", p)
		n := p.MustAcquire()
		a.PushFront(n)
		requireMisuse(t, "push_front", func() { b.PushFront(n) })
	})

	t.Run("foreign pool", func(t *testing.T) {
		jobs := New[payload]("jobs", 2, 0)
		other := New[payload]("other", 2, 0)
		s := NewStore("pending", jobs)
		requireMisuse(t, "push_front", func() { s.PushFront(other.MustAcquire()) })
	})

	t.Run("unlink from wrong store", func(t *testing.T) {
		p := New[payload]("jobs", 2, 0)
		a := NewStore("a", p)
		b := NewStore("b", p)
		n := p.MustAcquire()
		a.PushFront(n)
		requireMisuse(t, "unlink", func() { b.Unlink(n) })
	})

	t.Run("unlink detached", func(t *testing.T) {
		p := New[payload]("jobs", 2, 0)
		s := NewStore("a", p)
		requireMisuse(t, "unlink", func() { s.Unlink(p.MustAcquire()) })
	})

	t.Run("free list node", func(t *testing.T) {
		p := New[payload]("jobs", 2, 0)
		s := NewStore("a", p)
		n := p.MustAcquire()
		p.Release(n)
		requireMisuse(t, "push_front", func() { s.PushFront(n) })
	})
}

func TestMisuseError(t *testing.T) {
	err := &MisuseError{Op: "unlink", Container: "pending", Reason: "node is detached"}
	assert.Equal(t, `pool misuse: unlink on "pending": node is detached`, err.Error())
}
