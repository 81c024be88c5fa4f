package registry

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
)

// Handle addresses one arena slot. The low 32 bits are the slot index, the
// high 32 bits the generation the slot had when the value was inserted, so a
// handle goes stale once its slot is reused.
type Handle uint64

func makeHandle(index, gen uint32) Handle { return Handle(uint64(index) | uint64(gen)<<32) }

func (h Handle) index() uint32 { return uint32(h) }
func (h Handle) gen() uint32   { return uint32(h >> 32) }

func (h Handle) String() string { return strconv.FormatUint(uint64(h), 10) }

// ParseHandle parses the decimal form produced by Handle.String.
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	return Handle(v), nil
}

type slot[T any] struct {
	gen  uint32
	used bool
	val  T
}

// Arena stores values behind generation-checked handles. It has its own lock
// and is safe for concurrent use; values are returned by copy, so pointer
// types are the usual element.
type Arena[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []uint32
	gens  atomic.Uint64
}

// NewArena returns an empty arena.
func NewArena[T any]() *Arena[T] { return &Arena[T]{} }

func (a *Arena[T]) nextGen() uint32 {
	for {
		// zero is reserved so that no live handle equals 0
		if g := uint32(a.gens.Add(1)); g != 0 {
			return g
		}
	}
}

// Insert stores v and returns its handle. Handles are never zero.
func (a *Arena[T]) Insert(v T) Handle {
	gen := a.nextGen()
	a.mu.Lock()
	defer a.mu.Unlock()
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	a.slots[idx] = slot[T]{gen: gen, used: true, val: v}
	return makeHandle(idx, gen)
}

// lookup returns the live slot for h. Caller holds a.mu.
func (a *Arena[T]) lookup(h Handle) (*slot[T], bool) {
	idx := h.index()
	if int(idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[idx]
	if !s.used || s.gen != h.gen() {
		return nil, false
	}
	return s, true
}

// Get returns the value stored under h.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return s.val, true
}

// Replace stores v under a live handle h.
func (a *Arena[T]) Replace(h Handle, v T) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.lookup(h)
	if !ok {
		return false
	}
	s.val = v
	return true
}

// Remove deletes h and returns the value it held.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	s, ok := a.lookup(h)
	if !ok {
		return zero, false
	}
	v := s.val
	s.val = zero
	s.used = false
	a.free = append(a.free, h.index())
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots) - len(a.free)
}

// Each calls fn for every live value in slot order. fn must not call back
// into the arena.
func (a *Arena[T]) Each(fn func(Handle, T)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.slots {
		if s := &a.slots[i]; s.used {
			fn(makeHandle(uint32(i), s.gen), s.val)
		}
	}
}

// Drain removes and returns every live value.
func (a *Arena[T]) Drain() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []T
	for i := range a.slots {
		if a.slots[i].used {
			out = append(out, a.slots[i].val)
		}
	}
	a.slots = nil
	a.free = nil
	return out
}
