package registry

import (
	"sync"
	"testing"
)

func TestArena_InsertGetRemove(t *testing.T) {
	a := NewArena[string]()
	h := a.Insert("one")
	if h == 0 {
		t.Fatalf("handle must be non-zero")
	}
	if v, ok := a.Get(h); !ok || v != "one" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if v, ok := a.Remove(h); !ok || v != "one" {
		t.Fatalf("Remove = %q, %v", v, ok)
	}
	if _, ok := a.Get(h); ok {
		t.Fatalf("removed handle still resolves")
	}
	if _, ok := a.Remove(h); ok {
		t.Fatalf("double remove succeeded")
	}
}

func TestArena_StaleHandleAfterSlotReuse(t *testing.T) {
	a := NewArena[int]()
	h1 := a.Insert(1)
	a.Remove(h1)
	h2 := a.Insert(2)
	if h1.index() != h2.index() {
		t.Fatalf("expected slot reuse")
	}
	if h1 == h2 {
		t.Fatalf("reused slot must get a new generation")
	}
	if _, ok := a.Get(h1); ok {
		t.Fatalf("stale handle resolved")
	}
	if v, ok := a.Get(h2); !ok || v != 2 {
		t.Fatalf("Get(h2) = %d, %v", v, ok)
	}
}

func TestArena_UnknownHandles(t *testing.T) {
	a := NewArena[int]()
	for _, h := range []Handle{0, 1, makeHandle(5, 1)} {
		if _, ok := a.Get(h); ok {
			t.Fatalf("unexpected hit for %v", h)
		}
	}
}

func TestArena_EachAndDrain(t *testing.T) {
	a := NewArena[int]()
	a.Insert(1)
	h := a.Insert(2)
	a.Insert(3)
	a.Remove(h)
	sum := 0
	a.Each(func(_ Handle, v int) { sum += v })
	if sum != 4 || a.Len() != 2 {
		t.Fatalf("sum=%d len=%d", sum, a.Len())
	}
	if got := a.Drain(); len(got) != 2 || a.Len() != 0 {
		t.Fatalf("Drain = %v len=%d", got, a.Len())
	}
}

func TestArena_ConcurrentInsertRemove(t *testing.T) {
	a := NewArena[int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				h := a.Insert(g*1000 + i)
				if v, ok := a.Get(h); !ok || v != g*1000+i {
					t.Errorf("Get mismatch")
					return
				}
				a.Remove(h)
			}
		}(g)
	}
	wg.Wait()
	if a.Len() != 0 {
		t.Fatalf("expected empty arena, got %d", a.Len())
	}
}

func TestParseHandle(t *testing.T) {
	h := makeHandle(3, 9)
	got, err := ParseHandle(h.String())
	if err != nil || got != h {
		t.Fatalf("ParseHandle = %v, %v", got, err)
	}
	if _, err := ParseHandle("abc"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestArena_Replace(t *testing.T) {
	a := NewArena[string]()
	h := a.Insert("")
	if !a.Replace(h, "set") {
		t.Fatalf("Replace on live handle failed")
	}
	if v, _ := a.Get(h); v != "set" {
		t.Fatalf("Get = %q", v)
	}
	a.Remove(h)
	if a.Replace(h, "again") {
		t.Fatalf("Replace on removed handle succeeded")
	}
}
