package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *fakeClock, *[]string) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.now
	var evicted []string
	c.OnEvict(func(key string, _ int) { evicted = append(evicted, key) })
	return c, clock, &evicted
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _, _ := newTestCache(2, time.Minute)
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}
	if c.Size() != 1 {
		t.Fatalf("size %d", c.Size())
	}
}

func TestLRUCache_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c, _, evicted := newTestCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if len(*evicted) != 1 || (*evicted)[0] != "b" {
		t.Fatalf("evicted %v", *evicted)
	}
}

func TestLRUCache_TTLIsSliding(t *testing.T) {
	c, clock, evicted := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clock.advance(40 * time.Second)
	c.Get("a")
	clock.advance(40 * time.Second)

	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired removed %d", n)
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a was used recently and should be alive")
	}
	if len(*evicted) != 1 || (*evicted)[0] != "b" {
		t.Fatalf("evicted %v", *evicted)
	}

	clock.advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if len(*evicted) != 2 {
		t.Fatalf("expired Get did not notify: %v", *evicted)
	}
}

func TestLRUCache_DeleteAndReplaceNotify(t *testing.T) {
	c, _, evicted := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)
	c.Delete("a")
	c.Delete("a")
	if len(*evicted) != 2 {
		t.Fatalf("evicted %v", *evicted)
	}
}

func TestLRUCache_RangeSkipsExpired(t *testing.T) {
	c, clock, _ := newTestCache(10, time.Minute)
	c.Set("old", 1)
	clock.advance(50 * time.Second)
	c.Set("new", 2)
	clock.advance(20 * time.Second)

	var keys []string
	c.Range(func(k string, _ int) bool {
		keys = append(keys, k)
		return true
	})
	if len(keys) != 1 || keys[0] != "new" {
		t.Fatalf("Range saw %v", keys)
	}
}

func TestManager_CleanAll(t *testing.T) {
	a, clockA, _ := newTestCache(10, time.Second)
	b, clockB, _ := newTestCache(10, time.Second)
	a.Set("x", 1)
	b.Set("y", 1)
	b.Set("z", 1)
	clockA.advance(2 * time.Second)
	clockB.advance(2 * time.Second)

	m := NewManager()
	m.Register(a)
	m.Register(b)
	if n := m.CleanAll(); n != 3 {
		t.Fatalf("CleanAll removed %d", n)
	}
	if a.Size() != 0 || b.Size() != 0 {
		t.Fatalf("caches not empty: %d %d", a.Size(), b.Size())
	}
}
