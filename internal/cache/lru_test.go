package cache

import "testing"

func TestLRUBasic(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) should miss")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive eviction")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestLRUUpdateExisting(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Set("a", 1)
	c.Set("a", 10)

	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("Get(a) = %d, want 10", v)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestLRUGetOrCompute(t *testing.T) {
	c := NewLRU[string, int](4)

	calls := 0
	compute := func() int { calls++; return 7 }

	if v := c.GetOrCompute("k", compute); v != 7 {
		t.Fatalf("GetOrCompute = %d", v)
	}
	if v := c.GetOrCompute("k", compute); v != 7 {
		t.Fatalf("GetOrCompute = %d", v)
	}
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}

	hits, misses := c.Stats()
	if hits == 0 || misses == 0 {
		t.Fatalf("Stats = %d hits, %d misses", hits, misses)
	}
}
