package manager

import "testing"

func TestManagerSetGet(t *testing.T) {
	m := New[string]()

	if err := m.Set("a", "hello"); err != nil {
		t.Fatalf("failed to set: %s", err)
	}

	v, err := m.Get("a")
	if err != nil {
		t.Fatalf("failed to get: %s", err)
	}
	if v != "hello" {
		t.Fatalf("value not match, expect hello, but got %s", v)
	}
}

func TestManagerGetMissing(t *testing.T) {
	m := New[string]()

	if _, err := m.Get("missing"); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestManagerRemoveIsIdempotent(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)

	m.Remove("a")
	if m.Has("a") {
		t.Fatalf("expected id to be removed")
	}

	// second removal of an already-absent id must not panic or error
	m.Remove("a")
	m.Remove("never-existed")
}

func TestManagerGetOrCreate(t *testing.T) {
	m := New[int]()
	calls := 0

	creator := func() int {
		calls++
		return 42
	}

	v1, _ := m.GetOrCreate("a", creator)
	v2, _ := m.GetOrCreate("a", creator)

	if v1 != 42 || v2 != 42 {
		t.Fatalf("expected 42, got %d and %d", v1, v2)
	}
	if calls != 1 {
		t.Fatalf("expected creator to run once, ran %d times", calls)
	}
}

func TestManagerForEach(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	seen := map[string]int{}
	m.ForEach(func(id string, instance int) bool {
		seen[id] = instance
		return true
	})

	if len(seen) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(seen))
	}
}
