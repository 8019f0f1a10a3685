package chat

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry("The preamble.")

	if _, ok := r.Get("guild-1/chan-1"); ok {
		t.Fatalf("Get() on empty registry should miss")
	}

	h := r.GetOrCreate("guild-1/chan-1", false)
	if h == nil {
		t.Fatalf("GetOrCreate() returned nil")
	}
	if h.Private() {
		t.Fatalf("history should not be private")
	}
	if got := h.Preamble(); got != "The preamble." {
		t.Fatalf("preamble = %q, want default", got)
	}

	again := r.GetOrCreate("guild-1/chan-1", true)
	if again != h {
		t.Fatalf("GetOrCreate() must return the existing history")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryGetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry("P")

	const workers = 32
	results := make([]*History, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate("dm-42", true)
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("concurrent GetOrCreate produced distinct histories")
		}
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistrySnapshotSorted(t *testing.T) {
	r := NewRegistry("P")
	for _, key := range []string{"c", "a", "b"} {
		h := r.GetOrCreate(key, false)
		h.AddHumanLine("A", fmt.Sprintf("hello from %s", key))
	}

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(snap))
	}
	for i, want := range []string{"a", "b", "c"} {
		if snap[i].Key != want {
			t.Fatalf("Snapshot()[%d].Key = %q, want %q", i, snap[i].Key, want)
		}
		if snap[i].HumanTurns != 1 || snap[i].AITurns != 0 {
			t.Fatalf("Snapshot()[%d] turns = (%d, %d), want (1, 0)", i, snap[i].HumanTurns, snap[i].AITurns)
		}
	}
}
