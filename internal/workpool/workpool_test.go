package workpool

import (
	"errors"
	"sort"
	"sync"
	"testing"
)

func TestForEachRunsEveryItem(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var mu sync.Mutex
	var seen []int

	errs := ForEach(items, 3, func(item int) error {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		return nil
	})
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}
	sort.Ints(seen)
	if len(seen) != len(items) {
		t.Fatalf("seen = %v, want all of %v", seen, items)
	}
	for i, v := range seen {
		if v != items[i] {
			t.Errorf("seen[%d] = %d, want %d", i, v, items[i])
		}
	}
}

func TestForEachCollectsErrors(t *testing.T) {
	items := []string{"a", "bad", "c"}
	errs := ForEach(items, 2, func(item string) error {
		if item == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one", errs)
	}
}

func TestAddDeduplicates(t *testing.T) {
	var w Work[string]
	w.Add("x")
	w.Add("x")
	w.Add("y")

	var count int
	var mu sync.Mutex
	w.Do(2, func(item string) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	if count != 2 {
		t.Errorf("count = %d, want 2 (x added twice, y once, x deduplicated)", count)
	}
}

func TestWorkerCanAddMoreItems(t *testing.T) {
	var w Work[int]
	w.Add(1)

	var mu sync.Mutex
	var seen []int
	w.Do(1, func(item int) error {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		if item == 1 {
			w.Add(2)
		}
		return nil
	})
	sort.Ints(seen)
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("seen = %v, want [1 2]", seen)
	}
}
