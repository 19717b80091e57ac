package cmap

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMap_GetOrCreate(t *testing.T) {
	m := New[int]()

	if v := m.GetOrCreate("a", func() int { return 1 }); v != 1 {
		t.Errorf("GetOrCreate(a) = %d, want 1", v)
	}
	if v := m.GetOrCreate("a", func() int { return 2 }); v != 1 {
		t.Errorf("GetOrCreate(a) again = %d, want the stored 1", v)
	}
	m.GetOrCreate("b", func() int { return 3 })
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, DefaultShardCount},
		{-3, DefaultShardCount},
		{1, 1},
		{7, 7},
	}
	for _, tt := range tests {
		m := NewWithShards[string](tt.n)
		if len(m.shards) != tt.want {
			t.Errorf("NewWithShards(%d) shards = %d, want %d", tt.n, len(m.shards), tt.want)
		}
		m.GetOrCreate("k", func() string { return "v" })
		if v := m.GetOrCreate("k", func() string { return "other" }); v != "v" {
			t.Errorf("NewWithShards(%d): GetOrCreate(k) = %q, want v", tt.n, v)
		}
	}
}

func TestMap_GetOrCreate_Concurrent(t *testing.T) {
	m := New[*int]()
	var created atomic.Int32

	var wg sync.WaitGroup
	results := make([]*int, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.GetOrCreate("shared", func() *int {
				created.Add(1)
				v := i
				return &v
			})
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("create ran %d times, want 1", created.Load())
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("result %d differs from result 0", i)
		}
	}
}

func TestMap_DeleteFunc(t *testing.T) {
	m := New[int]()
	for i := 0; i < 100; i++ {
		m.GetOrCreate(fmt.Sprintf("key-%d", i), func() int { return i })
	}

	removed := m.DeleteFunc(func(k string, v int) bool {
		return v%2 == 0 && strings.HasPrefix(k, "key-")
	})
	if removed != 50 {
		t.Errorf("DeleteFunc() removed %d, want 50", removed)
	}
	if m.Len() != 50 {
		t.Errorf("Len() = %d, want 50", m.Len())
	}
	if v := m.GetOrCreate("key-3", func() int { return -1 }); v != 3 {
		t.Error("odd key was removed")
	}
}
