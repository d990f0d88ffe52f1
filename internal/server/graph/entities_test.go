package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagegraph/pagegraph/internal/core"
)

func TestEntityCacheGetMemoizes(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addNode("n1", "docs", false)

	cache := NewEntityCache(st)

	node, err := cache.Get(ctx, "n1")
	require.NoError(t, err)
	if node.Name != "docs" {
		t.Fatalf("name = %q, want docs", node.Name)
	}

	_, err = cache.Get(ctx, "n1")
	require.NoError(t, err)
	if got := st.callCount("GetEntity"); got != 1 {
		t.Fatalf("store queried %d times, want 1", got)
	}

	// The returned node is a copy; mutating it must not poison the cache.
	node.Name = "mangled"
	again, err := cache.Get(ctx, "n1")
	require.NoError(t, err)
	if again.Name != "docs" {
		t.Fatal("caller mutation leaked into the cache")
	}
}

func TestEntityCacheMissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cache := NewEntityCache(st)

	for i := 0; i < 2; i++ {
		if _, err := cache.Get(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	}
	// Each miss goes back to the store; a later create must be visible.
	if got := st.callCount("GetEntity"); got != 2 {
		t.Fatalf("store queried %d times, want 2", got)
	}

	st.addNode("ghost", "appeared", false)
	node, err := cache.Get(ctx, "ghost")
	require.NoError(t, err)
	if node.Name != "appeared" {
		t.Fatalf("name = %q, want appeared", node.Name)
	}
}

func TestEntityCacheConcurrentGetsShareOneQuery(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addNode("n1", "docs", false)

	cache := NewEntityCache(st)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(ctx, "n1"); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := st.callCount("GetEntity"); got != 1 {
		t.Fatalf("store queried %d times, want 1", got)
	}
}

func TestEntityCacheRenameAndForget(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addNode("n1", "old", false)

	cache := NewEntityCache(st)
	_, err := cache.Get(ctx, "n1")
	require.NoError(t, err)

	cache.Rename("n1", "new")
	node, err := cache.Get(ctx, "n1")
	require.NoError(t, err)
	if node.Name != "new" {
		t.Fatalf("name = %q, want new", node.Name)
	}
	// Renaming an uncached node is a no-op, not a phantom entry.
	cache.Rename("other", "x")
	if _, err := cache.Get(ctx, "other"); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("rename created a phantom cache entry")
	}

	cache.Forget("n1")
	_, err = cache.Get(ctx, "n1")
	require.NoError(t, err)
	if got := st.callCount("GetEntity"); got < 2 {
		t.Fatalf("store queried %d times, want a refetch after Forget", got)
	}
}
