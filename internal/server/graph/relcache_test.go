package graph

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagegraph/pagegraph/internal/core"
)

func TestRelationCacheLoadAsParent(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addRelation(core.RelationDirect, "p", "a")
	st.addRelation(core.RelationDirect, "p", "b")
	st.addRelation(core.RelationIndirect, "p", "c")

	cache := NewRelationCache(st)

	// Nothing is answered before a load.
	if _, ok := cache.Children("p", core.RelationDirect); ok {
		t.Fatal("Children answered before load")
	}
	if cache.CompleteAsParent("p") {
		t.Fatal("complete before load")
	}

	require.NoError(t, cache.LoadAsParent(ctx, "p"))

	if !cache.CompleteAsParent("p") {
		t.Fatal("not complete after load")
	}
	direct, ok := cache.Children("p", core.RelationDirect)
	if !ok || !slices.Equal(direct, []string{"a", "b"}) {
		t.Fatalf("direct children = %v, %v; want [a b], true", direct, ok)
	}
	indirect, ok := cache.Children("p", core.RelationIndirect)
	if !ok || !slices.Equal(indirect, []string{"c"}) {
		t.Fatalf("indirect children = %v, %v; want [c], true", indirect, ok)
	}
	if bind, _ := cache.Children("p", core.RelationBind); bind != nil {
		t.Fatalf("bind children = %v, want none", bind)
	}

	// The load touches only the asParent direction.
	if cache.CompleteAsChild("p") {
		t.Fatal("asChild became complete from an asParent load")
	}
}

func TestRelationCacheLoadAsChild(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addRelation(core.RelationDirect, "p", "x")
	st.addRelation(core.RelationIndirect, "q", "x")

	cache := NewRelationCache(st)
	require.NoError(t, cache.LoadAsChild(ctx, "x"))

	parents, ok := cache.Parents("x", core.RelationDirect)
	if !ok || !slices.Equal(parents, []string{"p"}) {
		t.Fatalf("direct parents = %v, %v; want [p], true", parents, ok)
	}
	parents, _ = cache.Parents("x", core.RelationIndirect)
	if !slices.Equal(parents, []string{"q"}) {
		t.Fatalf("indirect parents = %v, want [q]", parents)
	}
}

func TestRelationCacheLoadedEmptyIsComplete(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cache := NewRelationCache(st)

	require.NoError(t, cache.LoadAsParent(ctx, "lonely"))

	children, ok := cache.Children("lonely", core.RelationDirect)
	if !ok {
		t.Fatal("loaded-empty node did not answer")
	}
	if len(children) != 0 {
		t.Fatalf("children = %v, want none", children)
	}
}

func TestRelationCacheLoadIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addRelation(core.RelationDirect, "p", "a")

	cache := NewRelationCache(st)
	require.NoError(t, cache.LoadAsParent(ctx, "p"))
	require.NoError(t, cache.LoadAsParent(ctx, "p"))
	require.NoError(t, cache.LoadAsParent(ctx, "p"))

	if got := st.callCount("RelationsByParent"); got != 1 {
		t.Fatalf("store queried %d times, want 1", got)
	}
}

func TestRelationCacheLoadError(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.fail("RelationsByParent", &core.StoreError{Op: "query relations", Err: errors.New("down")})

	cache := NewRelationCache(st)
	err := cache.LoadAsParent(ctx, "p")

	var storeErr *core.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("error = %v, want *core.StoreError", err)
	}
	if cache.CompleteAsParent("p") {
		t.Fatal("failed load left a complete entry")
	}
}

func TestRelationCacheAddRemove(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cache := NewRelationCache(st)

	require.NoError(t, cache.LoadAsParent(ctx, "p"))
	require.NoError(t, cache.LoadAsChild(ctx, "c"))

	rel := core.Relation{RowID: 7, Type: core.RelationDirect, ParentID: "p", ChildID: "c"}
	cache.Add(rel)

	children, _ := cache.Children("p", core.RelationDirect)
	if !slices.Equal(children, []string{"c"}) {
		t.Fatalf("children after add = %v, want [c]", children)
	}
	parents, _ := cache.Parents("c", core.RelationDirect)
	if !slices.Equal(parents, []string{"p"}) {
		t.Fatalf("parents after add = %v, want [p]", parents)
	}

	got, ok := cache.Relation(core.RelationDirect, "p", "c")
	if !ok || got.RowID != 7 {
		t.Fatalf("Relation = %+v, %v; want row 7", got, ok)
	}

	cache.Remove(rel)
	if children, _ := cache.Children("p", core.RelationDirect); len(children) != 0 {
		t.Fatalf("children after remove = %v, want none", children)
	}
	if parents, _ := cache.Parents("c", core.RelationDirect); len(parents) != 0 {
		t.Fatalf("parents after remove = %v, want none", parents)
	}

	// Removing a relation the cache never saw is a no-op.
	cache.Remove(core.Relation{Type: core.RelationBind, ParentID: "p", ChildID: "other"})
}

func TestRelationCacheAddToUnloadedStaysIncomplete(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cache := NewRelationCache(st)

	cache.Add(core.Relation{RowID: 1, Type: core.RelationDirect, ParentID: "p", ChildID: "c"})

	// The write is recorded but must not make the direction answerable.
	if _, ok := cache.Children("p", core.RelationDirect); ok {
		t.Fatal("incremental write made an unloaded entry answer")
	}

	// A load replaces the entry with the store's full result.
	st.addRelation(core.RelationDirect, "p", "c")
	require.NoError(t, cache.LoadAsParent(ctx, "p"))
	children, ok := cache.Children("p", core.RelationDirect)
	if !ok || !slices.Equal(children, []string{"c"}) {
		t.Fatalf("children after load = %v, %v; want [c], true", children, ok)
	}
}

func TestRelationCacheRetypeKeepsRow(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	rowID := st.addRelation(core.RelationDirect, "p", "c")

	cache := NewRelationCache(st)
	require.NoError(t, cache.LoadAsParent(ctx, "p"))
	require.NoError(t, cache.LoadAsChild(ctx, "c"))

	rel, ok := cache.Relation(core.RelationDirect, "p", "c")
	require.True(t, ok)

	cache.Retype(rel, core.RelationIndirect)

	if _, ok := cache.Relation(core.RelationDirect, "p", "c"); ok {
		t.Fatal("old type still present after retype")
	}
	got, ok := cache.Relation(core.RelationIndirect, "p", "c")
	if !ok || got.RowID != rowID {
		t.Fatalf("retyped relation = %+v, %v; want row %d", got, ok, rowID)
	}

	parents, _ := cache.Parents("c", core.RelationIndirect)
	if !slices.Equal(parents, []string{"p"}) {
		t.Fatalf("indirect parents = %v, want [p]", parents)
	}
}

func TestRelationCacheRelationAnswersFromEitherSide(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addRelation(core.RelationBind, "p", "c")

	// Only the child side is loaded.
	cache := NewRelationCache(st)
	require.NoError(t, cache.LoadAsChild(ctx, "c"))

	rel, ok := cache.Relation(core.RelationBind, "p", "c")
	if !ok || rel.ParentID != "p" || rel.ChildID != "c" {
		t.Fatalf("Relation = %+v, %v", rel, ok)
	}

	if _, ok := cache.Relation(core.RelationDirect, "p", "c"); ok {
		t.Fatal("lookup matched the wrong type")
	}
}

func TestRelationCacheRemoveAll(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addRelation(core.RelationDirect, "x", "childA")
	st.addRelation(core.RelationIndirect, "x", "childB")
	st.addRelation(core.RelationDirect, "parentA", "x")
	// childA is related to x in both roles to exercise deduplication.
	st.addRelation(core.RelationIndirect, "childA", "x")

	cache := NewRelationCache(st)

	// Neighbor entries are loaded so stripping is observable.
	require.NoError(t, cache.LoadAsChild(ctx, "childA"))
	require.NoError(t, cache.LoadAsParent(ctx, "parentA"))

	neighbors, err := cache.RemoveAll(ctx, "x")
	require.NoError(t, err)

	want := []string{"childA", "childB", "parentA"}
	if !slices.Equal(neighbors, want) {
		t.Fatalf("neighbors = %v, want %v", neighbors, want)
	}

	// x's own entries are gone.
	if _, ok := cache.Children("x", core.RelationDirect); ok {
		t.Fatal("x still answers as parent")
	}
	if _, ok := cache.Parents("x", core.RelationDirect); ok {
		t.Fatal("x still answers as child")
	}

	// Neighbors no longer list x but stay complete.
	parents, ok := cache.Parents("childA", core.RelationDirect)
	if !ok {
		t.Fatal("childA lost its completeness")
	}
	if slices.Contains(parents, "x") {
		t.Fatalf("childA still lists x: %v", parents)
	}
	children, ok := cache.Children("parentA", core.RelationDirect)
	if !ok {
		t.Fatal("parentA lost its completeness")
	}
	if slices.Contains(children, "x") {
		t.Fatalf("parentA still lists x: %v", children)
	}
}

func TestRelationCacheConcurrentLoadsShareOneQuery(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addRelation(core.RelationDirect, "p", "a")

	cache := NewRelationCache(st)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = cache.LoadAsParent(ctx, "p")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("load %d failed: %v", i, err)
		}
	}
	if got := st.callCount("RelationsByParent"); got != 1 {
		t.Fatalf("store queried %d times, want 1", got)
	}

	children, ok := cache.Children("p", core.RelationDirect)
	if !ok || !slices.Equal(children, []string{"a"}) {
		t.Fatalf("children = %v, %v; want [a], true", children, ok)
	}
}

func TestRelationCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addRelation(core.RelationDirect, "p", "a")

	cache := NewRelationCache(st)
	require.NoError(t, cache.LoadAsParent(ctx, "p"))

	cache.Invalidate("p")

	if _, ok := cache.Children("p", core.RelationDirect); ok {
		t.Fatal("invalidated entry still answers")
	}

	require.NoError(t, cache.LoadAsParent(ctx, "p"))
	if got := st.callCount("RelationsByParent"); got != 2 {
		t.Fatalf("store queried %d times after invalidate, want 2", got)
	}
}
