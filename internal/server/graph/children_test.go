package graph

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagegraph/pagegraph/internal/core"
)

func TestListChildrenOrderAndKinds(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addNode("s", "docs", false)
	st.addNode("b", "bound", true)
	st.addNode("d1", "alpha", false)
	st.addNode("d2", "zeta", true)
	st.addNode("i1", "mid", true)
	st.addRelation(core.RelationBind, "s", "b")
	st.addRelation(core.RelationDirect, "s", "d1")
	st.addRelation(core.RelationDirect, "s", "d2")
	st.addRelation(core.RelationIndirect, "s", "d2")
	st.addRelation(core.RelationIndirect, "s", "i1")

	svc := NewService(st)

	children, err := svc.ListChildren(ctx, "s")
	require.NoError(t, err)

	want := []Child{
		{ID: "b", Name: "bound", IsContent: true, Path: "/docs",
			Kinds: []core.RelationType{core.RelationBind}},
		{ID: "d1", Name: "alpha", IsContent: false, Path: "/docs/alpha/",
			Kinds: []core.RelationType{core.RelationDirect}},
		{ID: "d2", Name: "zeta", IsContent: true, Path: "/docs/zeta",
			Kinds: []core.RelationType{core.RelationDirect, core.RelationIndirect}},
		{ID: "i1", Name: "mid", IsContent: true, Path: "/mid",
			Kinds: []core.RelationType{core.RelationIndirect}},
	}
	if len(children) != len(want) {
		t.Fatalf("got %d children, want %d: %+v", len(children), len(want), children)
	}
	for i, w := range want {
		got := children[i]
		if got.ID != w.ID || got.Name != w.Name || got.IsContent != w.IsContent || got.Path != w.Path {
			t.Errorf("child %d = %+v, want %+v", i, got, w)
		}
		if !slices.Equal(got.Kinds, w.Kinds) {
			t.Errorf("child %d kinds = %v, want %v", i, got.Kinds, w.Kinds)
		}
	}
}

func TestListChildrenEmpty(t *testing.T) {
	st := newFakeStore()
	st.addNode("s", "docs", false)

	svc := NewService(st)

	children, err := svc.ListChildren(context.Background(), "s")
	require.NoError(t, err)
	if len(children) != 0 {
		t.Fatalf("children = %+v, want none", children)
	}
}

func TestListChildrenUnknownParent(t *testing.T) {
	svc := NewService(newFakeStore())

	_, err := svc.ListChildren(context.Background(), "ghost")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestListChildrenSkipsDanglingRelations(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addNode("s", "docs", false)
	st.addNode("d", "alpha", true)
	st.addRelation(core.RelationDirect, "s", "d")
	// A relation row pointing at an entity that no longer exists.
	st.addRelation(core.RelationDirect, "s", "ghost")

	svc := NewService(st)

	children, err := svc.ListChildren(ctx, "s")
	require.NoError(t, err)
	if len(children) != 1 || children[0].ID != "d" {
		t.Fatalf("children = %+v, want just d", children)
	}
}

func TestRoots(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addNode("r2", "beta", false)
	st.addNode("r1", "alpha", false)
	st.addNode("k", "kid", false)
	st.addNode("c", "note", true)
	st.addRelation(core.RelationDirect, "r1", "k")

	svc := NewService(st)

	roots, err := svc.Roots(ctx)
	require.NoError(t, err)

	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2: %+v", len(roots), roots)
	}
	if roots[0].ID != "r1" || roots[0].Path != "/alpha/" {
		t.Errorf("roots[0] = %+v, want alpha at /alpha/", roots[0])
	}
	if roots[1].ID != "r2" || roots[1].Path != "/beta/" {
		t.Errorf("roots[1] = %+v, want beta at /beta/", roots[1])
	}
}
