package graph

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pagegraph/pagegraph/internal/core"
)

// PathCache memoizes root-to-node ID paths
type PathCache struct {
	mu    sync.RWMutex
	paths map[string][]string
}

// NewPathCache creates an empty path cache
func NewPathCache() *PathCache {
	return &PathCache{paths: make(map[string][]string)}
}

// Get returns a copy of the cached path for the node
func (c *PathCache) Get(id string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path, ok := c.paths[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(path), true
}

// Put stores the path for the node it ends with
func (c *PathCache) Put(id string, path []string) {
	cp := slices.Clone(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[id] = cp
}

// InvalidateNode drops every cached path that contains the node. A path lists
// all ancestors of its final node, so this covers the node itself and every
// structural descendant whose path was cached.
func (c *PathCache) InvalidateNode(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, path := range c.paths {
		if slices.Contains(path, id) {
			delete(c.paths, key)
		}
	}
}

// PathResolver walks direct parent edges upward to place a node in the tree
// and renders display paths from entity names. Resolved ID paths are memoized
// in the PathCache; names are looked up at render time, so a rename needs no
// path invalidation.
type PathResolver struct {
	rels     *RelationCache
	entities *EntityCache
	paths    *PathCache
}

// NewPathResolver creates a resolver over the given caches
func NewPathResolver(rels *RelationCache, entities *EntityCache, paths *PathCache) *PathResolver {
	return &PathResolver{rels: rels, entities: entities, paths: paths}
}

// PathToRoot returns the node IDs from the tree root down to the node,
// ending with the node itself. A node with no direct parent is its own root.
// Revisiting a node during the upward walk fails with a *core.CycleError
// carrying the walked IDs.
func (r *PathResolver) PathToRoot(ctx context.Context, id string) ([]string, error) {
	if _, err := r.entities.Get(ctx, id); err != nil {
		return nil, err
	}

	if path, ok := r.paths.Get(id); ok {
		return path, nil
	}

	var walked []string
	visited := make(map[string]bool)
	cur := id
	for {
		walked = append(walked, cur)
		visited[cur] = true

		if err := r.rels.LoadAsChild(ctx, cur); err != nil {
			return nil, err
		}
		parents, _ := r.rels.Parents(cur, core.RelationDirect)
		if len(parents) == 0 {
			break
		}
		if len(parents) > 1 {
			return nil, &core.InvariantError{
				NodeID: cur,
				Detail: fmt.Sprintf("%d direct parents", len(parents)),
			}
		}

		next := parents[0]
		if visited[next] {
			return nil, &core.CycleError{Path: append(walked, next)}
		}
		cur = next
	}

	slices.Reverse(walked)
	r.paths.Put(id, walked)
	return walked, nil
}

// FormatPath renders the node's display path.
//
// A segment renders as "/name/.../name/" with a trailing slash. A content
// node bound into a segment takes over that segment's slot: its path is the
// segment's path without the trailing slash. Any other content node renders
// as its parent path plus its own name.
func (r *PathResolver) FormatPath(ctx context.Context, id string) (string, error) {
	node, err := r.entities.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if !node.IsContent {
		return r.segmentPath(ctx, id)
	}

	// A bind parent's slot overrides the structural position.
	if err := r.rels.LoadAsChild(ctx, id); err != nil {
		return "", err
	}
	bindParents, _ := r.rels.Parents(id, core.RelationBind)
	if len(bindParents) > 0 {
		return r.slotPath(ctx, bindParents[0])
	}

	ids, err := r.PathToRoot(ctx, id)
	if err != nil {
		return "", err
	}
	names, err := r.names(ctx, ids)
	if err != nil {
		return "", err
	}
	return "/" + strings.Join(names, "/"), nil
}

// segmentPath renders a segment as "/name/.../name/"
func (r *PathResolver) segmentPath(ctx context.Context, id string) (string, error) {
	ids, err := r.PathToRoot(ctx, id)
	if err != nil {
		return "", err
	}
	names, err := r.names(ctx, ids)
	if err != nil {
		return "", err
	}
	return "/" + strings.Join(names, "/") + "/", nil
}

// slotPath renders the path a bind child takes over from its bind parent
func (r *PathResolver) slotPath(ctx context.Context, segmentID string) (string, error) {
	segPath, err := r.segmentPath(ctx, segmentID)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(segPath, "/"), nil
}

func (r *PathResolver) names(ctx context.Context, ids []string) ([]string, error) {
	names := make([]string, len(ids))
	for i, id := range ids {
		node, err := r.entities.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		names[i] = node.Name
	}
	return names, nil
}
