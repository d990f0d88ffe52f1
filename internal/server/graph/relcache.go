package graph

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/store"
)

// dirEntry holds one node's relations in one direction, grouped by type.
// The inner maps go from neighbor ID to the relation's store row ID.
type dirEntry struct {
	complete bool
	byType   map[core.RelationType]map[string]int64
}

func newDirEntry() *dirEntry {
	return &dirEntry{byType: make(map[core.RelationType]map[string]int64)}
}

func (e *dirEntry) add(typ core.RelationType, neighborID string, rowID int64) {
	set := e.byType[typ]
	if set == nil {
		set = make(map[string]int64)
		e.byType[typ] = set
	}
	set[neighborID] = rowID
}

// RelationCache is a bidirectional in-memory index over the relations table.
// Each node has an entry per direction: as-parent (its children) and as-child
// (its parents). An entry is only trusted once its completeness flag is set,
// which happens when a load replaces it wholesale with the store's full
// result. An entry that exists without the flag holds partial knowledge from
// incremental writes and must not answer reads; a loaded node with no
// relations keeps a complete empty entry, so "loaded empty" and "not yet
// loaded" stay distinct.
//
// Loads for the same node and direction are coalesced through singleflight.
// Incremental writes come only from the relation manager, which never
// interleaves them with a load of the same node.
type RelationCache struct {
	store store.Store

	mu       sync.RWMutex
	flight   singleflight.Group
	asParent map[string]*dirEntry
	asChild  map[string]*dirEntry
}

// NewRelationCache creates an empty cache over the given store
func NewRelationCache(st store.Store) *RelationCache {
	return &RelationCache{
		store:    st,
		asParent: make(map[string]*dirEntry),
		asChild:  make(map[string]*dirEntry),
	}
}

// LoadAsParent makes the node's child sets complete, fetching them from the
// store unless already loaded. Concurrent calls for the same node share one
// store query.
func (c *RelationCache) LoadAsParent(ctx context.Context, id string) error {
	if c.CompleteAsParent(id) {
		return nil
	}

	_, err, _ := c.flight.Do("p:"+id, func() (any, error) {
		// A previous flight may have finished while we queued.
		if c.CompleteAsParent(id) {
			return nil, nil
		}

		rels, err := c.store.RelationsByParent(ctx, id)
		if err != nil {
			return nil, err
		}

		entry := newDirEntry()
		for _, rel := range rels {
			entry.add(rel.Type, rel.ChildID, rel.RowID)
		}
		entry.complete = true

		c.mu.Lock()
		c.asParent[id] = entry
		c.mu.Unlock()

		return nil, nil
	})
	return err
}

// LoadAsChild makes the node's parent sets complete, fetching them from the
// store unless already loaded
func (c *RelationCache) LoadAsChild(ctx context.Context, id string) error {
	if c.CompleteAsChild(id) {
		return nil
	}

	_, err, _ := c.flight.Do("c:"+id, func() (any, error) {
		if c.CompleteAsChild(id) {
			return nil, nil
		}

		rels, err := c.store.RelationsByChild(ctx, id)
		if err != nil {
			return nil, err
		}

		entry := newDirEntry()
		for _, rel := range rels {
			entry.add(rel.Type, rel.ParentID, rel.RowID)
		}
		entry.complete = true

		c.mu.Lock()
		c.asChild[id] = entry
		c.mu.Unlock()

		return nil, nil
	})
	return err
}

// CompleteAsParent reports whether the node's child sets are loaded
func (c *RelationCache) CompleteAsParent(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.asParent[id]
	return ok && entry.complete
}

// CompleteAsChild reports whether the node's parent sets are loaded
func (c *RelationCache) CompleteAsChild(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.asChild[id]
	return ok && entry.complete
}

// Children returns the node's children of one type, sorted by ID. The second
// return is false when the node's child sets are not loaded; callers must
// load first and retry.
func (c *RelationCache) Children(parentID string, typ core.RelationType) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.asParent[parentID]
	if !ok || !entry.complete {
		return nil, false
	}
	return sortedIDs(entry.byType[typ]), true
}

// Parents returns the node's parents of one type, sorted by ID. The second
// return is false when the node's parent sets are not loaded.
func (c *RelationCache) Parents(childID string, typ core.RelationType) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.asChild[childID]
	if !ok || !entry.complete {
		return nil, false
	}
	return sortedIDs(entry.byType[typ]), true
}

// Relation looks up a cached relation by its triple and returns it with its
// store row ID. Either side's entry can answer.
func (c *RelationCache) Relation(typ core.RelationType, parentID string, childID string) (core.Relation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, ok := c.asParent[parentID]; ok {
		if rowID, ok := entry.byType[typ][childID]; ok {
			return core.Relation{RowID: rowID, Type: typ, ParentID: parentID, ChildID: childID}, true
		}
	}
	if entry, ok := c.asChild[childID]; ok {
		if rowID, ok := entry.byType[typ][parentID]; ok {
			return core.Relation{RowID: rowID, Type: typ, ParentID: parentID, ChildID: childID}, true
		}
	}
	return core.Relation{}, false
}

// Add records a committed relation in both directions at once. Entries it
// creates on nodes that were never loaded stay incomplete.
func (c *RelationCache) Add(rel core.Relation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parentEntry, ok := c.asParent[rel.ParentID]
	if !ok {
		parentEntry = newDirEntry()
		c.asParent[rel.ParentID] = parentEntry
	}
	parentEntry.add(rel.Type, rel.ChildID, rel.RowID)

	childEntry, ok := c.asChild[rel.ChildID]
	if !ok {
		childEntry = newDirEntry()
		c.asChild[rel.ChildID] = childEntry
	}
	childEntry.add(rel.Type, rel.ParentID, rel.RowID)
}

// Remove drops a relation from both directions at once. Removing a relation
// the cache never saw is a no-op.
func (c *RelationCache) Remove(rel core.Relation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(rel)
}

func (c *RelationCache) removeLocked(rel core.Relation) {
	if entry, ok := c.asParent[rel.ParentID]; ok {
		delete(entry.byType[rel.Type], rel.ChildID)
	}
	if entry, ok := c.asChild[rel.ChildID]; ok {
		delete(entry.byType[rel.Type], rel.ParentID)
	}
}

// Retype moves a relation from its current type to a new one in a single
// step, keeping its row ID. No reader can observe the relation under neither
// type.
func (c *RelationCache) Retype(rel core.Relation, newType core.RelationType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(rel)

	if entry, ok := c.asParent[rel.ParentID]; ok {
		entry.add(newType, rel.ChildID, rel.RowID)
	}
	if entry, ok := c.asChild[rel.ChildID]; ok {
		entry.add(newType, rel.ParentID, rel.RowID)
	}
}

// RemoveAll drops every relation touching the node and returns the affected
// neighbor IDs. Both directions are loaded first if needed, so the neighbor
// list is complete and every neighbor's own entry is stripped of the node.
func (c *RelationCache) RemoveAll(ctx context.Context, id string) ([]string, error) {
	if err := c.LoadAsParent(ctx, id); err != nil {
		return nil, err
	}
	if err := c.LoadAsChild(ctx, id); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var neighbors []string

	if entry, ok := c.asParent[id]; ok {
		for typ, set := range entry.byType {
			for childID := range set {
				if childEntry, ok := c.asChild[childID]; ok {
					delete(childEntry.byType[typ], id)
				}
				if childID == id || seen[childID] {
					continue
				}
				seen[childID] = true
				neighbors = append(neighbors, childID)
			}
		}
	}
	if entry, ok := c.asChild[id]; ok {
		for typ, set := range entry.byType {
			for parentID := range set {
				if parentEntry, ok := c.asParent[parentID]; ok {
					delete(parentEntry.byType[typ], id)
				}
				if parentID == id || seen[parentID] {
					continue
				}
				seen[parentID] = true
				neighbors = append(neighbors, parentID)
			}
		}
	}

	delete(c.asParent, id)
	delete(c.asChild, id)

	sort.Strings(neighbors)
	return neighbors, nil
}

// Invalidate drops the node's entries and completeness flags in both
// directions, forcing the next read to reload from the store
func (c *RelationCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.asParent, id)
	delete(c.asChild, id)
}

func sortedIDs(set map[string]int64) []string {
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
