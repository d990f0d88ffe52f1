package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/store"
)

// Manager is the single writer for relations and entities. Every mutation
// commits to the store first and only then applies the same change to the
// caches, so the caches never get ahead of durable state. Multi-step
// protocols are not transactional across steps; a failure mid-way comes back
// as a *core.StepError naming the failed step and the steps already
// committed.
//
// Two shape rules hold because all writes funnel through here: a node keeps
// at most one direct parent, and a parent keeps at most one bind child.
type Manager struct {
	store    store.Store
	rels     *RelationCache
	entities *EntityCache
	paths    *PathCache
}

// NewManager creates a manager writing through to the given store and caches
func NewManager(st store.Store, rels *RelationCache, entities *EntityCache, paths *PathCache) *Manager {
	return &Manager{store: st, rels: rels, entities: entities, paths: paths}
}

// CreateSegment creates a segment entity
func (m *Manager) CreateSegment(ctx context.Context, name string) (*core.Node, error) {
	node, err := m.store.CreateSegment(ctx, name)
	if err != nil {
		return nil, err
	}
	m.entities.Put(node)
	return node, nil
}

// CreateContent creates a content entity with an inline text payload
func (m *Manager) CreateContent(ctx context.Context, name string, value string, typeCode int) (*core.Node, error) {
	node, err := m.store.CreateContent(ctx, name, value, typeCode)
	if err != nil {
		return nil, err
	}
	m.entities.Put(node)
	return node, nil
}

// CreateContentBinary stores the payload in the binaries table and creates a
// content entity referencing it
func (m *Manager) CreateContentBinary(ctx context.Context, name string, data []byte, typeCode int) (*core.Node, error) {
	const op = "createContentBinary"

	binID, err := m.store.PutBinary(ctx, data)
	if err != nil {
		return nil, &core.StepError{Op: op, Step: "store binary", Err: err}
	}

	node, err := m.store.CreateContent(ctx, name, core.NewBinaryRef(binID), typeCode)
	if err != nil {
		return nil, &core.StepError{Op: op, Step: "create content", Committed: []string{"store binary"}, Err: err}
	}

	m.entities.Put(node)
	return node, nil
}

// RenameNode changes an entity's display name. Display paths read names
// through the entity cache at render time, so no path invalidation is needed.
func (m *Manager) RenameNode(ctx context.Context, id string, name string) error {
	if err := m.store.RenameEntity(ctx, id, name); err != nil {
		return err
	}
	m.entities.Rename(id, name)
	return nil
}

// CreateRelation creates a typed parent->child relation. Creating a relation
// that already exists is a no-op.
//
// For a direct relation, an existing direct parent of the child is first
// demoted to indirect in place, keeping its store row. For a bind relation,
// an existing bind child of the parent is first unbound. Acyclicity is not
// checked here; a direct cycle surfaces later as a resolver error.
func (m *Manager) CreateRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) error {
	const op = "createRelation"

	if !typ.Valid() {
		return fmt.Errorf("unknown relation type %d", int(typ))
	}

	// Both endpoints must exist. This also warms the entity cache for
	// later path rendering.
	if _, err := m.entities.Get(ctx, parentID); err != nil {
		return err
	}
	if _, err := m.entities.Get(ctx, childID); err != nil {
		return err
	}

	var committed []string

	switch typ {
	case core.RelationDirect:
		if err := m.rels.LoadAsChild(ctx, childID); err != nil {
			return err
		}
		parents, _ := m.rels.Parents(childID, core.RelationDirect)
		if len(parents) > 1 {
			return &core.InvariantError{
				NodeID: childID,
				Detail: fmt.Sprintf("%d direct parents", len(parents)),
			}
		}
		if len(parents) == 1 {
			if parents[0] == parentID {
				return nil
			}
			old, ok := m.rels.Relation(core.RelationDirect, parents[0], childID)
			if !ok {
				return &core.InvariantError{
					NodeID: childID,
					Detail: "direct parent listed without a cached relation row",
				}
			}
			if err := m.store.UpdateRelationType(ctx, old.RowID, core.RelationIndirect); err != nil {
				return &core.StepError{Op: op, Step: "demote direct parent", Err: err}
			}
			m.rels.Retype(old, core.RelationIndirect)
			committed = append(committed, "demote direct parent")
		}

	case core.RelationBind:
		if err := m.rels.LoadAsParent(ctx, parentID); err != nil {
			return err
		}
		children, _ := m.rels.Children(parentID, core.RelationBind)
		for _, existing := range children {
			if existing == childID {
				return nil
			}
			if err := m.store.DeleteRelation(ctx, core.RelationBind, parentID, existing); err != nil {
				return &core.StepError{Op: op, Step: "unbind previous child", Committed: committed, Err: err}
			}
			m.rels.Remove(core.Relation{Type: core.RelationBind, ParentID: parentID, ChildID: existing})
			committed = append(committed, "unbind previous child")
		}

	case core.RelationIndirect:
		if err := m.rels.LoadAsChild(ctx, childID); err != nil {
			return err
		}
		parents, _ := m.rels.Parents(childID, core.RelationIndirect)
		if slices.Contains(parents, parentID) {
			return nil
		}
	}

	rel, err := m.store.InsertRelation(ctx, typ, parentID, childID)
	if err != nil {
		return &core.StepError{Op: op, Step: "insert relation", Committed: committed, Err: err}
	}
	m.rels.Add(rel)

	// The child and everything under it may have moved.
	m.paths.InvalidateNode(childID)

	return nil
}

// DeleteRelation deletes one relation identified by its triple. Deleting a
// relation that does not exist reports core.ErrNotFound.
func (m *Manager) DeleteRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) error {
	if err := m.store.DeleteRelation(ctx, typ, parentID, childID); err != nil {
		return err
	}

	m.rels.Remove(core.Relation{Type: typ, ParentID: parentID, ChildID: childID})
	m.paths.InvalidateNode(childID)

	return nil
}

// DeleteNode deletes an entity together with every relation touching it, in
// either role, and scrubs it from all caches including its neighbors'
// entries.
func (m *Manager) DeleteNode(ctx context.Context, id string) error {
	const op = "deleteNode"

	if _, err := m.entities.Get(ctx, id); err != nil {
		return err
	}

	// Load both directions before touching the store, so the cache knows
	// every neighbor and can strip the node from their entries afterwards.
	if err := m.rels.LoadAsParent(ctx, id); err != nil {
		return err
	}
	if err := m.rels.LoadAsChild(ctx, id); err != nil {
		return err
	}

	var committed []string

	if err := m.store.DeleteRelationsOf(ctx, id); err != nil {
		return &core.StepError{Op: op, Step: "delete relations", Err: err}
	}
	committed = append(committed, "delete relations")

	if err := m.store.DeleteEntity(ctx, id); err != nil {
		return &core.StepError{Op: op, Step: "delete entity", Committed: committed, Err: err}
	}

	neighbors, err := m.rels.RemoveAll(ctx, id)
	if err != nil {
		return err
	}

	m.entities.Forget(id)
	m.paths.InvalidateNode(id)
	for _, neighbor := range neighbors {
		m.paths.InvalidateNode(neighbor)
	}

	return nil
}
