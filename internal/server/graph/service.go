// Package graph keeps an in-memory working copy of the content graph: entity
// rows, a bidirectional relation index and resolved paths, loaded lazily from
// the store and updated in place on every write.
package graph

import (
	"context"

	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/store"
)

// Service wires the caches, the path resolver and the relation manager over
// one store. Reads go to the caches, every write goes through the manager.
type Service struct {
	store    store.Store
	entities *EntityCache
	rels     *RelationCache
	paths    *PathCache
	resolver *PathResolver
	manager  *Manager
}

// NewService creates a service with empty caches over the given store
func NewService(st store.Store) *Service {
	entities := NewEntityCache(st)
	rels := NewRelationCache(st)
	paths := NewPathCache()

	return &Service{
		store:    st,
		entities: entities,
		rels:     rels,
		paths:    paths,
		resolver: NewPathResolver(rels, entities, paths),
		manager:  NewManager(st, rels, entities, paths),
	}
}

// Ping verifies the backing store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetNode returns an entity by ID
func (s *Service) GetNode(ctx context.Context, id string) (*core.Node, error) {
	return s.entities.Get(ctx, id)
}

// PathToRoot returns the node IDs from the tree root down to the node
func (s *Service) PathToRoot(ctx context.Context, id string) ([]string, error) {
	return s.resolver.PathToRoot(ctx, id)
}

// FormatPath renders the node's display path
func (s *Service) FormatPath(ctx context.Context, id string) (string, error) {
	return s.resolver.FormatPath(ctx, id)
}

// CreateSegment creates a segment entity
func (s *Service) CreateSegment(ctx context.Context, name string) (*core.Node, error) {
	return s.manager.CreateSegment(ctx, name)
}

// CreateContent creates a content entity with an inline text payload
func (s *Service) CreateContent(ctx context.Context, name string, value string, typeCode int) (*core.Node, error) {
	return s.manager.CreateContent(ctx, name, value, typeCode)
}

// CreateContentBinary creates a content entity backed by a binary payload
func (s *Service) CreateContentBinary(ctx context.Context, name string, data []byte, typeCode int) (*core.Node, error) {
	return s.manager.CreateContentBinary(ctx, name, data, typeCode)
}

// RenameNode changes an entity's display name
func (s *Service) RenameNode(ctx context.Context, id string, name string) error {
	return s.manager.RenameNode(ctx, id, name)
}

// CreateRelation creates a typed parent->child relation
func (s *Service) CreateRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) error {
	return s.manager.CreateRelation(ctx, typ, parentID, childID)
}

// DeleteRelation deletes one relation identified by its triple
func (s *Service) DeleteRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) error {
	return s.manager.DeleteRelation(ctx, typ, parentID, childID)
}

// DeleteNode deletes an entity together with every relation touching it
func (s *Service) DeleteNode(ctx context.Context, id string) error {
	return s.manager.DeleteNode(ctx, id)
}

// InvalidateNode drops everything cached about the node so the next read
// reloads it from the store. For use when the store was changed out of band.
func (s *Service) InvalidateNode(id string) {
	s.rels.Invalidate(id)
	s.paths.InvalidateNode(id)
	s.entities.Forget(id)
}
