package store

import (
	"context"

	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/events"
)

// Store defines the interface for graph storage backends.
// Both SQLite and Neo4j implement this interface.
//
// Every call is atomic on its own; the graph layer composes calls into
// multi-step protocols and reports partial failures itself. Reads for a
// missing row return core.ErrNotFound, transport and query failures come
// back wrapped in *core.StoreError.
type Store interface {
	// Lifecycle
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
	SetEventEmitter(emitter events.EventEmitter)

	// Entity operations
	CreateSegment(ctx context.Context, name string) (*core.Node, error)
	CreateContent(ctx context.Context, name string, value string, typeCode int) (*core.Node, error)
	GetEntity(ctx context.Context, id string) (*core.Node, error)
	RenameEntity(ctx context.Context, id string, name string) error
	DeleteEntity(ctx context.Context, id string) error
	ListRootSegments(ctx context.Context) ([]*core.Node, error)

	// Relation operations
	RelationsByParent(ctx context.Context, parentID string) ([]core.Relation, error)
	RelationsByChild(ctx context.Context, childID string) ([]core.Relation, error)
	InsertRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) (core.Relation, error)
	UpdateRelationType(ctx context.Context, rowID int64, typ core.RelationType) error
	DeleteRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) error
	DeleteRelationsOf(ctx context.Context, id string) error

	// Content payloads
	GetContent(ctx context.Context, id string) (*core.Content, error)
	PutBinary(ctx context.Context, data []byte) (string, error)
	GetBinary(ctx context.Context, id string) (*core.Binary, error)
}
