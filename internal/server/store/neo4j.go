package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/events"
)

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore implements Store using Neo4j. Entities are (:Entity) nodes with
// the content payload held as properties, relations are [:REL] relationships
// with the type code in a rel_type property so it can be rewritten in place.
type Neo4jStore struct {
	driver       neo4j.DriverWithContext
	database     string
	eventEmitter events.EventEmitter
}

// NewNeo4j creates a new Neo4j store
func NewNeo4j(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	// Verify connectivity
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	st := &Neo4jStore{driver: driver, database: database}

	if err := st.ensureConstraints(ctx); err != nil {
		return nil, fmt.Errorf("creating constraints: %w", err)
	}

	return st, nil
}

// ensureConstraints creates uniqueness constraints for entity and binary IDs
func (s *Neo4jStore) ensureConstraints(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
		`CREATE CONSTRAINT binary_id IF NOT EXISTS FOR (b:Binary) REQUIRE b.id IS UNIQUE`,
	}

	for _, stmt := range constraints {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Close closes the Neo4j connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies the connection is alive
func (s *Neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return &core.StoreError{Op: "ping", Err: err}
	}
	return nil
}

// SetEventEmitter sets the callback for emitting events
func (s *Neo4jStore) SetEventEmitter(emitter events.EventEmitter) {
	s.eventEmitter = emitter
}

// emit sends an event to the event manager if one is registered
func (s *Neo4jStore) emit(event events.Event) {
	if s.eventEmitter != nil {
		s.eventEmitter(event)
	}
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// CreateSegment creates a new segment entity
func (s *Neo4jStore) CreateSegment(ctx context.Context, name string) (*core.Node, error) {
	now := time.Now()
	node := &core.Node{
		ID:       uuid.New().String(),
		Name:     name,
		Created:  now,
		Modified: now,
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			CREATE (e:Entity {
				id: $id,
				name: $name,
				is_content: false,
				created: datetime($created),
				modified: datetime($modified)
			})
		`

		params := map[string]any{
			"id":       node.ID,
			"name":     node.Name,
			"created":  now.Format("2006-01-02T15:04:05Z"),
			"modified": now.Format("2006-01-02T15:04:05Z"),
		}

		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	if err != nil {
		return nil, &core.StoreError{Op: "createSegment", Err: err}
	}

	s.emit(events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventNodeCreated,
		Timestamp: time.Now(),
		NodeID:    node.ID,
		NodeName:  node.Name,
		NodeKind:  node.Kind(),
	})

	return node, nil
}

// CreateContent creates a new content entity with its payload
func (s *Neo4jStore) CreateContent(ctx context.Context, name string, value string, typeCode int) (*core.Node, error) {
	now := time.Now()
	node := &core.Node{
		ID:        uuid.New().String(),
		Name:      name,
		IsContent: true,
		Created:   now,
		Modified:  now,
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			CREATE (e:Entity {
				id: $id,
				name: $name,
				is_content: true,
				value: $value,
				type_code: $type_code,
				created: datetime($created),
				modified: datetime($modified)
			})
		`

		params := map[string]any{
			"id":        node.ID,
			"name":      node.Name,
			"value":     value,
			"type_code": typeCode,
			"created":   now.Format("2006-01-02T15:04:05Z"),
			"modified":  now.Format("2006-01-02T15:04:05Z"),
		}

		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	if err != nil {
		return nil, &core.StoreError{Op: "createContent", Err: err}
	}

	s.emit(events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventNodeCreated,
		Timestamp: time.Now(),
		NodeID:    node.ID,
		NodeName:  node.Name,
		NodeKind:  node.Kind(),
	})

	return node, nil
}

// GetEntity retrieves an entity by ID
func (s *Neo4jStore) GetEntity(ctx context.Context, id string) (*core.Node, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `MATCH (e:Entity {id: $id}) RETURN e`

		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
		}

		record := result.Record()
		nodeValue, _ := record.Get("e")
		return entityFromProps(nodeValue.(neo4j.Node).Props), nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, &core.StoreError{Op: "getEntity", Err: err}
	}

	return result.(*core.Node), nil
}

// RenameEntity updates an entity's display name
func (s *Neo4jStore) RenameEntity(ctx context.Context, id string, name string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {id: $id})
			SET e.name = $name, e.modified = datetime($modified)
			RETURN e.id
		`

		result, err := tx.Run(ctx, query, map[string]any{
			"id":       id,
			"name":     name,
			"modified": time.Now().Format("2006-01-02T15:04:05Z"),
		})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
		}

		return nil, nil
	})
	if err != nil {
		if isNotFound(err) {
			return err
		}
		return &core.StoreError{Op: "renameEntity", Err: err}
	}

	s.emit(events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventNodeRenamed,
		Timestamp: time.Now(),
		NodeID:    id,
		NodeName:  name,
	})

	return nil
}

// DeleteEntity removes an entity. Relations are expected to be gone already;
// a plain DELETE fails loudly if any remain.
func (s *Neo4jStore) DeleteEntity(ctx context.Context, id string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {id: $id})
			DELETE e
			RETURN count(e) AS deleted
		`

		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
		}
		deleted, _ := result.Record().Get("deleted")
		if count, ok := deleted.(int64); !ok || count == 0 {
			return nil, fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
		}

		return nil, nil
	})
	if err != nil {
		if isNotFound(err) {
			return err
		}
		return &core.StoreError{Op: "deleteEntity", Err: err}
	}

	s.emit(events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventNodeDeleted,
		Timestamp: time.Now(),
		NodeID:    id,
	})

	return nil
}

// ListRootSegments returns all segments with no direct parent, ordered by name
func (s *Neo4jStore) ListRootSegments(ctx context.Context) ([]*core.Node, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {is_content: false})
			WHERE NOT EXISTS {
				MATCH (:Entity)-[r:REL {rel_type: $direct}]->(e)
			}
			RETURN e
			ORDER BY e.name
		`

		result, err := tx.Run(ctx, query, map[string]any{"direct": int(core.RelationDirect)})
		if err != nil {
			return nil, err
		}

		var nodes []*core.Node
		for result.Next(ctx) {
			record := result.Record()
			nodeValue, _ := record.Get("e")
			nodes = append(nodes, entityFromProps(nodeValue.(neo4j.Node).Props))
		}

		return nodes, nil
	})
	if err != nil {
		return nil, &core.StoreError{Op: "listRootSegments", Err: err}
	}

	return result.([]*core.Node), nil
}

// RelationsByParent returns every relation where the node is the parent
func (s *Neo4jStore) RelationsByParent(ctx context.Context, parentID string) ([]core.Relation, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (p:Entity {id: $id})-[r:REL]->(c:Entity)
			RETURN id(r) AS row_id, r.rel_type AS rel_type, c.id AS child_id
		`

		result, err := tx.Run(ctx, query, map[string]any{"id": parentID})
		if err != nil {
			return nil, err
		}

		var rels []core.Relation
		for result.Next(ctx) {
			record := result.Record()
			rels = append(rels, relationFromRecord(record, parentID, ""))
		}

		return rels, nil
	})
	if err != nil {
		return nil, &core.StoreError{Op: "relationsByParent", Err: err}
	}

	return result.([]core.Relation), nil
}

// RelationsByChild returns every relation where the node is the child
func (s *Neo4jStore) RelationsByChild(ctx context.Context, childID string) ([]core.Relation, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (p:Entity)-[r:REL]->(c:Entity {id: $id})
			RETURN id(r) AS row_id, r.rel_type AS rel_type, p.id AS parent_id
		`

		result, err := tx.Run(ctx, query, map[string]any{"id": childID})
		if err != nil {
			return nil, err
		}

		var rels []core.Relation
		for result.Next(ctx) {
			record := result.Record()
			rels = append(rels, relationFromRecord(record, "", childID))
		}

		return rels, nil
	})
	if err != nil {
		return nil, &core.StoreError{Op: "relationsByChild", Err: err}
	}

	return result.([]core.Relation), nil
}

// InsertRelation creates a typed parent->child relation and returns it with
// the assigned row ID
func (s *Neo4jStore) InsertRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) (core.Relation, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (p:Entity {id: $parent_id})
			MATCH (c:Entity {id: $child_id})
			CREATE (p)-[r:REL {rel_type: $rel_type, created: datetime($created)}]->(c)
			RETURN id(r) AS row_id
		`

		params := map[string]any{
			"parent_id": parentID,
			"child_id":  childID,
			"rel_type":  int(typ),
			"created":   time.Now().Format("2006-01-02T15:04:05Z"),
		}

		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: entity %s or %s", core.ErrNotFound, parentID, childID)
		}

		rowID, _ := result.Record().Get("row_id")
		return rowID.(int64), nil
	})
	if err != nil {
		if isNotFound(err) {
			return core.Relation{}, err
		}
		return core.Relation{}, &core.StoreError{Op: "insertRelation", Err: err}
	}

	rel := core.Relation{
		RowID:    result.(int64),
		Type:     typ,
		ParentID: parentID,
		ChildID:  childID,
	}

	s.emit(events.Event{
		ID:           uuid.New().String(),
		Type:         events.EventRelationCreated,
		Timestamp:    time.Now(),
		ParentID:     parentID,
		ChildID:      childID,
		RelationType: typ.String(),
	})

	return rel, nil
}

// UpdateRelationType rewrites the type of an existing relation in place,
// keeping its row ID
func (s *Neo4jStore) UpdateRelationType(ctx context.Context, rowID int64, typ core.RelationType) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (p:Entity)-[r:REL]->(c:Entity)
			WHERE id(r) = $row_id
			WITH p, r, c, r.rel_type AS prev_type
			SET r.rel_type = $rel_type
			RETURN p.id AS parent_id, c.id AS child_id, prev_type
		`

		result, err := tx.Run(ctx, query, map[string]any{
			"row_id":   rowID,
			"rel_type": int(typ),
		})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: relation row %d", core.ErrNotFound, rowID)
		}

		record := result.Record()
		parentID, _ := record.Get("parent_id")
		childID, _ := record.Get("child_id")
		prevType, _ := record.Get("prev_type")
		return []any{parentID, childID, prevType}, nil
	})
	if err != nil {
		if isNotFound(err) {
			return err
		}
		return &core.StoreError{Op: "updateRelationType", Err: err}
	}

	fields := result.([]any)
	s.emit(events.Event{
		ID:           uuid.New().String(),
		Type:         events.EventRelationRetyped,
		Timestamp:    time.Now(),
		ParentID:     fields[0].(string),
		ChildID:      fields[1].(string),
		RelationType: typ.String(),
		Meta: map[string]any{
			"previous_type": core.RelationType(fields[2].(int64)).String(),
		},
	})

	return nil
}

// DeleteRelation deletes a specific relation identified by its triple
func (s *Neo4jStore) DeleteRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (p:Entity {id: $parent_id})-[r:REL {rel_type: $rel_type}]->(c:Entity {id: $child_id})
			DELETE r
			RETURN count(r) AS deleted
		`

		result, err := tx.Run(ctx, query, map[string]any{
			"parent_id": parentID,
			"child_id":  childID,
			"rel_type":  int(typ),
		})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: relation %s -[%s]-> %s", core.ErrNotFound, parentID, typ, childID)
		}
		deleted, _ := result.Record().Get("deleted")
		if count, ok := deleted.(int64); !ok || count == 0 {
			return nil, fmt.Errorf("%w: relation %s -[%s]-> %s", core.ErrNotFound, parentID, typ, childID)
		}

		return nil, nil
	})
	if err != nil {
		if isNotFound(err) {
			return err
		}
		return &core.StoreError{Op: "deleteRelation", Err: err}
	}

	s.emit(events.Event{
		ID:           uuid.New().String(),
		Type:         events.EventRelationDeleted,
		Timestamp:    time.Now(),
		ParentID:     parentID,
		ChildID:      childID,
		RelationType: typ.String(),
	})

	return nil
}

// DeleteRelationsOf deletes every relation touching the node in either role
func (s *Neo4jStore) DeleteRelationsOf(ctx context.Context, id string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {id: $id})-[r:REL]-()
			DELETE r
		`

		_, err := tx.Run(ctx, query, map[string]any{"id": id})
		return nil, err
	})
	if err != nil {
		return &core.StoreError{Op: "deleteRelationsOf", Err: err}
	}

	return nil
}

// GetContent retrieves a content node's payload
func (s *Neo4jStore) GetContent(ctx context.Context, id string) (*core.Content, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {id: $id, is_content: true})
			RETURN e.value AS value, e.type_code AS type_code
		`

		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: content %s", core.ErrNotFound, id)
		}

		record := result.Record()
		content := &core.Content{ID: id}
		if v, ok := record.Values[0].(string); ok {
			content.Value = v
		}
		if tc, ok := record.Values[1].(int64); ok {
			content.TypeCode = int(tc)
		}
		return content, nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, &core.StoreError{Op: "getContent", Err: err}
	}

	return result.(*core.Content), nil
}

// PutBinary stores a binary payload and returns its assigned ID
func (s *Neo4jStore) PutBinary(ctx context.Context, data []byte) (string, error) {
	id := uuid.New().String()

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `CREATE (b:Binary {id: $id, data: $data})`

		_, err := tx.Run(ctx, query, map[string]any{"id": id, "data": data})
		return nil, err
	})
	if err != nil {
		return "", &core.StoreError{Op: "putBinary", Err: err}
	}

	return id, nil
}

// GetBinary retrieves a binary payload by ID
func (s *Neo4jStore) GetBinary(ctx context.Context, id string) (*core.Binary, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `MATCH (b:Binary {id: $id}) RETURN b.data AS data`

		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, fmt.Errorf("%w: binary %s", core.ErrNotFound, id)
		}

		data, _ := result.Record().Get("data")
		binary := &core.Binary{ID: id}
		if b, ok := data.([]byte); ok {
			binary.Data = b
		}
		return binary, nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, &core.StoreError{Op: "getBinary", Err: err}
	}

	return result.(*core.Binary), nil
}

// Helper functions

func entityFromProps(props map[string]any) *core.Node {
	node := &core.Node{}

	if v, ok := props["id"].(string); ok {
		node.ID = v
	}
	if v, ok := props["name"].(string); ok {
		node.Name = v
	}
	if v, ok := props["is_content"].(bool); ok {
		node.IsContent = v
	}
	if t, ok := props["created"].(time.Time); ok {
		node.Created = t
	}
	if t, ok := props["modified"].(time.Time); ok {
		node.Modified = t
	}

	return node
}

func relationFromRecord(record *neo4j.Record, parentID string, childID string) core.Relation {
	rel := core.Relation{ParentID: parentID, ChildID: childID}

	if v, ok := record.Get("row_id"); ok {
		if id, ok := v.(int64); ok {
			rel.RowID = id
		}
	}
	if v, ok := record.Get("rel_type"); ok {
		if t, ok := v.(int64); ok {
			rel.Type = core.RelationType(t)
		}
	}
	if v, ok := record.Get("parent_id"); ok {
		if id, ok := v.(string); ok {
			rel.ParentID = id
		}
	}
	if v, ok := record.Get("child_id"); ok {
		if id, ok := v.(string); ok {
			rel.ChildID = id
		}
	}

	return rel
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
