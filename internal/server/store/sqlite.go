package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/events"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db           *sql.DB
	eventEmitter events.EventEmitter
}

// NewSQLite creates a new SQLite store
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Verify connectivity
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	st := &SQLiteStore{db: db}

	// Apply pragmas for optimal performance
	for _, pragma := range allPragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	// Create schema
	for _, stmt := range allSchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return st, nil
}

// Close closes the SQLite connection
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// Ping verifies the connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &core.StoreError{Op: "ping", Err: err}
	}
	return nil
}

// SetEventEmitter sets the callback for emitting events
func (s *SQLiteStore) SetEventEmitter(emitter events.EventEmitter) {
	s.eventEmitter = emitter
}

// emit sends an event to the event manager if one is registered
func (s *SQLiteStore) emit(event events.Event) {
	if s.eventEmitter != nil {
		s.eventEmitter(event)
	}
}

// CreateSegment creates a new segment entity
func (s *SQLiteStore) CreateSegment(ctx context.Context, name string) (*core.Node, error) {
	now := time.Now()
	node := &core.Node{
		ID:       uuid.New().String(),
		Name:     name,
		Created:  now,
		Modified: now,
	}

	query := `
		INSERT INTO entities (id, name, is_content, created_at, modified_at)
		VALUES (?, ?, 0, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		node.ID,
		node.Name,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
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

// CreateContent creates a new content entity together with its payload row
func (s *SQLiteStore) CreateContent(ctx context.Context, name string, value string, typeCode int) (*core.Node, error) {
	now := time.Now()
	node := &core.Node{
		ID:        uuid.New().String(),
		Name:      name,
		IsContent: true,
		Created:   now,
		Modified:  now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &core.StoreError{Op: "createContent", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (id, name, is_content, created_at, modified_at)
		VALUES (?, ?, 1, ?, ?)
	`, node.ID, node.Name, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, &core.StoreError{Op: "createContent", Err: fmt.Errorf("inserting entity: %w", err)}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contents (id, value, type_code) VALUES (?, ?, ?)
	`, node.ID, value, typeCode)
	if err != nil {
		return nil, &core.StoreError{Op: "createContent", Err: fmt.Errorf("inserting payload: %w", err)}
	}

	if err := tx.Commit(); err != nil {
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
func (s *SQLiteStore) GetEntity(ctx context.Context, id string) (*core.Node, error) {
	query := `
		SELECT id, name, is_content, created_at, modified_at
		FROM entities
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	node, err := scanEntity(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
		}
		return nil, &core.StoreError{Op: "getEntity", Err: err}
	}
	return node, nil
}

// RenameEntity updates an entity's display name
func (s *SQLiteStore) RenameEntity(ctx context.Context, id string, name string) error {
	query := `UPDATE entities SET name = ?, modified_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, name, time.Now().Format(time.RFC3339), id)
	if err != nil {
		return &core.StoreError{Op: "renameEntity", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &core.StoreError{Op: "renameEntity", Err: err}
	}
	if affected == 0 {
		return fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
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

// DeleteEntity removes an entity and its payload row. Relations are not
// touched here; callers remove them first via DeleteRelationsOf.
func (s *SQLiteStore) DeleteEntity(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StoreError{Op: "deleteEntity", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE id = ?`, id); err != nil {
		return &core.StoreError{Op: "deleteEntity", Err: fmt.Errorf("deleting payload: %w", err)}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return &core.StoreError{Op: "deleteEntity", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &core.StoreError{Op: "deleteEntity", Err: err}
	}
	if affected == 0 {
		return fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
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
func (s *SQLiteStore) ListRootSegments(ctx context.Context) ([]*core.Node, error) {
	query := `
		SELECT e.id, e.name, e.is_content, e.created_at, e.modified_at
		FROM entities e
		WHERE e.is_content = 0
		  AND NOT EXISTS (
		      SELECT 1 FROM relations r WHERE r.child_id = e.id AND r.rel_type = ?
		  )
		ORDER BY e.name
	`

	rows, err := s.db.QueryContext(ctx, query, int(core.RelationDirect))
	if err != nil {
		return nil, &core.StoreError{Op: "listRootSegments", Err: err}
	}
	defer rows.Close()

	return scanEntities(rows)
}

// RelationsByParent returns every relation where the node is the parent
func (s *SQLiteStore) RelationsByParent(ctx context.Context, parentID string) ([]core.Relation, error) {
	query := `
		SELECT row_id, rel_type, parent_id, child_id
		FROM relations
		WHERE parent_id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, &core.StoreError{Op: "relationsByParent", Err: err}
	}
	defer rows.Close()

	return scanRelations(rows)
}

// RelationsByChild returns every relation where the node is the child
func (s *SQLiteStore) RelationsByChild(ctx context.Context, childID string) ([]core.Relation, error) {
	query := `
		SELECT row_id, rel_type, parent_id, child_id
		FROM relations
		WHERE child_id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, &core.StoreError{Op: "relationsByChild", Err: err}
	}
	defer rows.Close()

	return scanRelations(rows)
}

// InsertRelation creates a typed parent->child relation and returns it with
// the assigned row ID
func (s *SQLiteStore) InsertRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) (core.Relation, error) {
	query := `
		INSERT INTO relations (rel_type, parent_id, child_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, int(typ), parentID, childID, time.Now().Format(time.RFC3339))
	if err != nil {
		return core.Relation{}, &core.StoreError{Op: "insertRelation", Err: err}
	}

	rowID, err := result.LastInsertId()
	if err != nil {
		return core.Relation{}, &core.StoreError{Op: "insertRelation", Err: err}
	}

	rel := core.Relation{
		RowID:    rowID,
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
// keeping its row ID. This is how a direct parent is demoted to indirect
// when a node is reparented.
func (s *SQLiteStore) UpdateRelationType(ctx context.Context, rowID int64, typ core.RelationType) error {
	var prevType int
	var parentID, childID string
	err := s.db.QueryRowContext(ctx,
		`SELECT rel_type, parent_id, child_id FROM relations WHERE row_id = ?`,
		rowID).Scan(&prevType, &parentID, &childID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: relation row %d", core.ErrNotFound, rowID)
		}
		return &core.StoreError{Op: "updateRelationType", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `UPDATE relations SET rel_type = ? WHERE row_id = ?`, int(typ), rowID)
	if err != nil {
		return &core.StoreError{Op: "updateRelationType", Err: err}
	}

	s.emit(events.Event{
		ID:           uuid.New().String(),
		Type:         events.EventRelationRetyped,
		Timestamp:    time.Now(),
		ParentID:     parentID,
		ChildID:      childID,
		RelationType: typ.String(),
		Meta: map[string]any{
			"previous_type": core.RelationType(prevType).String(),
		},
	})

	return nil
}

// DeleteRelation deletes a specific relation identified by its triple
func (s *SQLiteStore) DeleteRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) error {
	query := `DELETE FROM relations WHERE rel_type = ? AND parent_id = ? AND child_id = ?`

	result, err := s.db.ExecContext(ctx, query, int(typ), parentID, childID)
	if err != nil {
		return &core.StoreError{Op: "deleteRelation", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &core.StoreError{Op: "deleteRelation", Err: err}
	}
	if affected == 0 {
		return fmt.Errorf("%w: relation %s -[%s]-> %s", core.ErrNotFound, parentID, typ, childID)
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
func (s *SQLiteStore) DeleteRelationsOf(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM relations WHERE parent_id = ? OR child_id = ?`, id, id)
	if err != nil {
		return &core.StoreError{Op: "deleteRelationsOf", Err: err}
	}
	return nil
}

// GetContent retrieves a content node's payload row
func (s *SQLiteStore) GetContent(ctx context.Context, id string) (*core.Content, error) {
	content := &core.Content{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT value, type_code FROM contents WHERE id = ?`,
		id).Scan(&content.Value, &content.TypeCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: content %s", core.ErrNotFound, id)
		}
		return nil, &core.StoreError{Op: "getContent", Err: err}
	}
	return content, nil
}

// PutBinary stores a binary payload and returns its assigned ID
func (s *SQLiteStore) PutBinary(ctx context.Context, data []byte) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `INSERT INTO binaries (id, data) VALUES (?, ?)`, id, data)
	if err != nil {
		return "", &core.StoreError{Op: "putBinary", Err: err}
	}
	return id, nil
}

// GetBinary retrieves a binary payload by ID
func (s *SQLiteStore) GetBinary(ctx context.Context, id string) (*core.Binary, error) {
	binary := &core.Binary{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM binaries WHERE id = ?`,
		id).Scan(&binary.Data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: binary %s", core.ErrNotFound, id)
		}
		return nil, &core.StoreError{Op: "getBinary", Err: err}
	}
	return binary, nil
}

// Helper functions

func scanEntity(row *sql.Row) (*core.Node, error) {
	var id, name string
	var isContent int
	var createdAt, modifiedAt string

	if err := row.Scan(&id, &name, &isContent, &createdAt, &modifiedAt); err != nil {
		return nil, err
	}

	node := &core.Node{
		ID:        id,
		Name:      name,
		IsContent: isContent == 1,
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		node.Created = t
	}
	if t, err := time.Parse(time.RFC3339, modifiedAt); err == nil {
		node.Modified = t
	}

	return node, nil
}

func scanEntities(rows *sql.Rows) ([]*core.Node, error) {
	var nodes []*core.Node
	for rows.Next() {
		var id, name string
		var isContent int
		var createdAt, modifiedAt string

		if err := rows.Scan(&id, &name, &isContent, &createdAt, &modifiedAt); err != nil {
			continue
		}

		node := &core.Node{
			ID:        id,
			Name:      name,
			IsContent: isContent == 1,
		}

		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			node.Created = t
		}
		if t, err := time.Parse(time.RFC3339, modifiedAt); err == nil {
			node.Modified = t
		}

		nodes = append(nodes, node)
	}
	return nodes, nil
}

func scanRelations(rows *sql.Rows) ([]core.Relation, error) {
	var rels []core.Relation
	for rows.Next() {
		var rel core.Relation
		var relType int

		if err := rows.Scan(&rel.RowID, &relType, &rel.ParentID, &rel.ChildID); err != nil {
			return nil, &core.StoreError{Op: "scanRelation", Err: err}
		}
		rel.Type = core.RelationType(relType)

		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StoreError{Op: "scanRelation", Err: err}
	}
	return rels, nil
}
