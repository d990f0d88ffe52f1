package store

// SQLite schema DDL constants

const schemaEntities = `
CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    is_content INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    modified_at DATETIME NOT NULL
)`

const schemaRelations = `
CREATE TABLE IF NOT EXISTS relations (
    row_id INTEGER PRIMARY KEY AUTOINCREMENT,
    rel_type INTEGER NOT NULL,
    parent_id TEXT NOT NULL,
    child_id TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    UNIQUE(rel_type, parent_id, child_id)
)`

const schemaContents = `
CREATE TABLE IF NOT EXISTS contents (
    id TEXT PRIMARY KEY,
    value TEXT NOT NULL DEFAULT '',
    type_code INTEGER NOT NULL DEFAULT 1
)`

const schemaBinaries = `
CREATE TABLE IF NOT EXISTS binaries (
    id TEXT PRIMARY KEY,
    data BLOB NOT NULL
)`

// Index definitions
const indexEntitiesName = `CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name)`
const indexRelationsParent = `CREATE INDEX IF NOT EXISTS idx_relations_parent ON relations(parent_id)`
const indexRelationsChild = `CREATE INDEX IF NOT EXISTS idx_relations_child ON relations(child_id)`
const indexRelationsType = `CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(rel_type)`

// SQLite pragmas for optimal performance
const pragmaWAL = `PRAGMA journal_mode=WAL`
const pragmaFK = `PRAGMA foreign_keys=ON`
const pragmaBusyTimeout = `PRAGMA busy_timeout=5000`
const pragmaSynchronous = `PRAGMA synchronous=NORMAL`

// allSchemaStatements returns all schema DDL in order
func allSchemaStatements() []string {
	return []string{
		schemaEntities,
		schemaRelations,
		schemaContents,
		schemaBinaries,
		indexEntitiesName,
		indexRelationsParent,
		indexRelationsChild,
		indexRelationsType,
	}
}

// allPragmas returns all pragma statements
func allPragmas() []string {
	return []string{
		pragmaWAL,
		pragmaFK,
		pragmaBusyTimeout,
		pragmaSynchronous,
	}
}
