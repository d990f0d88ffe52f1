package core

import (
	"fmt"
	"strconv"
	"time"
)

// RelationType classifies a parent->child edge. The integer values are the
// codes stored in the relations table and sent on the wire.
type RelationType int

const (
	RelationDirect   RelationType = 0 // structural edge, forms the tree
	RelationIndirect RelationType = 1 // former direct edge or extra reference
	RelationBind     RelationType = 2 // binds a content node into a segment's slot
)

// String returns the lowercase name used in API payloads and CLI output.
func (t RelationType) String() string {
	switch t {
	case RelationDirect:
		return "direct"
	case RelationIndirect:
		return "indirect"
	case RelationBind:
		return "bind"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Valid reports whether t is one of the three known relation types.
func (t RelationType) Valid() bool {
	return t == RelationDirect || t == RelationIndirect || t == RelationBind
}

// ParseRelationType accepts either a name ("direct", "indirect", "bind") or
// the numeric code as text.
func ParseRelationType(s string) (RelationType, error) {
	switch s {
	case "direct", "0":
		return RelationDirect, nil
	case "indirect", "1":
		return RelationIndirect, nil
	case "bind", "2":
		return RelationBind, nil
	}
	return 0, fmt.Errorf("unknown relation type %q", s)
}

// Node is a graph entity: a segment (a named container that shapes paths) or
// a content node (a leaf carrying a payload).
type Node struct {
	ID        string    // Unique identifier
	Name      string    // Display name, one path component
	IsContent bool      // Content node when true, segment otherwise
	Created   time.Time // Creation timestamp
	Modified  time.Time // Last modified
}

// Kind returns "content" or "segment" for API payloads.
func (n *Node) Kind() string {
	if n.IsContent {
		return "content"
	}
	return "segment"
}

// Relation is one typed parent->child edge. RowID is the store's row
// identifier; the relation manager uses it to rewrite a relation's type in
// place when a direct parent is reassigned.
type Relation struct {
	RowID    int64        // Store row identifier
	Type     RelationType // Edge type
	ParentID string       // Parent node ID
	ChildID  string       // Child node ID
}

// Content is the payload row of a content node. Value either holds the text
// itself or a "binary:<id>" reference into the binaries table.
type Content struct {
	ID       string // Same ID as the owning node
	Value    string // Text payload or binary reference
	TypeCode int    // Payload type code, see ContentTypeFor
}

// Binary is an out-of-line binary payload.
type Binary struct {
	ID   string
	Data []byte
}
