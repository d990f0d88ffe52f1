package events

import "time"

// Event types emitted by the store backends
const (
	EventNodeCreated     = "node.created"
	EventNodeRenamed     = "node.renamed"
	EventNodeDeleted     = "node.deleted"
	EventRelationCreated = "relation.created"
	EventRelationRetyped = "relation.retyped"
	EventRelationDeleted = "relation.deleted"
)

// Event describes one committed change to the graph
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Node fields (node.* events)
	NodeID   string `json:"node_id,omitempty"`
	NodeName string `json:"node_name,omitempty"`
	NodeKind string `json:"node_kind,omitempty"`

	// Relation fields (relation.* events)
	ParentID     string `json:"parent_id,omitempty"`
	ChildID      string `json:"child_id,omitempty"`
	RelationType string `json:"relation_type,omitempty"`

	// Extra context, e.g. the previous type of a retyped relation
	Meta map[string]any `json:"meta,omitempty"`
}

// EventEmitter is a function that receives events from the store
type EventEmitter func(Event)
