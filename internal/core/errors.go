package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across the graph packages. Callers match them with
// errors.Is; the API layer maps them to envelope codes.
var (
	// ErrNotConfigured means no store backend has been opened yet.
	ErrNotConfigured = errors.New("store not configured")

	// ErrNotFound means the addressed node, relation or row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoContent means a segment resolved fine but no content node is
	// attached to it in any relation kind.
	ErrNoContent = errors.New("no content for node")

	// ErrBinaryMissing means a content value referenced a binaries row
	// that does not exist.
	ErrBinaryMissing = errors.New("binary data not found")
)

// StoreError wraps a failure from the backing store.
type StoreError struct {
	Op  string // store operation that failed
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// CycleError reports a direct-edge cycle discovered while walking toward the
// root. Path holds the node IDs in walk order, ending with the repeated node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// InvariantError reports graph state the relation manager can never produce,
// such as a node with two direct parents. It means a writer bypassed the
// manager or the store was edited directly.
type InvariantError struct {
	NodeID string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated at %s: %s", e.NodeID, e.Detail)
}

// StepError annotates a failure inside a multi-step mutation with the step
// that failed and the steps already committed. Committed steps are not rolled
// back; the caller decides whether to retry or repair.
type StepError struct {
	Op        string   // public operation, e.g. "createRelation"
	Step      string   // step that failed
	Committed []string // steps already applied to the store
	Err       error
}

func (e *StepError) Error() string {
	if len(e.Committed) == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s (after %s): %v", e.Op, e.Step, strings.Join(e.Committed, ", "), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
