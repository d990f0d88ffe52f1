package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/events"
	"github.com/pagegraph/pagegraph/internal/server/store"
)

// fakeStore is an in-memory store.Store for exercising the caches and the
// relation manager without a database. Individual ops can be made to fail,
// and calls are counted so tests can assert what actually hit the store.
type fakeStore struct {
	mu        sync.Mutex
	nodes     map[string]core.Node
	relations map[int64]core.Relation
	contents  map[string]core.Content
	binaries  map[string][]byte
	nextRow   int64
	nextID    int

	failOn map[string]error
	calls  map[string]int
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:     make(map[string]core.Node),
		relations: make(map[int64]core.Relation),
		contents:  make(map[string]core.Content),
		binaries:  make(map[string][]byte),
		failOn:    make(map[string]error),
		calls:     make(map[string]int),
	}
}

// addNode seeds an entity directly, bypassing call counting.
func (f *fakeStore) addNode(id, name string, isContent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[id] = core.Node{ID: id, Name: name, IsContent: isContent}
}

// addRelation seeds a relation row directly and returns its row ID.
func (f *fakeStore) addRelation(typ core.RelationType, parentID, childID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRow++
	f.relations[f.nextRow] = core.Relation{RowID: f.nextRow, Type: typ, ParentID: parentID, ChildID: childID}
	return f.nextRow
}

// setContent seeds a content payload row.
func (f *fakeStore) setContent(id, value string, typeCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents[id] = core.Content{ID: id, Value: value, TypeCode: typeCode}
}

// relationRow reads a relation row back for assertions.
func (f *fakeStore) relationRow(rowID int64) (core.Relation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel, ok := f.relations[rowID]
	return rel, ok
}

// relationCount reports how many relation rows exist.
func (f *fakeStore) relationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.relations)
}

// callCount reports how often the named op ran.
func (f *fakeStore) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// fail makes the named op return err until cleared.
func (f *fakeStore) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[op] = err
}

// step counts the op and returns its injected failure, if any. Callers hold
// the mutex.
func (f *fakeStore) step(op string) error {
	f.calls[op]++
	return f.failOn[op]
}

func (f *fakeStore) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step("Close")
}

func (f *fakeStore) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step("Ping")
}

func (f *fakeStore) SetEventEmitter(emitter events.EventEmitter) {}

func (f *fakeStore) CreateSegment(ctx context.Context, name string) (*core.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("CreateSegment"); err != nil {
		return nil, err
	}
	f.nextID++
	node := core.Node{ID: fmt.Sprintf("node-%d", f.nextID), Name: name}
	f.nodes[node.ID] = node
	n := node
	return &n, nil
}

func (f *fakeStore) CreateContent(ctx context.Context, name string, value string, typeCode int) (*core.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("CreateContent"); err != nil {
		return nil, err
	}
	f.nextID++
	node := core.Node{ID: fmt.Sprintf("node-%d", f.nextID), Name: name, IsContent: true}
	f.nodes[node.ID] = node
	f.contents[node.ID] = core.Content{ID: node.ID, Value: value, TypeCode: typeCode}
	n := node
	return &n, nil
}

func (f *fakeStore) GetEntity(ctx context.Context, id string) (*core.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("GetEntity"); err != nil {
		return nil, err
	}
	node, ok := f.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
	}
	n := node
	return &n, nil
}

func (f *fakeStore) RenameEntity(ctx context.Context, id string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("RenameEntity"); err != nil {
		return err
	}
	node, ok := f.nodes[id]
	if !ok {
		return fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
	}
	node.Name = name
	f.nodes[id] = node
	return nil
}

func (f *fakeStore) DeleteEntity(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("DeleteEntity"); err != nil {
		return err
	}
	if _, ok := f.nodes[id]; !ok {
		return fmt.Errorf("%w: entity %s", core.ErrNotFound, id)
	}
	delete(f.nodes, id)
	delete(f.contents, id)
	return nil
}

func (f *fakeStore) ListRootSegments(ctx context.Context) ([]*core.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("ListRootSegments"); err != nil {
		return nil, err
	}
	hasDirectParent := make(map[string]bool)
	for _, rel := range f.relations {
		if rel.Type == core.RelationDirect {
			hasDirectParent[rel.ChildID] = true
		}
	}
	var out []*core.Node
	for _, node := range f.nodes {
		if !node.IsContent && !hasDirectParent[node.ID] {
			n := node
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) RelationsByParent(ctx context.Context, parentID string) ([]core.Relation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("RelationsByParent"); err != nil {
		return nil, err
	}
	var out []core.Relation
	for _, rel := range f.relations {
		if rel.ParentID == parentID {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowID < out[j].RowID })
	return out, nil
}

func (f *fakeStore) RelationsByChild(ctx context.Context, childID string) ([]core.Relation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("RelationsByChild"); err != nil {
		return nil, err
	}
	var out []core.Relation
	for _, rel := range f.relations {
		if rel.ChildID == childID {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowID < out[j].RowID })
	return out, nil
}

func (f *fakeStore) InsertRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) (core.Relation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("InsertRelation"); err != nil {
		return core.Relation{}, err
	}
	if _, ok := f.nodes[parentID]; !ok {
		return core.Relation{}, fmt.Errorf("%w: entity %s", core.ErrNotFound, parentID)
	}
	if _, ok := f.nodes[childID]; !ok {
		return core.Relation{}, fmt.Errorf("%w: entity %s", core.ErrNotFound, childID)
	}
	for _, rel := range f.relations {
		if rel.Type == typ && rel.ParentID == parentID && rel.ChildID == childID {
			return core.Relation{}, &core.StoreError{Op: "insert relation", Err: fmt.Errorf("duplicate relation")}
		}
	}
	f.nextRow++
	rel := core.Relation{RowID: f.nextRow, Type: typ, ParentID: parentID, ChildID: childID}
	f.relations[f.nextRow] = rel
	return rel, nil
}

func (f *fakeStore) UpdateRelationType(ctx context.Context, rowID int64, typ core.RelationType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("UpdateRelationType"); err != nil {
		return err
	}
	rel, ok := f.relations[rowID]
	if !ok {
		return fmt.Errorf("%w: relation row %d", core.ErrNotFound, rowID)
	}
	rel.Type = typ
	f.relations[rowID] = rel
	return nil
}

func (f *fakeStore) DeleteRelation(ctx context.Context, typ core.RelationType, parentID string, childID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("DeleteRelation"); err != nil {
		return err
	}
	for rowID, rel := range f.relations {
		if rel.Type == typ && rel.ParentID == parentID && rel.ChildID == childID {
			delete(f.relations, rowID)
			return nil
		}
	}
	return fmt.Errorf("%w: relation %s -[%s]-> %s", core.ErrNotFound, parentID, typ, childID)
}

func (f *fakeStore) DeleteRelationsOf(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("DeleteRelationsOf"); err != nil {
		return err
	}
	for rowID, rel := range f.relations {
		if rel.ParentID == id || rel.ChildID == id {
			delete(f.relations, rowID)
		}
	}
	return nil
}

func (f *fakeStore) GetContent(ctx context.Context, id string) (*core.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("GetContent"); err != nil {
		return nil, err
	}
	content, ok := f.contents[id]
	if !ok {
		return nil, fmt.Errorf("%w: content %s", core.ErrNotFound, id)
	}
	c := content
	return &c, nil
}

func (f *fakeStore) PutBinary(ctx context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("PutBinary"); err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("bin-%d", f.nextID)
	buf := make([]byte, len(data))
	copy(buf, data)
	f.binaries[id] = buf
	return id, nil
}

func (f *fakeStore) GetBinary(ctx context.Context, id string) (*core.Binary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("GetBinary"); err != nil {
		return nil, err
	}
	data, ok := f.binaries[id]
	if !ok {
		return nil, fmt.Errorf("%w: binary %s", core.ErrNotFound, id)
	}
	return &core.Binary{ID: id, Data: data}, nil
}
