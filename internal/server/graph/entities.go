package graph

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/store"
)

// EntityCache memoizes entity rows by ID with fetch-on-miss. The relation
// manager keeps it coherent by updating it after every committed entity
// mutation; lookups of missing nodes are not negatively cached.
type EntityCache struct {
	store store.Store

	mu     sync.RWMutex
	flight singleflight.Group
	nodes  map[string]core.Node
}

// NewEntityCache creates an empty cache over the given store
func NewEntityCache(st store.Store) *EntityCache {
	return &EntityCache{
		store: st,
		nodes: make(map[string]core.Node),
	}
}

// Get returns the node, fetching it from the store on a miss. Concurrent
// misses for the same ID share one store query. The returned node is a copy.
func (c *EntityCache) Get(ctx context.Context, id string) (*core.Node, error) {
	c.mu.RLock()
	node, ok := c.nodes[id]
	c.mu.RUnlock()
	if ok {
		return &node, nil
	}

	v, err, _ := c.flight.Do(id, func() (any, error) {
		c.mu.RLock()
		node, ok := c.nodes[id]
		c.mu.RUnlock()
		if ok {
			return node, nil
		}

		fetched, err := c.store.GetEntity(ctx, id)
		if err != nil {
			return core.Node{}, err
		}

		c.mu.Lock()
		c.nodes[id] = *fetched
		c.mu.Unlock()

		return *fetched, nil
	})
	if err != nil {
		return nil, err
	}

	node = v.(core.Node)
	return &node, nil
}

// Put records a freshly created or fetched node
func (c *EntityCache) Put(node *core.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[node.ID] = *node
}

// Rename updates the cached name if the node is present
func (c *EntityCache) Rename(id string, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[id]
	if !ok {
		return
	}
	node.Name = name
	node.Modified = time.Now()
	c.nodes[id] = node
}

// Forget drops the node from the cache
func (c *EntityCache) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodes, id)
}
