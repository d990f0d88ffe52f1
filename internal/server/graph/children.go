package graph

import (
	"context"
	"errors"
	"sort"

	"github.com/pagegraph/pagegraph/internal/core"
)

// Child is one entry in an aggregated children listing
type Child struct {
	ID        string
	Name      string
	IsContent bool
	Path      string
	Kinds     []core.RelationType // every kind linking it to the parent, highest priority first
}

// listingOrder is the priority in which relation kinds contribute children
var listingOrder = []core.RelationType{core.RelationBind, core.RelationDirect, core.RelationIndirect}

// ListChildren returns the parent's children across all relation kinds.
// Bind children come first, then direct, then indirect; a child reachable
// through several kinds appears once, at its highest-priority position, with
// every kind recorded. Within one kind, entries are ordered by name.
//
// A bind child's path is the parent's slot (the parent's path without its
// trailing slash); every other child renders its own path.
func (s *Service) ListChildren(ctx context.Context, parentID string) ([]Child, error) {
	if _, err := s.entities.Get(ctx, parentID); err != nil {
		return nil, err
	}
	if err := s.rels.LoadAsParent(ctx, parentID); err != nil {
		return nil, err
	}

	var out []Child
	index := make(map[string]int)

	for _, typ := range listingOrder {
		ids, _ := s.rels.Children(parentID, typ)

		var nodes []*core.Node
		for _, id := range ids {
			if pos, ok := index[id]; ok {
				out[pos].Kinds = append(out[pos].Kinds, typ)
				continue
			}
			node, err := s.entities.Get(ctx, id)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					// Dangling relation row, skip it.
					continue
				}
				return nil, err
			}
			nodes = append(nodes, node)
		}

		sort.Slice(nodes, func(i, j int) bool {
			if nodes[i].Name != nodes[j].Name {
				return nodes[i].Name < nodes[j].Name
			}
			return nodes[i].ID < nodes[j].ID
		})

		for _, node := range nodes {
			var path string
			var err error
			if typ == core.RelationBind {
				path, err = s.resolver.slotPath(ctx, parentID)
			} else {
				path, err = s.resolver.FormatPath(ctx, node.ID)
			}
			if err != nil {
				return nil, err
			}

			out = append(out, Child{
				ID:        node.ID,
				Name:      node.Name,
				IsContent: node.IsContent,
				Path:      path,
				Kinds:     []core.RelationType{typ},
			})
			index[node.ID] = len(out) - 1
		}
	}

	return out, nil
}

// Roots lists the segments with no direct parent, ordered by name
func (s *Service) Roots(ctx context.Context) ([]Child, error) {
	nodes, err := s.store.ListRootSegments(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Child, 0, len(nodes))
	for _, node := range nodes {
		s.entities.Put(node)
		out = append(out, Child{
			ID:        node.ID,
			Name:      node.Name,
			IsContent: node.IsContent,
			Path:      "/" + node.Name + "/",
		})
	}
	return out, nil
}
