package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pagegraph/pagegraph/internal/core"
)

// ParsePath splits a URL path into name segments and reports whether it ended
// with a slash. "/docs/readme" gives ["docs","readme"] and false; "/" gives
// nil and true.
func ParsePath(raw string) ([]string, bool) {
	trailing := strings.HasSuffix(raw, "/")
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return nil, trailing
	}
	return strings.Split(trimmed, "/"), trailing
}

// ResolvePath walks the tree by display names and returns the ID of the node
// the path addresses. The first name selects a root segment; each further
// name selects a direct child of the current node.
func (s *Service) ResolvePath(ctx context.Context, names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("%w: empty path", core.ErrNotFound)
	}

	roots, err := s.store.ListRootSegments(ctx)
	if err != nil {
		return "", err
	}

	cur := ""
	for _, root := range roots {
		if root.Name == names[0] {
			cur = root.ID
			s.entities.Put(root)
			break
		}
	}
	if cur == "" {
		return "", fmt.Errorf("%w: path segment %q", core.ErrNotFound, names[0])
	}

	for _, name := range names[1:] {
		if err := s.rels.LoadAsParent(ctx, cur); err != nil {
			return "", err
		}
		ids, _ := s.rels.Children(cur, core.RelationDirect)

		next := ""
		for _, id := range ids {
			node, err := s.entities.Get(ctx, id)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					continue
				}
				return "", err
			}
			if node.Name == name {
				next = id
				break
			}
		}
		if next == "" {
			return "", fmt.Errorf("%w: path segment %q", core.ErrNotFound, name)
		}
		cur = next
	}

	return cur, nil
}

// ContentResult is a resolved content payload ready to serve
type ContentResult struct {
	NodeID      string
	TypeCode    int
	ContentType string
	Value       string
	Data        []byte
	IsBinary    bool
}

// ContentAt resolves a path by names and returns the content served there
func (s *Service) ContentAt(ctx context.Context, names []string) (*ContentResult, error) {
	id, err := s.ResolvePath(ctx, names)
	if err != nil {
		return nil, err
	}
	return s.ContentOf(ctx, id)
}

// ContentOf returns the content payload served for a node. A content node
// serves its own payload. A segment serves its attached content, chosen by
// relation kind: bind wins over direct, direct over indirect.
func (s *Service) ContentOf(ctx context.Context, id string) (*ContentResult, error) {
	node, err := s.entities.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	contentID := id
	if !node.IsContent {
		contentID, err = s.attachedContent(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	content, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("%w: node %s", core.ErrNoContent, contentID)
		}
		return nil, err
	}

	if binID, ok := core.BinaryRef(content.Value); ok {
		binary, err := s.store.GetBinary(ctx, binID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", core.ErrBinaryMissing, binID)
			}
			return nil, err
		}
		return &ContentResult{
			NodeID:      contentID,
			TypeCode:    content.TypeCode,
			ContentType: core.BinaryContentTypeFor(content.TypeCode),
			Data:        binary.Data,
			IsBinary:    true,
		}, nil
	}

	return &ContentResult{
		NodeID:      contentID,
		TypeCode:    content.TypeCode,
		ContentType: core.ContentTypeFor(content.TypeCode),
		Value:       content.Value,
	}, nil
}

// attachedContent picks the content node a segment serves
func (s *Service) attachedContent(ctx context.Context, segmentID string) (string, error) {
	if err := s.rels.LoadAsParent(ctx, segmentID); err != nil {
		return "", err
	}

	for _, typ := range listingOrder {
		ids, _ := s.rels.Children(segmentID, typ)
		for _, id := range ids {
			child, err := s.entities.Get(ctx, id)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					continue
				}
				return "", err
			}
			if child.IsContent {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("%w: segment %s", core.ErrNoContent, segmentID)
}

// TreeNode is one node of a recursive subtree listing
type TreeNode struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Tree returns the subtree of direct children under a node, with children
// ordered by name at every level. Revisiting a node through a direct cycle
// fails with a *core.CycleError.
func (s *Service) Tree(ctx context.Context, id string) (*TreeNode, error) {
	return s.treeNode(ctx, id, make(map[string]bool), nil)
}

func (s *Service) treeNode(ctx context.Context, id string, visited map[string]bool, trail []string) (*TreeNode, error) {
	if visited[id] {
		return nil, &core.CycleError{Path: append(trail, id)}
	}
	visited[id] = true
	trail = append(trail, id)

	node, err := s.entities.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	t := &TreeNode{ID: node.ID, Name: node.Name, Kind: node.Kind()}

	if err := s.rels.LoadAsParent(ctx, id); err != nil {
		return nil, err
	}
	ids, _ := s.rels.Children(id, core.RelationDirect)

	var children []*core.Node
	for _, childID := range ids {
		child, err := s.entities.Get(ctx, childID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return nil, err
		}
		children = append(children, child)
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].Name != children[j].Name {
			return children[i].Name < children[j].Name
		}
		return children[i].ID < children[j].ID
	})

	for _, child := range children {
		sub, err := s.treeNode(ctx, child.ID, visited, trail)
		if err != nil {
			return nil, err
		}
		t.Children = append(t.Children, sub)
	}

	return t, nil
}
