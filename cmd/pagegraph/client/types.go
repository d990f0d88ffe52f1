package client

import "time"

// Node is a graph entity as the API reports it.
type Node struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Item is one entry of a children listing.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ItemType string   `json:"item_type"`
	Path     string   `json:"path"`
	Kinds    []string `json:"kinds"`
}

// Listing is a segment's children listing.
type Listing struct {
	Type      string `json:"type"`
	Path      string `json:"path"`
	SegmentID string `json:"segment_id"`
	Items     []Item `json:"items"`
}

// TreeNode is one node of a recursive subtree listing.
type TreeNode struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Children []*TreeNode `json:"children"`
}

// TreeResult is a whole subtree fetch.
type TreeResult struct {
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	SegmentID string    `json:"segment_id"`
	Tree      *TreeNode `json:"tree"`
}

// PathInfo is a node's resolved location.
type PathInfo struct {
	NodeID string   `json:"node_id"`
	IDs    []string `json:"ids"`
	Path   string   `json:"path"`
}

// ChildrenResult is an aggregated children listing by node ID.
type ChildrenResult struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

type createNodeRequest struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Value    string `json:"value,omitempty"`
	TypeCode int    `json:"type_code,omitempty"`
	Binary   string `json:"binary,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type relationRequest struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Type     string `json:"type"`
}
