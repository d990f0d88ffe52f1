package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pagegraph/pagegraph/internal/core"
	"github.com/pagegraph/pagegraph/internal/server/graph"
)

// Server holds the HTTP server dependencies
type Server struct {
	svc *graph.Service
	log *slog.Logger
}

// New creates a new API server
func New(svc *graph.Service, log *slog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// NodeResponse is the wire form of a graph entity
type NodeResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func nodeResponse(n *core.Node) NodeResponse {
	return NodeResponse{
		ID:       n.ID,
		Name:     n.Name,
		Kind:     n.Kind(),
		Created:  n.Created,
		Modified: n.Modified,
	}
}

// ItemResponse is one entry of a children listing
type ItemResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ItemType string   `json:"item_type"`
	Path     string   `json:"path"`
	Kinds    []string `json:"kinds"`
}

func itemResponses(children []graph.Child) []ItemResponse {
	items := make([]ItemResponse, len(children))
	for i, c := range children {
		kinds := make([]string, len(c.Kinds))
		for j, k := range c.Kinds {
			kinds[j] = k.String()
		}
		itemType := "segment"
		if c.IsContent {
			itemType = "content"
		}
		items[i] = ItemResponse{
			ID:       c.ID,
			Name:     c.Name,
			ItemType: itemType,
			Path:     c.Path,
			Kinds:    kinds,
		}
	}
	return items
}

// Ping handles GET /ping. The endpoint always answers 200; the payload
// reports whether the store answered.
func (s *Server) Ping(w http.ResponseWriter, r *http.Request) {
	storeOK := s.svc.Ping(r.Context()) == nil
	writeEnvelope(w, http.StatusOK, Envelope{
		Code:    CodeOK,
		Message: "connection successful",
		Data:    map[string]bool{"store_ok": storeOK},
	})
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// CreateNodeRequest is the request body for creating a node
type CreateNodeRequest struct {
	Kind     string `json:"kind"`                // "segment" (default) or "content"
	Name     string `json:"name"`
	Value    string `json:"value,omitempty"`     // text payload for content nodes
	TypeCode int    `json:"type_code,omitempty"` // payload type code, defaults to text
	Binary   string `json:"binary,omitempty"`    // base64 payload, stored out of line
}

// CreateNode handles POST /api/nodes
func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.TypeCode == 0 {
		req.TypeCode = core.TypeText
	}

	var node *core.Node
	var err error
	switch req.Kind {
	case "", "segment":
		node, err = s.svc.CreateSegment(r.Context(), req.Name)
	case "content":
		if req.Binary != "" {
			data, decErr := base64.StdEncoding.DecodeString(req.Binary)
			if decErr != nil {
				http.Error(w, "binary must be base64", http.StatusBadRequest)
				return
			}
			node, err = s.svc.CreateContentBinary(r.Context(), req.Name, data, req.TypeCode)
		} else {
			node, err = s.svc.CreateContent(r.Context(), req.Name, req.Value, req.TypeCode)
		}
	default:
		http.Error(w, "kind must be segment or content", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, nodeResponse(node))
}

// GetNode handles GET /api/nodes/{id}
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	node, err := s.svc.GetNode(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, nodeResponse(node))
}

// NodePath handles GET /api/nodes/{id}/path. It returns the root-to-node ID
// chain and the rendered display path.
func (s *Server) NodePath(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ids, err := s.svc.PathToRoot(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	path, err := s.svc.FormatPath(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, map[string]any{
		"node_id": id,
		"ids":     ids,
		"path":    path,
	})
}

// NodeChildren handles GET /api/nodes/{id}/children
func (s *Server) NodeChildren(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	children, err := s.svc.ListChildren(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	items := itemResponses(children)
	writeData(w, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// RenameNodeRequest is the request body for renaming a node
type RenameNodeRequest struct {
	Name string `json:"name"`
}

// RenameNode handles PATCH /api/nodes/{id}
func (s *Server) RenameNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RenameNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := s.svc.RenameNode(r.Context(), id, req.Name); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, map[string]any{
		"id":      id,
		"name":    req.Name,
		"renamed": true,
	})
}

// DeleteNode handles DELETE /api/nodes/{id}. Every relation touching the
// node goes with it.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.svc.DeleteNode(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, map[string]any{
		"id":      id,
		"deleted": true,
	})
}

// CreateRelationRequest is the request body for linking two nodes
type CreateRelationRequest struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Type     string `json:"type"` // "direct", "indirect" or "bind"
}

// CreateRelation handles POST /api/relations
func (s *Server) CreateRelation(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ParentID == "" || req.ChildID == "" {
		http.Error(w, "parent_id and child_id are required", http.StatusBadRequest)
		return
	}
	typ, err := core.ParseRelationType(req.Type)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.svc.CreateRelation(r.Context(), typ, req.ParentID, req.ChildID); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, map[string]any{
		"parent_id": req.ParentID,
		"child_id":  req.ChildID,
		"type":      typ.String(),
		"linked":    true,
	})
}

// DeleteRelation handles DELETE /api/relations
func (s *Server) DeleteRelation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	parentID := query.Get("parent")
	childID := query.Get("child")
	typeStr := query.Get("type")

	if parentID == "" || childID == "" || typeStr == "" {
		http.Error(w, "parent, child, and type query parameters required", http.StatusBadRequest)
		return
	}
	typ, err := core.ParseRelationType(typeStr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.svc.DeleteRelation(r.Context(), typ, parentID, childID); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, map[string]any{
		"deleted": map[string]string{
			"parent": parentID,
			"child":  childID,
			"type":   typ.String(),
		},
	})
}

// ServePath handles every path-shaped GET. A trailing slash addresses a
// segment and lists its children ("/" lists the root segments); without a
// trailing slash the path addresses content and the raw payload is served
// under its MIME type. ?fetch_type=tree on a segment path returns the whole
// subtree instead of one level.
func (s *Server) ServePath(w http.ResponseWriter, r *http.Request) {
	names, trailing := graph.ParsePath(r.URL.Path)
	fetchType := r.URL.Query().Get("fetch_type")

	s.log.Debug("path request",
		"path", r.URL.Path,
		"segments", len(names),
		"trailing_slash", trailing,
		"fetch_type", fetchType)

	if trailing {
		if fetchType == "tree" {
			s.serveTree(w, r, names)
			return
		}
		s.serveListing(w, r, names)
		return
	}
	s.serveContent(w, r, names)
}

func (s *Server) serveTree(w http.ResponseWriter, r *http.Request, names []string) {
	if len(names) == 0 {
		writeEnvelope(w, http.StatusBadRequest, Envelope{
			Code:    CodeNotFound,
			Message: "cannot fetch tree for root",
		})
		return
	}

	id, err := s.svc.ResolvePath(r.Context(), names)
	if err != nil {
		writeError(w, err)
		return
	}
	tree, err := s.svc.Tree(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, map[string]any{
		"type":       "segment_tree",
		"path":       r.URL.Path,
		"segment_id": id,
		"tree":       tree,
	})
}

func (s *Server) serveListing(w http.ResponseWriter, r *http.Request, names []string) {
	if len(names) == 0 {
		roots, err := s.svc.Roots(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, map[string]any{
			"type":  "segment_list",
			"path":  r.URL.Path,
			"items": itemResponses(roots),
		})
		return
	}

	id, err := s.svc.ResolvePath(r.Context(), names)
	if err != nil {
		writeError(w, err)
		return
	}
	children, err := s.svc.ListChildren(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, map[string]any{
		"type":       "segment_list",
		"path":       r.URL.Path,
		"segment_id": id,
		"items":      itemResponses(children),
	})
}

func (s *Server) serveContent(w http.ResponseWriter, r *http.Request, names []string) {
	res, err := s.svc.ContentAt(r.Context(), names)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	if res.IsBinary {
		w.Write(res.Data)
		return
	}
	io.WriteString(w, res.Value)
}
