// Package client handles communication with the pagegraph server API.
package client

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a pagegraph server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client. An empty baseURL targets a local server.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:18100"
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-zero envelope code returned by the server.
type APIError struct {
	Code    int
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends a request to an envelope endpoint and decodes the payload into
// out when out is non-nil.
func (c *Client) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Not an envelope (e.g. a plain-text 400), report the body as-is
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Message: env.Message, Status: resp.StatusCode}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decoding data: %w", method, path, err)
		}
	}
	return nil
}

// Ping checks the server connection.
func (c *Client) Ping() error {
	return c.do(http.MethodGet, "/ping", nil, nil)
}

// List returns the children listing at path; "/" lists the root segments.
func (c *Client) List(path string) (*Listing, error) {
	var listing Listing
	if err := c.do(http.MethodGet, listingPath(path), nil, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// Tree returns the whole subtree under the segment at path.
func (c *Client) Tree(path string) (*TreeResult, error) {
	var result TreeResult
	if err := c.do(http.MethodGet, listingPath(path)+"?fetch_type=tree", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Cat fetches the content served at path and returns the payload with its
// MIME type.
func (c *Client) Cat(path string) ([]byte, string, error) {
	endpoint := c.baseURL + contentPath(path)

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: reading response: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var env envelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Code != 0 {
			return nil, "", &APIError{Code: env.Code, Message: env.Message, Status: resp.StatusCode}
		}
		return nil, "", fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return raw, resp.Header.Get("Content-Type"), nil
}

// GetNode fetches a node by ID.
func (c *Client) GetNode(id string) (*Node, error) {
	var node Node
	if err := c.do(http.MethodGet, "/api/nodes/"+url.PathEscape(id), nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// NodePath returns a node's root-to-node ID chain and display path.
func (c *Client) NodePath(id string) (*PathInfo, error) {
	var info PathInfo
	if err := c.do(http.MethodGet, "/api/nodes/"+url.PathEscape(id)+"/path", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Children returns the aggregated children of a node by ID.
func (c *Client) Children(id string) (*ChildrenResult, error) {
	var result ChildrenResult
	if err := c.do(http.MethodGet, "/api/nodes/"+url.PathEscape(id)+"/children", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateSegment creates a segment node.
func (c *Client) CreateSegment(name string) (*Node, error) {
	return c.createNode(createNodeRequest{Kind: "segment", Name: name})
}

// CreateContent creates a content node with a text payload.
func (c *Client) CreateContent(name, value string, typeCode int) (*Node, error) {
	return c.createNode(createNodeRequest{
		Kind:     "content",
		Name:     name,
		Value:    value,
		TypeCode: typeCode,
	})
}

// CreateBinary creates a content node whose payload is stored out of line.
func (c *Client) CreateBinary(name string, data []byte, typeCode int) (*Node, error) {
	return c.createNode(createNodeRequest{
		Kind:     "content",
		Name:     name,
		Binary:   base64.StdEncoding.EncodeToString(data),
		TypeCode: typeCode,
	})
}

func (c *Client) createNode(req createNodeRequest) (*Node, error) {
	var node Node
	if err := c.do(http.MethodPost, "/api/nodes", req, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// Rename changes a node's display name.
func (c *Client) Rename(id, name string) error {
	return c.do(http.MethodPatch, "/api/nodes/"+url.PathEscape(id), renameRequest{Name: name}, nil)
}

// DeleteNode deletes a node and every relation touching it.
func (c *Client) DeleteNode(id string) error {
	return c.do(http.MethodDelete, "/api/nodes/"+url.PathEscape(id), nil, nil)
}

// Link creates a typed relation between two nodes.
func (c *Client) Link(parentID, childID, relType string) error {
	return c.do(http.MethodPost, "/api/relations", relationRequest{
		ParentID: parentID,
		ChildID:  childID,
		Type:     relType,
	}, nil)
}

// Unlink deletes a relation.
func (c *Client) Unlink(parentID, childID, relType string) error {
	q := url.Values{}
	q.Set("parent", parentID)
	q.Set("child", childID)
	q.Set("type", relType)
	return c.do(http.MethodDelete, "/api/relations?"+q.Encode(), nil, nil)
}

// listingPath normalizes p to address a segment listing ("/docs/").
func listingPath(p string) string {
	p = contentPath(p)
	if p == "/" {
		return p
	}
	return p + "/"
}

// contentPath normalizes p to address content ("/docs/readme").
func contentPath(p string) string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return "/"
	}
	segs := strings.Split(trimmed, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segs, "/")
}
