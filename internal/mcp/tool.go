package mcp

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool describes a tool advertised by the server in tools/list.
type Tool struct {
	Name        string             `json:"name"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty"`

	resolveOnce sync.Once
	resolved    *jsonschema.Resolved
	resolveErr  error
}

// MCP converts the descriptor to the official SDK's tool type.
func (t *Tool) MCP() *mcp.Tool {
	tool := &mcp.Tool{
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
	}

	if t.InputSchema != nil {
		tool.InputSchema = t.InputSchema
	}

	return tool
}

// Validate checks args against the tool's input schema.
//
// A tool without a schema, or with one that cannot be resolved (see
// Resolvable), accepts anything.
func (t *Tool) Validate(args map[string]any) error {
	if t.InputSchema == nil {
		return nil
	}

	resolved, err := t.resolve()
	if err != nil {
		return nil //nolint:nilerr // An unresolvable schema disables validation
	}

	instance, err := toJSONValue(args)
	if err != nil {
		return err
	}

	if instance == nil {
		instance = map[string]any{}
	}

	return resolved.Validate(instance)
}

// Resolvable reports whether the input schema can be used for validation.
func (t *Tool) Resolvable() error {
	if t.InputSchema == nil {
		return nil
	}

	_, err := t.resolve()

	return err
}

func (t *Tool) resolve() (*jsonschema.Resolved, error) {
	t.resolveOnce.Do(func() {
		t.resolved, t.resolveErr = t.InputSchema.Resolve(nil)
		if t.resolveErr != nil {
			t.resolveErr = fmt.Errorf("resolve input schema of %s: %w", t.Name, t.resolveErr)
		}
	})

	return t.resolved, t.resolveErr
}

// toJSONValue normalizes Go values to what a JSON decoder would produce, so
// integers, structs, and typed maps validate the way the server will see them.
func toJSONValue(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal arguments: %w", err)
	}

	return out, nil
}

// catalog is the ordered set of discovered tools.
type catalog struct {
	mu     sync.RWMutex
	loaded bool
	tools  []*Tool
	byName map[string]*Tool
}

func (c *catalog) replace(tools []*Tool) {
	byName := make(map[string]*Tool, len(tools))
	for _, tool := range tools {
		byName[tool.Name] = tool
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.loaded = true
	c.tools = tools
	c.byName = byName
}

func (c *catalog) snapshot() []*Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Tool, len(c.tools))
	copy(out, c.tools)

	return out
}

func (c *catalog) lookup(name string) (*Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tool, ok := c.byName[name]

	return tool, ok
}

func (c *catalog) isLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.loaded
}
