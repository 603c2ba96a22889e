package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpstdio-go/internal/errors"
)

// maxToolPages bounds tools/list pagination against a server that never stops.
const maxToolPages = 100

// SearchToolNames lists the tool names Search tries, in order.
var SearchToolNames = []string{"search", "search_repositories", "search_stories", "web_search"}

// Caller issues JSON-RPC requests. It is satisfied by protocol.Engine.
type Caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Session issues MCP tool methods through a Caller and remembers the tools it discovered.
type Session struct {
	log    *slog.Logger
	caller Caller
	tools  catalog
}

// NewSession creates a session over caller.
func NewSession(log *slog.Logger, caller Caller) *Session {
	return &Session{
		log:    log.With("component", "mcp_session"),
		caller: caller,
	}
}

type listToolsParams struct {
	Cursor string `json:"cursor"`
}

type listToolsResult struct {
	Tools      []*Tool `json:"tools"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// DiscoverTools lists the server's tools and replaces the catalog with them.
//
// The first tools/list request carries no params. When the server paginates,
// following pages are requested with its cursor.
func (s *Session) DiscoverTools(ctx context.Context) ([]*Tool, error) {
	var (
		tools  []*Tool
		params any
	)

	for page := 0; ; page++ {
		if page == maxToolPages {
			return nil, fmt.Errorf("%s: more than %d pages", MethodToolsList, maxToolPages)
		}

		raw, err := s.caller.Call(ctx, MethodToolsList, params)
		if err != nil {
			return nil, err
		}

		var result listToolsResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("decode %s result: %w", MethodToolsList, err)
		}

		for _, tool := range result.Tools {
			if tool == nil || tool.Name == "" {
				s.log.Debug("Skipping tool entry without a name", "page", page)

				continue
			}

			tools = append(tools, tool)
		}

		if result.NextCursor == "" {
			break
		}

		params = &listToolsParams{Cursor: result.NextCursor}
	}

	for _, tool := range tools {
		if err := tool.Resolvable(); err != nil {
			s.log.Debug("Tool schema cannot be validated locally", "tool", tool.Name, "error", err)
		}
	}

	s.tools.replace(tools)
	s.log.Debug("Discovered tools", "count", len(tools))

	return s.tools.snapshot(), nil
}

// Tools returns the tools found by the last DiscoverTools call.
func (s *Session) Tools() []*Tool {
	return s.tools.snapshot()
}

// Tool looks up a discovered tool by name.
func (s *Session) Tool(name string) (*Tool, bool) {
	return s.tools.lookup(name)
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallTool invokes a tool with tools/call.
//
// Arguments are omitted from the request when empty. When the tool was
// discovered and advertises an input schema, args are validated first and
// InvalidArgumentsError is returned on mismatch. A tool that was never
// discovered is attempted anyway.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if tool, ok := s.tools.lookup(name); ok {
		if err := tool.Validate(args); err != nil {
			return nil, &errors.InvalidArgumentsError{Tool: name, Err: err}
		}
	} else if s.tools.isLoaded() {
		s.log.Debug("Calling tool the server did not list", "tool", name)
	}

	raw, err := s.caller.Call(ctx, MethodToolsCall, &callToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}

	var result mcp.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", MethodToolsCall, err)
	}

	return &result, nil
}

// Search calls the first known search tool with {"query": query} merged with extra.
//
// Tools are discovered first if that has not happened yet. Returns
// ErrNoSearchTool when the server offers none of SearchToolNames.
func (s *Session) Search(ctx context.Context, query string, extra map[string]any) (*mcp.CallToolResult, error) {
	if !s.tools.isLoaded() {
		if _, err := s.DiscoverTools(ctx); err != nil {
			return nil, fmt.Errorf("discover tools: %w", err)
		}
	}

	for _, name := range SearchToolNames {
		if _, ok := s.tools.lookup(name); !ok {
			continue
		}

		args := make(map[string]any, len(extra)+1)
		maps.Copy(args, extra)
		args["query"] = query

		s.log.Debug("Searching", "tool", name)

		return s.CallTool(ctx, name, args)
	}

	return nil, errors.ErrNoSearchTool
}

// TextContent joins the text blocks of a tool result with newlines.
func TextContent(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var parts []string

	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}

	return strings.Join(parts, "\n")
}
