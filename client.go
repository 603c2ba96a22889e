package mcpstdio

import (
	"context"
	"encoding/json"
	"time"
)

// Client drives one MCP server over the standard streams of a child process.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := mcpstdio.NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    mcpstdio.WithLogger(slog.Default()),
//	    mcpstdio.WithCommand("docker", "run", "-i", "--rm", "mcp/duckduckgo"),
//	    mcpstdio.WithStartupGrace(3*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tools, err := client.DiscoverTools(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Search(ctx, "model context protocol", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(mcpstdio.TextContent(result))
type Client interface {
	// Start spawns the server, waits the startup grace period, and performs
	// the initialize handshake. Must be called before any other methods.
	// Returns SpawnError if the process cannot be launched and HandshakeError
	// if initialize fails or times out.
	Start(ctx context.Context, opts ...Option) error

	// Call sends a request with the default timeout and waits for its result.
	// Returns RemoteError, RequestTimeoutError, ConnectionClosedError, or
	// NotConnectedError.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// CallWithTimeout is Call with a per-request deadline.
	CallWithTimeout(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error)

	// Go sends a request without waiting. A zero timeout selects the default.
	Go(ctx context.Context, method string, params any, timeout time.Duration) (*Call, error)

	// Notify sends a notification, which has no response.
	Notify(ctx context.Context, method string, params any) error

	// DiscoverTools lists the server's tools with tools/list.
	DiscoverTools(ctx context.Context) ([]*Tool, error)

	// Tools returns the tools found by the last DiscoverTools call.
	Tools() []*Tool

	// CallTool invokes a tool with tools/call. Arguments are checked against
	// the tool's input schema when it was discovered.
	CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error)

	// Search calls the first search tool the server offers with the query.
	// Returns ErrNoSearchTool when there is none.
	Search(ctx context.Context, query string, extra map[string]any) (*CallToolResult, error)

	// State returns the connection state.
	State() State

	// ServerInfo returns the server's initialize result, or nil before the handshake.
	ServerInfo() *InitializeResult

	// Close kills the server and fails every outstanding call with
	// ConnectionClosedError. It's safe to call Close multiple times.
	Close() error
}

// NewClient creates a new client.
func NewClient() Client {
	return newClientImpl()
}
