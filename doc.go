// Package mcpstdio drives MCP servers that speak newline-delimited JSON-RPC 2.0
// over the standard streams of a child process.
//
// Each backend is described by a spawn specification (command, arguments,
// environment, working directory), so one client serves every stdio server:
// a YouTube transcript container, the GitHub server, a local binary.
//
// # Basic Usage
//
// Use WithClient for automatic lifecycle management:
//
//	err := mcpstdio.WithClient(ctx, func(c mcpstdio.Client) error {
//	    tools, err := c.DiscoverTools(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    for _, tool := range tools {
//	        fmt.Println(tool.Name, "-", tool.Description)
//	    }
//	    return nil
//	},
//	    mcpstdio.WithCommand("docker", "run", "-i", "--rm", "mcp/hackernews-mcp"),
//	)
//
// # Lifecycle
//
// Start spawns the process, waits a startup grace period (two seconds by
// default, see WithStartupGrace), sends initialize followed by the
// notifications/initialized notification, and only then reports ready.
// Close kills the process; every outstanding call fails with
// ConnectionClosedError. A process that exits on its own has the same effect,
// with the ProcessError available through errors.As. Clients are single-use.
//
// # Calls
//
// Requests carry integer ids starting at 1. Each has its own deadline
// (WithRequestTimeout, CallWithTimeout) and resolves exactly once with a
// result, a RemoteError, a RequestTimeoutError, or ConnectionClosedError.
// Responses may arrive in any order; responses to unknown ids are ignored.
//
// # Presets
//
// DefaultPresets and LoadPresets describe known servers. WithPreset applies
// one:
//
//	presets := mcpstdio.DefaultPresets()
//	ddg, err := presets.Get("duckduckgo")
//	if err != nil {
//	    return err
//	}
//	client := mcpstdio.NewClient()
//	err = client.Start(ctx, mcpstdio.WithPreset(ddg))
//
// # Error Handling
//
// Errors can be checked with errors.Is and errors.As:
//
//	result, err := client.CallTool(ctx, "search", map[string]any{"query": "go"})
//	if _, ok := errors.AsType[*mcpstdio.RemoteError](err); ok {
//	    // The server rejected the call.
//	}
//	if errors.Is(err, mcpstdio.ErrRequestTimeout) {
//	    // No response within the deadline.
//	}
package mcpstdio
