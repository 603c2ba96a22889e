package mcpstdio

import (
	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpstdio-go/internal/config"
	"github.com/wagiedev/mcpstdio-go/internal/mcp"
	"github.com/wagiedev/mcpstdio-go/internal/protocol"
	"github.com/wagiedev/mcpstdio-go/internal/registry"
)

// Options configures a client. Build it with Option functions.
type Options = config.Options

// SpawnSpec describes the process to launch: command, arguments, extra
// environment, and working directory.
type SpawnSpec = config.SpawnSpec

// Call is a request in flight, returned by Client.Go.
type Call = protocol.Call

// State is the connection state of a client.
type State = protocol.State

// Connection states.
const (
	StateDisconnected = protocol.StateDisconnected
	StateConnecting   = protocol.StateConnecting
	StateReady        = protocol.StateReady
	StateClosed       = protocol.StateClosed
)

// Tool describes a tool advertised by the server.
type Tool = mcp.Tool

// CallToolResult is the result of tools/call.
type CallToolResult = mcpgo.CallToolResult

// InitializeResult is the server's answer to initialize.
type InitializeResult = mcpgo.InitializeResult

// SearchToolNames lists the tool names Search tries, in order.
var SearchToolNames = mcp.SearchToolNames

// TextContent joins the text blocks of a tool result with newlines.
func TextContent(result *CallToolResult) string {
	return mcp.TextContent(result)
}

// ===== Presets =====

// Preset describes how to launch a known MCP server.
type Preset = registry.Preset

// Presets is a set of named presets.
type Presets = registry.Registry

// Settings holds tunables read from MCPSTDIO_* environment variables.
type Settings = registry.Settings

// DefaultPresets returns the presets shipped with the module.
func DefaultPresets() *Presets {
	return registry.Default()
}

// LoadPresets returns the default presets with the servers of the YAML file
// at path layered over them. A missing file yields the defaults.
func LoadPresets(path string) (*Presets, error) {
	return registry.Load(path)
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (*Settings, error) {
	return registry.LoadSettings()
}
