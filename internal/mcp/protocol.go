package mcp

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpstdio-go/internal/config"
)

// MCP method names used over the engine.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// InitializeParams is the payload of the initialize request.
//
// Wire format:
//
//	{
//	  "protocolVersion": "2024-11-05",
//	  "capabilities": {},
//	  "clientInfo": {"name": "mcpstdio-go", "version": "1.0.0"}
//	}
type InitializeParams struct {
	ProtocolVersion string              `json:"protocolVersion"`
	Capabilities    map[string]any      `json:"capabilities"`
	ClientInfo      *mcp.Implementation `json:"clientInfo"`
}

// NewInitializeParams builds the initialize payload from options, applying defaults.
func NewInitializeParams(opts *config.Options) *InitializeParams {
	capabilities := make(map[string]any, 2)

	if opts != nil && opts.Capabilities != nil {
		maps.Copy(capabilities, opts.Capabilities)
	}

	return &InitializeParams{
		ProtocolVersion: opts.EffectiveProtocolVersion(),
		Capabilities:    capabilities,
		ClientInfo:      opts.EffectiveClientInfo(),
	}
}

// DecodeInitializeResult parses the result of the initialize request.
func DecodeInitializeResult(raw json.RawMessage) (*mcp.InitializeResult, error) {
	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode initialize result: %w", err)
	}

	return &result, nil
}
