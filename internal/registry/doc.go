// Package registry names the MCP servers this module knows how to launch.
//
// Presets come from an embedded servers.yaml and may be overridden by a user
// file. Engine tunables are read from MCPSTDIO_* environment variables.
package registry
