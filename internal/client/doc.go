// Package client wires a process channel, an RPC engine, and an MCP session
// into a single-use client.
//
// Start chooses the transport (an injected one, or a subprocess.Channel built
// from the spawn specification), connects the engine, and exposes both raw
// JSON-RPC calls and the MCP tool helpers. Close tears everything down.
package client
