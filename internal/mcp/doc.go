// Package mcp implements the Model Context Protocol methods a client issues
// over the JSON-RPC engine.
//
// It builds the initialize payload, discovers the server's tools with
// tools/list, keeps them in a catalog, and invokes them with tools/call.
// Arguments are checked against a tool's advertised input schema before the
// call is sent; the check is skipped for tools the server never listed, which
// are attempted anyway. Results decode into the official SDK's CallToolResult.
package mcp
