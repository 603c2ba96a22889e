package mcpstdio

import (
	"github.com/wagiedev/mcpstdio-go/internal/errors"
	"github.com/wagiedev/mcpstdio-go/internal/registry"
)

// Re-export error types from internal package

// Error is the base interface for all errors produced by this module.
type Error = errors.MCPStdioError

// SpawnError indicates the server process could not be launched.
type SpawnError = errors.SpawnError

// ExecutableNotFoundError indicates the executable could not be located.
type ExecutableNotFoundError = errors.ExecutableNotFoundError

// HandshakeError indicates the initialize request failed or timed out.
type HandshakeError = errors.HandshakeError

// NotConnectedError indicates a call outside the ready state.
type NotConnectedError = errors.NotConnectedError

// RequestTimeoutError indicates no response arrived within the request deadline.
type RequestTimeoutError = errors.RequestTimeoutError

// RemoteError carries the error object returned by the server.
type RemoteError = errors.RemoteError

// ConnectionClosedError indicates the connection closed while a request was outstanding.
type ConnectionClosedError = errors.ConnectionClosedError

// MalformedMessageError indicates a line from the server was not valid JSON-RPC.
type MalformedMessageError = errors.MalformedMessageError

// ChannelClosedError indicates a write on a channel whose process is not running.
type ChannelClosedError = errors.ChannelClosedError

// ProcessError indicates the server process exited on its own.
type ProcessError = errors.ProcessError

// InvalidArgumentsError indicates tool arguments failed the tool's input schema.
type InvalidArgumentsError = errors.InvalidArgumentsError

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected is matched by NotConnectedError.
	ErrNotConnected = errors.ErrNotConnected

	// ErrAlreadyConnected indicates Start was called twice.
	ErrAlreadyConnected = errors.ErrAlreadyConnected

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrRequestTimeout is matched by RequestTimeoutError.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrConnectionClosed is matched by ConnectionClosedError.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrChannelClosed is matched by ChannelClosedError.
	ErrChannelClosed = errors.ErrChannelClosed

	// ErrNoSearchTool indicates the server offers none of the known search tools.
	ErrNoSearchTool = errors.ErrNoSearchTool

	// ErrUnknownPreset indicates a preset name that is not registered.
	ErrUnknownPreset = registry.ErrUnknownPreset
)
