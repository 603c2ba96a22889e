package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MCPStdioError is the base interface for all errors produced by this module.
type MCPStdioError interface {
	error
	IsMCPStdioError() bool
}

// Compile-time verification that all error types implement MCPStdioError.
var (
	_ MCPStdioError = (*SpawnError)(nil)
	_ MCPStdioError = (*ExecutableNotFoundError)(nil)
	_ MCPStdioError = (*HandshakeError)(nil)
	_ MCPStdioError = (*NotConnectedError)(nil)
	_ MCPStdioError = (*RequestTimeoutError)(nil)
	_ MCPStdioError = (*RemoteError)(nil)
	_ MCPStdioError = (*ConnectionClosedError)(nil)
	_ MCPStdioError = (*MalformedMessageError)(nil)
	_ MCPStdioError = (*ChannelClosedError)(nil)
	_ MCPStdioError = (*ProcessError)(nil)
	_ MCPStdioError = (*InvalidArgumentsError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected is matched by NotConnectedError.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect was called on an engine that already left the disconnected state.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrEngineClosed indicates the engine has been closed and cannot be reused.
	ErrEngineClosed = errors.New("engine closed: engines are single-use, create a new one")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one")

	// ErrRequestTimeout is matched by RequestTimeoutError.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrConnectionClosed is matched by ConnectionClosedError.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrChannelClosed is matched by ChannelClosedError.
	ErrChannelClosed = errors.New("process channel closed")

	// ErrWriteAbandoned indicates a write was cancelled part way through a line.
	// The stream is unusable afterwards.
	ErrWriteAbandoned = errors.New("write abandoned mid-line")

	// ErrNoSearchTool indicates none of the known search tools were discovered on the server.
	ErrNoSearchTool = errors.New("no search tool found")
)

// SpawnError indicates the child process could not be launched.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsMCPStdioError implements MCPStdioError.
func (e *SpawnError) IsMCPStdioError() bool { return true }

// ExecutableNotFoundError indicates the executable could not be located.
type ExecutableNotFoundError struct {
	Name          string
	SearchedPaths []string
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("executable %q not found in: %v", e.Name, e.SearchedPaths)
}

// IsMCPStdioError implements MCPStdioError.
func (e *ExecutableNotFoundError) IsMCPStdioError() bool { return true }

// HandshakeError indicates the initialize request failed or timed out.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("initialize handshake failed: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// IsMCPStdioError implements MCPStdioError.
func (e *HandshakeError) IsMCPStdioError() bool { return true }

// NotConnectedError indicates a call was issued before the engine was ready or after it closed.
type NotConnectedError struct {
	State string
}

func (e *NotConnectedError) Error() string {
	if e.State == "" {
		return ErrNotConnected.Error()
	}

	return fmt.Sprintf("not connected (state %s)", e.State)
}

// Is reports whether target is ErrNotConnected.
func (e *NotConnectedError) Is(target error) bool {
	return target == ErrNotConnected
}

// IsMCPStdioError implements MCPStdioError.
func (e *NotConnectedError) IsMCPStdioError() bool { return true }

// RequestTimeoutError indicates no response arrived within the request deadline.
type RequestTimeoutError struct {
	Method  string
	ID      int64
	Timeout time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request timeout for %s (id %d) after %s", e.Method, e.ID, e.Timeout)
}

// Is reports whether target is ErrRequestTimeout.
func (e *RequestTimeoutError) Is(target error) bool {
	return target == ErrRequestTimeout
}

// IsMCPStdioError implements MCPStdioError.
func (e *RequestTimeoutError) IsMCPStdioError() bool { return true }

// RemoteError carries the error object of a JSON-RPC response unchanged.
type RemoteError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RemoteError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("remote error %d: %s (data: %s)", e.Code, e.Message, string(e.Data))
	}

	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// IsMCPStdioError implements MCPStdioError.
func (e *RemoteError) IsMCPStdioError() bool { return true }

// ConnectionClosedError indicates the engine closed while a request was outstanding.
// Err holds the reason when the close was caused by the process exiting.
type ConnectionClosedError struct {
	Err error
}

func (e *ConnectionClosedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection closed: %v", e.Err)
	}

	return ErrConnectionClosed.Error()
}

func (e *ConnectionClosedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConnectionClosed.
func (e *ConnectionClosedError) Is(target error) bool {
	return target == ErrConnectionClosed
}

// IsMCPStdioError implements MCPStdioError.
func (e *ConnectionClosedError) IsMCPStdioError() bool { return true }

// MalformedMessageError indicates a line from the process was not a valid JSON-RPC message.
// It is logged and never returned to a caller.
type MalformedMessageError struct {
	RawData string
	Err     error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message from process: %v", e.Err)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

// IsMCPStdioError implements MCPStdioError.
func (e *MalformedMessageError) IsMCPStdioError() bool { return true }

// ChannelClosedError indicates a write was attempted on a channel whose process is not running.
type ChannelClosedError struct{}

func (e *ChannelClosedError) Error() string {
	return ErrChannelClosed.Error()
}

// Is reports whether target is ErrChannelClosed.
func (e *ChannelClosedError) Is(target error) bool {
	return target == ErrChannelClosed
}

// IsMCPStdioError implements MCPStdioError.
func (e *ChannelClosedError) IsMCPStdioError() bool { return true }

// ProcessError indicates the child process exited on its own.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("process exited (exit %d): %v", e.ExitCode, e.Err)
	}

	if e.Stderr != "" {
		return fmt.Sprintf("process exited (exit %d): %s", e.ExitCode, e.Stderr)
	}

	return fmt.Sprintf("process exited (exit %d)", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsMCPStdioError implements MCPStdioError.
func (e *ProcessError) IsMCPStdioError() bool { return true }

// InvalidArgumentsError indicates tool arguments failed the tool's advertised input schema.
type InvalidArgumentsError struct {
	Tool string
	Err  error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error {
	return e.Err
}

// IsMCPStdioError implements MCPStdioError.
func (e *InvalidArgumentsError) IsMCPStdioError() bool { return true }

// TrimStderr caps diagnostic stderr output to the last limit bytes, keeping whole lines.
func TrimStderr(stderr string, limit int) string {
	stderr = strings.TrimSpace(stderr)
	if limit <= 0 || len(stderr) <= limit {
		return stderr
	}

	tail := stderr[len(stderr)-limit:]
	if idx := strings.IndexByte(tail, '\n'); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}

	return tail
}
