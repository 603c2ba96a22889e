// Package config provides configuration types for the stdio JSON-RPC client.
package config

import "context"

// Transport defines the line-oriented conduit the engine runs on.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., in-memory pipes).
//
// The default implementation is subprocess.Channel which spawns a child process.
// Custom transports can be injected via Options.Transport.
type Transport interface {
	// Start launches the underlying process and prepares it for communication.
	// This is called exactly once, before any line is written.
	Start(ctx context.Context) error

	// WriteLine writes data followed by a single newline terminator.
	// This method must be safe for concurrent use and write each line atomically.
	WriteLine(ctx context.Context, data []byte) error

	// Lines returns the sequence of complete lines received, without terminators.
	// The channel is closed when the far side closes its output or exits.
	Lines() <-chan []byte

	// Done returns a channel that is closed exactly once when the transport terminates.
	Done() <-chan struct{}

	// ExitErr returns the reason the transport terminated on its own,
	// or nil while it is still running or after it was closed.
	ExitErr() error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error
}
