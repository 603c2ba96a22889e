package config

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// DefaultRequestTimeout is the per-request deadline when none is configured.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultStartupGrace is the wait between spawning the process and sending initialize.
	DefaultStartupGrace = 2 * time.Second

	// DefaultProtocolVersion is the MCP protocol version announced during initialize.
	DefaultProtocolVersion = "2024-11-05"

	// DefaultMaxLineSize is the largest line accepted from the process.
	DefaultMaxLineSize = 16 * 1024 * 1024

	// DefaultClientName is the clientInfo.name sent during initialize.
	DefaultClientName = "mcpstdio-go"

	// DefaultClientVersion is the clientInfo.version sent during initialize.
	DefaultClientVersion = "1.0.0"
)

// SpawnSpec describes the child process to launch.
type SpawnSpec struct {
	// Command is the executable name or path.
	Command string `yaml:"command"`

	// Args are passed to the executable verbatim.
	Args []string `yaml:"args,omitempty"`

	// Env holds additional environment variables layered over the parent environment.
	Env map[string]string `yaml:"env,omitempty"`

	// Dir is the working directory. Empty means the current directory.
	Dir string `yaml:"dir,omitempty"`
}

// Clone returns a deep copy of the spec.
func (s *SpawnSpec) Clone() *SpawnSpec {
	if s == nil {
		return nil
	}

	return &SpawnSpec{
		Command: s.Command,
		Args:    slices.Clone(s.Args),
		Env:     maps.Clone(s.Env),
		Dir:     s.Dir,
	}
}

// Options configures the behavior of the engine and its process channel.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Spawn describes the process to launch. Ignored when Transport is set.
	Spawn *SpawnSpec

	// Transport replaces the default subprocess channel.
	Transport Transport

	// StartupGrace is the wait between starting the process and sending initialize.
	// Zero disables the wait. The public client defaults it to DefaultStartupGrace.
	StartupGrace time.Duration

	// RequestTimeout is the default per-request deadline. Zero selects DefaultRequestTimeout.
	RequestTimeout time.Duration

	// HandshakeTimeout is the deadline of the initialize request. Zero selects RequestTimeout.
	HandshakeTimeout time.Duration

	// ProtocolVersion announced during initialize. Empty selects DefaultProtocolVersion.
	ProtocolVersion string

	// ClientInfo identifies this client during initialize.
	ClientInfo *mcp.Implementation

	// Capabilities announced during initialize. Nil sends an empty object.
	Capabilities map[string]any

	// Stderr receives every line the process writes to its standard error,
	// except lines matching StderrNoise.
	Stderr func(string)

	// StderrNoise lists fragments; stderr lines containing any of them are
	// logged at debug level and not passed to Stderr.
	StderrNoise []string

	// OnNotification receives server notifications (messages without an id),
	// in order, off the dispatch goroutine.
	OnNotification func(method string, params json.RawMessage)

	// MaxLineSize bounds a single line read from the process. Zero selects DefaultMaxLineSize.
	MaxLineSize int
}

// EffectiveRequestTimeout returns the configured request timeout or the default.
func (o *Options) EffectiveRequestTimeout() time.Duration {
	if o == nil || o.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}

	return o.RequestTimeout
}

// EffectiveHandshakeTimeout returns the configured handshake timeout or the request timeout.
func (o *Options) EffectiveHandshakeTimeout() time.Duration {
	if o == nil || o.HandshakeTimeout <= 0 {
		return o.EffectiveRequestTimeout()
	}

	return o.HandshakeTimeout
}

// EffectiveStartupGrace returns the configured startup grace period, never negative.
func (o *Options) EffectiveStartupGrace() time.Duration {
	if o == nil || o.StartupGrace < 0 {
		return 0
	}

	return o.StartupGrace
}

// EffectiveProtocolVersion returns the configured protocol version or the default.
func (o *Options) EffectiveProtocolVersion() string {
	if o == nil || o.ProtocolVersion == "" {
		return DefaultProtocolVersion
	}

	return o.ProtocolVersion
}

// EffectiveClientInfo returns the configured client identity or the default.
func (o *Options) EffectiveClientInfo() *mcp.Implementation {
	if o == nil || o.ClientInfo == nil {
		return &mcp.Implementation{Name: DefaultClientName, Version: DefaultClientVersion}
	}

	return o.ClientInfo
}

// EffectiveMaxLineSize returns the configured line limit or the default.
func (o *Options) EffectiveMaxLineSize() int {
	if o == nil || o.MaxLineSize <= 0 {
		return DefaultMaxLineSize
	}

	return o.MaxLineSize
}
