package mcpstdio

import (
	"encoding/json"
	"log/slog"
	"maps"
	"time"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpstdio-go/internal/config"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options over the public defaults.
func applyOptions(opts []Option) *Options {
	options := &Options{StartupGrace: config.DefaultStartupGrace}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// spawn returns the spawn specification, creating an empty one when unset.
func spawn(o *Options) *SpawnSpec {
	if o.Spawn == nil {
		o.Spawn = &SpawnSpec{}
	}

	return o.Spawn
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// ===== Process =====

// WithCommand sets the executable to launch and, optionally, its arguments.
// Names without a path separator are searched in PATH.
func WithCommand(command string, args ...string) Option {
	return func(o *Options) {
		spec := spawn(o)
		spec.Command = command

		if len(args) > 0 {
			spec.Args = args
		}
	}
}

// WithArgs sets the arguments passed to the executable.
func WithArgs(args ...string) Option {
	return func(o *Options) {
		spawn(o).Args = args
	}
}

// WithEnv provides additional environment variables for the process.
// They are layered over the parent environment.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		spec := spawn(o)
		if spec.Env == nil {
			spec.Env = make(map[string]string, len(env))
		}

		maps.Copy(spec.Env, env)
	}
}

// WithCwd sets the working directory for the process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		spawn(o).Dir = cwd
	}
}

// WithSpawnSpec replaces the whole spawn specification.
func WithSpawnSpec(spec *SpawnSpec) Option {
	return func(o *Options) {
		o.Spawn = spec.Clone()
	}
}

// WithPreset launches a known server. The preset's spawn specification,
// timeouts, and stderr noise filter are applied; later options override them.
func WithPreset(preset *Preset) Option {
	return func(o *Options) {
		o.Spawn = preset.SpawnSpec("")

		if preset.StartupGrace > 0 {
			o.StartupGrace = preset.StartupGrace
		}

		if preset.RequestTimeout > 0 {
			o.RequestTimeout = preset.RequestTimeout
		}

		o.StderrNoise = append(o.StderrNoise, preset.NoiseFilter()...)
	}
}

// WithTransport injects a custom transport in place of the process channel.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}

// WithMaxLineSize bounds a single line read from the process.
// Longer lines are dropped.
func WithMaxLineSize(size int) Option {
	return func(o *Options) {
		o.MaxLineSize = size
	}
}

// ===== Timing =====

// WithStartupGrace sets the wait between spawning the process and sending
// initialize. Zero disables the wait. Defaults to two seconds.
func WithStartupGrace(grace time.Duration) Option {
	return func(o *Options) {
		o.StartupGrace = grace
	}
}

// WithRequestTimeout sets the default per-request deadline.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = timeout
	}
}

// WithHandshakeTimeout sets the deadline of the initialize request.
// Defaults to the request timeout.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.HandshakeTimeout = timeout
	}
}

// ===== Handshake =====

// WithProtocolVersion sets the MCP protocol version announced during initialize.
func WithProtocolVersion(version string) Option {
	return func(o *Options) {
		o.ProtocolVersion = version
	}
}

// WithClientInfo sets the client identity sent during initialize.
func WithClientInfo(name, version string) Option {
	return func(o *Options) {
		o.ClientInfo = &mcpgo.Implementation{Name: name, Version: version}
	}
}

// WithCapabilities sets the client capabilities announced during initialize.
func WithCapabilities(capabilities map[string]any) Option {
	return func(o *Options) {
		o.Capabilities = capabilities
	}
}

// ===== Callbacks =====

// WithStderr sets a callback receiving the lines the process writes to stderr.
// Without it, stderr lines are logged.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithStderrNoiseFilter drops stderr lines containing any of the fragments
// before they reach the stderr callback. They are still logged at debug level.
func WithStderrNoiseFilter(fragments ...string) Option {
	return func(o *Options) {
		o.StderrNoise = append(o.StderrNoise, fragments...)
	}
}

// WithNotificationHandler sets a callback receiving server notifications.
// Notifications arrive in order on a goroutine of their own, so the handler
// may call Close. A handler that falls far behind loses notifications.
func WithNotificationHandler(handler func(method string, params json.RawMessage)) Option {
	return func(o *Options) {
		o.OnNotification = handler
	}
}
