package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpstdio-go/internal/config"
	"github.com/wagiedev/mcpstdio-go/internal/errors"
	"github.com/wagiedev/mcpstdio-go/internal/mcp"
	"github.com/wagiedev/mcpstdio-go/internal/protocol"
	"github.com/wagiedev/mcpstdio-go/internal/subprocess"
)

// Client ties a transport, an engine, and an MCP session together.
type Client struct {
	log       *slog.Logger
	options   *config.Options
	transport config.Transport
	engine    *protocol.Engine
	session   *mcp.Session

	// Lifecycle management
	mu        sync.Mutex
	started   bool
	closed    bool
	closeOnce sync.Once
}

// New creates a new client.
//
// The client is not connected after creation. Call Start() with options to connect.
func New() *Client {
	return &Client{}
}

// Start launches the server and completes the handshake.
//
// The startup context bounds only the connection phase; the client stays
// connected after it ends until Close is called.
//
// Returns SpawnError if the process cannot be launched and HandshakeError if
// the server does not complete initialize. A client that failed to start is
// closed.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	engine, err := c.prepare(options)
	if err != nil {
		return err
	}

	// The lock is not held while connecting so Close can interrupt the handshake.
	if err := engine.Connect(ctx); err != nil {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		return err
	}

	c.log.Info("Client started", "conn_id", engine.ConnID())

	return nil
}

// prepare builds the transport, engine, and session for Start.
func (c *Client) prepare(options *config.Options) (*protocol.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.ErrClientClosed
	}

	if c.started {
		return nil, errors.ErrAlreadyConnected
	}

	c.started = true

	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	c.log = log.With("component", "client")
	c.options = options

	if options.Transport != nil {
		c.transport = options.Transport

		c.log.Debug("Using injected custom transport")
	} else {
		c.transport = subprocess.NewChannel(log, options.Spawn, c.stderrSink(), options.EffectiveMaxLineSize())
	}

	c.engine = protocol.NewEngine(log, c.transport, options)
	c.session = mcp.NewSession(log, c.engine)

	return c.engine, nil
}

// stderrSink routes process stderr lines to the configured callback,
// demoting noise to debug logs.
func (c *Client) stderrSink() func(string) {
	noise := c.options.StderrNoise
	sink := c.options.Stderr
	log := c.log.With("stream", "stderr")

	return func(line string) {
		for _, fragment := range noise {
			if fragment != "" && strings.Contains(line, fragment) {
				log.Debug("Server output", "line", line)

				return
			}
		}

		if sink != nil {
			sink(line)

			return
		}

		log.Info("Server output", "line", line)
	}
}

// engineOrErr returns the engine once Start has been called.
func (c *Client) engineOrErr() (*protocol.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return nil, &errors.NotConnectedError{State: protocol.StateDisconnected.String()}
	}

	return c.engine, nil
}

// Call sends a request with the default timeout and waits for its result.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	engine, err := c.engineOrErr()
	if err != nil {
		return nil, err
	}

	return engine.Call(ctx, method, params)
}

// CallWithTimeout sends a request with its own deadline and waits for its result.
func (c *Client) CallWithTimeout(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, error) {
	engine, err := c.engineOrErr()
	if err != nil {
		return nil, err
	}

	return engine.CallWithTimeout(ctx, method, params, timeout)
}

// Go sends a request and returns its pending call without waiting.
func (c *Client) Go(ctx context.Context, method string, params any, timeout time.Duration) (*protocol.Call, error) {
	engine, err := c.engineOrErr()
	if err != nil {
		return nil, err
	}

	return engine.Go(ctx, method, params, timeout)
}

// Notify sends a notification.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	engine, err := c.engineOrErr()
	if err != nil {
		return err
	}

	return engine.Notify(ctx, method, params)
}

// DiscoverTools lists the server's tools.
func (c *Client) DiscoverTools(ctx context.Context) ([]*mcp.Tool, error) {
	if _, err := c.engineOrErr(); err != nil {
		return nil, err
	}

	return c.session.DiscoverTools(ctx)
}

// Tools returns the tools found by the last DiscoverTools call.
func (c *Client) Tools() []*mcp.Tool {
	if _, err := c.engineOrErr(); err != nil {
		return []*mcp.Tool{}
	}

	return c.session.Tools()
}

// CallTool invokes a tool.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcpgo.CallToolResult, error) {
	if _, err := c.engineOrErr(); err != nil {
		return nil, err
	}

	return c.session.CallTool(ctx, name, args)
}

// Search calls the server's search tool.
func (c *Client) Search(ctx context.Context, query string, extra map[string]any) (*mcpgo.CallToolResult, error) {
	if _, err := c.engineOrErr(); err != nil {
		return nil, err
	}

	return c.session.Search(ctx, query, extra)
}

// State returns the engine state.
func (c *Client) State() protocol.State {
	engine, err := c.engineOrErr()
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed {
			return protocol.StateClosed
		}

		return protocol.StateDisconnected
	}

	return engine.State()
}

// ServerInfo returns the server's initialize result, or nil before the handshake.
func (c *Client) ServerInfo() *mcpgo.InitializeResult {
	engine, err := c.engineOrErr()
	if err != nil {
		return nil
	}

	return engine.ServerInfo()
}

// Close terminates the server and fails outstanding calls.
//
// After Close(), the client cannot be reused - create a new client with New().
// This method is safe to call multiple times.
func (c *Client) Close() error {
	var closeErr error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		engine := c.engine
		c.mu.Unlock()

		if engine == nil {
			return
		}

		c.log.Info("Closing client")

		closeErr = engine.Close()

		c.log.Info("Client closed")
	})

	return closeErr
}
