package mcpstdio

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wagiedev/mcpstdio-go/internal/client"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl() Client {
	return &clientWrapper{impl: client.New()}
}

func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptions(opts))
}

func (c *clientWrapper) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.impl.Call(ctx, method, params)
}

func (c *clientWrapper) CallWithTimeout(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, error) {
	return c.impl.CallWithTimeout(ctx, method, params, timeout)
}

func (c *clientWrapper) Go(ctx context.Context, method string, params any, timeout time.Duration) (*Call, error) {
	return c.impl.Go(ctx, method, params, timeout)
}

func (c *clientWrapper) Notify(ctx context.Context, method string, params any) error {
	return c.impl.Notify(ctx, method, params)
}

func (c *clientWrapper) DiscoverTools(ctx context.Context) ([]*Tool, error) {
	return c.impl.DiscoverTools(ctx)
}

func (c *clientWrapper) Tools() []*Tool {
	return c.impl.Tools()
}

func (c *clientWrapper) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	return c.impl.CallTool(ctx, name, args)
}

func (c *clientWrapper) Search(ctx context.Context, query string, extra map[string]any) (*CallToolResult, error) {
	return c.impl.Search(ctx, query, extra)
}

func (c *clientWrapper) State() State {
	return c.impl.State()
}

func (c *clientWrapper) ServerInfo() *InitializeResult {
	return c.impl.ServerInfo()
}

func (c *clientWrapper) Close() error {
	return c.impl.Close()
}
