package mcpstdio

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client, starts it with the provided options, executes the
// callback function, and ensures proper cleanup via Close() when done.
//
// The callback receives a client that has completed the handshake.
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := mcpstdio.WithClient(ctx, func(c mcpstdio.Client) error {
//	    result, err := c.CallTool(ctx, "get_transcript", map[string]any{
//	        "url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
//	    })
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(mcpstdio.TextContent(result))
//	    return nil
//	},
//	    mcpstdio.WithLogger(log),
//	    mcpstdio.WithPreset(youtube),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	return fn(client)
}
