package mcpstdio_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpstdio "github.com/wagiedev/mcpstdio-go"
	"github.com/wagiedev/mcpstdio-go/internal/mcptest"
)

func TestWithClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := mcpstdio.WithClient(ctx, func(_ mcpstdio.Client) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithClient_CallbackError(t *testing.T) {
	errCallback := errors.New("callback failed")

	var seen mcpstdio.Client

	err := mcpstdio.WithClient(context.Background(), func(c mcpstdio.Client) error {
		seen = c

		return errCallback
	},
		mcpstdio.WithTransport(mcptest.NewTransport(mcptest.NewDefaultServer())),
		mcpstdio.WithStartupGrace(0),
	)
	require.ErrorIs(t, err, errCallback)

	require.NotNil(t, seen)
	assert.Equal(t, mcpstdio.StateClosed, seen.State(), "client must be closed after the callback")
}

func TestWithClient_OptionsPassedToStart(t *testing.T) {
	err := mcpstdio.WithClient(context.Background(), func(c mcpstdio.Client) error {
		info := c.ServerInfo()
		require.NotNil(t, info)
		assert.Equal(t, "2025-03-26", info.ProtocolVersion, "fake server echoes the requested version")

		result, err := c.CallTool(context.Background(), "add", map[string]any{"a": 2, "b": 3})
		if err != nil {
			return err
		}

		assert.Equal(t, "5", mcpstdio.TextContent(result))

		return nil
	},
		mcpstdio.WithTransport(mcptest.NewTransport(mcptest.NewDefaultServer())),
		mcpstdio.WithStartupGrace(0),
		mcpstdio.WithProtocolVersion("2025-03-26"),
	)
	require.NoError(t, err)
}

func TestWithClient_StartFailure(t *testing.T) {
	err := mcpstdio.WithClient(context.Background(), func(mcpstdio.Client) error {
		t.Error("callback should not be called when Start fails")

		return nil
	}, mcpstdio.WithCommand("definitely-not-an-mcp-server-binary"))

	_, ok := errors.AsType[*mcpstdio.SpawnError](err)
	require.True(t, ok, "expected SpawnError, got %v", err)
}
