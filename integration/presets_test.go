//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	mcpstdio "github.com/wagiedev/mcpstdio-go"
)

func TestPresets_DiscoverTools(t *testing.T) {
	skipIfDockerUnavailable(t)

	tests := []struct {
		name string
		env  []string
	}{
		{name: "youtube"},
		{name: "hackernews"},
		{name: "duckduckgo"},
		{name: "github", env: []string{"GITHUB_PERSONAL_ACCESS_TOKEN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := preset(t, tt.name, tt.env...)

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			err := mcpstdio.WithClient(ctx, func(c mcpstdio.Client) error {
				require.Equal(t, mcpstdio.StateReady, c.State())

				tools, err := c.DiscoverTools(ctx)
				require.NoError(t, err)
				require.NotEmpty(t, tools, "server should advertise tools")

				return nil
			}, mcpstdio.WithPreset(p))
			skipIfSpawnFailed(t, err)
			require.NoError(t, err)
		})
	}
}

func TestPresets_Search(t *testing.T) {
	skipIfDockerUnavailable(t)

	p := preset(t, "duckduckgo")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	err := mcpstdio.WithClient(ctx, func(c mcpstdio.Client) error {
		result, err := c.Search(ctx, "model context protocol", nil)
		require.NoError(t, err)
		require.NotEmpty(t, mcpstdio.TextContent(result))

		return nil
	}, mcpstdio.WithPreset(p))
	skipIfSpawnFailed(t, err)
	require.NoError(t, err)
}
