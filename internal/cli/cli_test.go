package cli

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wagiedev/mcpstdio-go/internal/config"
	"github.com/wagiedev/mcpstdio-go/internal/errors"
)

// TestDiscoverer_NotFound tests that an invalid explicit path returns ExecutableNotFoundError.
func TestDiscoverer_NotFound(t *testing.T) {
	discoverer := NewDiscoverer(&Config{
		Command: "/nonexistent/path/to/server",
		Logger:  slog.Default(),
	})

	_, err := discoverer.Discover(context.Background())

	require.Error(t, err)

	notFound, ok := stderrors.AsType[*errors.ExecutableNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"/nonexistent/path/to/server"}, notFound.SearchedPaths)
}

// TestDiscoverer_UnknownName tests that a bare name missing everywhere lists the searched locations.
func TestDiscoverer_UnknownName(t *testing.T) {
	discoverer := NewDiscoverer(&Config{
		Command:    "definitely-not-an-installed-mcp-server",
		ExtraPaths: []string{t.TempDir()},
	})

	_, err := discoverer.Discover(context.Background())

	notFound, ok := stderrors.AsType[*errors.ExecutableNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, "$PATH", notFound.SearchedPaths[0])
	require.Greater(t, len(notFound.SearchedPaths), 1)
}

// TestDiscoverer_ExplicitPath tests discovery with an explicit path.
func TestDiscoverer_ExplicitPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Test requires Unix permission bits")
	}

	tmpDir := t.TempDir()
	fake := filepath.Join(tmpDir, "server")

	err := os.WriteFile(fake, []byte("#!/bin/sh\ncat\n"), 0o755)
	require.NoError(t, err)

	discoverer := NewDiscoverer(&Config{Command: fake})

	path, err := discoverer.Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fake, path)
}

// TestDiscoverer_RelativeToDir tests that relative paths resolve against the working directory.
func TestDiscoverer_RelativeToDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Test requires Unix permission bits")
	}

	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "server"), []byte("#!/bin/sh\n"), 0o755)
	require.NoError(t, err)

	path, err := NewDiscoverer(&Config{Command: "./server", Dir: tmpDir}).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmpDir, "server"), path)
}

// TestDiscoverer_NotExecutable tests that files without an execute bit are rejected.
func TestDiscoverer_NotExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Test requires Unix permission bits")
	}

	fake := filepath.Join(t.TempDir(), "server")
	err := os.WriteFile(fake, []byte("data"), 0o644)
	require.NoError(t, err)

	_, err = NewDiscoverer(&Config{Command: fake}).Discover(context.Background())

	require.Error(t, err)
	require.IsType(t, &errors.ExecutableNotFoundError{}, err)
}

// TestDiscoverer_ExtraPaths tests that extra directories are searched after PATH.
func TestDiscoverer_ExtraPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Test requires Unix permission bits")
	}

	dir := t.TempDir()
	fake := filepath.Join(dir, "mcpstdio-extra-path-server")
	err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755)
	require.NoError(t, err)

	path, err := NewDiscoverer(&Config{
		Command:    "mcpstdio-extra-path-server",
		ExtraPaths: []string{dir},
	}).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fake, path)
}

// TestDiscoverer_CancelledContext tests that discovery honors a cancelled context.
func TestDiscoverer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDiscoverer(nil).Discover(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

// TestBuildEnvironment tests that spec variables are appended after the inherited environment.
func TestBuildEnvironment(t *testing.T) {
	t.Setenv("MCPSTDIO_TEST_INHERITED", "parent")

	env := BuildEnvironment(&config.SpawnSpec{
		Env: map[string]string{
			"B_VAR": "2",
			"A_VAR": "1",
		},
	})

	require.Contains(t, env, "MCPSTDIO_TEST_INHERITED=parent")
	require.Equal(t, []string{"A_VAR=1", "B_VAR=2"}, env[len(env)-2:])
}

// TestBuildEnvironment_NilSpec tests that a nil spec inherits the parent environment unchanged.
func TestBuildEnvironment_NilSpec(t *testing.T) {
	require.Equal(t, len(os.Environ()), len(BuildEnvironment(nil)))
}

// TestDockerArgs tests docker run argument construction.
func TestDockerArgs(t *testing.T) {
	args := DockerArgs("ghcr.io/github/github-mcp-server", []string{"GITHUB_PERSONAL_ACCESS_TOKEN"})

	require.Equal(t, []string{
		"run", "-i", "--rm",
		"-e", "GITHUB_PERSONAL_ACCESS_TOKEN",
		"ghcr.io/github/github-mcp-server",
	}, args)

	args = DockerArgs("mcp/duckduckgo", nil, "--network", "host")
	require.Equal(t, "mcp/duckduckgo", args[len(args)-1])
	require.True(t, slices.Contains(args, "--network"))
}
