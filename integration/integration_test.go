//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	mcpstdio "github.com/wagiedev/mcpstdio-go"
)

// skipIfDockerUnavailable skips the test when no container runtime can run images.
func skipIfDockerUnavailable(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("docker daemon not reachable")
	}
}

// skipIfSpawnFailed skips the test when the process could not be launched.
func skipIfSpawnFailed(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*mcpstdio.SpawnError](err); ok {
		t.Skipf("server could not be spawned: %v", err)
	}
}

// preset returns a default preset, skipping when its credentials are missing.
func preset(t *testing.T, name string, requiredEnv ...string) *mcpstdio.Preset {
	t.Helper()

	for _, key := range requiredEnv {
		if os.Getenv(key) == "" {
			t.Skipf("%s not set", key)
		}
	}

	p, err := mcpstdio.DefaultPresets().Get(name)
	if err != nil {
		t.Fatalf("preset %s: %v", name, err)
	}

	return p
}
