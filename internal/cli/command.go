package cli

import (
	"maps"
	"os"
	"slices"

	"github.com/wagiedev/mcpstdio-go/internal/config"
)

// BuildEnvironment constructs the environment for the child process.
//
// The parent environment is inherited and the spec's variables are appended
// in sorted key order, so they override inherited values of the same name.
func BuildEnvironment(spec *config.SpawnSpec) []string {
	env := os.Environ()

	if spec == nil || len(spec.Env) == 0 {
		return env
	}

	for _, key := range slices.Sorted(maps.Keys(spec.Env)) {
		env = append(env, key+"="+spec.Env[key])
	}

	return env
}

// DockerArgs builds the arguments of "docker run" for an interactive, self-removing
// container. Each name in passEnv is forwarded by name only, so docker copies the
// value from the parent environment.
func DockerArgs(image string, passEnv []string, extra ...string) []string {
	args := make([]string, 0, 4+2*len(passEnv)+len(extra))
	args = append(args, "run", "-i", "--rm")

	for _, name := range passEnv {
		args = append(args, "-e", name)
	}

	args = append(args, extra...)
	args = append(args, image)

	return args
}
