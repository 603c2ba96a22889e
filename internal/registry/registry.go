package registry

import (
	_ "embed"
	stderrors "errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wagiedev/mcpstdio-go/internal/cli"
	"github.com/wagiedev/mcpstdio-go/internal/config"
)

//go:embed servers.yaml
var defaultServers []byte

// DefaultStderrNoise lists stderr fragments of server start-up chatter.
var DefaultStderrNoise = []string{"Starting", "Listening"}

// ErrUnknownPreset indicates a preset name that is not in the registry.
var ErrUnknownPreset = stderrors.New("unknown server preset")

// Preset describes how to launch one known MCP server.
type Preset struct {
	// Name is the registry key. It is filled in from the YAML map key.
	Name string `yaml:"-"`

	DisplayName string `yaml:"display_name,omitempty"`

	// Image runs the server in a container. Exclusive with Command.
	Image string `yaml:"image,omitempty"`

	// Command runs the server directly. Exclusive with Image.
	Command string `yaml:"command,omitempty"`

	// Args follow the image or the command.
	Args []string `yaml:"args,omitempty"`

	// PassEnv names variables forwarded from the parent environment by name.
	PassEnv []string `yaml:"pass_env,omitempty"`

	// Env sets variables for the server.
	Env map[string]string `yaml:"env,omitempty"`

	// StartupGrace overrides the wait before initialize when non-zero.
	StartupGrace time.Duration `yaml:"startup_grace,omitempty"`

	// RequestTimeout overrides the per-request deadline when non-zero.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// StderrNoise lists fragments; stderr lines containing any are not reported.
	StderrNoise []string `yaml:"stderr_noise,omitempty"`
}

// Validate checks that the preset describes exactly one way to launch.
func (p *Preset) Validate() error {
	switch {
	case p.Image == "" && p.Command == "":
		return fmt.Errorf("preset %q: one of image or command is required", p.Name)
	case p.Image != "" && p.Command != "":
		return fmt.Errorf("preset %q: image and command are mutually exclusive", p.Name)
	case p.StartupGrace < 0 || p.RequestTimeout < 0:
		return fmt.Errorf("preset %q: durations must not be negative", p.Name)
	}

	return nil
}

// SpawnSpec returns the process to launch. docker names the container
// runtime binary used by image presets; empty selects "docker".
func (p *Preset) SpawnSpec(docker string) *config.SpawnSpec {
	if p.Image == "" {
		return &config.SpawnSpec{
			Command: p.Command,
			Args:    slices.Clone(p.Args),
			Env:     maps.Clone(p.Env),
		}
	}

	if docker == "" {
		docker = "docker"
	}

	forward := slices.Clone(p.PassEnv)
	for _, name := range slices.Sorted(maps.Keys(p.Env)) {
		if !slices.Contains(forward, name) {
			forward = append(forward, name)
		}
	}

	args := cli.DockerArgs(p.Image, forward)
	args = append(args, p.Args...)

	return &config.SpawnSpec{
		Command: docker,
		Args:    args,
		Env:     maps.Clone(p.Env),
	}
}

// NoiseFilter returns the stderr fragments to suppress for this preset.
func (p *Preset) NoiseFilter() []string {
	return append(slices.Clone(DefaultStderrNoise), p.StderrNoise...)
}

// Registry is a set of named presets.
type Registry struct {
	presets map[string]*Preset
}

type serversFile struct {
	Servers map[string]*Preset `yaml:"servers"`
}

// Default returns the presets shipped with the module.
func Default() *Registry {
	reg, err := parse(defaultServers)
	if err != nil {
		panic(fmt.Sprintf("embedded servers.yaml: %v", err))
	}

	return reg
}

// Load returns the default presets with the servers of the YAML file at path
// layered over them. A preset in the file replaces the default of the same
// name. An empty path or a missing file yields the defaults.
func Load(path string) (*Registry, error) {
	reg := Default()

	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}

		return nil, fmt.Errorf("failed to read servers file: %w", err)
	}

	user, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	maps.Copy(reg.presets, user.presets)

	return reg, nil
}

func parse(data []byte) (*Registry, error) {
	var file serversFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse servers file: %w", err)
	}

	reg := &Registry{presets: make(map[string]*Preset, len(file.Servers))}

	for name, preset := range file.Servers {
		if preset == nil {
			return nil, fmt.Errorf("preset %q is empty", name)
		}

		preset.Name = name

		if err := preset.Validate(); err != nil {
			return nil, err
		}

		reg.presets[name] = preset
	}

	return reg, nil
}

// Names returns the preset names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.presets))
}

// Get returns the named preset.
func (r *Registry) Get(name string) (*Preset, error) {
	preset, ok := r.presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownPreset, name, r.Names())
	}

	return preset, nil
}
