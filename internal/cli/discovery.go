package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wagiedev/mcpstdio-go/internal/errors"
)

// Config holds configuration for executable discovery.
type Config struct {
	// Command is the executable name or path to resolve.
	// Names without a path separator are searched in PATH and common locations.
	Command string

	// Dir is the working directory the process will run in.
	// Relative command paths are resolved against it.
	Dir string

	// ExtraPaths are additional directories searched after PATH.
	ExtraPaths []string

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the executable of a spawn specification.
type Discoverer interface {
	// Discover returns the absolute path of the executable or an
	// ExecutableNotFoundError listing every location searched.
	Discover(ctx context.Context) (string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new executable discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log,
	}
}

// Discover locates the executable.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.log.Debug("Discovering executable", "command", d.cfg.Command)

	path, err := d.find()
	if err != nil {
		d.log.Debug("Executable not found", "command", d.cfg.Command, "error", err)

		return "", err
	}

	d.log.Debug("Found executable", "path", path)

	return path, nil
}

// find resolves the command to an executable path.
func (d *discoverer) find() (string, error) {
	name := d.cfg.Command
	if name == "" {
		return "", &errors.ExecutableNotFoundError{Name: name}
	}

	// Explicit path: use it and only it
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		candidate := name
		if !filepath.IsAbs(candidate) && d.cfg.Dir != "" {
			candidate = filepath.Join(d.cfg.Dir, candidate)
		}

		if isExecutable(candidate) {
			return candidate, nil
		}

		return "", &errors.ExecutableNotFoundError{Name: name, SearchedPaths: []string{candidate}}
	}

	searchedPaths := make([]string, 0, 4+len(d.cfg.ExtraPaths))

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, dir := range d.searchDirs() {
		candidate := filepath.Join(dir, name)
		searchedPaths = append(searchedPaths, candidate)

		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	d.log.Warn("Executable not found in any searched paths", "command", name, "searched_paths", searchedPaths)

	return "", &errors.ExecutableNotFoundError{Name: name, SearchedPaths: searchedPaths}
}

// searchDirs returns the directories checked after PATH.
func (d *discoverer) searchDirs() []string {
	dirs := make([]string, 0, 4+len(d.cfg.ExtraPaths))
	dirs = append(dirs, d.cfg.ExtraPaths...)
	dirs = append(dirs, "/usr/local/bin", "/usr/bin", "/opt/homebrew/bin")

	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".local/bin"))
	}

	return dirs
}

// isExecutable reports whether path is a regular file with an execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	return info.Mode().Perm()&0o111 != 0
}
