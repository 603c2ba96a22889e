package registry

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Settings holds engine tunables read from the environment.
type Settings struct {
	// StartupGrace is the wait before initialize. ENV: MCPSTDIO_STARTUP_GRACE
	StartupGrace time.Duration `env:"MCPSTDIO_STARTUP_GRACE,default=2s"`

	// RequestTimeout is the per-request deadline. ENV: MCPSTDIO_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"MCPSTDIO_REQUEST_TIMEOUT,default=30s"`

	// Docker is the container runtime binary for image presets. ENV: MCPSTDIO_DOCKER
	Docker string `env:"MCPSTDIO_DOCKER,default=docker"`

	// ServersFile is a YAML file of presets layered over the defaults. ENV: MCPSTDIO_SERVERS_FILE
	ServersFile string `env:"MCPSTDIO_SERVERS_FILE"`

	// LogLevel is debug, info, warn, or error. ENV: MCPSTDIO_LOG_LEVEL
	LogLevel string `env:"MCPSTDIO_LOG_LEVEL,default=warn"`
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (*Settings, error) {
	var settings Settings

	err := envdecode.Decode(&settings)
	if err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to read settings from environment: %w", err)
	}

	if settings.StartupGrace < 0 || settings.RequestTimeout < 0 {
		return nil, stderrors.New("settings: durations must not be negative")
	}

	return &settings, nil
}

// Level parses LogLevel.
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s.LogLevel))); err != nil {
		return slog.LevelWarn, fmt.Errorf("settings: invalid log level %q: %w", s.LogLevel, err)
	}

	return level, nil
}
