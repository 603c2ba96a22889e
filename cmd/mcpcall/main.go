// Command mcpcall talks to a stdio MCP server from the shell.
//
// Usage:
//
//	mcpcall [flags] presets
//	mcpcall [flags] -server NAME list
//	mcpcall [flags] -server NAME call TOOL [JSON-ARGUMENTS]
//	mcpcall [flags] -server NAME search QUERY
//	mcpcall [flags] list -- COMMAND [ARGS...]
//
// Results are printed as JSON on stdout. Diagnostics go to stderr at the
// level set by MCPSTDIO_LOG_LEVEL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	mcpstdio "github.com/wagiedev/mcpstdio-go"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// invocation is a parsed command line.
type invocation struct {
	serversFile string
	server      string
	grace       time.Duration
	timeout     time.Duration
	command     []string
	action      string
	actionArgs  []string
}

func parseArgs(args []string, settings *mcpstdio.Settings, stderr io.Writer) (*invocation, error) {
	inv := &invocation{}

	fs := flag.NewFlagSet("mcpcall", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&inv.serversFile, "servers", settings.ServersFile, "YAML file of server presets")
	fs.StringVar(&inv.server, "server", "", "preset name to launch")
	fs.DurationVar(&inv.grace, "grace", -1, "startup grace period (default: preset or MCPSTDIO_STARTUP_GRACE)")
	fs.DurationVar(&inv.timeout, "timeout", 0, "request timeout (default: preset or MCPSTDIO_REQUEST_TIMEOUT)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if idx := slices.Index(rest, "--"); idx >= 0 {
		inv.command = rest[idx+1:]
		rest = rest[:idx]
	}

	if len(rest) == 0 {
		return nil, errors.New("missing action: presets, list, call, or search")
	}

	inv.action = rest[0]
	inv.actionArgs = rest[1:]

	return inv, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	settings, err := mcpstdio.LoadSettings()
	if err != nil {
		fmt.Fprintln(stderr, "mcpcall:", err)

		return 2
	}

	level, err := settings.Level()
	if err != nil {
		fmt.Fprintln(stderr, "mcpcall:", err)

		return 2
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	inv, err := parseArgs(args, settings, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "mcpcall:", err)
		}

		return 2
	}

	presets, err := mcpstdio.LoadPresets(inv.serversFile)
	if err != nil {
		fmt.Fprintln(stderr, "mcpcall:", err)

		return 1
	}

	if inv.action == "presets" {
		return printJSON(stdout, stderr, presetSummaries(presets))
	}

	opts, err := clientOptions(inv, settings, presets, log)
	if err != nil {
		fmt.Fprintln(stderr, "mcpcall:", err)

		return 2
	}

	var out any

	err = mcpstdio.WithClient(ctx, func(client mcpstdio.Client) error {
		var performErr error

		out, performErr = perform(ctx, client, inv)

		return performErr
	}, opts...)
	if err != nil {
		fmt.Fprintln(stderr, "mcpcall:", err)

		return 1
	}

	return printJSON(stdout, stderr, out)
}

// clientOptions turns the invocation into client options. Flags override the
// preset, and the preset overrides the environment.
func clientOptions(
	inv *invocation,
	settings *mcpstdio.Settings,
	presets *mcpstdio.Presets,
	log *slog.Logger,
) ([]mcpstdio.Option, error) {
	opts := []mcpstdio.Option{
		mcpstdio.WithLogger(log),
		mcpstdio.WithStartupGrace(settings.StartupGrace),
		mcpstdio.WithRequestTimeout(settings.RequestTimeout),
		mcpstdio.WithClientInfo("mcpcall", "1.0.0"),
	}

	switch {
	case inv.server != "" && len(inv.command) > 0:
		return nil, errors.New("use either -server or -- COMMAND, not both")
	case inv.server != "":
		preset, err := presets.Get(inv.server)
		if err != nil {
			return nil, err
		}

		opts = append(opts,
			mcpstdio.WithPreset(preset),
			mcpstdio.WithSpawnSpec(preset.SpawnSpec(settings.Docker)),
		)
	case len(inv.command) > 0:
		opts = append(opts, mcpstdio.WithCommand(inv.command[0], inv.command[1:]...))
	default:
		return nil, errors.New("no server: pass -server NAME or -- COMMAND [ARGS...]")
	}

	if inv.grace >= 0 {
		opts = append(opts, mcpstdio.WithStartupGrace(inv.grace))
	}

	if inv.timeout > 0 {
		opts = append(opts, mcpstdio.WithRequestTimeout(inv.timeout))
	}

	return opts, nil
}

func perform(ctx context.Context, client mcpstdio.Client, inv *invocation) (any, error) {
	switch inv.action {
	case "list":
		return client.DiscoverTools(ctx)

	case "call":
		if len(inv.actionArgs) == 0 {
			return nil, errors.New("call: missing tool name")
		}

		var args map[string]any
		if len(inv.actionArgs) > 1 {
			if err := json.Unmarshal([]byte(inv.actionArgs[1]), &args); err != nil {
				return nil, fmt.Errorf("call: arguments must be a JSON object: %w", err)
			}
		}

		if _, err := client.DiscoverTools(ctx); err != nil {
			return nil, err
		}

		return client.CallTool(ctx, inv.actionArgs[0], args)

	case "search":
		if len(inv.actionArgs) == 0 {
			return nil, errors.New("search: missing query")
		}

		return client.Search(ctx, strings.Join(inv.actionArgs, " "), nil)

	default:
		return nil, fmt.Errorf("unknown action %q", inv.action)
	}
}

type presetSummary struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Command     string   `json:"command"`
	Args        []string `json:"args,omitempty"`
}

func presetSummaries(presets *mcpstdio.Presets) []presetSummary {
	names := presets.Names()
	out := make([]presetSummary, 0, len(names))

	for _, name := range names {
		preset, err := presets.Get(name)
		if err != nil {
			continue
		}

		spec := preset.SpawnSpec("")
		out = append(out, presetSummary{
			Name:        name,
			DisplayName: preset.DisplayName,
			Command:     spec.Command,
			Args:        spec.Args,
		})
	}

	return out
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(stderr, "mcpcall:", err)

		return 1
	}

	return 0
}
