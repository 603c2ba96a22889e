// Package cli provides executable discovery and command building for the
// child processes driven over stdio.
//
// # Executable Discovery
//
// The Discoverer interface locates the executable of a spawn specification:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    Command: "docker",
//	    Logger:  slog.Default(),
//	})
//	path, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. The command itself when it contains a path separator (relative to Config.Dir)
//  2. System PATH
//  3. Config.ExtraPaths, then common installation directories
//     (/usr/local/bin, /usr/bin, /opt/homebrew/bin, ~/.local/bin)
//
// # Command Building
//
//	env := cli.BuildEnvironment(spec)
//	args := cli.DockerArgs("mcp/duckduckgo", nil)
package cli
