package mcptest

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpstdio-go/internal/config"
)

// HelperEnv selects the Mode of a test binary re-executed as a fake server.
const HelperEnv = "MCPSTDIO_FAKE_SERVER"

// HelperExitCrashed is the exit status of a helper process in ModeCrashOnCall.
const HelperExitCrashed = 3

// NewDefaultServer returns a server with the tools used across the test suites:
//
//	echo                 returns its "text" argument
//	add                  sums two integers "a" and "b"
//	search_repositories  returns a line naming its "query"
//	fail                 always reports a tool error
func NewDefaultServer() *Server {
	server := NewServer("fake-mcp-server", "0.1.0")

	server.AddTool(&mcp.Tool{
		Name:        "echo",
		Description: "Echo the given text",
		InputSchema: SimpleSchema(map[string]string{"text": "string"}),
	}, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return nil, err
		}

		return TextResult(fmt.Sprint(args["text"])), nil
	})

	server.AddTool(&mcp.Tool{
		Name:        "add",
		Description: "Add two integers",
		InputSchema: SimpleSchema(map[string]string{"a": "int", "b": "int"}),
	}, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return nil, err
		}

		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)

		return TextResult(fmt.Sprint(int64(a + b))), nil
	})

	server.AddTool(&mcp.Tool{
		Name:        "search_repositories",
		Description: "Search repositories",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":   {Type: "string"},
				"perPage": {Type: "integer"},
			},
			Required: []string{"query"},
		},
	}, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return nil, err
		}

		return TextResult("results for " + fmt.Sprint(args["query"])), nil
	})

	server.AddTool(&mcp.Tool{
		Name:        "fail",
		Description: "Always fails",
	}, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, stderrors.New("upstream unavailable")
	})

	return server
}

// RunIfHelper turns the current test binary into a fake server when HelperEnv
// is set. Call it first thing in TestMain.
func RunIfHelper() {
	mode := os.Getenv(HelperEnv)
	if mode == "" {
		return
	}

	os.Exit(Main(Mode(mode)))
}

// Main serves the default server on stdin and stdout and returns the exit status.
func Main(mode Mode) int {
	server := NewDefaultServer()
	server.Mode = mode
	server.Stderr = os.Stderr

	fmt.Fprintf(os.Stderr, "fake-mcp-server starting in %s mode\n", mode)

	err := server.Serve(context.Background(), os.Stdin, os.Stdout)

	switch {
	case stderrors.Is(err, ErrCrashed):
		return HelperExitCrashed
	case err != nil:
		fmt.Fprintln(os.Stderr, "fake-mcp-server:", err)

		return 1
	default:
		return 0
	}
}

// HelperSpec describes a re-execution of the running test binary as a fake
// server in the given mode. The binary's TestMain must call RunIfHelper.
func HelperSpec(mode Mode) (*config.SpawnSpec, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate test binary: %w", err)
	}

	return &config.SpawnSpec{
		Command: exe,
		Args:    []string{"-test.run=^$"},
		Env:     map[string]string{HelperEnv: strings.TrimSpace(string(mode))},
	}, nil
}
