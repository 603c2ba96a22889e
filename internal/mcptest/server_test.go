package mcptest

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// serve runs the server over the given request lines and returns its output lines.
func serve(t *testing.T, server *Server, requests ...string) ([]string, error) {
	t.Helper()

	var out bytes.Buffer

	err := server.Serve(context.Background(), strings.NewReader(strings.Join(requests, "\n")+"\n"), &out)

	text := strings.TrimSuffix(out.String(), "\n")
	if text == "" {
		return nil, err
	}

	return strings.Split(text, "\n"), err
}

func decodeResponse(t *testing.T, line string) map[string]any {
	t.Helper()

	var msg map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &msg))

	return msg
}

func TestServer_Initialize(t *testing.T) {
	lines, err := serve(t, NewDefaultServer(),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
	)
	require.NoError(t, err)
	require.Len(t, lines, 1, "notifications are not answered")

	msg := decodeResponse(t, lines[0])
	require.InDelta(t, 1, msg["id"], 0)

	result := msg["result"].(map[string]any)
	require.Equal(t, "2025-03-26", result["protocolVersion"])
	require.Equal(t, "fake-mcp-server", result["serverInfo"].(map[string]any)["name"])
}

func TestServer_ToolsList(t *testing.T) {
	lines, err := serve(t, NewDefaultServer(), `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	tools := decodeResponse(t, lines[0])["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}

	require.Equal(t, []string{"echo", "add", "search_repositories", "fail"}, names)
}

func TestServer_ToolsList_Paginated(t *testing.T) {
	server := NewDefaultServer()
	server.PageSize = 3

	lines, err := serve(t, server,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{"cursor":"page-3"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/list","params":{"cursor":"bogus"}}`,
	)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	first := decodeResponse(t, lines[0])["result"].(map[string]any)
	require.Len(t, first["tools"], 3)
	require.Equal(t, "page-3", first["nextCursor"])

	second := decodeResponse(t, lines[1])["result"].(map[string]any)
	require.Len(t, second["tools"], 1)
	require.NotContains(t, second, "nextCursor")

	bad := decodeResponse(t, lines[2])["error"].(map[string]any)
	require.InDelta(t, -32602, bad["code"], 0)
}

func TestServer_ToolsCall(t *testing.T) {
	lines, err := serve(t, NewDefaultServer(),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add","arguments":{"a":2,"b":40}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"fail"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"nope"}}`,
	)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	sum := decodeResponse(t, lines[0])["result"].(map[string]any)
	content := sum["content"].([]any)[0].(map[string]any)
	require.Equal(t, "text", content["type"])
	require.Equal(t, "42", content["text"])

	failed := decodeResponse(t, lines[1])["result"].(map[string]any)
	require.Equal(t, true, failed["isError"])

	unknown := decodeResponse(t, lines[2])["error"].(map[string]any)
	require.InDelta(t, -32602, unknown["code"], 0)
	require.Equal(t, "unknown tool: nope", unknown["message"])
}

func TestServer_UnknownMethodAndPing(t *testing.T) {
	lines, err := serve(t, NewDefaultServer(),
		`{"jsonrpc":"2.0","id":"a","method":"ping"}`,
		`{"jsonrpc":"2.0","id":"b","method":"resources/list"}`,
		``,
		`garbage`,
	)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	require.JSONEq(t, `{"jsonrpc":"2.0","id":"a","result":{}}`, lines[0])
	require.JSONEq(t, `{"jsonrpc":"2.0","id":"b","error":{"code":-32601,"message":"method not found: resources/list"}}`, lines[1])
	require.InDelta(t, -32700, decodeResponse(t, lines[2])["error"].(map[string]any)["code"], 0)
}

func TestServer_Modes(t *testing.T) {
	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`

	t.Run("silent", func(t *testing.T) {
		server := NewDefaultServer()
		server.Mode = ModeSilent

		lines, err := serve(t, server, initialize, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
		require.NoError(t, err)
		require.Empty(t, lines)
		require.Equal(t, []string{"initialize", "ping"}, server.Received())
	})

	t.Run("reject initialize", func(t *testing.T) {
		server := NewDefaultServer()
		server.Mode = ModeRejectInitialize

		lines, err := serve(t, server, initialize)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		require.Contains(t, decodeResponse(t, lines[0]), "error")
	})

	t.Run("crash on call", func(t *testing.T) {
		var stderr bytes.Buffer

		server := NewDefaultServer()
		server.Mode = ModeCrashOnCall
		server.Stderr = &stderr

		lines, err := serve(t, server,
			initialize,
			`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
			`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
		)
		require.ErrorIs(t, err, ErrCrashed)
		require.Len(t, lines, 1, "only initialize is answered")
		require.Equal(t, []string{"initialize", "notifications/initialized", "tools/list"}, server.Received())
		require.Contains(t, stderr.String(), "crashing on tools/list")
	})

	t.Run("stall", func(t *testing.T) {
		server := NewDefaultServer()
		server.Mode = ModeStall

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		var out bytes.Buffer

		input := strings.Join([]string{
			initialize,
			`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		}, "\n") + "\n"

		err := server.Serve(ctx, strings.NewReader(input), &out)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, []string{"initialize", "notifications/initialized"}, server.Received())
		require.Equal(t, 1, strings.Count(out.String(), "\n"), "only initialize is answered")
	})

	t.Run("noisy", func(t *testing.T) {
		var stderr bytes.Buffer

		server := NewDefaultServer()
		server.Mode = ModeNoisy
		server.Stderr = &stderr

		lines, err := serve(t, server,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`,
		)
		require.NoError(t, err)
		require.Len(t, lines, 3)
		require.Equal(t, "fake-server: not json", lines[0])
		require.Equal(t, "ping", decodeResponse(t, lines[1])["method"])
		require.InDelta(t, 1, decodeResponse(t, lines[2])["id"], 0)
		require.Contains(t, stderr.String(), "handling tools/call")
	})
}

func TestSimpleSchema(t *testing.T) {
	schema := SimpleSchema(map[string]string{
		"name":  "string",
		"count": "int",
		"ratio": "float64",
		"tags":  "[]string",
		"on":    "bool",
	})

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"count", "name", "on", "ratio", "tags"}, schema.Required)
	require.Equal(t, "integer", schema.Properties["count"].Type)
	require.Equal(t, "number", schema.Properties["ratio"].Type)
	require.Equal(t, "array", schema.Properties["tags"].Type)
	require.Equal(t, "string", schema.Properties["tags"].Items.Type)
	require.Equal(t, "boolean", schema.Properties["on"].Type)
}
