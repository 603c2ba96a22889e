package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnError(t *testing.T) {
	root := errors.New("permission denied")
	err := &SpawnError{Command: "/usr/bin/server", Err: root}

	require.Equal(t, `failed to spawn "/usr/bin/server": permission denied`, err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsMCPStdioError())
}

func TestSpawnError_WrapsExecutableNotFound(t *testing.T) {
	notFound := &ExecutableNotFoundError{Name: "docker", SearchedPaths: []string{"$PATH"}}
	err := &SpawnError{Command: "docker", Err: notFound}

	got, ok := errors.AsType[*ExecutableNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, "docker", got.Name)
	require.Equal(t, `executable "docker" not found in: [$PATH]`, notFound.Error())
}

func TestHandshakeError(t *testing.T) {
	root := &RequestTimeoutError{Method: "initialize", ID: 1, Timeout: time.Second}
	err := &HandshakeError{Err: root}

	require.Equal(t, "initialize handshake failed: request timeout for initialize (id 1) after 1s", err.Error())
	require.ErrorIs(t, err, ErrRequestTimeout)
	require.True(t, err.IsMCPStdioError())
}

func TestNotConnectedError(t *testing.T) {
	err := &NotConnectedError{State: "closed"}

	require.Equal(t, "not connected (state closed)", err.Error())
	require.ErrorIs(t, err, ErrNotConnected)
	require.Equal(t, "not connected", (&NotConnectedError{}).Error())
}

func TestRequestTimeoutError(t *testing.T) {
	err := &RequestTimeoutError{Method: "tools/call", ID: 7, Timeout: 30 * time.Second}

	require.Equal(t, "request timeout for tools/call (id 7) after 30s", err.Error())
	require.ErrorIs(t, err, ErrRequestTimeout)
	require.NotErrorIs(t, err, ErrConnectionClosed)
}

func TestRemoteError(t *testing.T) {
	t.Run("without data", func(t *testing.T) {
		err := &RemoteError{Code: -32601, Message: "Method not found"}

		require.Equal(t, "remote error -32601: Method not found", err.Error())
	})

	t.Run("with data", func(t *testing.T) {
		err := &RemoteError{Code: -32602, Message: "Unknown tool", Data: json.RawMessage(`{"name":"x"}`)}

		require.Equal(t, `remote error -32602: Unknown tool (data: {"name":"x"})`, err.Error())
		require.True(t, err.IsMCPStdioError())
	})
}

func TestConnectionClosedError(t *testing.T) {
	t.Run("explicit close", func(t *testing.T) {
		err := &ConnectionClosedError{}

		require.Equal(t, "connection closed", err.Error())
		require.ErrorIs(t, err, ErrConnectionClosed)
		require.NoError(t, err.Unwrap())
	})

	t.Run("process exit", func(t *testing.T) {
		exit := &ProcessError{ExitCode: 2}
		err := &ConnectionClosedError{Err: exit}

		require.Equal(t, "connection closed: process exited (exit 2)", err.Error())
		require.ErrorIs(t, err, ErrConnectionClosed)

		got, ok := errors.AsType[*ProcessError](err)
		require.True(t, ok)
		require.Equal(t, 2, got.ExitCode)
	})
}

func TestMalformedMessageError(t *testing.T) {
	root := errors.New("unexpected end of JSON input")
	err := &MalformedMessageError{RawData: `{"jsonrpc":`, Err: root}

	require.Equal(t, "malformed message from process: unexpected end of JSON input", err.Error())
	require.ErrorIs(t, err, root)
}

func TestChannelClosedError(t *testing.T) {
	err := &ChannelClosedError{}

	require.Equal(t, "process channel closed", err.Error())
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestProcessError(t *testing.T) {
	require.Equal(t, "process exited (exit 1): boom", (&ProcessError{ExitCode: 1, Stderr: "boom"}).Error())

	root := errors.New("signal: killed")
	err := &ProcessError{ExitCode: -1, Stderr: "ignored", Err: root}
	require.Equal(t, "process exited (exit -1): signal: killed", err.Error())
	require.ErrorIs(t, err, root)
}

func TestInvalidArgumentsError(t *testing.T) {
	root := errors.New("missing required property")
	err := &InvalidArgumentsError{Tool: "search", Err: root}

	require.Equal(t, `invalid arguments for tool "search": missing required property`, err.Error())
	require.ErrorIs(t, err, root)
}

func TestTrimStderr(t *testing.T) {
	require.Empty(t, TrimStderr("  \n ", 10))
	require.Equal(t, "short", TrimStderr("short\n", 100))
	require.Equal(t, "short", TrimStderr("short", 0))

	long := strings.Repeat("a", 20) + "\n" + "tail line"
	require.Equal(t, "tail line", TrimStderr(long, 12))
}
