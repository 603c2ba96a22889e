package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcpstdio-go/internal/config"
	"github.com/wagiedev/mcpstdio-go/internal/errors"
	"github.com/wagiedev/mcpstdio-go/internal/jsonrpc"
)

// respondFunc produces the server's answer to a request written by the engine.
// Returning nil leaves the request unanswered.
type respondFunc func(msg *jsonrpc.Message) *jsonrpc.Response

// mockTransport implements config.Transport for testing.
//
// Requests written by the engine are answered synchronously from inside
// WriteLine, which only works if the engine registers a call before writing it.
type mockTransport struct {
	mu       sync.Mutex
	written  [][]byte
	startErr error
	writeErr error
	started  bool
	closed   bool
	exitErr  error
	respond  respondFunc

	// stall blocks writes like a server that stopped reading its input.
	stall bool

	lines    chan []byte
	done     chan struct{}
	doneOnce sync.Once
}

var _ config.Transport = (*mockTransport)(nil)

func newMockTransport() *mockTransport {
	return &mockTransport{
		lines: make(chan []byte),
		done:  make(chan struct{}),
	}
}

// newServerTransport returns a transport that completes the handshake and
// answers other requests with respond.
func newServerTransport(respond respondFunc) *mockTransport {
	m := newMockTransport()
	m.respond = func(msg *jsonrpc.Message) *jsonrpc.Response {
		if msg.Method == "initialize" {
			return resultResponse(msg, map[string]any{
				"protocolVersion": "2024-11-05",
				"capabilities":    map[string]any{"tools": map[string]any{}},
				"serverInfo":      map[string]any{"name": "fake-server", "version": "0.1.0"},
			})
		}

		if respond == nil {
			return nil
		}

		return respond(msg)
	}

	return m
}

func resultResponse(msg *jsonrpc.Message, result any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResult(msg.RawID, result)
	if err != nil {
		panic(err)
	}

	return resp
}

func (m *mockTransport) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return m.startErr
	}

	m.started = true

	return nil
}

func (m *mockTransport) WriteLine(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()

		return &errors.ChannelClosedError{}
	}

	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()

		return err
	}

	if m.stall {
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", errors.ErrWriteAbandoned, ctx.Err())
		case <-m.done:
			return &errors.ChannelClosedError{}
		}
	}

	m.written = append(m.written, append([]byte(nil), data...))
	respond := m.respond
	m.mu.Unlock()

	if respond == nil {
		return nil
	}

	msg, err := jsonrpc.Decode(data)
	if err != nil || !msg.IsRequest() {
		return nil
	}

	if resp := respond(msg); resp != nil {
		line, err := jsonrpc.Encode(resp)
		if err != nil {
			return err
		}

		m.inject(line)
	}

	return nil
}

// inject delivers a line to the engine unless the transport has terminated.
func (m *mockTransport) inject(line []byte) {
	select {
	case m.lines <- line:
	case <-m.done:
	}
}

func (m *mockTransport) injectString(line string) {
	m.inject([]byte(line))
}

func (m *mockTransport) Lines() <-chan []byte {
	return m.lines
}

func (m *mockTransport) Done() <-chan struct{} {
	return m.done
}

func (m *mockTransport) ExitErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.exitErr
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.doneOnce.Do(func() { close(m.done) })

	return nil
}

// exit simulates the process dying on its own. No line may be injected afterwards.
func (m *mockTransport) exit(err error) {
	m.mu.Lock()
	m.closed = true
	m.exitErr = err
	m.mu.Unlock()

	m.doneOnce.Do(func() {
		close(m.lines)
		close(m.done)
	})
}

func (m *mockTransport) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// writtenMessages decodes every line written so far.
func (m *mockTransport) writtenMessages(t *testing.T) []map[string]any {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]map[string]any, 0, len(m.written))

	for _, line := range m.written {
		var msg map[string]any
		require.NoError(t, json.Unmarshal(line, &msg))

		out = append(out, msg)
	}

	return out
}

func (m *mockTransport) writtenLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.written))
	for i, line := range m.written {
		out[i] = string(line)
	}

	return out
}
