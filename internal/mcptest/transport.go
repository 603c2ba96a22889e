package mcptest

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"github.com/wagiedev/mcpstdio-go/internal/config"
	"github.com/wagiedev/mcpstdio-go/internal/errors"
)

// Transport runs a Server in-process behind a pair of pipes.
//
// It behaves like a process channel whose process is the server's Serve loop:
// the loop returning on its own is reported as an exit.
type Transport struct {
	server *Server

	mu      sync.Mutex
	started bool
	closing bool
	exitErr error

	toServer   *io.PipeWriter
	fromServer *io.PipeReader
	cancel     context.CancelFunc

	lines    chan []byte
	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

var _ config.Transport = (*Transport)(nil)

// NewTransport creates a transport serving server. The server starts with Start.
func NewTransport(server *Server) *Transport {
	return &Transport{
		server: server,
		lines:  make(chan []byte),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

// Start launches the server loop.
func (t *Transport) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return stderrors.New("transport already started")
	}

	if t.closing {
		return &errors.ChannelClosedError{}
	}

	t.started = true

	serverIn, toServer := io.Pipe()
	fromServer, serverOut := io.Pipe()

	t.toServer = toServer
	t.fromServer = fromServer

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	serveDone := make(chan error, 1)

	go func() {
		err := t.server.Serve(ctx, serverIn, serverOut)
		_ = serverIn.CloseWithError(io.ErrClosedPipe)
		_ = serverOut.Close()
		serveDone <- err
	}()

	go t.readLoop(fromServer, serveDone)

	return nil
}

func (t *Transport) readLoop(r io.Reader, serveDone <-chan error) {
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSuffix(line, []byte("\n")); len(line) > 0 {
			select {
			case t.lines <- trimmed:
			case <-t.stop:
			}
		}

		if err != nil {
			break
		}
	}

	serveErr := <-serveDone

	t.mu.Lock()
	if !t.closing {
		exitCode := 0
		if serveErr != nil {
			exitCode = 1
		}

		t.exitErr = &errors.ProcessError{ExitCode: exitCode, Err: serveErr}
	}
	t.mu.Unlock()

	close(t.lines)
	close(t.done)
}

// WriteLine writes data and a newline to the server.
func (t *Transport) WriteLine(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	toServer := t.toServer
	closing := t.closing
	t.mu.Unlock()

	if toServer == nil || closing {
		return &errors.ChannelClosedError{}
	}

	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')

	written := make(chan error, 1)

	go func() {
		_, err := toServer.Write(line)
		written <- err
	}()

	select {
	case err := <-written:
		if err != nil {
			return &errors.ChannelClosedError{}
		}

		return nil
	case <-ctx.Done():
		// A partial line cannot be taken back; the stream is finished.
		_ = toServer.CloseWithError(ctx.Err())
		<-written

		return fmt.Errorf("%w: %w", errors.ErrWriteAbandoned, ctx.Err())
	}
}

// Lines returns the lines written by the server.
func (t *Transport) Lines() <-chan []byte {
	return t.lines
}

// Done is closed once the server loop has returned and its output is drained.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// ExitErr reports why the server loop stopped on its own.
func (t *Transport) ExitErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.exitErr
}

// Close stops the server loop and waits for it.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closing = true
	started := t.started
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stop) })

	if !started {
		return nil
	}

	t.cancel()
	_ = t.toServer.Close()
	_ = t.fromServer.Close()

	<-t.done

	return nil
}
