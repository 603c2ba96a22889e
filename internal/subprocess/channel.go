package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/wagiedev/mcpstdio-go/internal/cli"
	"github.com/wagiedev/mcpstdio-go/internal/config"
	"github.com/wagiedev/mcpstdio-go/internal/errors"
)

const (
	// readChunkSize is the size of a single read from the process stdout.
	readChunkSize = 64 * 1024
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (callback receives all lines),
	// but the buffer stops growing after this limit to prevent unbounded memory usage.
	maxStderrBufferSize = 1024 * 1024 // 1MB
	// maxStderrReportSize bounds the stderr tail attached to a ProcessError.
	maxStderrReportSize = 4096
	// writeAbandonTimeout bounds the wait for a blocked write after its context ends.
	writeAbandonTimeout = time.Second
)

// Channel implements config.Transport by spawning a child process and
// exchanging newline-terminated lines over its standard streams.
type Channel struct {
	log            *slog.Logger
	spec           *config.SpawnSpec
	stderrCallback func(string) // Callback for streaming stderr output
	maxLineSize    int

	writeSem     chan struct{} // Serializes stdin writes, one full line at a time
	writeSemOnce sync.Once
	mu           sync.Mutex // Protects the fields below
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	started     bool
	closing     bool // Whether Close() has been called (intentional shutdown)
	stdinClosed bool // Whether stdin was closed (close or cancelled write)

	lines    chan []byte
	stop     chan struct{} // Closed by Close() to release a blocked line send
	stopOnce sync.Once

	done       chan struct{}
	finishOnce sync.Once
	exitErr    error
	exitCode   int

	stderrMu  sync.Mutex
	stderrBuf strings.Builder
}

// Compile-time verification that Channel implements the Transport interface.
var _ config.Transport = (*Channel)(nil)

// NewChannel creates a process channel for the given spawn specification.
//
// The logger is used for operation tracking and debugging. The stderr callback,
// when non-nil, receives every line the process writes to standard error.
// Lines read from stdout longer than maxLineSize bytes are dropped.
func NewChannel(
	log *slog.Logger,
	spec *config.SpawnSpec,
	stderr func(string),
	maxLineSize int,
) *Channel {
	if maxLineSize <= 0 {
		maxLineSize = config.DefaultMaxLineSize
	}

	return &Channel{
		log:            log.With("component", "process_channel"),
		spec:           spec.Clone(),
		stderrCallback: stderr,
		maxLineSize:    maxLineSize,
		lines:          make(chan []byte),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		exitCode:       -1,
	}
}

// Start spawns the process with stdin, stdout, and stderr captured.
//
// Returns SpawnError if the executable cannot be located or launched,
// including when the working directory does not exist.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return &errors.ChannelClosedError{}
	}

	if c.started {
		return fmt.Errorf("process channel already started")
	}

	if c.spec == nil || c.spec.Command == "" {
		return &errors.SpawnError{Err: fmt.Errorf("empty command")}
	}

	command := c.spec.Command

	if c.spec.Dir != "" {
		info, err := os.Stat(c.spec.Dir)
		if err != nil {
			return &errors.SpawnError{Command: command, Err: fmt.Errorf("working directory: %w", err)}
		}

		if !info.IsDir() {
			return &errors.SpawnError{Command: command, Err: fmt.Errorf("working directory %s is not a directory", c.spec.Dir)}
		}
	}

	path, err := cli.NewDiscoverer(&cli.Config{
		Command: command,
		Dir:     c.spec.Dir,
		Logger:  c.log,
	}).Discover(ctx)
	if err != nil {
		return &errors.SpawnError{Command: command, Err: err}
	}

	c.log.Info("Starting process", "command", path, "args", c.spec.Args)

	//nolint:gosec // G204: Subprocess launching with dynamic args is the purpose of this package
	cmd := exec.Command(path, c.spec.Args...)
	cmd.Dir = c.spec.Dir
	cmd.Env = cli.BuildEnvironment(c.spec)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.SpawnError{Command: command, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.SpawnError{Command: command, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.SpawnError{Command: command, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		c.log.Error("Failed to start process", "error", err)

		return &errors.SpawnError{Command: command, Err: fmt.Errorf("start process: %w", err)}
	}

	c.cmd = cmd
	c.stdin = stdin
	c.started = true

	c.log.Info("Process started", "pid", cmd.Process.Pid)

	var stderrWg sync.WaitGroup

	stderrWg.Go(func() {
		c.readStderr(stderr)
	})

	go c.readStdout(stdout, &stderrWg)

	return nil
}

// readStderr forwards stderr lines to the callback and the capped buffer.
// Relies on process exit to close the pipe and end the scan.
func (c *Channel) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), c.maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		c.stderrMu.Lock()

		if c.stderrBuf.Len() < maxStderrBufferSize {
			if c.stderrBuf.Len() > 0 {
				c.stderrBuf.WriteString("\n")
			}

			c.stderrBuf.WriteString(line)
		}

		c.stderrMu.Unlock()

		if c.stderrCallback != nil {
			c.stderrCallback(line)
		}
	}

	if err := scanner.Err(); err != nil {
		c.log.Debug("Stderr scanner error", "error", err)
	}
}

// readStdout splits stdout into lines until EOF, then reaps the process.
func (c *Channel) readStdout(r io.Reader, stderrWg *sync.WaitGroup) {
	defer c.log.Debug("Stdout reader stopped")

	lb := newLineBuffer(c.maxLineSize)
	buf := make([]byte, readChunkSize)
	stopped := false

	for !stopped {
		n, err := r.Read(buf)
		if n > 0 {
			lines, dropped := lb.Feed(buf[:n])
			if dropped > 0 {
				c.log.Warn("Dropped oversized line from process", "count", dropped, "max_line_size", c.maxLineSize)
			}

			for _, line := range lines {
				select {
				case c.lines <- line:
				case <-c.stop:
					stopped = true
				}

				if stopped {
					break
				}
			}
		}

		if err != nil {
			if !stderrors.Is(err, io.EOF) && !stderrors.Is(err, os.ErrClosed) {
				c.log.Debug("Stdout read error", "error", err)
			}

			break
		}
	}

	if stopped {
		// Keep draining so the process never blocks on a full pipe before it dies.
		_, _ = io.Copy(io.Discard, r)
	}

	if rest := lb.Pending(); rest > 0 {
		c.log.Debug("Discarding unterminated trailing output", "bytes", rest)
	}

	lb.Reset()
	close(c.lines)

	stderrWg.Wait()

	c.log.Debug("Waiting for process to exit")

	waitErr := c.cmd.Wait()

	c.mu.Lock()
	isClosing := c.closing
	c.stdinClosed = true
	c.mu.Unlock()

	exitCode := c.cmd.ProcessState.ExitCode()

	var exitErr error

	switch {
	case isClosing:
		c.log.Debug("Process terminated during shutdown", "exit_code", exitCode)
	default:
		c.stderrMu.Lock()
		stderrOutput := errors.TrimStderr(c.stderrBuf.String(), maxStderrReportSize)
		c.stderrMu.Unlock()

		if waitErr != nil {
			c.log.Error("Process exited with error", "exit_code", exitCode, "stderr", stderrOutput)
		} else {
			c.log.Info("Process exited", "exit_code", exitCode)
		}

		exitErr = &errors.ProcessError{
			ExitCode: exitCode,
			Stderr:   stderrOutput,
			Err:      waitErr,
		}
	}

	c.finish(exitCode, exitErr)
}

// finish records the exit status and fires the liveness notification once.
func (c *Channel) finish(exitCode int, exitErr error) {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		c.exitCode = exitCode
		c.exitErr = exitErr
		c.mu.Unlock()

		close(c.done)
	})
}

// Lines returns the sequence of complete lines read from the process stdout.
//
// The channel is not restartable and is closed when the process closes its
// output, exits, or the channel is closed.
func (c *Channel) Lines() <-chan []byte {
	return c.lines
}

// Done returns a channel that is closed exactly once when the process has terminated.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// ExitErr returns a ProcessError describing an exit the channel did not initiate.
// Returns nil while the process is running or after Close.
func (c *Channel) ExitErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exitErr
}

// ExitCode returns the process exit code, or -1 while running or when unavailable.
func (c *Channel) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exitCode
}

// Pid returns the process id, or 0 before Start.
func (c *Channel) Pid() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}

	return c.cmd.Process.Pid
}

// WriteLine writes data followed by a single newline to the process stdin.
//
// This method is safe for concurrent use: each line is written while holding
// the write lock, so lines from concurrent callers never interleave. It
// respects context cancellation while waiting for the lock and during
// blocking writes. A write cancelled part way closes stdin, returns an error
// matching ErrWriteAbandoned and the context error, and later calls return
// ChannelClosedError.
func (c *Channel) WriteLine(ctx context.Context, data []byte) error {
	if bytes.IndexByte(data, '\n') >= 0 {
		return fmt.Errorf("line contains a newline")
	}

	if err := c.acquireWrite(ctx); err != nil {
		return err
	}
	defer c.releaseWrite()

	c.mu.Lock()
	stdin := c.stdin
	closed := stdin == nil || c.stdinClosed || c.closing
	c.mu.Unlock()

	if closed {
		return &errors.ChannelClosedError{}
	}

	select {
	case <-c.done:
		return &errors.ChannelClosedError{}
	default:
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Explicit copy to avoid mutating the caller's backing array
	line := make([]byte, len(data)+1)
	copy(line, data)
	line[len(data)] = '\n'

	c.log.Debug("Writing line to process", "data_len", len(line))

	written := make(chan error, 1)

	go func() {
		_, err := stdin.Write(line)
		written <- err
	}()

	select {
	case err := <-written:
		if err != nil {
			c.log.Debug("Failed to write line to process", "error", err)

			if c.isClosing() {
				return &errors.ChannelClosedError{}
			}

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		select {
		case err := <-written:
			if err == nil {
				return nil
			}
		default:
		}

		c.log.Debug("Context cancelled during write, closing stdin")

		c.mu.Lock()
		c.stdinClosed = true
		c.mu.Unlock()

		// Close stdin to unblock the blocked Write
		_ = stdin.Close()

		select {
		case <-written:
		case <-time.After(writeAbandonTimeout):
			c.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return fmt.Errorf("%w: %w", errors.ErrWriteAbandoned, ctx.Err())
	}
}

func (c *Channel) writeLock() chan struct{} {
	c.writeSemOnce.Do(func() {
		c.writeSem = make(chan struct{}, 1)
	})

	return c.writeSem
}

// acquireWrite takes the write lock unless ctx ends or the process exits first.
func (c *Channel) acquireWrite(ctx context.Context) error {
	select {
	case c.writeLock() <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return &errors.ChannelClosedError{}
	}
}

func (c *Channel) releaseWrite() {
	<-c.writeLock()
}

// isClosing reports whether Close has been called.
func (c *Channel) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closing
}

// Close kills the process and releases the channel.
//
// It's safe to call Close multiple times, before Start, or on a process that
// has already exited. Close does not wait for the process to be reaped; use
// Done for that.
func (c *Channel) Close() error {
	c.mu.Lock()

	if c.closing {
		c.mu.Unlock()

		return nil
	}

	c.closing = true
	stdin := c.stdin
	stdinOpen := stdin != nil && !c.stdinClosed
	c.stdinClosed = true
	started := c.started
	cmd := c.cmd
	c.mu.Unlock()

	// Closing stdin also unblocks a write stuck on a full pipe
	if stdinOpen {
		_ = stdin.Close()
	}

	c.stopOnce.Do(func() { close(c.stop) })

	if !started {
		close(c.lines)
		c.finish(-1, nil)

		return nil
	}

	select {
	case <-c.done:
		return nil
	default:
	}

	c.log.Debug("Killing process", "pid", cmd.Process.Pid)

	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process (pid %d): %w", cmd.Process.Pid, err)
	}

	return nil
}
