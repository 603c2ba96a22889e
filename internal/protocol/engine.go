package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/mcpstdio-go/internal/config"
	"github.com/wagiedev/mcpstdio-go/internal/errors"
	"github.com/wagiedev/mcpstdio-go/internal/jsonrpc"
	"github.com/wagiedev/mcpstdio-go/internal/mcp"
)

const (
	// maxLoggedLineSize bounds the raw line attached to malformed message logs.
	maxLoggedLineSize = 512

	// notificationBacklog bounds notifications queued for a slow handler.
	notificationBacklog = 64
)

type notification struct {
	method string
	params json.RawMessage
}

// Engine speaks JSON-RPC 2.0 to a server over a line transport.
//
// The Engine owns its transport: Connect starts it and Close terminates it.
// All methods are safe for concurrent use.
type Engine struct {
	log       *slog.Logger
	transport config.Transport
	options   *config.Options
	connID    string

	stateMu    sync.RWMutex
	state      State
	serverInfo *mcpgo.InitializeResult

	nextID atomic.Int64

	// Pending table. The goroutine that deletes an entry completes it.
	pendingMu sync.Mutex
	pending   map[int64]*Call
	drained   bool

	// Goroutine management for the dispatch loop, exit watcher, and replies
	eg           *errgroup.Group
	stop         chan struct{}
	dispatchDone chan struct{}
	closeOnce    sync.Once

	// Notifications are handed to OnNotification in order on their own goroutine.
	notifications chan notification
}

// NewEngine creates a disconnected engine on top of transport.
//
// The logger receives debug traffic logs, warnings for timeouts and malformed
// lines, and errors for unexpected process exits. Every record carries a
// conn_id unique to this engine.
func NewEngine(log *slog.Logger, transport config.Transport, options *config.Options) *Engine {
	if options == nil {
		options = &config.Options{}
	}

	connID := ulid.Make().String()

	return &Engine{
		log:          log.With("component", "engine", "conn_id", connID),
		transport:    transport,
		options:      options,
		connID:       connID,
		pending:      make(map[int64]*Call, 8),
		eg:           new(errgroup.Group),
		stop:          make(chan struct{}),
		dispatchDone:  make(chan struct{}),
		notifications: make(chan notification, notificationBacklog),
	}
}

// ConnID returns the identifier attached to this engine's log records.
func (e *Engine) ConnID() string {
	return e.connID
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	return e.state
}

// ServerInfo returns the server's initialize result, or nil before the engine is ready.
func (e *Engine) ServerInfo() *mcpgo.InitializeResult {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	return e.serverInfo
}

// setClosed moves the engine to its terminal state.
func (e *Engine) setClosed() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	e.state = StateClosed
}

// Connect starts the transport and performs the initialize handshake.
//
// After the transport starts, Connect waits for the configured startup grace
// period (cut short when ctx ends or the process dies), then sends initialize
// and the initialized notification. On success the engine is ready.
//
// Returns SpawnError if the transport cannot start and HandshakeError if the
// handshake fails; in both cases the engine is closed. Returns
// ErrAlreadyConnected on a second call and ErrEngineClosed after Close.
func (e *Engine) Connect(ctx context.Context) error {
	e.stateMu.Lock()

	switch e.state {
	case StateDisconnected:
		e.state = StateConnecting
	case StateClosed:
		e.stateMu.Unlock()

		return errors.ErrEngineClosed
	default:
		e.stateMu.Unlock()

		return errors.ErrAlreadyConnected
	}

	e.stateMu.Unlock()

	e.log.Info("Connecting")

	if err := e.transport.Start(ctx); err != nil {
		e.log.Error("Failed to start transport", "error", err)
		_ = e.Close()

		if _, ok := stderrors.AsType[*errors.SpawnError](err); ok {
			return err
		}

		var command string
		if e.options.Spawn != nil {
			command = e.options.Spawn.Command
		}

		return &errors.SpawnError{Command: command, Err: err}
	}

	// The delivery goroutine stays outside eg so a handler may call Close.
	go e.deliverNotifications()

	e.eg.Go(e.dispatchLoop)
	e.eg.Go(e.watchExit)

	e.waitStartupGrace(ctx)

	result, err := e.handshake(ctx)
	if err != nil {
		e.log.Error("Handshake failed", "error", err)
		_ = e.Close()

		return &errors.HandshakeError{Err: err}
	}

	e.stateMu.Lock()

	if e.state != StateConnecting {
		state := e.state
		e.stateMu.Unlock()
		_ = e.Close()

		return &errors.HandshakeError{Err: &errors.NotConnectedError{State: state.String()}}
	}

	e.state = StateReady
	e.serverInfo = result
	e.stateMu.Unlock()

	if result.ServerInfo != nil {
		e.log.Info("Connected",
			"server", result.ServerInfo.Name,
			"server_version", result.ServerInfo.Version,
			"protocol_version", result.ProtocolVersion,
		)
	} else {
		e.log.Info("Connected", "protocol_version", result.ProtocolVersion)
	}

	return nil
}

// waitStartupGrace gives a freshly spawned process time to become responsive.
func (e *Engine) waitStartupGrace(ctx context.Context) {
	grace := e.options.EffectiveStartupGrace()
	if grace <= 0 {
		return
	}

	e.log.Debug("Waiting for process startup", "grace", grace)

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-e.transport.Done():
	}
}

// handshake sends initialize, decodes the result, and announces initialized.
func (e *Engine) handshake(ctx context.Context) (*mcpgo.InitializeResult, error) {
	params := mcp.NewInitializeParams(e.options)

	call, err := e.send(ctx, mcp.MethodInitialize, params, e.options.EffectiveHandshakeTimeout())
	if err != nil {
		return nil, err
	}

	raw, err := call.Wait(ctx)
	if err != nil {
		return nil, err
	}

	result, err := mcp.DecodeInitializeResult(raw)
	if err != nil {
		return nil, err
	}

	if err := e.notify(ctx, mcp.MethodInitialized, nil); err != nil {
		return nil, err
	}

	return result, nil
}

// Go issues a request and returns without waiting for its response.
//
// A timeout of zero or less selects the configured request timeout. The
// deadline is armed before the request is written. Returns NotConnectedError
// unless the engine is ready.
func (e *Engine) Go(ctx context.Context, method string, params any, timeout time.Duration) (*Call, error) {
	if state := e.State(); state != StateReady {
		return nil, &errors.NotConnectedError{State: state.String()}
	}

	return e.send(ctx, method, params, timeout)
}

// Call issues a request with the configured request timeout and waits for its result.
func (e *Engine) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return e.CallWithTimeout(ctx, method, params, 0)
}

// CallWithTimeout issues a request with an explicit deadline and waits for its result.
//
// The result is the raw "result" member of the response. Failures are
// RemoteError, RequestTimeoutError, ConnectionClosedError, or the context
// error when ctx ends first.
func (e *Engine) CallWithTimeout(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, error) {
	call, err := e.Go(ctx, method, params, timeout)
	if err != nil {
		return nil, err
	}

	return call.Wait(ctx)
}

// Notify sends a notification, which has no id and receives no response.
func (e *Engine) Notify(ctx context.Context, method string, params any) error {
	if state := e.State(); state != StateReady {
		return &errors.NotConnectedError{State: state.String()}
	}

	return e.notify(ctx, method, params)
}

// send registers a pending call, arms its deadline, and writes the request.
func (e *Engine) send(ctx context.Context, method string, params any, timeout time.Duration) (*Call, error) {
	if timeout <= 0 {
		timeout = e.options.EffectiveRequestTimeout()
	}

	id := e.nextID.Add(1)

	data, err := jsonrpc.Encode(jsonrpc.NewRequest(id, method, params))
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	call := newCall(e, id, method, timeout)

	e.pendingMu.Lock()

	if e.drained {
		e.pendingMu.Unlock()

		return nil, &errors.NotConnectedError{State: StateClosed.String()}
	}

	e.pending[id] = call
	call.timer = time.AfterFunc(timeout, func() { e.expire(id) })

	e.pendingMu.Unlock()

	e.log.Debug("Sending request", "id", id, "method", method)

	// The write shares the call's deadline: a server that stops reading
	// must not hold the caller past it.
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	err = e.transport.WriteLine(writeCtx, data)
	cancel()

	if err == nil {
		return call, nil
	}

	if e.claim(id) != nil {
		if ctx.Err() == nil && stderrors.Is(err, context.DeadlineExceeded) {
			err = &errors.RequestTimeoutError{Method: method, ID: id, Timeout: timeout}
		} else {
			err = e.writeError(method, err)
		}

		call.complete(nil, err)
	} else {
		// Completed concurrently (shutdown or deadline); report that outcome.
		<-call.done
	}

	e.closeIfAbandoned(method, err)

	return nil, call.err
}

func (e *Engine) notify(ctx context.Context, method string, params any) error {
	data, err := jsonrpc.Encode(jsonrpc.NewNotification(method, params))
	if err != nil {
		return fmt.Errorf("encode %s notification: %w", method, err)
	}

	e.log.Debug("Sending notification", "method", method)

	writeCtx, cancel := context.WithTimeout(ctx, e.options.EffectiveRequestTimeout())
	defer cancel()

	if err := e.transport.WriteLine(writeCtx, data); err != nil {
		e.closeIfAbandoned(method, err)

		return e.writeError(method, err)
	}

	return nil
}

// closeIfAbandoned closes the engine after a write gave up part way through a
// line. The server can no longer parse anything that follows.
func (e *Engine) closeIfAbandoned(method string, err error) {
	if !stderrors.Is(err, errors.ErrWriteAbandoned) {
		return
	}

	e.log.Error("Write abandoned, closing connection", "method", method, "error", err)
	_ = e.Close()
}

// writeError maps a transport write failure to the error reported to callers.
func (e *Engine) writeError(method string, err error) error {
	if stderrors.Is(err, errors.ErrChannelClosed) || stderrors.Is(err, errors.ErrWriteAbandoned) {
		return &errors.ConnectionClosedError{Err: err}
	}

	return fmt.Errorf("send %s: %w", method, err)
}

// claim removes a pending call, returning nil if another path already removed it.
func (e *Engine) claim(id int64) *Call {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	call, ok := e.pending[id]
	if !ok {
		return nil
	}

	delete(e.pending, id)

	return call
}

// expire fails a call whose deadline passed. Only that call is affected.
func (e *Engine) expire(id int64) {
	call := e.claim(id)
	if call == nil {
		return
	}

	e.log.Warn("Request timed out", "id", id, "method", call.method, "timeout", call.timeout)

	call.complete(nil, &errors.RequestTimeoutError{
		Method:  call.method,
		ID:      id,
		Timeout: call.timeout,
	})
}

// drain fails every pending call and rejects later registrations.
func (e *Engine) drain(cause error) {
	e.pendingMu.Lock()

	e.drained = true
	calls := e.pending
	e.pending = make(map[int64]*Call)

	e.pendingMu.Unlock()

	if len(calls) > 0 {
		e.log.Debug("Failing pending requests", "count", len(calls))
	}

	for _, call := range calls {
		call.complete(nil, &errors.ConnectionClosedError{Err: cause})
	}
}

// pendingCount returns the number of outstanding calls.
func (e *Engine) pendingCount() int {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	return len(e.pending)
}

// dispatchLoop routes every line received from the transport.
func (e *Engine) dispatchLoop() error {
	defer close(e.dispatchDone)
	defer close(e.notifications)
	defer e.log.Debug("Dispatch loop stopped")

	lines := e.transport.Lines()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				e.log.Debug("Line stream closed")

				return nil
			}

			e.handleLine(line)

		case <-e.stop:
			return nil
		}
	}
}

// handleLine decodes one line and routes it by message kind.
func (e *Engine) handleLine(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	msg, err := jsonrpc.Decode(line)
	if err != nil {
		raw := line
		if len(raw) > maxLoggedLineSize {
			raw = raw[:maxLoggedLineSize]
		}

		malformed := &errors.MalformedMessageError{RawData: string(raw), Err: err}
		e.log.Warn("Dropping malformed line", "error", malformed, "line", malformed.RawData)

		return
	}

	switch {
	case msg.IsResponse():
		e.handleResponse(msg)
	case msg.IsRequest():
		e.handleServerRequest(msg)
	case msg.IsNotification():
		e.handleNotification(msg)
	default:
		e.log.Debug("Dropping message without id or method")
	}
}

// handleResponse completes the pending call matching the response id.
func (e *Engine) handleResponse(msg *jsonrpc.Message) {
	if !msg.HasIntID {
		e.log.Debug("Dropping response with non-integer id", "id", string(msg.RawID))

		return
	}

	call := e.claim(msg.ID)
	if call == nil {
		e.log.Debug("Dropping response for unknown request", "id", msg.ID)

		return
	}

	if msg.Error != nil {
		e.log.Debug("Received error response",
			"id", msg.ID,
			"method", call.method,
			"code", msg.Error.Code,
		)

		call.complete(nil, &errors.RemoteError{
			Code:    msg.Error.Code,
			Message: msg.Error.Message,
			Data:    msg.Error.Data,
		})

		return
	}

	result := msg.Result
	if result == nil {
		result = json.RawMessage("null")
	}

	e.log.Debug("Received response", "id", msg.ID, "method", call.method)
	call.complete(result, nil)
}

// handleServerRequest answers requests sent by the server.
// Only ping is supported; anything else gets method not found.
func (e *Engine) handleServerRequest(msg *jsonrpc.Message) {
	var resp *jsonrpc.Response

	switch msg.Method {
	case mcp.MethodPing:
		e.log.Debug("Answering ping")

		result, err := jsonrpc.NewResult(msg.RawID, struct{}{})
		if err != nil {
			e.log.Error("Failed to build ping response", "error", err)

			return
		}

		resp = result

	default:
		e.log.Debug("Rejecting unsupported server request", "method", msg.Method)

		resp = jsonrpc.NewErrorResponse(msg.RawID, jsonrpc.CodeMethodNotFound, "method not found: "+msg.Method)
	}

	// Replies are written off the dispatch loop so a full stdin pipe cannot stall reads.
	e.eg.Go(func() error {
		e.reply(resp)

		return nil
	})
}

func (e *Engine) reply(resp *jsonrpc.Response) {
	data, err := jsonrpc.Encode(resp)
	if err != nil {
		e.log.Error("Failed to encode response", "error", err)

		return
	}

	if err := e.transport.WriteLine(context.Background(), data); err != nil {
		e.log.Debug("Could not answer server request", "error", err)
	}
}

// handleNotification queues a server notification for the configured hook.
// A full queue drops the notification rather than stall response routing.
func (e *Engine) handleNotification(msg *jsonrpc.Message) {
	if e.options.OnNotification == nil {
		e.log.Debug("Dropping notification", "method", msg.Method)

		return
	}

	select {
	case e.notifications <- notification{method: msg.Method, params: msg.Params}:
	default:
		e.log.Warn("Notification handler is behind, dropping notification", "method", msg.Method)
	}
}

func (e *Engine) deliverNotifications() {
	for n := range e.notifications {
		e.options.OnNotification(n.method, n.params)
	}
}

// watchExit closes the engine when the transport terminates on its own.
func (e *Engine) watchExit() error {
	select {
	case <-e.transport.Done():
	case <-e.stop:
		return nil
	}

	// Deliver responses that were written before the exit.
	select {
	case <-e.dispatchDone:
	case <-e.stop:
		return nil
	}

	select {
	case <-e.stop:
		return nil
	default:
	}

	exitErr := e.transport.ExitErr()
	e.log.Error("Process exited unexpectedly", "error", exitErr)

	e.setClosed()
	e.drain(exitErr)

	return nil
}

// Close terminates the transport and fails every pending call with
// ConnectionClosedError. It waits for the engine goroutines to finish.
//
// It's safe to call Close multiple times; only the first call has effect.
func (e *Engine) Close() error {
	var err error

	e.closeOnce.Do(func() {
		e.log.Debug("Closing engine")

		e.setClosed()
		close(e.stop)

		if closeErr := e.transport.Close(); closeErr != nil {
			err = fmt.Errorf("close transport: %w", closeErr)
		}

		e.drain(nil)

		_ = e.eg.Wait()

		e.log.Info("Engine closed")
	})

	return err
}
