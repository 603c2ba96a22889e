package protocol

import (
	"context"
	"encoding/json"
	"time"
)

// Call is an in-flight request issued with Engine.Go.
//
// A Call is completed exactly once, by whichever of the response, its
// deadline, an abandoning Wait, or engine shutdown removes it from the
// pending table first.
type Call struct {
	engine  *Engine
	id      int64
	method  string
	timeout time.Duration
	timer   *time.Timer

	done   chan struct{}
	result json.RawMessage
	err    error
}

func newCall(engine *Engine, id int64, method string, timeout time.Duration) *Call {
	return &Call{
		engine:  engine,
		id:      id,
		method:  method,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// ID returns the request id.
func (c *Call) ID() int64 {
	return c.id
}

// Method returns the request method.
func (c *Call) Method() string {
	return c.method
}

// Done returns a channel that is closed when the call completes.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the outcome of a completed call.
// It must only be called after Done is closed.
func (c *Call) Result() (json.RawMessage, error) {
	return c.result, c.err
}

// Wait blocks until the call completes or ctx ends.
//
// When ctx ends first the call is abandoned: it is removed from the pending
// table and completed with the context error, and a late response is dropped.
// If the call completed concurrently, that outcome is returned instead.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
	}

	if c.engine.claim(c.id) != nil {
		c.engine.log.Debug("Request abandoned", "id", c.id, "method", c.method, "error", ctx.Err())
		c.complete(nil, ctx.Err())
	}

	<-c.done

	return c.result, c.err
}

// complete records the outcome and releases waiters.
// Only the goroutine that removed the call from the pending table may call it.
func (c *Call) complete(result json.RawMessage, err error) {
	if c.timer != nil {
		c.timer.Stop()
	}

	c.result = result
	c.err = err
	close(c.done)
}
