// Package protocol implements the JSON-RPC 2.0 engine that drives a server
// process over a line transport.
//
// The Engine handles:
//   - The connect lifecycle: start the transport, wait a startup grace period,
//     perform the initialize handshake, then become ready
//   - Allocating strictly increasing int64 request ids starting at 1
//   - Correlating responses to pending requests, each with its own deadline
//   - Answering requests from the server (ping, method not found)
//   - Forwarding server notifications to an optional hook
//   - Failing every pending request when the process dies or the engine closes
//
// Example usage:
//
//	channel := subprocess.NewChannel(log, spec, nil, 0)
//	engine := protocol.NewEngine(log, channel, options)
//
//	if err := engine.Connect(ctx); err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	result, err := engine.Call(ctx, "tools/list", nil)
//
// An Engine is single-use: once closed it cannot be reconnected.
package protocol
