// Package jsonrpc implements the JSON-RPC 2.0 wire format exchanged with a
// child process, one JSON object per newline-terminated line.
//
// Outbound requests carry int64 ids and omit "params" entirely when there are
// none, since some servers reject unexpected members. Inbound lines decode into
// a Message that classifies itself as a response, a request from the process,
// or a notification.
package jsonrpc
