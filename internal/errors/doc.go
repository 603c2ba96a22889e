// Package errors defines error types for the stdio JSON-RPC client.
//
// This package provides structured error types for every way a call to a
// child process can fail: the process could not be spawned, the initialize
// handshake failed, a request timed out, the server answered with a JSON-RPC
// error object, or the connection went away while a request was outstanding.
// All error types support error unwrapping and can be checked using
// errors.Is, errors.As, and errors.AsType.
package errors
