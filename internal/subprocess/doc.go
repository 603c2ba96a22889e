// Package subprocess provides the process channel used to talk to a local
// JSON-RPC server.
//
// This package implements the Transport interface by spawning the server as a
// child process and exchanging newline-terminated lines over its stdin and
// stdout. Stderr is never parsed: it is streamed to an optional callback and a
// bounded tail is kept for error reports. It handles process lifecycle
// management, line framing across arbitrary read boundaries, and exit
// detection.
package subprocess
