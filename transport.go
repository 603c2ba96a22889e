package mcpstdio

import "github.com/wagiedev/mcpstdio-go/internal/config"

// Transport defines the line-oriented conduit a client runs on.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., in-memory pipes).
//
// The default implementation spawns the server as a child process.
// Custom transports can be injected via WithTransport.
type Transport = config.Transport
