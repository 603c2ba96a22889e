// Package mcptest provides a scripted MCP server for tests.
//
// A Server answers initialize, ping, tools/list, and tools/call over
// newline-delimited JSON-RPC. It can run in-process behind a Transport, or in
// a child process by re-executing the test binary:
//
//	func TestMain(m *testing.M) {
//		mcptest.RunIfHelper()
//		os.Exit(m.Run())
//	}
//
//	spec, err := mcptest.HelperSpec(mcptest.ModeServe)
//
// Modes script the failures a real server exhibits: never answering,
// rejecting the handshake, crashing, and mixing noise into its output.
package mcptest
