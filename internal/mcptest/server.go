package mcptest

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcpstdio-go/internal/jsonrpc"
)

// Mode selects how a Server misbehaves.
type Mode string

const (
	// ModeServe answers every request.
	ModeServe Mode = "serve"

	// ModeSilent reads requests and never answers them.
	ModeSilent Mode = "silent"

	// ModeRejectInitialize answers initialize with a JSON-RPC error.
	ModeRejectInitialize Mode = "reject-initialize"

	// ModeCrashOnCall completes the handshake, then stops serving without
	// answering the first request that follows.
	ModeCrashOnCall Mode = "crash-on-call"

	// ModeStall completes the handshake, then stops reading its input
	// until the server is stopped.
	ModeStall Mode = "stall"

	// ModeNoisy writes log lines and junk to stdout around every response
	// and pings the client before answering tools/call.
	ModeNoisy Mode = "noisy"
)

// ErrCrashed is returned by Serve in ModeCrashOnCall.
var ErrCrashed = stderrors.New("fake server crashed")

// Server is a scripted MCP server speaking newline-delimited JSON-RPC.
//
// Tools are registered with the official SDK's types and handlers, and served
// in registration order.
type Server struct {
	name    string
	version string

	// Mode controls failure behavior. The zero value behaves like ModeServe.
	Mode Mode

	// PageSize splits tools/list into pages of this size. Zero disables pagination.
	PageSize int

	// Stderr receives diagnostic lines in ModeNoisy and on crash.
	Stderr io.Writer

	mu       sync.RWMutex
	tools    map[string]*serverTool
	order    []string
	received []string

	writeMu sync.Mutex
}

type serverTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewServer creates an empty server.
func NewServer(name, version string) *Server {
	return &Server{
		name:    name,
		version: version,
		tools:   make(map[string]*serverTool, 8),
	}
}

// AddTool registers a tool with the server, replacing one with the same name.
func (s *Server) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tools[tool.Name]; !exists {
		s.order = append(s.order, tool.Name)
	}

	s.tools[tool.Name] = &serverTool{tool: tool, handler: handler}
}

// Received returns the method of every message read so far, in order.
func (s *Server) Received() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.received)
}

func (s *Server) record(method string) {
	s.mu.Lock()
	s.received = append(s.received, method)
	s.mu.Unlock()
}

// Serve reads requests from r and writes responses to w until r is exhausted
// or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if handleErr := s.handleLine(ctx, w, line); handleErr != nil {
				return handleErr
			}
		}

		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}

			return err
		}
	}
}

func (s *Server) handleLine(ctx context.Context, w io.Writer, line []byte) error {
	msg, err := jsonrpc.Decode(line)
	if err != nil {
		if len(trimNewline(line)) == 0 {
			return nil
		}

		return s.write(w, jsonrpc.NewErrorResponse(json.RawMessage("null"), jsonrpc.CodeParseError, err.Error()))
	}

	if msg.Method != "" {
		s.record(msg.Method)
	}

	if s.Mode == ModeStall && msg.Method == "notifications/initialized" {
		s.logf("no longer reading input")
		<-ctx.Done()

		return ctx.Err()
	}

	if !msg.IsRequest() || s.Mode == ModeSilent {
		return nil
	}

	if s.Mode == ModeCrashOnCall && msg.Method != "initialize" {
		s.logf("crashing on %s", msg.Method)

		return ErrCrashed
	}

	if s.Mode == ModeNoisy {
		s.logf("handling %s", msg.Method)

		if err := s.writeRaw(w, []byte("fake-server: not json")); err != nil {
			return err
		}

		if msg.Method == "tools/call" {
			ping := jsonrpc.NewRequest(9001, "ping", nil)
			if err := s.write(w, ping); err != nil {
				return err
			}
		}
	}

	return s.write(w, s.dispatch(ctx, msg))
}

func (s *Server) dispatch(ctx context.Context, msg *jsonrpc.Message) *jsonrpc.Response {
	switch msg.Method {
	case "initialize":
		if s.Mode == ModeRejectInitialize {
			return jsonrpc.NewErrorResponse(msg.RawID, jsonrpc.CodeInvalidRequest, "unsupported protocol version")
		}

		return s.result(msg, s.initializeResult(msg.Params))
	case "ping":
		return s.result(msg, map[string]any{})
	case "tools/list":
		return s.listTools(msg)
	case "tools/call":
		return s.callTool(ctx, msg)
	default:
		return jsonrpc.NewErrorResponse(msg.RawID, jsonrpc.CodeMethodNotFound, "method not found: "+msg.Method)
	}
}

func (s *Server) initializeResult(params json.RawMessage) *mcp.InitializeResult {
	version := "2024-11-05"

	var init struct {
		ProtocolVersion string `json:"protocolVersion"`
	}

	if json.Unmarshal(params, &init) == nil && init.ProtocolVersion != "" {
		version = init.ProtocolVersion
	}

	return &mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    &mcp.ServerCapabilities{Tools: &mcp.ToolCapabilities{}},
		ServerInfo:      &mcp.Implementation{Name: s.name, Version: s.version},
	}
}

func (s *Server) listTools(msg *jsonrpc.Message) *jsonrpc.Response {
	var params struct {
		Cursor string `json:"cursor"`
	}

	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(msg.RawID, jsonrpc.CodeInvalidParams, err.Error())
		}
	}

	s.mu.RLock()
	all := make([]*mcp.Tool, 0, len(s.order))
	for _, name := range s.order {
		all = append(all, s.tools[name].tool)
	}
	s.mu.RUnlock()

	start := 0

	if params.Cursor != "" {
		if _, err := fmt.Sscanf(params.Cursor, "page-%d", &start); err != nil || start < 0 || start > len(all) {
			return jsonrpc.NewErrorResponse(msg.RawID, jsonrpc.CodeInvalidParams, "invalid cursor: "+params.Cursor)
		}
	}

	end := len(all)
	if s.PageSize > 0 && start+s.PageSize < end {
		end = start + s.PageSize
	}

	result := map[string]any{"tools": all[start:end]}
	if end < len(all) {
		result["nextCursor"] = fmt.Sprintf("page-%d", end)
	}

	return s.result(msg, result)
}

func (s *Server) callTool(ctx context.Context, msg *jsonrpc.Message) *jsonrpc.Response {
	var params mcp.CallToolParamsRaw
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return jsonrpc.NewErrorResponse(msg.RawID, jsonrpc.CodeInvalidParams, err.Error())
	}

	s.mu.RLock()
	t, exists := s.tools[params.Name]
	s.mu.RUnlock()

	if !exists {
		return jsonrpc.NewErrorResponse(msg.RawID, jsonrpc.CodeInvalidParams, "unknown tool: "+params.Name)
	}

	result, err := t.handler(ctx, &mcp.CallToolRequest{Params: &params})
	if err != nil {
		result = ErrorResult("Tool execution failed: " + err.Error())
	}

	if result == nil {
		result = &mcp.CallToolResult{Content: []mcp.Content{}}
	}

	return s.result(msg, result)
}

func (s *Server) result(msg *jsonrpc.Message, result any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResult(msg.RawID, result)
	if err != nil {
		return jsonrpc.NewErrorResponse(msg.RawID, jsonrpc.CodeInternalError, err.Error())
	}

	return resp
}

func (s *Server) write(w io.Writer, v any) error {
	line, err := jsonrpc.Encode(v)
	if err != nil {
		return err
	}

	return s.writeRaw(w, line)
}

func (s *Server) writeRaw(w io.Writer, line []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}

func (s *Server) logf(format string, args ...any) {
	if s.Stderr == nil {
		return
	}

	fmt.Fprintf(s.Stderr, "%s %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
}

func trimNewline(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}

	return line
}

// SimpleSchema creates an object schema requiring every listed property.
//
// Input format: {"a": "float64", "b": "string"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = goTypeToJSONSchema(goType)
		required = append(required, name)
	}

	slices.Sort(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func goTypeToJSONSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		if len(goType) > 2 && goType[:2] == "[]" {
			return &jsonschema.Schema{
				Type:  "array",
				Items: goTypeToJSONSchema(goType[2:]),
			}
		}

		return &jsonschema.Schema{Type: "string"}
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return args, nil
}
