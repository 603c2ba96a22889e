package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Version is the value of the "jsonrpc" member of every message.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ErrInvalidMessage indicates a line parsed as JSON but is not a JSON-RPC 2.0 message.
var ErrInvalidMessage = errors.New("not a JSON-RPC 2.0 message")

// Request is an outbound JSON-RPC 2.0 request, or a notification when ID is nil.
//
// Wire format:
//
//	{"jsonrpc":"2.0","id":1,"method":"tools/list"}
//	{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"search"}}
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest builds a request with the given id. Nil params are omitted from the wire.
func NewRequest(id int64, method string, params any) *Request {
	return &Request{JSONRPC: Version, ID: &id, Method: method, Params: params}
}

// NewNotification builds a notification. Nil params are omitted from the wire.
func NewNotification(method string, params any) *Request {
	return &Request{JSONRPC: Version, Method: method, Params: params}
}

// Response is an outbound JSON-RPC 2.0 response to a request from the process.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Message is a decoded inbound JSON-RPC 2.0 message: a response, a request, or a notification.
type Message struct {
	JSONRPC string
	// RawID is the id exactly as sent, nil when absent or null.
	RawID json.RawMessage
	// ID is the integer value of RawID. Valid only when HasIntID is true.
	ID       int64
	HasIntID bool
	Method   string
	Params   json.RawMessage
	Result   json.RawMessage
	Error    *Error
}

// IsResponse reports whether the message answers a request (id present, no method).
func (m *Message) IsResponse() bool {
	return m.RawID != nil && m.Method == ""
}

// IsRequest reports whether the message is a request from the process (id and method present).
func (m *Message) IsRequest() bool {
	return m.RawID != nil && m.Method != ""
}

// IsNotification reports whether the message is a notification (method present, no id).
func (m *Message) IsNotification() bool {
	return m.RawID == nil && m.Method != ""
}

// wireMessage is the union of all inbound message members.
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

var nullJSON = []byte("null")

// Decode parses one line into a Message.
//
// Integer ids are parsed exactly into int64; ids of any other shape are kept
// in RawID but never reported as integers, so they cannot match a pending request.
func Decode(line []byte) (*Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(line, &wire); err != nil {
		return nil, err
	}

	if wire.Method == "" && wire.ID == nil && wire.Result == nil && wire.Error == nil {
		return nil, ErrInvalidMessage
	}

	msg := &Message{
		JSONRPC: wire.JSONRPC,
		Method:  wire.Method,
		Params:  wire.Params,
		Result:  wire.Result,
		Error:   wire.Error,
	}

	if len(wire.ID) > 0 && !bytes.Equal(wire.ID, nullJSON) {
		msg.RawID = wire.ID
		if id, err := strconv.ParseInt(string(wire.ID), 10, 64); err == nil {
			msg.ID = id
			msg.HasIntID = true
		}
	}

	return msg, nil
}

// Encode serializes v as a single line without a trailing newline.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	return data, nil
}

// NewResult builds a success response echoing the raw id of a request.
func NewResult(id json.RawMessage, result any) (*Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	return &Response{JSONRPC: Version, ID: id, Result: data}, nil
}

// NewErrorResponse builds an error response echoing the raw id of a request.
func NewErrorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
}
