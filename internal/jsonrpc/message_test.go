package jsonrpc

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode_RequestOmitsNilParams(t *testing.T) {
	data, err := Encode(NewRequest(1, "tools/list", nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, string(data))
	require.NotContains(t, string(data), "params")
	require.NotContains(t, string(data), "\n")
}

func TestEncode_RequestWithParams(t *testing.T) {
	data, err := Encode(NewRequest(42, "tools/call", map[string]any{
		"name":      "search",
		"arguments": map[string]any{"query": "finops"},
	}))
	require.NoError(t, err)
	require.JSONEq(t,
		`{"jsonrpc":"2.0","id":42,"method":"tools/call","params":{"name":"search","arguments":{"query":"finops"}}}`,
		string(data),
	)
}

func TestEncode_Notification(t *testing.T) {
	data, err := Encode(NewNotification("notifications/initialized", nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, string(data))
}

func TestEncode_LargeIDIsExact(t *testing.T) {
	id := int64(math.MaxInt64)

	data, err := Encode(NewRequest(id, "ping", nil))
	require.NoError(t, err)
	require.Contains(t, string(data), `"id":`+strconv.FormatInt(id, 10))

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":` + strconv.FormatInt(id, 10) + `,"result":{}}`))
	require.NoError(t, err)
	require.True(t, msg.HasIntID)
	require.Equal(t, id, msg.ID)
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name         string
		line         string
		response     bool
		request      bool
		notification bool
		hasIntID     bool
		id           int64
	}{
		{
			name:     "success response",
			line:     `{"jsonrpc":"2.0","id":3,"result":{"tools":[]}}`,
			response: true,
			hasIntID: true,
			id:       3,
		},
		{
			name:     "error response",
			line:     `{"jsonrpc":"2.0","id":4,"error":{"code":-32601,"message":"nope"}}`,
			response: true,
			hasIntID: true,
			id:       4,
		},
		{
			name:     "null result",
			line:     `{"jsonrpc":"2.0","id":5,"result":null}`,
			response: true,
			hasIntID: true,
			id:       5,
		},
		{
			name:     "string id",
			line:     `{"jsonrpc":"2.0","id":"5","result":{}}`,
			response: true,
		},
		{
			name:     "fractional id",
			line:     `{"jsonrpc":"2.0","id":5.5,"result":{}}`,
			response: true,
		},
		{
			name:         "notification",
			line:         `{"jsonrpc":"2.0","method":"notifications/message","params":{"level":"info"}}`,
			notification: true,
		},
		{
			name:         "null id notification",
			line:         `{"jsonrpc":"2.0","id":null,"method":"notifications/progress"}`,
			notification: true,
		},
		{
			name:     "server request",
			line:     `{"jsonrpc":"2.0","id":9,"method":"ping"}`,
			request:  true,
			hasIntID: true,
			id:       9,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Decode([]byte(tc.line))
			require.NoError(t, err)
			require.Equal(t, tc.response, msg.IsResponse())
			require.Equal(t, tc.request, msg.IsRequest())
			require.Equal(t, tc.notification, msg.IsNotification())
			require.Equal(t, tc.hasIntID, msg.HasIntID)

			if tc.hasIntID {
				require.Equal(t, tc.id, msg.ID)
			}
		})
	}
}

func TestDecode_ErrorObject(t *testing.T) {
	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Unknown tool","data":{"tool":"x"}}}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Error)
	require.Equal(t, CodeInvalidParams, msg.Error.Code)
	require.Equal(t, "Unknown tool", msg.Error.Message)
	require.JSONEq(t, `{"tool":"x"}`, string(msg.Error.Data))
}

func TestDecode_Malformed(t *testing.T) {
	for _, line := range []string{
		`not json`,
		`{"jsonrpc":"2.0","id":1,`,
		`[1,2,3]`,
		`"just a string"`,
		`{"jsonrpc":"2.0","id":1,"error":"flat string"}`,
	} {
		_, err := Decode([]byte(line))
		require.Error(t, err, line)
	}

	_, err := Decode([]byte(`{}`))
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestNewResult(t *testing.T) {
	resp, err := NewResult(json.RawMessage(`7`), map[string]any{})
	require.NoError(t, err)

	data, err := Encode(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":7,"result":{}}`, string(data))
}

func TestNewErrorResponse(t *testing.T) {
	data, err := Encode(NewErrorResponse(json.RawMessage(`"abc"`), CodeMethodNotFound, "method not found: roots/list"))
	require.NoError(t, err)
	require.JSONEq(t,
		`{"jsonrpc":"2.0","id":"abc","error":{"code":-32601,"message":"method not found: roots/list"}}`,
		string(data),
	)
}
