package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoTool replies with the raw arguments it received, so tests can
// observe what the server handed to the tool.
type echoTool struct{}

func (echoTool) Name() string                 { return "jive_echo" }
func (echoTool) Description() string          { return "echoes its arguments" }
func (echoTool) InputSchema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (echoTool) Execute(_ context.Context, params json.RawMessage) (*ToolsCallResult, error) {
	return &ToolsCallResult{Content: []ContentBlock{TextContent(string(params))}}, nil
}

func testServer() *Server {
	reg := NewRegistry()
	reg.Register(echoTool{})
	return NewServer(reg, ServerInfo{Name: "jivemcp", Version: "test"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleMessageInitializeAdvertisesToolsOnly(t *testing.T) {
	s := testServer()
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test"}}}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(*InitializeResult)
	require.True(t, ok)
	assert.NotNil(t, result.Capabilities.Tools)
	assert.Equal(t, "jivemcp", result.ServerInfo.Name)
}

func TestHandleMessageToolsList(t *testing.T) {
	s := testServer()
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(*ToolsListResult)
	require.True(t, ok)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "jive_echo", result.Tools[0].Name)
}

func TestHandleMessageToolsCallMergesMetaNamespace(t *testing.T) {
	s := testServer()
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"jive_echo","arguments":{"query":"x"},"_meta":{"namespace":"team-a"}}}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(*ToolsCallResult)
	require.True(t, ok)
	require.NotEmpty(t, result.Content)

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &args))
	assert.Equal(t, "team-a", args["namespace"])
	assert.Equal(t, "x", args["query"])
}

func TestHandleMessageMetaNamespaceDoesNotClobberExplicit(t *testing.T) {
	s := testServer()
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"jive_echo","arguments":{"namespace":"explicit"},"_meta":{"namespace":"team-a"}}}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result := resp.Result.(*ToolsCallResult)
	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &args))
	assert.Equal(t, "explicit", args["namespace"])
}

func TestHandleMessageUnknownToolAndMethod(t *testing.T) {
	s := testServer()

	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"jive_missing"}}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)

	resp = s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":6,"method":"prompts/list"}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestHandleMessageNotificationGetsNoResponse(t *testing.T) {
	s := testServer()
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.Nil(t, resp)
}
