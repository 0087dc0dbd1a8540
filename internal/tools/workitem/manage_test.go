package workitem

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxtra/jivemcp/internal/config"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

func testService(t *testing.T) *service.Service {
	t.Helper()
	cfg := &config.Config{
		Store: config.StoreConfig{
			DataDir:              t.TempDir(),
			DefaultNamespace:     "default",
			AutoCreateNamespaces: true,
			MaxOpenNamespaces:    4,
		},
		Worker:    config.WorkerConfig{PoolSize: 2, RequestTimeoutSeconds: 5},
		Transport: config.TransportConfig{Mode: "stdio"},
	}
	svc, err := service.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func callTool(t *testing.T, tool mcp.Tool, params string) common.Envelope {
	t.Helper()
	result, err := tool.Execute(context.Background(), json.RawMessage(params))
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	var env common.Envelope
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &env))
	return env
}

func createdID(t *testing.T, env common.Envelope) string {
	t.Helper()
	require.True(t, env.Success, "expected success, got error: %+v", env.Error)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	id, ok := data["id"].(string)
	require.True(t, ok)
	return id
}

func TestCreateReadRoundTrip(t *testing.T) {
	svc := testService(t)
	manage := NewManageTool(svc)
	get := NewGetTool(svc)

	env := callTool(t, manage, `{"action":"create","type":"task","title":"Add login"}`)
	id := createdID(t, env)

	env = callTool(t, get, `{"work_item_id":"`+id+`"}`)
	require.True(t, env.Success)
	data := env.Data.(map[string]any)
	item := data["work_item"].(map[string]any)
	assert.Equal(t, "Add login", item["title"])
	assert.Equal(t, "not_started", item["status"])
	assert.Equal(t, float64(0), item["sequence_order"])
	assert.Equal(t, float64(0), item["progress_percentage"])
}

func TestCreateEnforcesHierarchyRule(t *testing.T) {
	svc := testService(t)
	manage := NewManageTool(svc)

	env := callTool(t, manage, `{"action":"create","type":"epic","title":"Payments"}`)
	epicID := createdID(t, env)

	env = callTool(t, manage, `{"action":"create","type":"task","title":"Wrong level","parent_id":"`+epicID+`"}`)
	require.False(t, env.Success)
	assert.Equal(t, "HierarchyViolation", env.Error.Code)

	env = callTool(t, manage, `{"action":"create","type":"feature","title":"Card payments","parent_id":"`+epicID+`"}`)
	featureID := createdID(t, env)
	env = callTool(t, manage, `{"action":"create","type":"story","title":"Pay by card","parent_id":"`+featureID+`"}`)
	storyID := createdID(t, env)
	env = callTool(t, manage, `{"action":"create","type":"task","title":"Add form","parent_id":"`+storyID+`"}`)
	createdID(t, env)
}

func TestDeleteWithChildrenRequiresFlag(t *testing.T) {
	svc := testService(t)
	manage := NewManageTool(svc)
	get := NewGetTool(svc)

	env := callTool(t, manage, `{"action":"create","type":"story","title":"Story"}`)
	storyID := createdID(t, env)
	env = callTool(t, manage, `{"action":"create","type":"task","title":"Child task","parent_id":"`+storyID+`"}`)
	taskID := createdID(t, env)

	env = callTool(t, manage, `{"action":"delete","work_item_id":"`+storyID+`"}`)
	require.False(t, env.Success)
	assert.Equal(t, "HasChildren", env.Error.Code)

	env = callTool(t, manage, `{"action":"delete","work_item_id":"`+storyID+`","delete_children":true}`)
	require.True(t, env.Success)

	env = callTool(t, get, `{"work_item_id":"`+taskID+`"}`)
	require.False(t, env.Success)
	assert.Equal(t, "NotFound", env.Error.Code)
}

func TestUpdateRecordsProgressEvent(t *testing.T) {
	svc := testService(t)
	manage := NewManageTool(svc)

	env := callTool(t, manage, `{"action":"create","type":"task","title":"Track me"}`)
	id := createdID(t, env)

	env = callTool(t, manage, `{"action":"update","work_item_id":"`+id+`","status":"in_progress","progress_percentage":40}`)
	require.True(t, env.Success)

	st, ctx, release, err := svc.Handle(context.Background(), "default")
	require.NoError(t, err)
	defer release()
	events, err := st.ListProgressEvents(ctx, id, nil, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 40, events[0].Percentage)
}

func TestUnknownActionRejected(t *testing.T) {
	svc := testService(t)
	manage := NewManageTool(svc)

	env := callTool(t, manage, `{"action":"archive"}`)
	require.False(t, env.Success)
	assert.Equal(t, "UnknownAction", env.Error.Code)
}

func TestCreateRecomputesParentRollUp(t *testing.T) {
	svc := testService(t)
	manage := NewManageTool(svc)
	get := NewGetTool(svc)

	env := callTool(t, manage, `{"action":"create","type":"story","title":"Story"}`)
	storyID := createdID(t, env)
	env = callTool(t, manage, `{"action":"create","type":"task","title":"First","parent_id":"`+storyID+`"}`)
	firstID := createdID(t, env)

	env = callTool(t, manage, `{"action":"update","work_item_id":"`+firstID+`","status":"completed","progress_percentage":100}`)
	require.True(t, env.Success)

	env = callTool(t, get, `{"work_item_id":"`+storyID+`"}`)
	require.True(t, env.Success)
	item := env.Data.(map[string]any)["work_item"].(map[string]any)
	assert.Equal(t, "completed", item["status"])
	assert.Equal(t, float64(100), item["progress_percentage"])

	env = callTool(t, manage, `{"action":"create","type":"task","title":"Second","parent_id":"`+storyID+`"}`)
	createdID(t, env)

	env = callTool(t, get, `{"work_item_id":"`+storyID+`"}`)
	require.True(t, env.Success)
	item = env.Data.(map[string]any)["work_item"].(map[string]any)
	assert.Equal(t, "in_progress", item["status"])
	assert.Equal(t, float64(50), item["progress_percentage"])
}
