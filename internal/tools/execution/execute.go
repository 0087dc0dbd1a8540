// Package execution implements jive_execute_work_item and
// jive_track_progress. The core never drives an
// external agent; it only records execution state transitions and
// progress history.
package execution

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/guards"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

// ExecuteTool implements jive_execute_work_item.
type ExecuteTool struct {
	svc *service.Service
}

// NewExecuteTool constructs jive_execute_work_item bound to svc.
func NewExecuteTool(svc *service.Service) *ExecuteTool { return &ExecuteTool{svc: svc} }

func (t *ExecuteTool) Name() string { return "jive_execute_work_item" }

func (t *ExecuteTool) Description() string {
	return "Create an execution record for a work item after readiness checks, or cancel/inspect an existing one."
}

func (t *ExecuteTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"namespace": {"type": "string"},
			"action": {"type": "string", "enum": ["start", "cancel", "status"]},
			"work_item_id": {"type": "string"},
			"execution_id": {"type": "string"},
			"mode": {"type": "string", "enum": ["autonomous", "guided", "validation_only"]},
			"validate_before_execution": {"type": "boolean"},
			"force": {"type": "boolean"},
			"agent_context": {"type": "object", "additionalProperties": {"type": "string"}}
		},
		"required": ["action"]
	}`)
}

type executeParams struct {
	Namespace               string            `json:"namespace,omitempty"`
	Action                  string            `json:"action"`
	WorkItemID              string            `json:"work_item_id,omitempty"`
	ExecutionID             string            `json:"execution_id,omitempty"`
	Mode                    string            `json:"mode,omitempty"`
	ValidateBeforeExecution *bool             `json:"validate_before_execution,omitempty"`
	Force                   bool              `json:"force,omitempty"`
	AgentContext            map[string]string `json:"agent_context,omitempty"`
}

func (t *ExecuteTool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p executeParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	switch p.Action {
	case "start":
		return t.start(ctx, s, p)
	case "cancel":
		return t.cancel(ctx, s, p)
	case "status":
		return t.status(ctx, s, p)
	default:
		return common.UnknownAction(p.Action)
	}
}

func (t *ExecuteTool) start(ctx context.Context, s *store.Store, p executeParams) (*mcp.ToolsCallResult, error) {
	if p.WorkItemID == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "work_item_id is required"))
	}

	validate := true
	if p.ValidateBeforeExecution != nil {
		validate = *p.ValidateBeforeExecution
	}

	if validate {
		gctx, err := guards.Populate(ctx, s, p.WorkItemID, p.Force)
		if err != nil {
			return common.Fail(err)
		}
		outcome := guards.NewRunner().Run(ctx, gctx, guards.ExecutionReadiness)
		if outcome.Blocked {
			return common.Fail(apperr.New(apperr.ValidationFailed, outcome.FormatBlockMessage()).WithDetails(map[string]any{
				"issues": outcome.Issues(),
			}))
		}
	}

	mode := model.ExecutionMode(p.Mode)
	if !mode.Valid() {
		mode = model.ModeAutonomous
	}

	rec := &model.ExecutionRecord{
		WorkItemID:   p.WorkItemID,
		Mode:         mode,
		Status:       model.ExecRunning,
		StartedAt:    time.Now().UTC(),
		AgentContext: p.AgentContext,
	}

	if err := s.WithWriteLock(func() error { return s.PutExecutionRecord(ctx, rec) }); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"execution_record": rec})
}

func (t *ExecuteTool) cancel(ctx context.Context, s *store.Store, p executeParams) (*mcp.ToolsCallResult, error) {
	if p.ExecutionID == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "execution_id is required"))
	}
	if err := s.WithWriteLock(func() error {
		return s.UpdateExecutionStatus(ctx, p.ExecutionID, model.ExecCancelled, true)
	}); err != nil {
		return common.Fail(err)
	}
	rec, err := s.GetExecutionRecord(ctx, p.ExecutionID)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"execution_record": rec})
}

func (t *ExecuteTool) status(ctx context.Context, s *store.Store, p executeParams) (*mcp.ToolsCallResult, error) {
	if p.ExecutionID != "" {
		rec, err := s.GetExecutionRecord(ctx, p.ExecutionID)
		if err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"execution_record": rec})
	}
	if p.WorkItemID == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "execution_id or work_item_id is required"))
	}
	recs, err := s.ListExecutionRecords(ctx, p.WorkItemID)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"execution_records": recs})
}
