// Package sync implements jive_sync_data, wrapping the
// bidirectional file<->store synchronization engine.
package sync

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/syncengine"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

// Tool implements jive_sync_data.
type Tool struct {
	svc *service.Service
}

// NewTool constructs jive_sync_data bound to svc.
func NewTool(svc *service.Service) *Tool { return &Tool{svc: svc} }

func (t *Tool) Name() string { return "jive_sync_data" }

func (t *Tool) Description() string {
	return "Synchronize work items and memory between the namespace store and a Markdown workspace directory."
}

func (t *Tool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"namespace": {"type": "string"},
			"direction": {"type": "string", "enum": ["file_to_db", "db_to_file", "bidirectional"]},
			"workspace_dir": {"type": "string"}
		},
		"required": ["direction"]
	}`)
}

type syncParams struct {
	Namespace    string `json:"namespace,omitempty"`
	Direction    string `json:"direction"`
	WorkspaceDir string `json:"workspace_dir,omitempty"`
}

func (t *Tool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p syncParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}

	switch syncengine.Direction(p.Direction) {
	case syncengine.FileToDB, syncengine.DBToFile, syncengine.Bidirectional:
	default:
		return common.Fail(apperr.Newf(apperr.ValidationError, "unknown direction %q", p.Direction))
	}

	ns, err := t.svc.DefaultNamespace(p.Namespace)
	if err != nil {
		return common.Fail(err)
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	workspaceDir := p.WorkspaceDir
	if workspaceDir == "" {
		workspaceDir = filepath.Join(t.svc.Config.Store.DataDir, "namespaces", ns, "workspace")
	}

	summary, err := t.svc.Sync.Run(ctx, s, workspaceDir, syncengine.Direction(p.Direction))
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{
		"created":   summary.Created,
		"updated":   summary.Updated,
		"unchanged": summary.Unchanged,
		"deleted":   summary.Deleted,
		"conflicts": summary.Conflicts,
	})
}
