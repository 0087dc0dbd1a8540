package hierarchy

import (
	"context"
	"encoding/json"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/hierarchy"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

// ReorderTool implements jive_reorder_work_items.
type ReorderTool struct {
	svc *service.Service
}

// NewReorderTool constructs jive_reorder_work_items bound to svc.
func NewReorderTool(svc *service.Service) *ReorderTool { return &ReorderTool{svc: svc} }

func (t *ReorderTool) Name() string { return "jive_reorder_work_items" }

func (t *ReorderTool) Description() string {
	return "Reorder, move, swap, or recalculate sequence_order among sibling work items."
}

func (t *ReorderTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"namespace": {"type": "string"},
			"action": {"type": "string", "enum": ["reorder", "move", "swap", "recalculate"]},
			"parent_id": {"type": "string"},
			"ordered_ids": {"type": "array", "items": {"type": "string"}},
			"work_item_id": {"type": "string"},
			"new_parent_id": {"type": "string"},
			"position": {"type": "integer"},
			"work_item_id_a": {"type": "string"},
			"work_item_id_b": {"type": "string"}
		},
		"required": ["action"]
	}`)
}

type reorderParams struct {
	Namespace    string   `json:"namespace,omitempty"`
	Action       string   `json:"action"`
	ParentID     string   `json:"parent_id,omitempty"`
	OrderedIDs   []string `json:"ordered_ids,omitempty"`
	WorkItemID   string   `json:"work_item_id,omitempty"`
	NewParentID  *string  `json:"new_parent_id,omitempty"`
	Position     *int     `json:"position,omitempty"`
	WorkItemIDA  string   `json:"work_item_id_a,omitempty"`
	WorkItemIDB  string   `json:"work_item_id_b,omitempty"`
}

func (t *ReorderTool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p reorderParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	switch p.Action {
	case "reorder":
		return t.reorder(ctx, s, p)
	case "move":
		return t.move(ctx, s, p)
	case "swap":
		return t.swap(ctx, s, p)
	case "recalculate":
		return t.recalculate(ctx, s, p)
	default:
		return common.UnknownAction(p.Action)
	}
}

func (t *ReorderTool) reorder(ctx context.Context, s *store.Store, p reorderParams) (*mcp.ToolsCallResult, error) {
	if err := s.WithWriteLock(func() error {
		return hierarchy.Reorder(ctx, s, p.ParentID, p.OrderedIDs)
	}); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"ordered_ids": p.OrderedIDs})
}

func (t *ReorderTool) move(ctx context.Context, s *store.Store, p reorderParams) (*mcp.ToolsCallResult, error) {
	if p.WorkItemID == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "work_item_id is required"))
	}
	position := -1 // append when omitted
	if p.Position != nil {
		position = *p.Position
	}
	if err := s.WithWriteLock(func() error {
		if err := hierarchy.Move(ctx, s, p.WorkItemID, p.NewParentID, position); err != nil {
			return err
		}
		return hierarchy.RecomputeAncestors(ctx, s, p.WorkItemID)
	}); err != nil {
		return common.Fail(err)
	}
	item, err := s.GetWorkItem(ctx, p.WorkItemID)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"work_item": item})
}

func (t *ReorderTool) swap(ctx context.Context, s *store.Store, p reorderParams) (*mcp.ToolsCallResult, error) {
	if p.WorkItemIDA == "" || p.WorkItemIDB == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "work_item_id_a and work_item_id_b are required"))
	}
	if err := s.WithWriteLock(func() error {
		return hierarchy.Swap(ctx, s, p.WorkItemIDA, p.WorkItemIDB)
	}); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"swapped": []string{p.WorkItemIDA, p.WorkItemIDB}})
}

func (t *ReorderTool) recalculate(ctx context.Context, s *store.Store, p reorderParams) (*mcp.ToolsCallResult, error) {
	if err := s.WithWriteLock(func() error {
		return hierarchy.RecalculateSiblings(ctx, s, p.ParentID)
	}); err != nil {
		return common.Fail(err)
	}
	siblings, err := s.ChildrenOf(ctx, p.ParentID)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"work_items": siblings})
}
