package workitem

import (
	"context"
	"encoding/json"

	"github.com/vuxtra/jivemcp/internal/hierarchy"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

// GetTool implements jive_get_work_item: single-item fetch (with optional
// one-level or recursive children) or filtered/paginated listing.
type GetTool struct {
	svc *service.Service
}

// NewGetTool constructs jive_get_work_item bound to svc.
func NewGetTool(svc *service.Service) *GetTool { return &GetTool{svc: svc} }

func (t *GetTool) Name() string { return "jive_get_work_item" }

func (t *GetTool) Description() string {
	return "Fetch a single work item by id, or list work items with filters, sorting, and pagination."
}

func (t *GetTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"namespace": {"type": "string"},
			"work_item_id": {"type": "string"},
			"include_children": {"type": "boolean"},
			"recursive": {"type": "boolean"},
			"max_depth": {"type": "integer"},
			"filters": {
				"type": "object",
				"properties": {
					"item_type": {"type": "string"},
					"status": {"type": "string"},
					"priority": {"type": "string"},
					"parent_id": {"type": "string"},
					"tags": {"type": "array", "items": {"type": "string"}}
				}
			},
			"sort_by": {"type": "string", "enum": ["created_at", "updated_at", "priority", "sequence_order", "title"]},
			"limit": {"type": "integer"},
			"offset": {"type": "integer"}
		}
	}`)
}

type filters struct {
	ItemType *string  `json:"item_type,omitempty"`
	Status   *string  `json:"status,omitempty"`
	Priority *string  `json:"priority,omitempty"`
	ParentID *string  `json:"parent_id,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type getParams struct {
	Namespace       string  `json:"namespace,omitempty"`
	WorkItemID      string  `json:"work_item_id,omitempty"`
	IncludeChildren bool    `json:"include_children,omitempty"`
	Recursive       bool    `json:"recursive,omitempty"`
	MaxDepth        int     `json:"max_depth,omitempty"`
	Filters         filters `json:"filters,omitempty"`
	SortBy          string  `json:"sort_by,omitempty"`
	Limit           int     `json:"limit,omitempty"`
	Offset          int     `json:"offset,omitempty"`
}

func (t *GetTool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	if p.WorkItemID != "" {
		return t.getOne(ctx, s, p)
	}
	return t.list(ctx, s, p)
}

func (t *GetTool) getOne(ctx context.Context, s *store.Store, p getParams) (*mcp.ToolsCallResult, error) {
	item, err := s.GetWorkItem(ctx, p.WorkItemID)
	if err != nil {
		return common.Fail(err)
	}
	data := map[string]any{"work_item": item}
	if p.IncludeChildren {
		depth := p.MaxDepth
		if !p.Recursive {
			depth = 1
		}
		node, err := hierarchy.WalkChildren(ctx, s, item.ID, depth)
		if err != nil {
			return common.Fail(err)
		}
		data["children"] = node.Children
	}
	return common.Success(data)
}

func (t *GetTool) list(ctx context.Context, s *store.Store, p getParams) (*mcp.ToolsCallResult, error) {
	f := store.WorkItemFilter{
		Tags:   p.Filters.Tags,
		SortBy: p.SortBy,
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if p.Filters.ItemType != nil {
		it := model.ItemType(*p.Filters.ItemType)
		f.ItemType = &it
	}
	if p.Filters.Status != nil {
		st := model.Status(*p.Filters.Status)
		f.Status = &st
	}
	if p.Filters.Priority != nil {
		pr := model.Priority(*p.Filters.Priority)
		f.Priority = &pr
	}
	if p.Filters.ParentID != nil {
		f.ParentID = p.Filters.ParentID
	}

	items, hasMore, err := s.ListWorkItems(ctx, f)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{
		"work_items": items,
		"has_more":   hasMore,
	})
}
