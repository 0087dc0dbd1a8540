// Package hierarchy implements jive_get_hierarchy and
// jive_reorder_work_items over the internal
// hierarchy engine's BFS walks, cycle detection, and sequence operations.
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

// GetTool implements jive_get_hierarchy.
type GetTool struct {
	svc *service.Service
}

// NewGetTool constructs jive_get_hierarchy bound to svc.
func NewGetTool(svc *service.Service) *GetTool { return &GetTool{svc: svc} }

func (t *GetTool) Name() string { return "jive_get_hierarchy" }

func (t *GetTool) Description() string {
	return "Walk a work item's children, parents, dependencies, dependents, or full subtree hierarchy."
}

func (t *GetTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"namespace": {"type": "string"},
			"work_item_id": {"type": "string"},
			"relationship_type": {"type": "string", "enum": ["children", "parents", "dependencies", "dependents", "full_hierarchy"]},
			"max_depth": {"type": "integer"},
			"include_dependencies": {"type": "boolean"}
		},
		"required": ["work_item_id", "relationship_type"]
	}`)
}

type getHierarchyParams struct {
	Namespace           string `json:"namespace,omitempty"`
	WorkItemID          string `json:"work_item_id"`
	RelationshipType    string `json:"relationship_type"`
	MaxDepth            int    `json:"max_depth,omitempty"`
	IncludeDependencies bool   `json:"include_dependencies,omitempty"`
}

func (t *GetTool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getHierarchyParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}
	if p.WorkItemID == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "work_item_id is required"))
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	switch hierarchy.RelationshipType(p.RelationshipType) {
	case hierarchy.RelChildren:
		node, err := hierarchy.WalkChildren(ctx, s, p.WorkItemID, p.MaxDepth)
		if err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"children": node.Children})
	case hierarchy.RelParents:
		chain, err := hierarchy.WalkParents(ctx, s, p.WorkItemID, p.MaxDepth)
		if err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"parents": chain})
	case hierarchy.RelDependencies:
		ids, err := hierarchy.DependencyClosure(ctx, s, p.WorkItemID, false, p.MaxDepth)
		if err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"dependencies": ids})
	case hierarchy.RelDependents:
		ids, err := hierarchy.DependencyClosure(ctx, s, p.WorkItemID, true, p.MaxDepth)
		if err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"dependents": ids})
	case hierarchy.RelFullHierarchy:
		return t.fullHierarchy(ctx, s, p)
	default:
		return common.UnknownAction(p.RelationshipType)
	}
}

func (t *GetTool) fullHierarchy(ctx context.Context, s *store.Store, p getHierarchyParams) (*mcp.ToolsCallResult, error) {
	node, err := hierarchy.WalkChildren(ctx, s, p.WorkItemID, p.MaxDepth)
	if err != nil {
		return common.Fail(err)
	}
	data := map[string]any{"subtree": node}
	if p.IncludeDependencies {
		deps, err := hierarchy.DependencyClosure(ctx, s, p.WorkItemID, false, p.MaxDepth)
		if err != nil {
			return common.Fail(err)
		}
		data["dependencies"] = deps
	}
	return common.Success(data)
}
