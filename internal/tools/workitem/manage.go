// Package workitem implements jive_manage_work_item and
// jive_get_work_item, the CRUD and read surface
// over the work item hierarchy.
package workitem

import (
	"context"
	"encoding/json"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/hierarchy"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

// ManageTool implements jive_manage_work_item.
type ManageTool struct {
	svc *service.Service
}

// NewManageTool constructs jive_manage_work_item bound to svc.
func NewManageTool(svc *service.Service) *ManageTool { return &ManageTool{svc: svc} }

func (t *ManageTool) Name() string { return "jive_manage_work_item" }

func (t *ManageTool) Description() string {
	return "Create, update, or delete a work item (initiative/epic/feature/story/task) in the hierarchy."
}

func (t *ManageTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["create", "update", "delete"]},
			"namespace": {"type": "string"},
			"work_item_id": {"type": "string"},
			"type": {"type": "string", "enum": ["initiative", "epic", "feature", "story", "task"]},
			"title": {"type": "string"},
			"description": {"type": "string"},
			"status": {"type": "string"},
			"priority": {"type": "string"},
			"complexity": {"type": "string"},
			"parent_id": {"type": "string"},
			"acceptance_criteria": {"type": "array", "items": {"type": "string"}},
			"due_date": {"type": "string"},
			"tags": {"type": "array", "items": {"type": "string"}},
			"dependencies": {"type": "array", "items": {"type": "string"}},
			"notes": {"type": "string"},
			"progress_percentage": {"type": "integer"},
			"delete_children": {"type": "boolean"}
		},
		"required": ["action"]
	}`)
}

type manageParams struct {
	Action             string    `json:"action"`
	Namespace          string    `json:"namespace,omitempty"`
	WorkItemID         string    `json:"work_item_id,omitempty"`
	Type               string    `json:"type,omitempty"`
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Status             *string   `json:"status,omitempty"`
	Priority           *string   `json:"priority,omitempty"`
	Complexity         *string   `json:"complexity,omitempty"`
	ParentID           *string   `json:"parent_id,omitempty"`
	AcceptanceCriteria *[]string `json:"acceptance_criteria,omitempty"`
	DueDate            string    `json:"due_date,omitempty"`
	Tags               *[]string `json:"tags,omitempty"`
	Dependencies       *[]string `json:"dependencies,omitempty"`
	Notes              *string   `json:"notes,omitempty"`
	ProgressPercentage *int      `json:"progress_percentage,omitempty"`
	DeleteChildren     bool      `json:"delete_children,omitempty"`
}

func (t *ManageTool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p manageParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	switch p.Action {
	case "create":
		return t.create(ctx, s, p)
	case "update":
		return t.update(ctx, s, p)
	case "delete":
		return t.delete(ctx, s, p)
	default:
		return common.UnknownAction(p.Action)
	}
}

func (t *ManageTool) create(ctx context.Context, s *store.Store, p manageParams) (*mcp.ToolsCallResult, error) {
	w := &model.WorkItem{
		ItemType: model.ItemType(p.Type),
		Status:   model.StatusNotStarted,
		ParentID: p.ParentID,
	}
	if p.Title != nil {
		w.Title = *p.Title
	}
	if p.Description != nil {
		w.Description = *p.Description
	}
	if p.Priority != nil {
		w.Priority = model.Priority(*p.Priority)
	}
	if p.Complexity != nil {
		w.Complexity = model.Complexity(*p.Complexity)
	}
	if p.AcceptanceCriteria != nil {
		w.AcceptanceCriteria = *p.AcceptanceCriteria
	}
	if p.Tags != nil {
		w.ContextTags = *p.Tags
	}
	if p.Dependencies != nil {
		w.Dependencies = *p.Dependencies
	}
	if p.Notes != nil {
		w.Notes = *p.Notes
	}

	var parentType *model.ItemType
	if w.ParentID != nil {
		parent, err := s.GetWorkItem(ctx, *w.ParentID)
		if err != nil {
			return common.Fail(err)
		}
		parentType = &parent.ItemType
	}
	if err := model.ValidateHierarchy(parentType, w.ItemType); err != nil {
		return common.Fail(err)
	}
	if err := model.ValidateWorkItemCreate(w); err != nil {
		return common.Fail(err)
	}
	for _, dep := range w.Dependencies {
		if _, err := s.GetWorkItem(ctx, dep); err != nil {
			return common.Fail(err)
		}
	}

	vec, err := t.svc.Embed.Embed(w.SearchableText())
	if err != nil {
		return common.Fail(apperr.Wrap(apperr.EmbeddingError, "embedding work item", err))
	}
	w.EmbeddingModelID = t.svc.Embed.ModelID()

	if err := s.WithWriteLock(func() error {
		if err := s.PutWorkItem(ctx, w, vec); err != nil {
			return err
		}
		// A new child changes its parent's derived progress/status (a
		// completed parent gaining a not_started child is no longer
		// completed).
		if w.ParentID != nil {
			return hierarchy.RecomputeAncestors(ctx, s, w.ID)
		}
		return nil
	}); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"id": w.ID, "work_item": w})
}

func (t *ManageTool) update(ctx context.Context, s *store.Store, p manageParams) (*mcp.ToolsCallResult, error) {
	if p.WorkItemID == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "work_item_id is required"))
	}
	w, err := s.GetWorkItem(ctx, p.WorkItemID)
	if err != nil {
		return common.Fail(err)
	}

	textChanged := false
	statusOrProgressChanged := false

	if p.Title != nil && *p.Title != w.Title {
		w.Title = *p.Title
		textChanged = true
	}
	if p.Description != nil && *p.Description != w.Description {
		w.Description = *p.Description
		textChanged = true
	}
	if p.AcceptanceCriteria != nil {
		w.AcceptanceCriteria = *p.AcceptanceCriteria
		textChanged = true
	}
	if p.Status != nil && model.Status(*p.Status) != w.Status {
		w.Status = model.Status(*p.Status)
		statusOrProgressChanged = true
	}
	if p.Priority != nil {
		w.Priority = model.Priority(*p.Priority)
	}
	if p.Complexity != nil {
		w.Complexity = model.Complexity(*p.Complexity)
	}
	if p.Tags != nil {
		w.ContextTags = *p.Tags
	}
	if p.Dependencies != nil {
		for _, dep := range *p.Dependencies {
			if dep == w.ID {
				return common.Fail(apperr.Newf(apperr.CycleDetected, "work item %s cannot depend on itself", w.ID))
			}
			if err := hierarchy.ValidateDependencyEdge(ctx, s, w.ID, dep); err != nil {
				return common.Fail(err)
			}
		}
		w.Dependencies = *p.Dependencies
	}
	if p.Notes != nil {
		w.Notes = *p.Notes
	}
	if p.ProgressPercentage != nil && *p.ProgressPercentage != w.ProgressPercentage {
		if *p.ProgressPercentage < 0 || *p.ProgressPercentage > 100 {
			return common.Fail(apperr.New(apperr.ValidationError, "progress_percentage must be 0-100"))
		}
		w.ProgressPercentage = *p.ProgressPercentage
		statusOrProgressChanged = true
	}
	if p.ParentID != nil {
		if err := hierarchy.ValidateParentEdge(ctx, s, w.ID, *p.ParentID); err != nil {
			return common.Fail(err)
		}
		parent, err := s.GetWorkItem(ctx, *p.ParentID)
		if err != nil {
			return common.Fail(err)
		}
		if err := model.ValidateHierarchy(&parent.ItemType, w.ItemType); err != nil {
			return common.Fail(err)
		}
		w.ParentID = p.ParentID
	}

	if err := model.ValidateWorkItemCreate(w); err != nil {
		return common.Fail(err)
	}

	var vec []float32
	if textChanged {
		v, err := t.svc.Embed.Embed(w.SearchableText())
		if err != nil {
			return common.Fail(apperr.Wrap(apperr.EmbeddingError, "embedding work item", err))
		}
		vec = v
		w.EmbeddingModelID = t.svc.Embed.ModelID()
	}

	if err := s.WithWriteLock(func() error {
		if err := s.UpdateWorkItem(ctx, w, vec); err != nil {
			return err
		}
		if statusOrProgressChanged {
			if err := s.AppendProgressEvent(ctx, &model.ProgressEvent{
				EntityID:   w.ID,
				Percentage: w.ProgressPercentage,
				Status:     w.Status,
			}); err != nil {
				return err
			}
			return hierarchy.RecomputeAncestors(ctx, s, w.ID)
		}
		return nil
	}); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"work_item": w})
}

func (t *ManageTool) delete(ctx context.Context, s *store.Store, p manageParams) (*mcp.ToolsCallResult, error) {
	if p.WorkItemID == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "work_item_id is required"))
	}
	item, err := s.GetWorkItem(ctx, p.WorkItemID)
	if err != nil {
		return common.Fail(err)
	}

	if err := s.WithWriteLock(func() error {
		if err := deleteSubtree(ctx, s, item, p.DeleteChildren); err != nil {
			return err
		}
		// The deleted item is gone, so the recompute starts at its old
		// parent rather than walking up from the item.
		if item.ParentID != nil {
			return hierarchy.RecomputeFrom(ctx, s, *item.ParentID)
		}
		return nil
	}); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"deleted_id": p.WorkItemID})
}

// deleteSubtree deletes item, recursing into its children post-order
// when deleteChildren is set; otherwise it fails HasChildren if any
// exist.
func deleteSubtree(ctx context.Context, s *store.Store, item *model.WorkItem, deleteChildren bool) error {
	children, err := s.ChildrenOf(ctx, item.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 && !deleteChildren {
		return apperr.Newf(apperr.HasChildren, "work item %s has %d children; pass delete_children=true to remove them", item.ID, len(children))
	}
	for _, c := range children {
		if err := deleteSubtree(ctx, s, c, true); err != nil {
			return err
		}
	}
	return s.DeleteWorkItem(ctx, item.ID)
}
