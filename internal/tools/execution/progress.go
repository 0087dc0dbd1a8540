package execution

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/hierarchy"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

// ProgressTool implements jive_track_progress.
type ProgressTool struct {
	svc *service.Service
}

// NewProgressTool constructs jive_track_progress bound to svc.
func NewProgressTool(svc *service.Service) *ProgressTool { return &ProgressTool{svc: svc} }

func (t *ProgressTool) Name() string { return "jive_track_progress" }

func (t *ProgressTool) Description() string {
	return "Record progress updates and aggregate progress reports and analytics across work items."
}

func (t *ProgressTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"namespace": {"type": "string"},
			"action": {"type": "string", "enum": ["update", "get_report", "get_analytics"]},
			"work_item_id": {"type": "string"},
			"percentage": {"type": "integer"},
			"notes": {"type": "string"},
			"blockers": {"type": "array", "items": {"type": "string"}},
			"auto_calculate_status": {"type": "boolean"},
			"group_by": {"type": "string", "enum": ["item_type", "parent_id"]},
			"since": {"type": "string"},
			"until": {"type": "string"}
		},
		"required": ["action"]
	}`)
}

type progressParams struct {
	Namespace            string   `json:"namespace,omitempty"`
	Action               string   `json:"action"`
	WorkItemID           string   `json:"work_item_id,omitempty"`
	Percentage           *int     `json:"percentage,omitempty"`
	Notes                string   `json:"notes,omitempty"`
	Blockers             []string `json:"blockers,omitempty"`
	AutoCalculateStatus  *bool    `json:"auto_calculate_status,omitempty"`
	GroupBy              string   `json:"group_by,omitempty"`
	Since                *string  `json:"since,omitempty"`
	Until                *string  `json:"until,omitempty"`
}

func (t *ProgressTool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p progressParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	switch p.Action {
	case "update":
		return t.update(ctx, s, p)
	case "get_report":
		return t.report(ctx, s, p)
	case "get_analytics":
		return t.analytics(ctx, s, p)
	default:
		return common.UnknownAction(p.Action)
	}
}

func (t *ProgressTool) update(ctx context.Context, s *store.Store, p progressParams) (*mcp.ToolsCallResult, error) {
	if p.WorkItemID == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "work_item_id is required"))
	}
	if p.Percentage == nil {
		return common.Fail(apperr.New(apperr.ValidationError, "percentage is required"))
	}
	percentage := *p.Percentage
	if percentage < 0 || percentage > 100 {
		return common.Fail(apperr.New(apperr.ValidationError, "percentage must be 0-100"))
	}

	item, err := s.GetWorkItem(ctx, p.WorkItemID)
	if err != nil {
		return common.Fail(err)
	}

	autoCalc := true
	if p.AutoCalculateStatus != nil {
		autoCalc = *p.AutoCalculateStatus
	}
	status := item.Status
	if autoCalc {
		switch {
		case percentage == 100:
			status = model.StatusCompleted
		case percentage > 0:
			status = model.StatusInProgress
		}
	}

	if err := s.WithWriteLock(func() error {
		if err := s.AppendProgressEvent(ctx, &model.ProgressEvent{
			EntityID:   p.WorkItemID,
			Percentage: percentage,
			Status:     status,
			Notes:      p.Notes,
			Blockers:   p.Blockers,
		}); err != nil {
			return err
		}
		if err := s.SetProgress(ctx, p.WorkItemID, percentage, status); err != nil {
			return err
		}
		return hierarchy.RecomputeAncestors(ctx, s, p.WorkItemID)
	}); err != nil {
		return common.Fail(err)
	}

	item, err = s.GetWorkItem(ctx, p.WorkItemID)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"work_item": item})
}

type reportGroup struct {
	Key             string  `json:"key"`
	Count           int     `json:"count"`
	AverageProgress float64 `json:"average_progress"`
	Completed       int     `json:"completed"`
	InProgress      int     `json:"in_progress"`
	Blocked         int     `json:"blocked"`
	NotStarted      int     `json:"not_started"`
	Cancelled       int     `json:"cancelled"`
}

func (t *ProgressTool) report(ctx context.Context, s *store.Store, p progressParams) (*mcp.ToolsCallResult, error) {
	items, _, err := s.ListWorkItems(ctx, store.WorkItemFilter{Limit: 0})
	if err != nil {
		return common.Fail(err)
	}
	items = filterByTimeRange(items, p.Since, p.Until)

	groups := map[string]*reportGroup{}
	var order []string
	for _, w := range items {
		key := string(w.ItemType)
		if p.GroupBy == "parent_id" {
			if w.ParentID != nil {
				key = *w.ParentID
			} else {
				key = "(root)"
			}
		}
		g, ok := groups[key]
		if !ok {
			g = &reportGroup{Key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.Count++
		g.AverageProgress += float64(w.ProgressPercentage)
		switch w.Status {
		case model.StatusCompleted:
			g.Completed++
		case model.StatusInProgress:
			g.InProgress++
		case model.StatusBlocked:
			g.Blocked++
		case model.StatusNotStarted:
			g.NotStarted++
		case model.StatusCancelled:
			g.Cancelled++
		}
	}

	out := make([]*reportGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if g.Count > 0 {
			g.AverageProgress = g.AverageProgress / float64(g.Count)
		}
		out = append(out, g)
	}
	return common.Success(map[string]any{"groups": out})
}

type analytics struct {
	TotalItems      int     `json:"total_items"`
	AverageProgress float64 `json:"average_progress"`
	CompletionRate  float64 `json:"completion_rate"`
	StatusCounts    map[model.Status]int `json:"status_counts"`
}

func (t *ProgressTool) analytics(ctx context.Context, s *store.Store, p progressParams) (*mcp.ToolsCallResult, error) {
	items, _, err := s.ListWorkItems(ctx, store.WorkItemFilter{Limit: 0})
	if err != nil {
		return common.Fail(err)
	}
	items = filterByTimeRange(items, p.Since, p.Until)

	a := analytics{StatusCounts: map[model.Status]int{}}
	var progressSum float64
	for _, w := range items {
		a.TotalItems++
		progressSum += float64(w.ProgressPercentage)
		a.StatusCounts[w.Status]++
	}
	if a.TotalItems > 0 {
		a.AverageProgress = progressSum / float64(a.TotalItems)
		a.CompletionRate = float64(a.StatusCounts[model.StatusCompleted]) / float64(a.TotalItems)
	}
	return common.Success(map[string]any{"analytics": a})
}

func filterByTimeRange(items []*model.WorkItem, since, until *string) []*model.WorkItem {
	if since == nil && until == nil {
		return items
	}
	out := items[:0:0]
	for _, w := range items {
		ts := w.UpdatedAt.Format(time.RFC3339Nano)
		if since != nil && ts < *since {
			continue
		}
		if until != nil && ts > *until {
			continue
		}
		out = append(out, w)
	}
	return out
}
