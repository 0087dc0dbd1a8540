// Package search implements jive_search_content,
// wrapping internal/search's hybrid fusion engine and handling the
// empty-query case, which the engine itself rejects as invalid.
package search

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/search"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

// Tool implements jive_search_content.
type Tool struct {
	svc    *service.Service
	engine *search.Engine
}

// NewTool constructs jive_search_content bound to svc, sharing svc's
// embedding engine with the search engine.
func NewTool(svc *service.Service) *Tool {
	return &Tool{svc: svc, engine: search.New(svc.Embed)}
}

func (t *Tool) Name() string { return "jive_search_content" }

func (t *Tool) Description() string {
	return "Hybrid semantic+keyword search across work items, architecture memory, and troubleshoot memory."
}

func (t *Tool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"namespace": {"type": "string"},
			"query": {"type": "string"},
			"search_type": {"type": "string", "enum": ["semantic", "keyword", "hybrid"]},
			"content_types": {"type": "array", "items": {"type": "string", "enum": ["work_item", "architecture", "troubleshoot"]}},
			"limit": {"type": "integer"}
		}
	}`)
}

type searchParams struct {
	Namespace    string   `json:"namespace,omitempty"`
	Query        string   `json:"query,omitempty"`
	SearchType   string   `json:"search_type,omitempty"`
	ContentTypes []string `json:"content_types,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

func (t *Tool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p searchParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	if p.Query == "" {
		return t.recentItems(ctx, s, p)
	}

	hits, err := t.engine.Search(ctx, s, search.Request{
		Query:        p.Query,
		SearchType:   search.Type(p.SearchType),
		ContentTypes: p.ContentTypes,
		Limit:        p.Limit,
	})
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"results": hits})
}

// recentItems handles an empty query: return the most recently updated
// items filtered by content_types. It bypasses the scoring engine
// entirely and lists directly from the store, sorted by updated_at
// descending.
func (t *Tool) recentItems(ctx context.Context, s *store.Store, p searchParams) (*mcp.ToolsCallResult, error) {
	limit := p.Limit
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	kinds := map[string]bool{"work_item": true, "architecture": true, "troubleshoot": true}
	if len(p.ContentTypes) > 0 {
		kinds = make(map[string]bool, len(p.ContentTypes))
		for _, k := range p.ContentTypes {
			kinds[k] = true
		}
	}

	var hits []search.Hit
	if kinds["work_item"] {
		items, _, err := s.ListWorkItems(ctx, store.WorkItemFilter{SortBy: "updated_at", Limit: limit})
		if err != nil {
			return common.Fail(err)
		}
		for _, w := range items {
			hits = append(hits, search.Hit{Kind: "work_item", ID: w.ID, WorkItem: w})
		}
	}
	if kinds["architecture"] {
		items, err := s.ListArchitectureItems(ctx, limit, 0)
		if err != nil {
			return common.Fail(err)
		}
		for _, a := range items {
			hits = append(hits, search.Hit{Kind: "architecture", ID: a.ID, Architecture: a})
		}
	}
	if kinds["troubleshoot"] {
		items, err := s.ListTroubleshootItems(ctx, limit, 0)
		if err != nil {
			return common.Fail(err)
		}
		for _, tr := range items {
			hits = append(hits, search.Hit{Kind: "troubleshoot", ID: tr.ID, Troubleshoot: tr})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].UpdatedAt().After(hits[j].UpdatedAt())
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return common.Success(map[string]any{"results": hits})
}
