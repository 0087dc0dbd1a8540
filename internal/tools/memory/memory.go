// Package memory implements jive_memory: unified
// CRUD, listing, search, and Markdown export/import over the
// architecture and troubleshoot memory corpora.
package memory

import (
	"context"
	"encoding/json"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/mcp"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/service"
	"github.com/vuxtra/jivemcp/internal/store"
	"github.com/vuxtra/jivemcp/internal/tools/common"
)

// Tool implements jive_memory.
type Tool struct {
	svc *service.Service
}

// NewTool constructs jive_memory bound to svc.
func NewTool(svc *service.Service) *Tool { return &Tool{svc: svc} }

func (t *Tool) Name() string { return "jive_memory" }

func (t *Tool) Description() string {
	return "Create, read, update, delete, list, search, export, or import architecture and troubleshoot memory items."
}

func (t *Tool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"namespace": {"type": "string"},
			"action": {"type": "string", "enum": ["create", "read", "update", "delete", "list", "search", "export", "import", "record_use"]},
			"memory_type": {"type": "string", "enum": ["architecture", "troubleshoot"]},
			"slug": {"type": "string"},
			"title": {"type": "string"},
			"ai_requirements": {"type": "string"},
			"ai_when_to_use": {"type": "array", "items": {"type": "string"}},
			"ai_use_case": {"type": "array", "items": {"type": "string"}},
			"ai_solutions": {"type": "string"},
			"keywords": {"type": "array", "items": {"type": "string"}},
			"children_slugs": {"type": "array", "items": {"type": "string"}},
			"related_slugs": {"type": "array", "items": {"type": "string"}},
			"linked_epic_ids": {"type": "array", "items": {"type": "string"}},
			"tags": {"type": "array", "items": {"type": "string"}},
			"query": {"type": "string"},
			"limit": {"type": "integer"},
			"offset": {"type": "integer"},
			"content": {"type": "string"},
			"filename": {"type": "string"},
			"directory": {"type": "string"},
			"output_dir": {"type": "string"},
			"import_mode": {"type": "string", "enum": ["create_only", "update_only", "create_or_update", "replace"]},
			"success": {"type": "boolean"}
		},
		"required": ["action"]
	}`)
}

type memoryParams struct {
	Namespace     string   `json:"namespace,omitempty"`
	Action        string   `json:"action"`
	MemoryType    string   `json:"memory_type,omitempty"`
	Slug          string   `json:"slug,omitempty"`
	Title         string   `json:"title,omitempty"`
	AIRequirements string  `json:"ai_requirements,omitempty"`
	AIWhenToUse   []string `json:"ai_when_to_use,omitempty"`
	AIUseCase     []string `json:"ai_use_case,omitempty"`
	AISolutions   string   `json:"ai_solutions,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	ChildrenSlugs []string `json:"children_slugs,omitempty"`
	RelatedSlugs  []string `json:"related_slugs,omitempty"`
	LinkedEpicIDs []string `json:"linked_epic_ids,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Query         string   `json:"query,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
	Content       string   `json:"content,omitempty"`
	Filename      string   `json:"filename,omitempty"`
	Directory     string   `json:"directory,omitempty"`
	OutputDir     string   `json:"output_dir,omitempty"`
	ImportMode    string   `json:"import_mode,omitempty"`
	Success       bool     `json:"success,omitempty"`
}

func (t *Tool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p memoryParams
	if err := common.Decode(raw, &p); err != nil {
		return common.Fail(err)
	}

	s, ctx, release, err := common.Handle(ctx, t.svc, p.Namespace)
	if err != nil {
		return common.Fail(err)
	}
	defer release()

	switch p.Action {
	case "export":
		return t.export(ctx, s, p)
	case "import":
		return t.importOne(ctx, s, p)
	}

	if p.MemoryType != "architecture" && p.MemoryType != "troubleshoot" {
		return common.Fail(apperr.Newf(apperr.ValidationError, "memory_type must be architecture or troubleshoot, got %q", p.MemoryType))
	}

	switch p.Action {
	case "create":
		return t.create(ctx, s, p)
	case "read":
		return t.read(ctx, s, p)
	case "update":
		return t.update(ctx, s, p)
	case "delete":
		return t.delete(ctx, s, p)
	case "list":
		return t.list(ctx, s, p)
	case "search":
		return t.search(ctx, s, p)
	case "record_use":
		return t.recordUse(ctx, s, p)
	default:
		return common.UnknownAction(p.Action)
	}
}

func (t *Tool) create(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	if p.MemoryType == "architecture" {
		a := &model.ArchitectureItem{
			Slug: p.Slug, Title: p.Title, AIRequirements: p.AIRequirements,
			AIWhenToUse: p.AIWhenToUse, Keywords: p.Keywords, ChildrenSlugs: p.ChildrenSlugs,
			RelatedSlugs: p.RelatedSlugs, LinkedEpicIDs: p.LinkedEpicIDs, Tags: p.Tags,
		}
		if err := model.ValidateArchitectureItem(a); err != nil {
			return common.Fail(err)
		}
		vec, err := t.svc.Embed.Embed(a.SearchableText())
		if err != nil {
			return common.Fail(apperr.Wrap(apperr.EmbeddingError, "embedding architecture item", err))
		}
		if err := s.WithWriteLock(func() error { return s.PutArchitectureItem(ctx, a, vec) }); err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"architecture_item": a})
	}

	tr := &model.TroubleshootItem{
		Slug: p.Slug, Title: p.Title, AIUseCase: p.AIUseCase, AISolutions: p.AISolutions,
		Keywords: p.Keywords, ChildrenSlugs: p.ChildrenSlugs, RelatedSlugs: p.RelatedSlugs,
		LinkedEpicIDs: p.LinkedEpicIDs, Tags: p.Tags,
	}
	if err := model.ValidateTroubleshootItem(tr); err != nil {
		return common.Fail(err)
	}
	vec, err := t.svc.Embed.Embed(tr.SearchableText())
	if err != nil {
		return common.Fail(apperr.Wrap(apperr.EmbeddingError, "embedding troubleshoot item", err))
	}
	if err := s.WithWriteLock(func() error { return s.PutTroubleshootItem(ctx, tr, vec) }); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"troubleshoot_item": tr})
}

func (t *Tool) read(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	if p.Slug == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "slug is required"))
	}
	if p.MemoryType == "architecture" {
		a, err := s.GetArchitectureItemBySlug(ctx, p.Slug)
		if err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"architecture_item": a})
	}
	tr, err := s.GetTroubleshootItemBySlug(ctx, p.Slug)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"troubleshoot_item": tr})
}

func (t *Tool) update(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	if p.Slug == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "slug is required"))
	}
	if p.MemoryType == "architecture" {
		a, err := s.GetArchitectureItemBySlug(ctx, p.Slug)
		if err != nil {
			return common.Fail(err)
		}
		applyArchitectureUpdate(a, p)
		if err := model.ValidateArchitectureItem(a); err != nil {
			return common.Fail(err)
		}
		vec, err := t.svc.Embed.Embed(a.SearchableText())
		if err != nil {
			return common.Fail(apperr.Wrap(apperr.EmbeddingError, "embedding architecture item", err))
		}
		if err := s.WithWriteLock(func() error { return s.UpdateArchitectureItem(ctx, a, vec) }); err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"architecture_item": a})
	}

	tr, err := s.GetTroubleshootItemBySlug(ctx, p.Slug)
	if err != nil {
		return common.Fail(err)
	}
	applyTroubleshootUpdate(tr, p)
	if err := model.ValidateTroubleshootItem(tr); err != nil {
		return common.Fail(err)
	}
	vec, err := t.svc.Embed.Embed(tr.SearchableText())
	if err != nil {
		return common.Fail(apperr.Wrap(apperr.EmbeddingError, "embedding troubleshoot item", err))
	}
	if err := s.WithWriteLock(func() error { return s.UpdateTroubleshootItem(ctx, tr, vec) }); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"troubleshoot_item": tr})
}

func applyArchitectureUpdate(a *model.ArchitectureItem, p memoryParams) {
	if p.Title != "" {
		a.Title = p.Title
	}
	if p.AIRequirements != "" {
		a.AIRequirements = p.AIRequirements
	}
	if p.AIWhenToUse != nil {
		a.AIWhenToUse = p.AIWhenToUse
	}
	if p.Keywords != nil {
		a.Keywords = p.Keywords
	}
	if p.ChildrenSlugs != nil {
		a.ChildrenSlugs = p.ChildrenSlugs
	}
	if p.RelatedSlugs != nil {
		a.RelatedSlugs = p.RelatedSlugs
	}
	if p.LinkedEpicIDs != nil {
		a.LinkedEpicIDs = p.LinkedEpicIDs
	}
	if p.Tags != nil {
		a.Tags = p.Tags
	}
}

func applyTroubleshootUpdate(tr *model.TroubleshootItem, p memoryParams) {
	if p.Title != "" {
		tr.Title = p.Title
	}
	if p.AIUseCase != nil {
		tr.AIUseCase = p.AIUseCase
	}
	if p.AISolutions != "" {
		tr.AISolutions = p.AISolutions
	}
	if p.Keywords != nil {
		tr.Keywords = p.Keywords
	}
	if p.ChildrenSlugs != nil {
		tr.ChildrenSlugs = p.ChildrenSlugs
	}
	if p.RelatedSlugs != nil {
		tr.RelatedSlugs = p.RelatedSlugs
	}
	if p.LinkedEpicIDs != nil {
		tr.LinkedEpicIDs = p.LinkedEpicIDs
	}
	if p.Tags != nil {
		tr.Tags = p.Tags
	}
}

func (t *Tool) delete(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	if p.Slug == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "slug is required"))
	}
	if err := s.WithWriteLock(func() error {
		if p.MemoryType == "architecture" {
			return s.DeleteArchitectureItem(ctx, p.Slug)
		}
		return s.DeleteTroubleshootItem(ctx, p.Slug)
	}); err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"deleted_slug": p.Slug})
}

func (t *Tool) list(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	if p.MemoryType == "architecture" {
		items, err := s.ListArchitectureItems(ctx, limit, p.Offset)
		if err != nil {
			return common.Fail(err)
		}
		return common.Success(map[string]any{"architecture_items": items})
	}
	items, err := s.ListTroubleshootItems(ctx, limit, p.Offset)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"troubleshoot_items": items})
}

func (t *Tool) recordUse(ctx context.Context, s *store.Store, p memoryParams) (*mcp.ToolsCallResult, error) {
	if p.Slug == "" {
		return common.Fail(apperr.New(apperr.ValidationError, "slug is required"))
	}
	if err := s.WithWriteLock(func() error {
		return s.RecordTroubleshootUse(ctx, p.Slug, p.Success)
	}); err != nil {
		return common.Fail(err)
	}
	tr, err := s.GetTroubleshootItemBySlug(ctx, p.Slug)
	if err != nil {
		return common.Fail(err)
	}
	return common.Success(map[string]any{"troubleshoot_item": tr})
}
