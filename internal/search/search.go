// Package search implements jive_search_content's semantic, keyword, and
// hybrid modes on top of a namespace's
// store.Store. It holds no state of its own beyond a shared embedding
// engine reference.
package search

import (
	"context"
	"sort"
	"time"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/embedding"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/store"
)

// Type enumerates jive_search_content's search_type values.
type Type string

const (
	TypeSemantic Type = "semantic"
	TypeKeyword  Type = "keyword"
	TypeHybrid   Type = "hybrid"
)

// alpha is the hybrid fusion weight: score = alpha*sim_cos +
// (1-alpha)*bm25_norm.
const alpha = 0.7

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Request is the normalized input to Search.
type Request struct {
	Query        string
	SearchType   Type
	ContentTypes []string // subset of work_item/architecture/troubleshoot; empty means all
	Limit        int
}

// Hit is one ranked result. Exactly one of WorkItem/Architecture/Troubleshoot
// is populated, matching Kind.
type Hit struct {
	Kind         string                  `json:"kind"`
	ID           string                  `json:"id"`
	Score        float32                 `json:"score"`
	WorkItem     *model.WorkItem         `json:"work_item,omitempty"`
	Architecture *model.ArchitectureItem `json:"architecture,omitempty"`
	Troubleshoot *model.TroubleshootItem `json:"troubleshoot,omitempty"`
}

// UpdatedAt returns the hit's underlying record's last-updated timestamp,
// used for descending tie-breaks.
func (h Hit) UpdatedAt() time.Time {
	switch {
	case h.WorkItem != nil:
		return h.WorkItem.UpdatedAt
	case h.Architecture != nil:
		return h.Architecture.UpdatedAt
	case h.Troubleshoot != nil:
		return h.Troubleshoot.UpdatedAt
	default:
		return time.Time{}
	}
}

// Engine runs searches against a Store using a shared embedding engine for
// query vectorization.
type Engine struct {
	embed *embedding.Engine
}

// New constructs a search Engine backed by embed.
func New(embed *embedding.Engine) *Engine {
	return &Engine{embed: embed}
}

// candidate accumulates the sub-scores found for one (kind, id) pair
// across the vector and keyword sub-engines before fusion.
type candidate struct {
	kind, id string
	vecScore float32
	kwScore  float32
}

// Search executes req against s and returns ranked, materialized hits.
func (e *Engine) Search(ctx context.Context, s *store.Store, req Request) ([]Hit, error) {
	if req.Query == "" {
		return nil, apperr.New(apperr.ValidationError, "query must not be empty")
	}
	searchType := req.SearchType
	if searchType == "" {
		searchType = TypeHybrid
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var kinds map[string]bool
	if len(req.ContentTypes) > 0 {
		kinds = make(map[string]bool, len(req.ContentTypes))
		for _, k := range req.ContentTypes {
			kinds[k] = true
		}
	}

	// Over-fetch from each sub-engine so normalization has a representative
	// pool to scale against before the final limit is applied.
	fetch := limit * 4
	if fetch < 40 {
		fetch = 40
	}

	candidates := make(map[string]*candidate)
	get := func(kind, id string) *candidate {
		key := kind + ":" + id
		c := candidates[key]
		if c == nil {
			c = &candidate{kind: kind, id: id}
			candidates[key] = c
		}
		return c
	}

	if searchType == TypeSemantic || searchType == TypeHybrid {
		vec, err := e.embed.Embed(req.Query)
		if err != nil {
			return nil, apperr.Wrap(apperr.EmbeddingError, "embedding query", err)
		}
		for _, h := range s.VectorSearch(vec, fetch, kinds) {
			get(h.Kind, h.ID).vecScore = h.Score
		}
	}

	if searchType == TypeKeyword || searchType == TypeHybrid {
		hits, err := s.KeywordSearch(req.Query, fetch, kinds)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			get(h.Kind, h.ID).kwScore = h.Score
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	list := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		list = append(list, c)
	}

	vecNorm := minMaxNormalizer(list, func(c *candidate) float32 { return c.vecScore })
	kwNorm := minMaxNormalizer(list, func(c *candidate) float32 { return c.kwScore })

	hits := make([]Hit, 0, len(list))
	for _, c := range list {
		var score float32
		switch searchType {
		case TypeSemantic:
			score = c.vecScore
		case TypeKeyword:
			score = c.kwScore
		default: // TypeHybrid
			score = alpha*vecNorm(c.vecScore) + (1-alpha)*kwNorm(c.kwScore)
		}
		hit, err := materialize(ctx, s, c.kind, c.id, score)
		if err != nil {
			// A candidate that disappeared between indexing and materialization
			// (e.g. deleted after the index snapshot) is dropped, not fatal.
			continue
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].UpdatedAt().After(hits[j].UpdatedAt())
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// minMaxNormalizer scales values from list (via get) to [0,1] across the
// candidate pool so both sub-scores fuse on a common scale. A
// degenerate pool (all values equal) maps everything to 0.
func minMaxNormalizer(list []*candidate, get func(*candidate) float32) func(float32) float32 {
	min, max := float32(0), float32(0)
	for i, c := range list {
		v := get(c)
		if i == 0 || v < min {
			min = v
		}
		if i == 0 || v > max {
			max = v
		}
	}
	if max <= min {
		return func(float32) float32 { return 0 }
	}
	span := max - min
	return func(v float32) float32 { return (v - min) / span }
}

func materialize(ctx context.Context, s *store.Store, kind, id string, score float32) (Hit, error) {
	switch kind {
	case "architecture":
		a, err := s.GetArchitectureItemByID(ctx, id)
		if err != nil {
			return Hit{}, err
		}
		return Hit{Kind: kind, ID: id, Score: score, Architecture: a}, nil
	case "troubleshoot":
		t, err := s.GetTroubleshootItemByID(ctx, id)
		if err != nil {
			return Hit{}, err
		}
		return Hit{Kind: kind, ID: id, Score: score, Troubleshoot: t}, nil
	default:
		w, err := s.GetWorkItem(ctx, id)
		if err != nil {
			return Hit{}, err
		}
		return Hit{Kind: "work_item", ID: id, Score: score, WorkItem: w}, nil
	}
}
