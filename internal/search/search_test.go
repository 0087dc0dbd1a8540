package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxtra/jivemcp/internal/embedding"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open("test-ns", dir+"/store.db", dir+"/bleve.idx")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := openTestStore(t)
	eng := New(embedding.New())
	_, err := eng.Search(context.Background(), s, Request{Query: ""})
	require.Error(t, err)
}

func TestSearchKeywordFindsMatchingTitle(t *testing.T) {
	s := openTestStore(t)
	eng := New(embedding.New())
	emb := embedding.New()

	ctx := context.Background()
	w := &model.WorkItem{ItemType: model.ItemInitiative, Title: "Checkout redesign", Description: "Overhaul the checkout flow", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
	vec, err := emb.Embed(w.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutWorkItem(ctx, w, vec))

	hits, err := eng.Search(ctx, s, Request{Query: "checkout", SearchType: TypeKeyword})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, w.ID, hits[0].ID)
}

func TestSearchHybridAppliesContentTypeFilter(t *testing.T) {
	s := openTestStore(t)
	eng := New(embedding.New())
	emb := embedding.New()
	ctx := context.Background()

	w := &model.WorkItem{ItemType: model.ItemInitiative, Title: "Onboarding revamp", Description: "Improve new-user onboarding", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
	wVec, err := emb.Embed(w.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutWorkItem(ctx, w, wVec))

	a := &model.ArchitectureItem{Slug: "onboarding-service", Title: "Onboarding Service", AIRequirements: "Handles onboarding flows"}
	aVec, err := emb.Embed(a.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutArchitectureItem(ctx, a, aVec))

	hits, err := eng.Search(ctx, s, Request{Query: "onboarding", SearchType: TypeHybrid, ContentTypes: []string{"architecture"}})
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, "architecture", h.Kind)
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	s := openTestStore(t)
	eng := New(embedding.New())
	emb := embedding.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		w := &model.WorkItem{ItemType: model.ItemInitiative, Title: "Platform migration task", Description: "migration work", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
		vec, err := emb.Embed(w.SearchableText())
		require.NoError(t, err)
		require.NoError(t, s.PutWorkItem(ctx, w, vec))
	}

	hits, err := eng.Search(ctx, s, Request{Query: "migration", SearchType: TypeKeyword, Limit: 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 2)
}

func TestSearchHybridRanksKeywordMatchesHigher(t *testing.T) {
	s := openTestStore(t)
	eng := New(embedding.New())
	emb := embedding.New()
	ctx := context.Background()

	m1 := &model.TroubleshootItem{
		Slug:        "react-hooks-patterns",
		Title:       "React hooks patterns",
		AIUseCase:   []string{"Choosing a hook for shared state"},
		AISolutions: "Prefer small composable hooks.",
		Keywords:    []string{"react"},
	}
	v1, err := emb.Embed(m1.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutTroubleshootItem(ctx, m1, v1))

	m2 := &model.TroubleshootItem{
		Slug:        "infinite-render-loop",
		Title:       "Infinite render loop",
		AIUseCase:   []string{"useEffect re-runs forever"},
		AISolutions: "Stabilize the dependency array passed to useEffect.",
		Keywords:    []string{"react", "useEffect"},
	}
	v2, err := emb.Embed(m2.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutTroubleshootItem(ctx, m2, v2))

	hits, err := eng.Search(ctx, s, Request{
		Query:        "useEffect infinite loop",
		SearchType:   TypeHybrid,
		ContentTypes: []string{"troubleshoot"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, m2.ID, hits[0].ID)
	for _, h := range hits {
		assert.Equal(t, "troubleshoot", h.Kind)
		assert.GreaterOrEqual(t, float64(h.Score), 0.0)
		assert.LessOrEqual(t, float64(h.Score), 1.0)
	}
}
