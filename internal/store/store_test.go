package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxtra/jivemcp/internal/embedding"
	"github.com/vuxtra/jivemcp/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open("default", filepath.Join(dir, "store.db"), filepath.Join(dir, "bleve.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndGetWorkItem(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	eng := embedding.New()
	vec, err := eng.Embed("Add login")
	require.NoError(t, err)

	w := &model.WorkItem{ItemType: model.ItemTask, Title: "Add login", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
	require.NoError(t, s.PutWorkItem(ctx, w, vec))
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, 0, w.SequenceOrder)

	got, err := s.GetWorkItem(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Add login", got.Title)
	assert.Equal(t, model.StatusNotStarted, got.Status)
	assert.Equal(t, 0, got.ProgressPercentage)
}

func TestGetWorkItemNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetWorkItem(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestSequenceOrderAssignedPerParent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	eng := embedding.New()

	parent := &model.WorkItem{ItemType: model.ItemEpic, Title: "Epic", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
	vec, _ := eng.Embed(parent.Title)
	require.NoError(t, s.PutWorkItem(ctx, parent, vec))

	for i := 0; i < 3; i++ {
		c := &model.WorkItem{ItemType: model.ItemFeature, Title: "Feature", ParentID: &parent.ID, Status: model.StatusNotStarted, Priority: model.PriorityMedium}
		v, _ := eng.Embed(c.Title)
		require.NoError(t, s.PutWorkItem(ctx, c, v))
		assert.Equal(t, i, c.SequenceOrder)
	}
}

func TestDependencyEdgesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	eng := embedding.New()

	a := &model.WorkItem{ItemType: model.ItemTask, Title: "A", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
	va, _ := eng.Embed(a.Title)
	require.NoError(t, s.PutWorkItem(ctx, a, va))

	b := &model.WorkItem{ItemType: model.ItemTask, Title: "B", Status: model.StatusNotStarted, Priority: model.PriorityMedium, Dependencies: []string{a.ID}}
	vb, _ := eng.Embed(b.Title)
	require.NoError(t, s.PutWorkItem(ctx, b, vb))

	deps, err := s.ListDependencies(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, deps)

	dependents, err := s.ListDependents(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, dependents)
}

func TestDeleteWorkItemRemovesRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	eng := embedding.New()
	w := &model.WorkItem{ItemType: model.ItemTask, Title: "Temp", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
	vec, _ := eng.Embed(w.Title)
	require.NoError(t, s.PutWorkItem(ctx, w, vec))

	require.NoError(t, s.DeleteWorkItem(ctx, w.ID))
	_, err := s.GetWorkItem(ctx, w.ID)
	assert.Error(t, err)
}

func TestListWorkItemsHasMore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	eng := embedding.New()
	for i := 0; i < 5; i++ {
		w := &model.WorkItem{ItemType: model.ItemInitiative, Title: "Init", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
		vec, _ := eng.Embed(w.Title)
		require.NoError(t, s.PutWorkItem(ctx, w, vec))
	}
	items, hasMore, err := s.ListWorkItems(ctx, WorkItemFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.True(t, hasMore)
}

func TestArchitectureSlugUniqueness(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	eng := embedding.New()
	a := &model.ArchitectureItem{Slug: "react-patterns", Title: "React patterns", AIRequirements: "use hooks"}
	vec, _ := eng.Embed(a.SearchableText())
	require.NoError(t, s.PutArchitectureItem(ctx, a, vec))

	dup := &model.ArchitectureItem{Slug: "react-patterns", Title: "Dup"}
	err := s.PutArchitectureItem(ctx, dup, vec)
	require.Error(t, err)
}

func TestTroubleshootUsageCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	eng := embedding.New()
	item := &model.TroubleshootItem{Slug: "infinite-loop", Title: "Infinite render loop", AIUseCase: []string{"loop"}, AISolutions: "fix deps"}
	vec, _ := eng.Embed(item.SearchableText())
	require.NoError(t, s.PutTroubleshootItem(ctx, item, vec))

	require.NoError(t, s.RecordTroubleshootUse(ctx, "infinite-loop", true))
	require.NoError(t, s.RecordTroubleshootUse(ctx, "infinite-loop", false))

	got, err := s.GetTroubleshootItemBySlug(ctx, "infinite-loop")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageCount)
	assert.Equal(t, 1, got.SuccessCount)
}

func TestNamespaceIsolationAcrossStores(t *testing.T) {
	ctx := context.Background()
	eng := embedding.New()

	dirA, dirB := t.TempDir(), t.TempDir()
	sa, err := Open("ns-a", filepath.Join(dirA, "store.db"), filepath.Join(dirA, "bleve.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sa.Close() })
	sb, err := Open("ns-b", filepath.Join(dirB, "store.db"), filepath.Join(dirB, "bleve.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Close() })

	w := &model.WorkItem{ItemType: model.ItemTask, Title: "Only in A", Status: model.StatusNotStarted, Priority: model.PriorityMedium}
	vec, _ := eng.Embed(w.Title)
	require.NoError(t, sa.PutWorkItem(ctx, w, vec))

	_, err = sb.GetWorkItem(ctx, w.ID)
	assert.Error(t, err, "namespace B must not see namespace A's rows")
}
