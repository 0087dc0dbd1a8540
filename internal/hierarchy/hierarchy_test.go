package hierarchy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxtra/jivemcp/internal/apperr"
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

func putItem(t *testing.T, s *store.Store, itemType model.ItemType, title string, parentID *string) *model.WorkItem {
	t.Helper()
	w := &model.WorkItem{
		ItemType: itemType,
		Title:    title,
		Status:   model.StatusNotStarted,
		Priority: model.PriorityMedium,
		ParentID: parentID,
	}
	vec, err := embedding.New().Embed(w.SearchableText())
	require.NoError(t, err)
	require.NoError(t, s.PutWorkItem(context.Background(), w, vec))
	return w
}

func TestWouldCreateCycleDirect(t *testing.T) {
	edges := map[string][]string{"a": {"b"}, "b": {"c"}}
	assert.True(t, WouldCreateCycle(edges, "c", "a"))
	assert.False(t, WouldCreateCycle(edges, "a", "c"))
	assert.True(t, WouldCreateCycle(edges, "a", "a"))
}

func TestValidateDependencyEdgeReportsOffendingEdge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := putItem(t, s, model.ItemTask, "A", nil)
	b := putItem(t, s, model.ItemTask, "B", nil)
	c := putItem(t, s, model.ItemTask, "C", nil)

	a.Dependencies = []string{b.ID}
	require.NoError(t, s.UpdateWorkItem(ctx, a, nil))
	b.Dependencies = []string{c.ID}
	require.NoError(t, s.UpdateWorkItem(ctx, b, nil))

	err := ValidateDependencyEdge(ctx, s, c.ID, a.ID)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CycleDetected, appErr.Code)
	assert.Equal(t, [2]string{c.ID, a.ID}, appErr.Details["edge"])
}

func TestReorderAssignsDenseSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	parent := putItem(t, s, model.ItemStory, "Story", nil)
	var ids []string
	for i := 0; i < 4; i++ {
		c := putItem(t, s, model.ItemTask, "Task", &parent.ID)
		ids = append(ids, c.ID)
	}

	reordered := []string{ids[3], ids[0], ids[1], ids[2]}
	require.NoError(t, Reorder(ctx, s, parent.ID, reordered))

	siblings, err := s.ChildrenOf(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, siblings, 4)
	for i, w := range siblings {
		assert.Equal(t, reordered[i], w.ID)
		assert.Equal(t, i, w.SequenceOrder)
	}
}

func TestReorderRejectsIncompleteSiblingSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	parent := putItem(t, s, model.ItemStory, "Story", nil)
	a := putItem(t, s, model.ItemTask, "A", &parent.ID)
	putItem(t, s, model.ItemTask, "B", &parent.ID)

	err := Reorder(ctx, s, parent.ID, []string{a.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.IncompleteSiblingSet, apperr.CodeOf(err))
}

func TestSwapRejectsDifferentParents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p1 := putItem(t, s, model.ItemStory, "Story 1", nil)
	p2 := putItem(t, s, model.ItemStory, "Story 2", nil)
	a := putItem(t, s, model.ItemTask, "A", &p1.ID)
	b := putItem(t, s, model.ItemTask, "B", &p2.ID)

	err := Swap(ctx, s, a.ID, b.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.DifferentParents, apperr.CodeOf(err))
}

func TestSwapExchangesSequenceOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	parent := putItem(t, s, model.ItemStory, "Story", nil)
	a := putItem(t, s, model.ItemTask, "A", &parent.ID)
	b := putItem(t, s, model.ItemTask, "B", &parent.ID)

	require.NoError(t, Swap(ctx, s, a.ID, b.ID))

	gotA, err := s.GetWorkItem(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := s.GetWorkItem(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotA.SequenceOrder)
	assert.Equal(t, 0, gotB.SequenceOrder)
}

func TestMoveRejectsHierarchyViolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	epic := putItem(t, s, model.ItemEpic, "Epic", nil)
	task := putItem(t, s, model.ItemTask, "Task", nil)

	err := Move(ctx, s, task.ID, &epic.ID, -1)
	require.Error(t, err)
	assert.Equal(t, apperr.HierarchyViolation, apperr.CodeOf(err))
}

func TestMoveInsertsAtPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	story := putItem(t, s, model.ItemStory, "Story", nil)
	a := putItem(t, s, model.ItemTask, "A", &story.ID)
	b := putItem(t, s, model.ItemTask, "B", &story.ID)
	moved := putItem(t, s, model.ItemTask, "Moved", nil)

	require.NoError(t, Move(ctx, s, moved.ID, &story.ID, 0))

	siblings, err := s.ChildrenOf(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, siblings, 3)
	assert.Equal(t, moved.ID, siblings[0].ID)
	assert.Equal(t, a.ID, siblings[1].ID)
	assert.Equal(t, b.ID, siblings[2].ID)
}

func TestRollUpPercentageRoundsMean(t *testing.T) {
	children := []*model.WorkItem{
		{ProgressPercentage: 50},
		{ProgressPercentage: 25},
	}
	assert.Equal(t, 38, RollUpPercentage(children))
	assert.Equal(t, 0, RollUpPercentage(nil))
}

func TestRollUpStatusRules(t *testing.T) {
	completed := &model.WorkItem{Status: model.StatusCompleted}
	blocked := &model.WorkItem{Status: model.StatusBlocked}
	inProgress := &model.WorkItem{Status: model.StatusInProgress}
	notStarted := &model.WorkItem{Status: model.StatusNotStarted}

	assert.Equal(t, model.StatusCompleted, RollUpStatus([]*model.WorkItem{completed, completed}))
	assert.Equal(t, model.StatusBlocked, RollUpStatus([]*model.WorkItem{blocked, notStarted}))
	assert.Equal(t, model.StatusInProgress, RollUpStatus([]*model.WorkItem{blocked, inProgress}))
	assert.Equal(t, model.StatusInProgress, RollUpStatus([]*model.WorkItem{inProgress, notStarted}))
	assert.Equal(t, model.StatusNotStarted, RollUpStatus([]*model.WorkItem{notStarted, notStarted}))
}

func TestRecomputeAncestorsPropagatesUpward(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	feature := putItem(t, s, model.ItemFeature, "Feature", nil)
	story := putItem(t, s, model.ItemStory, "Story", &feature.ID)
	t1 := putItem(t, s, model.ItemTask, "T1", &story.ID)
	t2 := putItem(t, s, model.ItemTask, "T2", &story.ID)

	require.NoError(t, s.SetProgress(ctx, t1.ID, 100, model.StatusCompleted))
	require.NoError(t, s.SetProgress(ctx, t2.ID, 50, model.StatusInProgress))
	require.NoError(t, RecomputeAncestors(ctx, s, t1.ID))

	gotStory, err := s.GetWorkItem(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, gotStory.ProgressPercentage)
	assert.Equal(t, model.StatusInProgress, gotStory.Status)

	gotFeature, err := s.GetWorkItem(ctx, feature.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, gotFeature.ProgressPercentage)
	assert.Equal(t, model.StatusInProgress, gotFeature.Status)
}

func TestWalkChildrenRespectsMaxDepth(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	initiative := putItem(t, s, model.ItemInitiative, "Init", nil)
	epic := putItem(t, s, model.ItemEpic, "Epic", &initiative.ID)
	putItem(t, s, model.ItemFeature, "Feature", &epic.ID)

	node, err := WalkChildren(ctx, s, initiative.ID, 1)
	require.NoError(t, err)
	require.Len(t, node.Children, 1)
	assert.Empty(t, node.Children[0].Children)

	node, err = WalkChildren(ctx, s, initiative.ID, 2)
	require.NoError(t, err)
	require.Len(t, node.Children, 1)
	assert.Len(t, node.Children[0].Children, 1)
}

func TestWalkParentsReturnsChainBottomUp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	initiative := putItem(t, s, model.ItemInitiative, "Init", nil)
	epic := putItem(t, s, model.ItemEpic, "Epic", &initiative.ID)
	feature := putItem(t, s, model.ItemFeature, "Feature", &epic.ID)

	chain, err := WalkParents(ctx, s, feature.ID, 10)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, epic.ID, chain[0].ID)
	assert.Equal(t, initiative.ID, chain[1].ID)
}

func TestDependencyClosureFollowsEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := putItem(t, s, model.ItemTask, "A", nil)
	b := putItem(t, s, model.ItemTask, "B", nil)
	c := putItem(t, s, model.ItemTask, "C", nil)

	a.Dependencies = []string{b.ID}
	require.NoError(t, s.UpdateWorkItem(ctx, a, nil))
	b.Dependencies = []string{c.ID}
	require.NoError(t, s.UpdateWorkItem(ctx, b, nil))

	deps, err := DependencyClosure(ctx, s, a.ID, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, deps)

	dependents, err := DependencyClosure(ctx, s, c.ID, true, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, dependents)
}

func TestMoveRecomputesOldParentRollUp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s1 := putItem(t, s, model.ItemStory, "S1", nil)
	s2 := putItem(t, s, model.ItemStory, "S2", nil)
	t1 := putItem(t, s, model.ItemTask, "T1", &s1.ID)
	t2 := putItem(t, s, model.ItemTask, "T2", &s1.ID)

	require.NoError(t, s.SetProgress(ctx, t1.ID, 100, model.StatusCompleted))
	require.NoError(t, RecomputeAncestors(ctx, s, t1.ID))

	got, err := s.GetWorkItem(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.ProgressPercentage)

	require.NoError(t, Move(ctx, s, t2.ID, &s2.ID, -1))

	got, err = s.GetWorkItem(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.ProgressPercentage)
	assert.Equal(t, model.StatusCompleted, got.Status)
}
