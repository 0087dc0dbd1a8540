package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxtra/jivemcp/internal/apperr"
)

func TestValidateNamespace(t *testing.T) {
	assert.NoError(t, ValidateNamespace("default"))
	assert.NoError(t, ValidateNamespace("team_a-1"))

	for _, bad := range []string{"", "Has Spaces", "UPPER", strings.Repeat("x", 51), "admin", "system", "config"} {
		err := ValidateNamespace(bad)
		require.Error(t, err, "namespace %q should be rejected", bad)
		assert.Equal(t, apperr.NamespaceInvalid, apperr.CodeOf(err))
	}
}

func TestValidateSlug(t *testing.T) {
	assert.NoError(t, ValidateSlug("react-patterns"))
	assert.NoError(t, ValidateSlug(strings.Repeat("a", 100)))

	for _, bad := range []string{"", "Has Spaces", "UPPER", strings.Repeat("a", 101)} {
		err := ValidateSlug(bad)
		require.Error(t, err, "slug %q should be rejected", bad)
		assert.Equal(t, apperr.SlugInvalid, apperr.CodeOf(err))
	}
}

func TestValidateWorkItemCreateTitleBounds(t *testing.T) {
	w := &WorkItem{ItemType: ItemTask, Title: strings.Repeat("x", 200)}
	assert.NoError(t, ValidateWorkItemCreate(w))

	w = &WorkItem{ItemType: ItemTask, Title: strings.Repeat("x", 201)}
	require.Error(t, ValidateWorkItemCreate(w))

	w = &WorkItem{ItemType: ItemTask, Title: ""}
	require.Error(t, ValidateWorkItemCreate(w))
}

func TestValidateWorkItemCreateDefaultsPriority(t *testing.T) {
	w := &WorkItem{ItemType: ItemTask, Title: "ok"}
	require.NoError(t, ValidateWorkItemCreate(w))
	assert.Equal(t, PriorityMedium, w.Priority)
}

func TestValidateWorkItemCreateAcceptanceCriteriaBounds(t *testing.T) {
	w := &WorkItem{ItemType: ItemTask, Title: "ok", AcceptanceCriteria: []string{"long enough"}}
	assert.NoError(t, ValidateWorkItemCreate(w))

	w = &WorkItem{ItemType: ItemTask, Title: "ok", AcceptanceCriteria: []string{"tiny"}}
	require.Error(t, ValidateWorkItemCreate(w))

	var eleven []string
	for i := 0; i < 11; i++ {
		eleven = append(eleven, "a valid criterion")
	}
	w = &WorkItem{ItemType: ItemTask, Title: "ok", AcceptanceCriteria: eleven}
	require.Error(t, ValidateWorkItemCreate(w))
}

func TestValidateWorkItemCreateRejectsBadEnums(t *testing.T) {
	w := &WorkItem{ItemType: "milestone", Title: "ok"}
	require.Error(t, ValidateWorkItemCreate(w))

	w = &WorkItem{ItemType: ItemTask, Title: "ok", Priority: "urgent"}
	require.Error(t, ValidateWorkItemCreate(w))

	w = &WorkItem{ItemType: ItemTask, Title: "ok", Complexity: "impossible"}
	require.Error(t, ValidateWorkItemCreate(w))
}

func TestValidateHierarchyPairs(t *testing.T) {
	epic := ItemEpic
	story := ItemStory
	task := ItemTask

	// Any type may be a root item.
	for _, it := range []ItemType{ItemInitiative, ItemEpic, ItemFeature, ItemStory, ItemTask} {
		assert.NoError(t, ValidateHierarchy(nil, it))
	}

	assert.NoError(t, ValidateHierarchy(&epic, ItemFeature))
	assert.NoError(t, ValidateHierarchy(&story, ItemTask))

	err := ValidateHierarchy(&epic, ItemTask)
	require.Error(t, err)
	assert.Equal(t, apperr.HierarchyViolation, apperr.CodeOf(err))

	err = ValidateHierarchy(&task, ItemTask)
	require.Error(t, err)
	assert.Equal(t, apperr.HierarchyViolation, apperr.CodeOf(err))
}

func TestValidateTroubleshootItemRequiredFields(t *testing.T) {
	tr := &TroubleshootItem{Slug: "loop", Title: "Loop", AIUseCase: []string{"it loops"}, AISolutions: "fix it"}
	assert.NoError(t, ValidateTroubleshootItem(tr))

	tr = &TroubleshootItem{Slug: "loop", Title: "Loop", AISolutions: "fix it"}
	require.Error(t, ValidateTroubleshootItem(tr))

	tr = &TroubleshootItem{Slug: "loop", Title: "Loop", AIUseCase: []string{"it loops"}}
	require.Error(t, ValidateTroubleshootItem(tr))
}

func TestValidateArchitectureItemListBounds(t *testing.T) {
	a := &ArchitectureItem{Slug: "svc", Title: "Svc"}
	assert.NoError(t, ValidateArchitectureItem(a))

	var tooMany []string
	for i := 0; i < 51; i++ {
		tooMany = append(tooMany, "s")
	}
	a = &ArchitectureItem{Slug: "svc", Title: "Svc", ChildrenSlugs: tooMany}
	require.Error(t, ValidateArchitectureItem(a))
}
