package model

import (
	"regexp"
	"unicode/utf8"

	"github.com/vuxtra/jivemcp/internal/apperr"
)

// slugPattern bounds memory slugs to `[a-z0-9_-]{1,100}`.
var slugPattern = regexp.MustCompile(`^[a-z0-9_-]{1,100}$`)

// namespacePattern bounds namespace names to `[a-z0-9_-]{1,50}`.
var namespacePattern = regexp.MustCompile(`^[a-z0-9_-]{1,50}$`)

// ReservedNamespaces may never be created or resolved to directly.
var ReservedNamespaces = map[string]bool{
	"admin":  true,
	"system": true,
	"config": true,
}

// ValidateNamespace checks the namespace name pattern and reserved list.
func ValidateNamespace(ns string) error {
	if !namespacePattern.MatchString(ns) {
		return apperr.Newf(apperr.NamespaceInvalid, "namespace %q must match [a-z0-9_-]{1,50}", ns)
	}
	if ReservedNamespaces[ns] {
		return apperr.Newf(apperr.NamespaceInvalid, "namespace %q is reserved", ns)
	}
	return nil
}

// ValidateSlug checks the slug pattern shared by both memory corpora.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return apperr.Newf(apperr.SlugInvalid, "slug %q must match [a-z0-9_-]{1,100}", slug)
	}
	return nil
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// ValidateWorkItemCreate checks the fields required/bounded at creation
// time.
func ValidateWorkItemCreate(w *WorkItem) error {
	if !w.ItemType.Valid() {
		return apperr.Newf(apperr.ValidationError, "item_type %q is invalid", w.ItemType)
	}
	if n := runeLen(w.Title); n < 1 || n > 200 {
		return apperr.Newf(apperr.ValidationError, "title must be 1-200 chars, got %d", n)
	}
	if n := runeLen(w.Description); n > 10000 {
		return apperr.Newf(apperr.ValidationError, "description must be <=10000 chars, got %d", n)
	}
	if w.Priority == "" {
		w.Priority = PriorityMedium
	}
	if !w.Priority.Valid() {
		return apperr.Newf(apperr.ValidationError, "priority %q is invalid", w.Priority)
	}
	if !w.Complexity.Valid() {
		return apperr.Newf(apperr.ValidationError, "complexity %q is invalid", w.Complexity)
	}
	if n := runeLen(w.Notes); n > 1000 {
		return apperr.Newf(apperr.ValidationError, "notes must be <=1000 chars, got %d", n)
	}
	if len(w.AcceptanceCriteria) > 10 {
		return apperr.Newf(apperr.ValidationError, "acceptance_criteria must have <=10 entries, got %d", len(w.AcceptanceCriteria))
	}
	for _, c := range w.AcceptanceCriteria {
		if n := runeLen(c); n < 5 || n > 500 {
			return apperr.Newf(apperr.ValidationError, "acceptance_criteria entries must be 5-500 chars, got %d", n)
		}
	}
	return nil
}

// ValidateHierarchy checks the (parentType, childType) pair against
// AllowedChildTypes. A nil parentType means the item is a root; any
// type may be a root item — the rule only governs parent/child pairs
// when a parent exists.
func ValidateHierarchy(parentType *ItemType, childType ItemType) error {
	if parentType == nil {
		return nil
	}
	allowed, ok := AllowedChildTypes[*parentType]
	if !ok || allowed != childType {
		return apperr.Newf(apperr.HierarchyViolation, "parent type %q cannot have child type %q", *parentType, childType).
			WithDetails(map[string]any{"parent_type": *parentType, "child_type": childType})
	}
	return nil
}

// ValidateArchitectureItem checks ArchitectureItem fields at create/update.
func ValidateArchitectureItem(a *ArchitectureItem) error {
	if err := ValidateSlug(a.Slug); err != nil {
		return err
	}
	if n := runeLen(a.Title); n < 1 || n > 200 {
		return apperr.Newf(apperr.ValidationError, "title must be 1-200 chars, got %d", n)
	}
	if n := runeLen(a.AIRequirements); n > 10000 {
		return apperr.Newf(apperr.ValidationError, "ai_requirements must be <=10000 chars, got %d", n)
	}
	if len(a.AIWhenToUse) > 10 {
		return apperr.New(apperr.ValidationError, "ai_when_to_use must have <=10 entries")
	}
	if len(a.Keywords) > 20 {
		return apperr.New(apperr.ValidationError, "keywords must have <=20 entries")
	}
	if len(a.ChildrenSlugs) > 50 {
		return apperr.New(apperr.ValidationError, "children_slugs must have <=50 entries")
	}
	if len(a.RelatedSlugs) > 20 {
		return apperr.New(apperr.ValidationError, "related_slugs must have <=20 entries")
	}
	if len(a.LinkedEpicIDs) > 20 {
		return apperr.New(apperr.ValidationError, "linked_epic_ids must have <=20 entries")
	}
	return nil
}

// ValidateTroubleshootItem checks TroubleshootItem fields at create/update.
func ValidateTroubleshootItem(t *TroubleshootItem) error {
	if err := ValidateSlug(t.Slug); err != nil {
		return err
	}
	if n := runeLen(t.Title); n < 1 || n > 200 {
		return apperr.Newf(apperr.ValidationError, "title must be 1-200 chars, got %d", n)
	}
	if len(t.AIUseCase) == 0 {
		return apperr.New(apperr.ValidationError, "ai_use_case is required")
	}
	if t.AISolutions == "" {
		return apperr.New(apperr.ValidationError, "ai_solutions is required")
	}
	if t.UsageCount < 0 || t.SuccessCount < 0 {
		return apperr.New(apperr.ValidationError, "usage_count/success_count must be non-negative")
	}
	return nil
}
