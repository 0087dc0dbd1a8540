package hierarchy

import (
	"context"
	"sort"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/store"
)

// Reorder assigns sequence_order = index for each id in orderedIDs, which
// must be exactly the sibling set under parentID. Callers hold the
// write lock.
func Reorder(ctx context.Context, s *store.Store, parentID string, orderedIDs []string) error {
	siblings, err := s.ChildrenOf(ctx, parentID)
	if err != nil {
		return err
	}
	if err := assertCompleteSiblingSet(siblings, orderedIDs); err != nil {
		return err
	}
	return s.ReorderSiblings(ctx, orderedIDs)
}

// RecalculateSiblings re-densifies a sibling set to 0..n-1 preserving
// current relative order.
func RecalculateSiblings(ctx context.Context, s *store.Store, parentID string) error {
	siblings, err := s.ChildrenOf(ctx, parentID)
	if err != nil {
		return err
	}
	sort.Slice(siblings, func(i, j int) bool { return siblings[i].SequenceOrder < siblings[j].SequenceOrder })
	ids := make([]string, len(siblings))
	for i, w := range siblings {
		ids[i] = w.ID
	}
	return s.ReorderSiblings(ctx, ids)
}

func assertCompleteSiblingSet(siblings []*model.WorkItem, orderedIDs []string) error {
	want := make(map[string]bool, len(siblings))
	for _, w := range siblings {
		want[w.ID] = true
	}
	got := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		got[id] = true
	}
	if len(want) != len(got) {
		return apperr.Newf(apperr.IncompleteSiblingSet, "expected %d siblings, got %d ids", len(want), len(got))
	}
	for id := range want {
		if !got[id] {
			return apperr.Newf(apperr.IncompleteSiblingSet, "sibling %q missing from reorder list", id)
		}
	}
	return nil
}

// Swap exchanges the sequence_order of two siblings; both must share the
// same parent_id or the operation fails DifferentParents; it never
// silently re-parents.
func Swap(ctx context.Context, s *store.Store, aID, bID string) error {
	a, err := s.GetWorkItem(ctx, aID)
	if err != nil {
		return err
	}
	b, err := s.GetWorkItem(ctx, bID)
	if err != nil {
		return err
	}
	if !sameParent(a.ParentID, b.ParentID) {
		return apperr.Newf(apperr.DifferentParents, "work items %s and %s do not share a parent", aID, bID)
	}
	a.SequenceOrder, b.SequenceOrder = b.SequenceOrder, a.SequenceOrder
	if err := s.UpdateWorkItem(ctx, a, nil); err != nil {
		return err
	}
	return s.UpdateWorkItem(ctx, b, nil)
}

func sameParent(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// Move re-parents an item, validating the parent/child type rule, the
// same-namespace rule (implicit, since both ids come from the same
// Store), and acyclicity, then inserts at `position` among the new
// siblings (append if negative) and re-densifies both the old and new
// sibling sets.
func Move(ctx context.Context, s *store.Store, itemID string, newParentID *string, position int) error {
	item, err := s.GetWorkItem(ctx, itemID)
	if err != nil {
		return err
	}
	var newParentType *model.ItemType
	if newParentID != nil {
		newParent, err := s.GetWorkItem(ctx, *newParentID)
		if err != nil {
			return err
		}
		newParentType = &newParent.ItemType
	}
	if err := model.ValidateHierarchy(newParentType, item.ItemType); err != nil {
		return err
	}
	if newParentID != nil {
		if err := ValidateParentEdge(ctx, s, itemID, *newParentID); err != nil {
			return err
		}
	}

	oldParentID := item.ParentID
	item.ParentID = newParentID
	if err := s.UpdateWorkItem(ctx, item, nil); err != nil {
		return err
	}

	newSiblingParent := ""
	if newParentID != nil {
		newSiblingParent = *newParentID
	}
	if err := insertAtPosition(ctx, s, newSiblingParent, itemID, position); err != nil {
		return err
	}
	if oldParentID != nil {
		if err := RecalculateSiblings(ctx, s, *oldParentID); err != nil {
			return err
		}
		// The old parent lost a child, so its derived progress/status
		// must be re-derived from the children it has left.
		if err := RecomputeFrom(ctx, s, *oldParentID); err != nil {
			return err
		}
	}
	return nil
}

func insertAtPosition(ctx context.Context, s *store.Store, parentID, movedID string, position int) error {
	siblings, err := s.ChildrenOf(ctx, parentID)
	if err != nil {
		return err
	}
	sort.Slice(siblings, func(i, j int) bool { return siblings[i].SequenceOrder < siblings[j].SequenceOrder })
	ids := make([]string, 0, len(siblings))
	for _, w := range siblings {
		if w.ID != movedID {
			ids = append(ids, w.ID)
		}
	}
	if position < 0 || position > len(ids) {
		position = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:position]...)
	out = append(out, movedID)
	out = append(out, ids[position:]...)
	return s.ReorderSiblings(ctx, out)
}
