package hierarchy

import (
	"context"
	"math"

	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/store"
)

// RecomputeAncestors re-derives progress_percentage/status for itemID's
// parent and every ancestor above it, bottom-up, stopping as soon as a
// level is unchanged. Callers hold the namespace write lock.
func RecomputeAncestors(ctx context.Context, s *store.Store, itemID string) error {
	item, err := s.GetWorkItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.ParentID == nil {
		return nil
	}
	return RecomputeFrom(ctx, s, *item.ParentID)
}

// RecomputeFrom re-derives progress_percentage/status starting at id
// itself and walking upward, for callers whose trigger node is no longer
// (or not yet) a child of id — a deleted or moved-away item. Callers
// hold the namespace write lock.
func RecomputeFrom(ctx context.Context, s *store.Store, id string) error {
	next := &id
	for next != nil {
		changed, parentID, err := recomputeOne(ctx, s, *next)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		next = parentID
	}
	return nil
}

// recomputeOne recomputes a single node's derived progress/status from
// its children and persists it if different, returning whether it
// changed and the node's own parent id (to continue walking up).
func recomputeOne(ctx context.Context, s *store.Store, id string) (changed bool, parentID *string, err error) {
	item, err := s.GetWorkItem(ctx, id)
	if err != nil {
		return false, nil, err
	}
	children, err := s.ChildrenOf(ctx, id)
	if err != nil {
		return false, nil, err
	}
	if len(children) == 0 {
		return false, item.ParentID, nil
	}

	pct := RollUpPercentage(children)
	status := RollUpStatus(children)
	if pct == item.ProgressPercentage && status == item.Status {
		return false, item.ParentID, nil
	}
	if err := s.SetProgress(ctx, id, pct, status); err != nil {
		return false, nil, err
	}
	return true, item.ParentID, nil
}

// RollUpPercentage derives a parent's progress as
// round(mean(children.progress_percentage)).
func RollUpPercentage(children []*model.WorkItem) int {
	if len(children) == 0 {
		return 0
	}
	sum := 0
	for _, c := range children {
		sum += c.ProgressPercentage
	}
	return int(math.Round(float64(sum) / float64(len(children))))
}

// RollUpStatus derives a parent's status from its children:
// completed iff all children completed; blocked if any child blocked and
// none in progress; otherwise in_progress if at least one child is
// in progress; otherwise not_started.
func RollUpStatus(children []*model.WorkItem) model.Status {
	allCompleted := true
	anyBlocked := false
	anyInProgress := false
	for _, c := range children {
		if c.Status != model.StatusCompleted {
			allCompleted = false
		}
		if c.Status == model.StatusBlocked {
			anyBlocked = true
		}
		if c.Status == model.StatusInProgress {
			anyInProgress = true
		}
	}
	switch {
	case allCompleted:
		return model.StatusCompleted
	case anyBlocked && !anyInProgress:
		return model.StatusBlocked
	case anyInProgress:
		return model.StatusInProgress
	default:
		return model.StatusNotStarted
	}
}
