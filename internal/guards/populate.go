package guards

import (
	"context"

	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/store"
)

// Populate fetches itemID and its dependencies from s and assembles the
// GuardContext the ExecutionReadiness guard set needs.
func Populate(ctx context.Context, s *store.Store, itemID string, force bool) (*GuardContext, error) {
	item, err := s.GetWorkItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	depIDs, err := s.ListDependencies(ctx, itemID)
	if err != nil {
		return nil, err
	}
	var incomplete []string
	for _, depID := range depIDs {
		dep, err := s.GetWorkItem(ctx, depID)
		if err != nil {
			return nil, err
		}
		if dep.Status != model.StatusCompleted {
			incomplete = append(incomplete, depID)
		}
	}

	return &GuardContext{
		ItemID:                  itemID,
		Status:                  string(item.Status),
		Terminal:                item.Status.Terminal(),
		Force:                   force,
		AcceptanceCriteriaCount: len(item.AcceptanceCriteria),
		DependencyCount:         len(depIDs),
		IncompleteDependencyIDs: incomplete,
	}, nil
}
