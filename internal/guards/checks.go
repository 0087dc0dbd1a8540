package guards

import (
	"context"
	"fmt"
	"strings"
)

// DependenciesCompleted requires every dependency to be in state
// completed before execution starts.
var DependenciesCompleted = NewGuardFunc("dependencies_completed", func(_ context.Context, gctx *GuardContext) Result {
	if len(gctx.IncompleteDependencyIDs) == 0 {
		return Pass("dependencies_completed")
	}
	return Fail("dependencies_completed", HardBlock,
		fmt.Sprintf("%d dependency work item(s) are not completed: %s", len(gctx.IncompleteDependencyIDs), strings.Join(gctx.IncompleteDependencyIDs, ", ")),
		"Complete or remove the blocking dependencies before executing this item.",
	)
})

// NotTerminal requires the item to not already be in a terminal state
// (completed or cancelled).
var NotTerminal = NewGuardFunc("not_terminal", func(_ context.Context, gctx *GuardContext) Result {
	if !gctx.Terminal {
		return Pass("not_terminal")
	}
	return Fail("not_terminal", HardBlock,
		fmt.Sprintf("work item is already in terminal state %q", gctx.Status),
		"Re-open the item (set status back to in_progress) before executing it again.",
	)
})

// AcceptanceCriteriaPresent requires non-empty acceptance criteria.
var AcceptanceCriteriaPresent = NewGuardFunc("acceptance_criteria_present", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.AcceptanceCriteriaCount > 0 {
		return Pass("acceptance_criteria_present")
	}
	return Fail("acceptance_criteria_present", HardBlock,
		"work item has no acceptance_criteria",
		"Add at least one acceptance criterion via jive_manage_work_item before executing.",
	)
})

// ExecutionReadiness is the guard set run by jive_execute_work_item when
// validate_before_execution is true (the default).
var ExecutionReadiness = []Guard{
	DependenciesCompleted,
	NotTerminal,
	AcceptanceCriteriaPresent,
}
