package guards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotTerminalBlocksCompletedItems(t *testing.T) {
	gctx := &GuardContext{Status: "completed", Terminal: true}
	r := NotTerminal.Check(context.Background(), gctx)
	assert.False(t, r.Passed)
	assert.Equal(t, HardBlock, r.Severity)
}

func TestDependenciesCompletedPassesWhenNoneOutstanding(t *testing.T) {
	gctx := &GuardContext{}
	r := DependenciesCompleted.Check(context.Background(), gctx)
	assert.True(t, r.Passed)
}

func TestAcceptanceCriteriaPresentFailsOnEmpty(t *testing.T) {
	gctx := &GuardContext{AcceptanceCriteriaCount: 0}
	r := AcceptanceCriteriaPresent.Check(context.Background(), gctx)
	assert.False(t, r.Passed)
}

func TestRunnerAggregatesBlockedOutcome(t *testing.T) {
	gctx := &GuardContext{Terminal: true, Status: "completed", IncompleteDependencyIDs: []string{"dep-1"}}
	outcome := NewRunner().Run(context.Background(), gctx, ExecutionReadiness)
	assert.True(t, outcome.Blocked)
	assert.Len(t, outcome.Issues(), 3)
}

func TestRunnerPassesReadyItem(t *testing.T) {
	gctx := &GuardContext{AcceptanceCriteriaCount: 2}
	outcome := NewRunner().Run(context.Background(), gctx, ExecutionReadiness)
	assert.False(t, outcome.Blocked)
	assert.Empty(t, outcome.Issues())
}
