package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrwa-ai/mrwa/pkg/domain"
)

func TestExecutionStatus_IsTerminal(t *testing.T) {
	terminal := []domain.ExecutionStatus{
		domain.ExecutionStatusCompleted,
		domain.ExecutionStatusFailed,
		domain.ExecutionStatusCancelled,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}

	active := []domain.ExecutionStatus{
		domain.ExecutionStatusPlanned,
		domain.ExecutionStatusRunning,
		domain.ExecutionStatusValidating,
		domain.ExecutionStatusCorrecting,
	}
	for _, s := range active {
		assert.False(t, s.IsTerminal(), string(s))
	}
}

func TestExecution_CorrectionBudgetRemaining(t *testing.T) {
	exec := &domain.Execution{MaxRetries: 3}
	assert.Equal(t, 3, exec.CorrectionBudgetRemaining())

	exec.Corrections = 2
	assert.Equal(t, 1, exec.CorrectionBudgetRemaining())

	exec.Corrections = 3
	assert.Equal(t, 0, exec.CorrectionBudgetRemaining())

	// Never negative
	exec.Corrections = 5
	assert.Equal(t, 0, exec.CorrectionBudgetRemaining())
}

func TestIsTransient(t *testing.T) {
	transient := domain.NewTransientError("web.fetch", fmt.Errorf("timeout"))
	permanent := domain.NewPermanentError("web.fetch", fmt.Errorf("bad input"))

	assert.True(t, domain.IsTransient(transient))
	assert.False(t, domain.IsTransient(permanent))
	assert.False(t, domain.IsTransient(fmt.Errorf("plain error")))
	assert.False(t, domain.IsTransient(nil))

	// Classification survives wrapping
	wrapped := fmt.Errorf("invoke failed: %w", transient)
	assert.True(t, domain.IsTransient(wrapped))
}

func TestPlanningError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("unsupported input type")
	err := domain.NewPlanningError("spreadsheet", cause)

	assert.Contains(t, err.Error(), "spreadsheet")
	assert.True(t, errors.Is(err, cause))
}
