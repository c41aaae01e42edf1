package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	m "orisa.dev/pkg/orisa/internal/model"
)

func TestClassifyExit(t *testing.T) {
	tests := []struct {
		code    int
		state   RunState
		outcome m.Status
		label   string
	}{
		{ExitOK, StateCompleted, m.StatusPassed, "PASSED"},
		{ExitTestsFailed, StateCompleted, m.StatusFailed, "FAILED"},
		{ExitInterrupted, StateErrored, "", "INTERRUPTED"},
		{ExitInternalError, StateErrored, "", "INTERNAL ERROR"},
		{ExitUsageError, StateErrored, "", "USAGE ERROR"},
		{ExitNoTestsCollected, StateErrored, "", "NO TESTS COLLECTED"},
		{ExitTerminated, StateCancelled, "", "CANCELLED"},
		{-9, StateErrored, "", "KILLED BY SIGNAL 9"},
		{-11, StateErrored, "", "KILLED BY SIGNAL 11"},
		{-6, StateErrored, "", "KILLED BY SIGNAL 6"},
		{6, StateErrored, "", "UNKNOWN EXIT CODE 6"},
		{137, StateErrored, "", "UNKNOWN EXIT CODE 137"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got := ClassifyExit(tt.code)
			assert.Equal(t, tt.state, got.State)
			assert.Equal(t, tt.outcome, got.Outcome)
			assert.Equal(t, tt.label, got.Label)
			assert.NotEmpty(t, got.Meaning)
			assert.True(t, got.State.IsTerminal())
			assert.Equal(t, got, ClassifyExit(tt.code), "classification is deterministic")
		})
	}
}

func TestClassification_IsError(t *testing.T) {
	assert.False(t, ClassifyExit(ExitOK).IsError())
	assert.True(t, ClassifyExit(ExitTestsFailed).IsError())
	assert.True(t, ClassifyExit(ExitUsageError).IsError())
	assert.True(t, CancelledClassification.IsError())
	assert.True(t, ClassifyExit(-11).IsError())
}

func TestRunState(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "unknown", RunState(42).String())
	assert.False(t, StateIdle.IsTerminal())
	assert.False(t, StateStarting.IsTerminal())
	assert.False(t, StateStreaming.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())
}
