package domain

import (
	"fmt"
	"syscall"

	m "orisa.dev/pkg/orisa/internal/model"
)

// Runner exit codes.
const (
	ExitOK               = 0
	ExitTestsFailed      = 1
	ExitInterrupted      = 2
	ExitInternalError    = 3
	ExitUsageError       = 4
	ExitNoTestsCollected = 5
)

// Classification is the terminal interpretation of a runner exit.
type Classification struct {
	State RunState
	// Outcome is passed or failed for completed runs and empty otherwise.
	Outcome m.Status
	// Label is the short text shown in notifications, e.g. "USAGE ERROR".
	Label   string
	Meaning string
}

// IsError reports whether the classification should be surfaced as an error.
func (c Classification) IsError() bool {
	return c.Outcome != m.StatusPassed
}

var exitClassifications = map[int]Classification{
	ExitOK:               {State: StateCompleted, Outcome: m.StatusPassed, Label: "PASSED", Meaning: "all selected tests passed"},
	ExitTestsFailed:      {State: StateCompleted, Outcome: m.StatusFailed, Label: "FAILED", Meaning: "at least one test failed"},
	ExitInterrupted:      {State: StateErrored, Label: "INTERRUPTED", Meaning: "run interrupted outside orchestrator control"},
	ExitInternalError:    {State: StateErrored, Label: "INTERNAL ERROR", Meaning: "runner internal failure"},
	ExitUsageError:       {State: StateErrored, Label: "USAGE ERROR", Meaning: "invalid invocation"},
	ExitNoTestsCollected: {State: StateErrored, Label: "NO TESTS COLLECTED", Meaning: "target matched nothing"},
}

// ExitTerminated is the exit code of a runner stopped by the SIGTERM the
// orchestrator sends on cancellation.
var ExitTerminated = -int(syscall.SIGTERM)

// CancelledClassification describes a run stopped by a termination signal.
var CancelledClassification = Classification{State: StateCancelled, Label: "CANCELLED", Meaning: "explicit cancellation"}

// ClassifyExit maps every exit code to a terminal classification. Negative
// codes are signal terminations: SIGTERM is a cancellation, any other signal
// is a crash. Codes outside the table are errors.
func ClassifyExit(code int) Classification {
	if c, ok := exitClassifications[code]; ok {
		return c
	}

	if code == ExitTerminated {
		return CancelledClassification
	}

	if code < 0 {
		return Classification{
			State:   StateErrored,
			Label:   fmt.Sprintf("KILLED BY SIGNAL %d", -code),
			Meaning: "runner was killed by a signal it was not sent by orisa",
		}
	}

	return Classification{
		State:   StateErrored,
		Label:   fmt.Sprintf("UNKNOWN EXIT CODE %d", code),
		Meaning: "runner exited with an unrecognized code",
	}
}

// SpawnFailedClassification describes a runner that could not be started.
var SpawnFailedClassification = Classification{State: StateErrored, Label: "SPAWN ERROR", Meaning: "runner could not be started"}
