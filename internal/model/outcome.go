package model

// Status is the state of a single test unit.
type Status string

const (
	// StatusPassed indicates the test passed.
	StatusPassed Status = "passed"
	// StatusFailed indicates the test failed.
	StatusFailed Status = "failed"
	// StatusSkipped indicates the test was skipped.
	StatusSkipped Status = "skipped"
	// StatusXFailed indicates an expected failure.
	StatusXFailed Status = "xfailed"
	// StatusRunning indicates the test started but has not finished.
	StatusRunning Status = "running"
)

// IsTerminal returns true if the status ends a test.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped || s == StatusXFailed
}

// Fixture is a named setup dependency consumed by a passed test.
type Fixture struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

// TestOutcome is the result of one test unit.
type TestOutcome struct {
	NodeID         string    `json:"nodeId"`
	Status         Status    `json:"status"`
	Duration       float64   `json:"duration"`
	SkipReason     string    `json:"skipReason,omitempty"`
	FixturesUsed   []Fixture `json:"fixturesUsed,omitempty"`
	CapturedLog    string    `json:"capturedLog,omitempty"`
	LongTraceback  string    `json:"longTraceback,omitempty"`
	CapturedStderr string    `json:"capturedStderr,omitempty"`
}

// EventType implements Payload.
func (TestOutcome) EventType() EventType { return EventTestOutcome }

// Report is the aggregate result of one runner session.
type Report struct {
	Passed            []TestOutcome      `json:"passed"`
	Failed            []TestOutcome      `json:"failed"`
	Skipped           []TestOutcome      `json:"skipped"`
	XFailed           []TestOutcome      `json:"xfailed"`
	SetupDurations    map[string]float64 `json:"setupDurations"`
	TeardownDurations map[string]float64 `json:"teardownDurations"`
	TotalDuration     float64            `json:"totalDuration"`
	ExitStatus        int                `json:"exitStatus"`
	Total             int                `json:"total"`
}

// EventType implements Payload.
func (Report) EventType() EventType { return EventReport }

// NodeResult is the final status of one node id as derived from a Report.
type NodeResult struct {
	Status   Status
	Duration float64
}

// Results derives the per node id outcome map from the report's status lists.
// Later lists win when a node id appears more than once.
func (r Report) Results() map[string]NodeResult {
	results := make(map[string]NodeResult)

	groups := []struct {
		status   Status
		outcomes []TestOutcome
	}{
		{StatusPassed, r.Passed},
		{StatusFailed, r.Failed},
		{StatusSkipped, r.Skipped},
		{StatusXFailed, r.XFailed},
	}

	for _, group := range groups {
		for _, outcome := range group.outcomes {
			results[outcome.NodeID] = NodeResult{Status: group.status, Duration: outcome.Duration}
		}
	}

	return results
}

// Count returns the number of outcomes in the report.
func (r Report) Count() int {
	return len(r.Passed) + len(r.Failed) + len(r.Skipped) + len(r.XFailed)
}
