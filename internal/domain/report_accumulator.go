package domain

import (
	"time"

	m "orisa.dev/pkg/orisa/internal/model"
)

// ReportAccumulator builds the Report of a single run from its live
// TestOutcome events. It is created per run and passed explicitly to whatever
// records outcomes, so no state leaks between runs. Phase timings are measured
// by the runner; a passed outcome already carries setup, call and teardown.
type ReportAccumulator struct {
	started   time.Time
	order     []string
	outcomes  map[string]m.TestOutcome
	collected int
}

// NewReportAccumulator starts accumulating a run.
func NewReportAccumulator() *ReportAccumulator {
	return &ReportAccumulator{
		started:  time.Now(),
		outcomes: make(map[string]m.TestOutcome),
	}
}

// SetCollected sets the number of selected tests reported as Total.
func (a *ReportAccumulator) SetCollected(n int) {
	a.collected = n
}

// Record stores the result of outcome.NodeID. A later record for the same node
// replaces the earlier one.
func (a *ReportAccumulator) Record(outcome m.TestOutcome) {
	if outcome.NodeID == "" {
		return
	}

	if _, seen := a.outcomes[outcome.NodeID]; !seen {
		a.order = append(a.order, outcome.NodeID)
	}

	a.outcomes[outcome.NodeID] = outcome
}

// Len returns the number of recorded nodes.
func (a *ReportAccumulator) Len() int {
	return len(a.outcomes)
}

// Finish returns the aggregate report with outcomes in first-recorded order.
func (a *ReportAccumulator) Finish(exitStatus int) m.Report {
	report := m.Report{
		TotalDuration: time.Since(a.started).Seconds(),
		ExitStatus:    exitStatus,
		Total:         a.collected,
	}

	for _, nodeID := range a.order {
		outcome := a.outcomes[nodeID]

		switch outcome.Status {
		case m.StatusPassed:
			report.Passed = append(report.Passed, outcome)
		case m.StatusFailed:
			report.Failed = append(report.Failed, outcome)
		case m.StatusSkipped:
			report.Skipped = append(report.Skipped, outcome)
		case m.StatusXFailed:
			report.XFailed = append(report.XFailed, outcome)
		}
	}

	if report.Total == 0 {
		report.Total = report.Count()
	}

	return report
}
