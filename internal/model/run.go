package model

import "time"

// RunRecord is the persisted summary of one finished session.
type RunRecord struct {
	ID         string
	NodeName   string
	Target     string
	State      string
	Label      string
	ExitCode   int
	Log        []string
	Results    map[string]NodeResult
	Report     *Report
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the run.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}
