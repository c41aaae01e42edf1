package domain

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	m "orisa.dev/pkg/orisa/internal/model"
)

// RunState is the lifecycle state of a RunSession.
type RunState int

const (
	StateIdle RunState = iota
	StateStarting
	StateStreaming
	StateCompleted
	StateCancelled
	StateErrored
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s RunState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateErrored
}

// CancellationBanner is appended to the log of a cancelled run.
var CancellationBanner = []string{
	"",
	"──────────────────────────────",
	"  Run cancelled by user",
	"──────────────────────────────",
}

// RunSession is one execution of a selected node, from spawn to a terminal
// state. It is safe for concurrent use.
type RunSession struct {
	ID        string
	Node      m.TestNode
	Target    string
	Flags     []string
	StartedAt time.Time

	cancelRequested atomic.Bool
	stop            context.CancelFunc
	done            chan struct{}

	mu             sync.Mutex
	state          RunState
	log            []string
	exitCode       int
	classification Classification
	report         *m.Report
	results        map[string]m.NodeResult
	err            error
	finishedAt     time.Time
}

func newRunSession(node m.TestNode, target string, flags []string) *RunSession {
	return &RunSession{
		ID:        uuid.NewString(),
		Node:      node,
		Target:    target,
		Flags:     flags,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
		state:     StateIdle,
	}
}

// State returns the current state.
func (s *RunSession) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Log returns a copy of the lines appended so far.
func (s *RunSession) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.log...)
}

// LogSince returns a copy of the lines appended after the first n.
func (s *RunSession) LogSince(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 {
		n = 0
	}

	if n >= len(s.log) {
		return nil
	}

	return append([]string(nil), s.log[n:]...)
}

// ExitCode returns the runner exit code once the session is terminal.
func (s *RunSession) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exitCode
}

// Classification returns the terminal classification.
func (s *RunSession) Classification() Classification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.classification
}

// Report returns the report attached on completion.
func (s *RunSession) Report() (m.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report == nil {
		return m.Report{}, false
	}

	return *s.report, true
}

// Results returns the per node id outcomes derived from the report. It is nil
// unless the session completed with a report.
func (s *RunSession) Results() map[string]m.NodeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.results)
}

// Err returns the error that ended an errored session.
func (s *RunSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Done is closed once the session reached a terminal state.
func (s *RunSession) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is terminal or ctx is done.
func (s *RunSession) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancelled reports whether cancellation was requested.
func (s *RunSession) Cancelled() bool {
	return s.cancelRequested.Load()
}

// Record returns the persisted summary of the session.
func (s *RunSession) Record() m.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := m.RunRecord{
		ID:         s.ID,
		NodeName:   s.Node.Name,
		Target:     s.Target,
		State:      s.state.String(),
		Label:      s.classification.Label,
		ExitCode:   s.exitCode,
		Log:        append([]string(nil), s.log...),
		Results:    maps.Clone(s.results),
		StartedAt:  s.StartedAt,
		FinishedAt: s.finishedAt,
	}

	if s.report != nil {
		report := *s.report
		record.Report = &report
	}

	return record
}

func (s *RunSession) requestCancel() bool {
	return !s.cancelRequested.Swap(true)
}

func (s *RunSession) kill() {
	if s.stop != nil {
		s.stop()
	}
}

func (s *RunSession) setState(state RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
}

func (s *RunSession) appendLines(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = append(s.log, lines...)
}

func (s *RunSession) attachReport(report m.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.report = &report
	s.results = report.Results()
}

func (s *RunSession) finish(classification Classification, exitCode int, err error) {
	s.mu.Lock()
	s.state = classification.State
	s.classification = classification
	s.exitCode = exitCode
	s.err = err
	s.finishedAt = time.Now()
	s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}

	close(s.done)
}
