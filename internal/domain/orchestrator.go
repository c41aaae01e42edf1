package domain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"orisa.dev/pkg/orisa/internal/adapter"
	"orisa.dev/pkg/orisa/internal/metrics"
	m "orisa.dev/pkg/orisa/internal/model"
)

const (
	defaultReportTimeout = 2 * time.Second
	reportPollInterval   = 20 * time.Millisecond
)

// SpawnError reports a runner that could not be started.
type SpawnError struct {
	Target string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn runner for %s: %v", e.Target, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ReportSource gives access to the last Report event pushed by the runner.
type ReportSource interface {
	LastValue(eventType m.EventType) (m.Payload, bool)
	DiscardLastValue(eventType m.EventType)
}

// UpdateKind tells what changed in an Update.
type UpdateKind int

const (
	// UpdateLine carries one new log line.
	UpdateLine UpdateKind = iota
	// UpdateState carries a state transition.
	UpdateState
)

// Update is posted for every change of a session. It is delivered on the
// session's worker goroutine, receivers should hand it over to their own loop.
type Update struct {
	Kind    UpdateKind
	Session *RunSession
	State   RunState
	Lines   []string
}

// RunRequest selects what to run.
type RunRequest struct {
	Node  m.TestNode
	Flags []m.CLIFlag
	Env   []string
}

// RunOrchestrator owns the runner process of at most one active session.
type RunOrchestrator interface {
	// Run supersedes any active session, spawns the runner for req.Node and
	// returns once the process streams in the background. A spawn failure
	// returns the errored session together with a *SpawnError.
	Run(ctx context.Context, req RunRequest) (*RunSession, error)
	// Cancel requests cooperative cancellation of the active session. The flag
	// is checked before each output line is processed.
	Cancel() bool
	// Active returns the latest session, terminal or not.
	Active() *RunSession
	// Close cancels and kills the active session and waits for it.
	Close() error
}

// OrchestratorOption configures a RunOrchestrator.
type OrchestratorOption func(*orchestrator)

// WithUpdateFunc registers fn to receive session updates.
func WithUpdateFunc(fn func(Update)) OrchestratorOption {
	return func(o *orchestrator) {
		o.onUpdate = fn
	}
}

// WithReportTimeout bounds how long a completed session waits for the Report
// event after the process exited.
func WithReportTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *orchestrator) {
		o.reportTimeout = timeout
	}
}

type orchestrator struct {
	runner        adapter.RunnerAdapter
	reports       ReportSource
	onUpdate      func(Update)
	reportTimeout time.Duration

	// mu serializes Run and Close. Cancel and Active only read active, so
	// they never wait for a superseded runner to exit.
	mu     sync.Mutex
	active atomic.Pointer[RunSession]
}

// NewRunOrchestrator constructs a RunOrchestrator spawning through runner and
// reading reports from reports.
func NewRunOrchestrator(runner adapter.RunnerAdapter, reports ReportSource, opts ...OrchestratorOption) RunOrchestrator {
	o := &orchestrator{
		runner:        runner,
		reports:       reports,
		reportTimeout: defaultReportTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *orchestrator) Run(ctx context.Context, req RunRequest) (*RunSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.supersede()

	target := InvocationTarget(req.Node)
	session := newRunSession(req.Node, target, m.ActiveFlags(req.Flags))
	o.active.Store(session)

	runCtx, stop := context.WithCancel(ctx)
	session.stop = stop

	o.transition(session, StateStarting)

	o.reports.DiscardLastValue(m.EventReport)

	process, err := o.runner.Spawn(runCtx, adapter.SpawnSpec{
		Target: target,
		Flags:  session.Flags,
		Env:    req.Env,
	})
	if err != nil {
		slog.Error("Failed to spawn runner", "target", target, "error", err)

		spawnErr := &SpawnError{Target: target, Err: err}
		o.finish(session, SpawnFailedClassification, -1, spawnErr)

		return session, spawnErr
	}

	slog.Info("Run started", "session", session.ID, "target", target, "flags", session.Flags)

	o.transition(session, StateStreaming)

	go o.stream(session, process)

	return session, nil
}

func (o *orchestrator) Cancel() bool {
	session := o.active.Load()
	if session == nil || session.State().IsTerminal() {
		return false
	}

	if session.requestCancel() {
		slog.Info("Run cancellation requested", "session", session.ID)
	}

	return true
}

func (o *orchestrator) Active() *RunSession {
	return o.active.Load()
}

func (o *orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.supersede()

	return nil
}

// supersede cancels and kills the active session and waits until it is
// terminal. Callers hold o.mu.
func (o *orchestrator) supersede() {
	prev := o.active.Load()
	if prev == nil || prev.State().IsTerminal() {
		return
	}

	slog.Info("Superseding active run", "session", prev.ID)

	prev.requestCancel()
	prev.kill()
	<-prev.done
}

func (o *orchestrator) stream(session *RunSession, process adapter.Process) {
	reader := bufio.NewReader(process.Stdout())

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if session.Cancelled() {
				o.cancel(session, process)
				return
			}

			line = strings.TrimRight(line, "\r\n")
			session.appendLines(line)
			o.notify(Update{Kind: UpdateLine, Session: session, State: StateStreaming, Lines: []string{line}})
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("Runner output ended unexpectedly", "session", session.ID, "error", err)
			}

			break
		}
	}

	if session.Cancelled() {
		o.cancel(session, process)
		return
	}

	code, err := process.Wait()
	if err != nil {
		slog.Error("Failed to wait for runner", "session", session.ID, "error", err)
		o.finish(session, Classification{State: StateErrored, Label: "RUNNER LOST", Meaning: err.Error()}, code, err)

		return
	}

	if code != 0 {
		if stderr := strings.TrimRight(process.Stderr(), "\r\n"); strings.TrimSpace(stderr) != "" {
			lines := strings.Split(stderr, "\n")
			session.appendLines(lines...)
			o.notify(Update{Kind: UpdateLine, Session: session, State: StateStreaming, Lines: lines})
		}
	}

	classification := ClassifyExit(code)

	if classification.State == StateCompleted {
		if report, ok := o.awaitReport(); ok {
			session.attachReport(report)
		} else {
			slog.Warn("No report received for completed run", "session", session.ID, "timeout", o.reportTimeout)
		}
	}

	o.finish(session, classification, code, nil)
}

// cancel terminates the process of a session whose cancellation flag is set.
func (o *orchestrator) cancel(session *RunSession, process adapter.Process) {
	if err := process.Terminate(); err != nil {
		slog.Warn("Failed to terminate runner", "session", session.ID, "error", err)
	}

	session.appendLines(CancellationBanner...)
	o.notify(Update{Kind: UpdateLine, Session: session, State: StateStreaming, Lines: CancellationBanner})

	session.kill()

	code, err := process.Wait()
	if err != nil {
		slog.Debug("Cancelled runner wait failed", "session", session.ID, "error", err)
	}

	o.finish(session, CancelledClassification, code, nil)
}

func (o *orchestrator) awaitReport() (m.Report, bool) {
	deadline := time.Now().Add(o.reportTimeout)

	for {
		if payload, ok := o.reports.LastValue(m.EventReport); ok {
			if report, ok := payload.(m.Report); ok {
				return report, true
			}
		}

		if !time.Now().Before(deadline) {
			return m.Report{}, false
		}

		time.Sleep(reportPollInterval)
	}
}

func (o *orchestrator) transition(session *RunSession, state RunState) {
	session.setState(state)
	o.notify(Update{Kind: UpdateState, Session: session, State: state})
}

func (o *orchestrator) finish(session *RunSession, classification Classification, code int, err error) {
	session.finish(classification, code, err)

	metrics.RecordRun(classification.State.String())
	slog.Info("Run finished",
		"session", session.ID,
		"state", classification.State,
		"label", classification.Label,
		"exitCode", code)

	o.notify(Update{Kind: UpdateState, Session: session, State: classification.State})
}

func (o *orchestrator) notify(update Update) {
	if o.onUpdate != nil {
		o.onUpdate(update)
	}
}
