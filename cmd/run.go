package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"orisa.dev/pkg/orisa/internal/controller"
	"orisa.dev/pkg/orisa/internal/domain"
	m "orisa.dev/pkg/orisa/internal/model"
)

const runLongDescription = `Run one test target without the interactive UI.

The target is a pytest node id such as "tests/test_a.py::TestX::test_one",
a module path or a directory. Runner output is streamed, then a summary of
the run is printed. The command exits with the runner's exit code.`

// runCmd represents the run command.
var runCmd = newRunCmd()

// cancelGracePeriod is how long a cancelled run may keep going before its
// runner is killed. Cancellation is only observed between output lines.
var cancelGracePeriod = 2 * time.Second

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <node-id>",
		Short: "Run a test target headlessly",
		Long:  runLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := runHeadless(ctx, cmd, args[0])
			if err != nil {
				return err
			}

			if code != domain.ExitOK {
				cmd.SilenceUsage = true
				cmd.SilenceErrors = true

				return &exitCodeError{code: processExitCode(code)}
			}

			return nil
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// processExitCode maps a runner exit code onto a process exit status.
// Signal terminations follow the shell convention of 128 plus the signal.
func processExitCode(code int) int {
	if code < 0 {
		return 128 - code
	}

	return code
}

// targetNode builds the node addressed by nodeID without a collected tree.
func targetNode(nodeID string) (m.TestNode, error) {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return m.TestNode{}, errors.New("target node id is empty")
	}

	tree := domain.NewTestTree()
	idx := tree.Insert(domain.ChainFromNodeID(nodeID))

	return tree.Node(idx), nil
}

// liveReport accumulates TestOutcome events as a fallback for runs whose
// Report event never arrives.
type liveReport struct {
	mu          sync.Mutex
	accumulator *domain.ReportAccumulator
}

func (r *liveReport) schedule(payload m.Payload) {
	if scheduled, ok := payload.(m.ScheduledTests); ok {
		r.mu.Lock()
		r.accumulator.SetCollected(len(scheduled))
		r.mu.Unlock()
	}
}

func (r *liveReport) record(payload m.Payload) {
	if outcome, ok := payload.(m.TestOutcome); ok {
		r.mu.Lock()
		r.accumulator.Record(outcome)
		r.mu.Unlock()
	}
}

func (r *liveReport) finish(exitStatus int) (m.Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accumulator.Len() == 0 {
		return m.Report{}, false
	}

	return r.accumulator.Finish(exitStatus), true
}

// runHeadless runs nodeID to completion and prints its output and summary.
// Cancelling ctx cancels the run; the runner and the output outlive ctx so
// the cancellation banner is still shown.
func runHeadless(ctx context.Context, cmd *cobra.Command, nodeID string) (int, error) {
	display := context.WithoutCancel(ctx)
	ui := controller.NewSimpleUI(cmd)

	node, err := targetNode(nodeID)
	if err != nil {
		return 0, err
	}

	flags, err := newFlagStore().Load()
	if err != nil {
		return 0, err
	}

	dispatcher, err := startDispatcher(ctx)
	if err != nil {
		return 0, err
	}
	defer stopDispatcher(dispatcher)

	live := &liveReport{accumulator: domain.NewReportAccumulator()}
	dispatcher.RegisterHandler(m.EventTestsScheduled, live.schedule)
	dispatcher.RegisterHandler(m.EventTestOutcome, live.record)

	orchestrator := domain.NewRunOrchestrator(newRunner(dispatcherEnv(dispatcher)), dispatcher,
		domain.WithUpdateFunc(func(update domain.Update) {
			if update.Kind == domain.UpdateLine {
				ui.DisplayLines(display, update.Lines...)
			}
		}),
		domain.WithReportTimeout(viper.GetDuration(runnerReportTimeoutKey)))

	defer func() {
		if err := orchestrator.Close(); err != nil {
			slog.Warn("Failed to stop active run", "error", err)
		}
	}()

	session, err := orchestrator.Run(display, domain.RunRequest{Node: node, Flags: flags})
	if err != nil {
		if session != nil {
			ui.DisplayNotification(display, controller.RunNotification(session.Classification(), node.Name))
		}

		return 0, fmt.Errorf("failed to run %s: %w", nodeID, err)
	}

	select {
	case <-session.Done():
	case <-ctx.Done():
		orchestrator.Cancel()

		select {
		case <-session.Done():
		case <-time.After(cancelGracePeriod):
			slog.Warn("Runner ignored cancellation, killing it", "session", session.ID)

			if err := orchestrator.Close(); err != nil {
				slog.Warn("Failed to stop active run", "error", err)
			}
		}

		<-session.Done()
	}

	classification := session.Classification()

	if classification.State == domain.StateCompleted {
		report, ok := session.Report()
		if !ok {
			report, ok = live.finish(session.ExitCode())
		}

		if ok {
			if err := ui.DisplayReport(display, report); err != nil {
				return 0, err
			}
		}
	}

	ui.DisplayNotification(display, controller.RunNotification(classification, node.Name))

	return session.ExitCode(), nil
}
