package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const waitDelay = 2 * time.Second

// Environment variables read by the runner side plugin.
const (
	// EnvDispatcherAddr is the host:port events are sent to.
	EnvDispatcherAddr = "ORISA_DISPATCHER_ADDR"
	// EnvRunLogWidth is the column count available to the run log.
	EnvRunLogWidth = "ORISA_RUN_LOG_WIDTH"
)

// SpawnSpec describes one runner invocation.
type SpawnSpec struct {
	// Target is the invocation target, e.g. "tests/test_a.py::TestX::test_one".
	Target string
	// Flags are appended after the configured run arguments, in order.
	Flags []string
	// Env holds extra KEY=VALUE entries for the runner environment.
	Env []string
}

// Process is a spawned runner process.
type Process interface {
	Pid() int
	// Stdout streams the process's standard output. It must be read before
	// calling Wait, or abandoned after Terminate.
	Stdout() io.Reader
	// Stderr returns everything written to standard error. Complete after Wait.
	Stderr() string
	// Wait blocks until exit and returns the exit code. Processes killed by a
	// signal report the negated signal number.
	Wait() (int, error)
	// Terminate sends the termination signal to the process and its children.
	Terminate() error
}

// RunnerAdapter abstracts spawning the external test runner.
type RunnerAdapter interface {
	// Spawn starts a run of spec.Target. Cancelling ctx terminates the process.
	Spawn(ctx context.Context, spec SpawnSpec) (Process, error)
	// Collect runs the collection-only invocation to completion.
	Collect(ctx context.Context) error
}

// RunnerConfig configures LocalRunnerAdapter.
type RunnerConfig struct {
	// Command is split on whitespace, so "python -m pytest" works.
	Command     string
	RunArgs     []string
	CollectArgs []string
	WorkDir     string
	Env         []string
}

// LocalRunnerAdapter spawns the runner with os/exec.
type LocalRunnerAdapter struct {
	config RunnerConfig
}

// NewLocalRunnerAdapter constructs a LocalRunnerAdapter.
func NewLocalRunnerAdapter(config RunnerConfig) *LocalRunnerAdapter {
	return &LocalRunnerAdapter{config: config}
}

// Spawn implements RunnerAdapter.
func (a *LocalRunnerAdapter) Spawn(ctx context.Context, spec SpawnSpec) (Process, error) {
	args := make([]string, 0, 1+len(a.config.RunArgs)+len(spec.Flags))
	if spec.Target != "" {
		args = append(args, spec.Target)
	}

	args = append(args, a.config.RunArgs...)
	args = append(args, spec.Flags...)

	cmd, err := a.command(ctx, args, spec.Env)
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open runner stdout: %w", err)
	}

	process := &localProcess{cmd: cmd, stdout: stdout}
	cmd.Stderr = &process.stderr

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to start runner", "command", cmd.Path, "args", args, "error", err)
		return nil, fmt.Errorf("failed to start runner: %w", err)
	}

	slog.Info("Runner started", "pid", cmd.Process.Pid, "args", args)

	return process, nil
}

// Collect implements RunnerAdapter.
func (a *LocalRunnerAdapter) Collect(ctx context.Context) error {
	cmd, err := a.command(ctx, a.config.CollectArgs, nil)
	if err != nil {
		return err
	}

	var stderr bytes.Buffer

	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Error("Collection failed", "args", a.config.CollectArgs, "error", err, "stderr", stderr.String())

		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("collection failed: %w: %s", err, msg)
		}

		return fmt.Errorf("collection failed: %w", err)
	}

	return nil
}

func (a *LocalRunnerAdapter) command(ctx context.Context, args, env []string) (*exec.Cmd, error) {
	fields := strings.Fields(a.config.Command)
	if len(fields) == 0 {
		return nil, errors.New("runner command is empty")
	}

	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], args...)...)
	cmd.Dir = a.config.WorkDir
	cmd.Env = append(append(os.Environ(), a.config.Env...), env...)
	cmd.WaitDelay = waitDelay

	configureProcessGroup(cmd)

	return cmd, nil
}

type localProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr lockedBuffer
}

func (p *localProcess) Pid() int { return p.cmd.Process.Pid }

func (p *localProcess) Stdout() io.Reader { return p.stdout }

func (p *localProcess) Stderr() string { return p.stderr.String() }

func (p *localProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitCodeOf(exitErr.ProcessState), nil
	}

	if p.cmd.ProcessState != nil {
		return exitCodeOf(p.cmd.ProcessState), nil
	}

	return -1, fmt.Errorf("failed to wait for runner: %w", err)
}

func (p *localProcess) Terminate() error {
	err := terminateProcessGroup(p.cmd.Process)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}

// lockedBuffer lets exec's copy goroutine write while Stderr reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
