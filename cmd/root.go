// Package cmd provides the root command and CLI setup for orisa.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"orisa.dev/pkg/orisa/internal/adapter"
	"orisa.dev/pkg/orisa/internal/controller"
	"orisa.dev/pkg/orisa/internal/domain"
	"orisa.dev/pkg/orisa/internal/metrics"
	m "orisa.dev/pkg/orisa/internal/model"
	"orisa.dev/pkg/orisa/pkg"
)

// Shared dependencies, replaced in tests.
var (
	newDispatcher = func() adapter.EventDispatcher {
		return adapter.NewEventDispatcher(adapter.NewJSONEventCodec())
	}
	newRunner = func(env []string) adapter.RunnerAdapter {
		return adapter.NewLocalRunnerAdapter(runnerConfig(env))
	}
	newFlagStore = func() adapter.FlagStore {
		return adapter.NewYAMLFlagStore(viper.GetString(flagsFileKey))
	}
	eventCodec  = adapter.NewJSONEventCodec()
	eventSender = adapter.NewTCPEventSender(eventCodec)
	runTUI      = func(ctx context.Context, cfg controller.TUIConfig) error {
		return controller.NewTUI(cfg).Run(ctx)
	}
)

const payloadPollInterval = 20 * time.Millisecond

const rootLongDescription = `Orisa is an interactive explorer for pytest suites. It collects the test
tree, runs any node in a child pytest process and decorates the tree with
live results pushed back by the orisa pytest plugin.

Without a subcommand the interactive UI is started.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orisa",
		Short: "Interactive pytest explorer",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runInteractive(ctx, cmd)
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(hostFlagName, viper.GetString(dispatcherHostKey), "host the event dispatcher binds")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(hostFlagName), dispatcherHostKey)

	cmd.PersistentFlags().Int(portFlagName, viper.GetInt(dispatcherPortKey), "port the event dispatcher binds (0 picks a free port)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(portFlagName), dispatcherPortKey)

	cmd.PersistentFlags().String(commandFlagName, viper.GetString(runnerCommandKey), "runner command, e.g. \"python -m pytest\"")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(commandFlagName), runnerCommandKey)

	cmd.PersistentFlags().String(metricsFlagName, viper.GetString(metricsAddrKey), "serve Prometheus metrics on this address")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(metricsFlagName), metricsAddrKey)

	cmd.PersistentFlags().BoolP(verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// exitCodeError makes the process exit with code instead of 1.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}

		os.Exit(1)
	}
}

func runInteractive(ctx context.Context, cmd *cobra.Command) error {
	serveMetrics(ctx)

	dispatcher, err := startDispatcher(ctx)
	if err != nil {
		return err
	}
	defer stopDispatcher(dispatcher)

	history, err := pkg.NewFileSpill[m.RunRecord](viper.GetString(historyDirKey))
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}

	defer func() {
		if err := history.Close(); err != nil {
			slog.Warn("Failed to remove run history", "path", history.Path(), "error", err)
		}
	}()

	runner := newRunner(dispatcherEnv(dispatcher))

	go func() {
		if err := runner.Collect(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Failed to collect tests", "error", err)
		}
	}()

	return runTUI(ctx, controller.TUIConfig{
		Output:        cmd.OutOrStdout(),
		Input:         cmd.InOrStdin(),
		Dispatcher:    dispatcher,
		Runner:        runner,
		Flags:         newFlagStore(),
		History:       history,
		ReportTimeout: viper.GetDuration(runnerReportTimeoutKey),
	})
}

func runnerConfig(env []string) adapter.RunnerConfig {
	return adapter.RunnerConfig{
		Command:     viper.GetString(runnerCommandKey),
		RunArgs:     viper.GetStringSlice(runnerRunArgsKey),
		CollectArgs: viper.GetStringSlice(runnerCollectArgsKey),
		WorkDir:     viper.GetString(runnerWorkDirKey),
		Env:         env,
	}
}

// startDispatcher binds the dispatcher and waits until it accepts
// connections.
func startDispatcher(ctx context.Context) (adapter.EventDispatcher, error) {
	dispatcher := newDispatcher()

	if err := dispatcher.Start(viper.GetString(dispatcherHostKey), viper.GetInt(dispatcherPortKey)); err != nil {
		return nil, fmt.Errorf("failed to start event dispatcher: %w", err)
	}

	host, port, err := splitAddr(dispatcher.Addr())
	if err != nil {
		stopDispatcher(dispatcher)
		return nil, err
	}

	err = eventSender.WaitForReady(ctx, host, port,
		viper.GetInt(dispatcherReadyAttemptsKey), viper.GetDuration(dispatcherReadyDelayKey))
	if err != nil {
		stopDispatcher(dispatcher)
		return nil, err
	}

	return dispatcher, nil
}

func stopDispatcher(dispatcher adapter.EventDispatcher) {
	if err := dispatcher.Stop(); err != nil {
		slog.Warn("Failed to stop event dispatcher", "error", err)
	}
}

func dispatcherEnv(dispatcher adapter.EventDispatcher) []string {
	return []string{adapter.EnvDispatcherAddr + "=" + dispatcher.Addr()}
}

func splitAddr(addr string) (string, int, error) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid dispatcher address %q: %w", addr, err)
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return "", 0, fmt.Errorf("invalid dispatcher port %q: %w", rawPort, err)
	}

	return host, port, nil
}

func serveMetrics(ctx context.Context) {
	addr := viper.GetString(metricsAddrKey)
	if addr == "" {
		return
	}

	go func() {
		if err := metrics.Serve(ctx, addr); err != nil {
			slog.Error("Failed to serve metrics", "addr", addr, "error", err)
		}
	}()
}

// awaitPayload polls source for the retained value of eventType. Runner
// events can be dispatched after the process exit is observed.
func awaitPayload(ctx context.Context, source domain.ReportSource, eventType m.EventType, timeout time.Duration) (m.Payload, error) {
	deadline := time.Now().Add(timeout)

	for {
		if payload, ok := source.LastValue(eventType); ok {
			return payload, nil
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("no %s event received within %s", eventType, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(payloadPollInterval):
		}
	}
}
