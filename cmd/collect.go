package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"orisa.dev/pkg/orisa/internal/controller"
	"orisa.dev/pkg/orisa/internal/domain"
	m "orisa.dev/pkg/orisa/internal/model"
)

// collectCmd represents the collect command.
var collectCmd = newCollectCmd()

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Collect tests and print the test tree",
		Long:  "Runs the collection-only invocation and prints the tree the runner reported.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tree, err := collectTree(ctx)
			if err != nil {
				return err
			}

			return controller.NewSimpleUI(cmd).DisplayTree(ctx, domain.NewTreeLabelReconciler(tree))
		},
	}
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func collectTree(ctx context.Context) (*domain.TestTree, error) {
	dispatcher, err := startDispatcher(ctx)
	if err != nil {
		return nil, err
	}
	defer stopDispatcher(dispatcher)

	if err := newRunner(dispatcherEnv(dispatcher)).Collect(ctx); err != nil {
		return nil, err
	}

	payload, err := awaitPayload(ctx, dispatcher, m.EventTestsCollected, viper.GetDuration(runnerReportTimeoutKey))
	if err != nil {
		return nil, fmt.Errorf("failed to collect tests: %w", err)
	}

	snapshot, ok := payload.(m.TreeSnapshot)
	if !ok {
		return nil, fmt.Errorf("unexpected %T collection payload", payload)
	}

	return domain.FromSnapshot(snapshot), nil
}
