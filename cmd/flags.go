package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	m "orisa.dev/pkg/orisa/internal/model"
)

// flagsCmd represents the flags command.
var flagsCmd = newFlagsCmd()

func newFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Manage extra runner flags",
		Long: `List and edit the extra flags passed to the runner on every run.
Only enabled flags are used, in the order they were added.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags, err := newFlagStore().Load()
			if err != nil {
				return err
			}

			printFlags(cmd, flags)

			return nil
		},
	}

	cmd.AddCommand(
		newFlagsEditCmd("add <flag>", "Add a flag, or enable it if present", m.AddFlag),
		newFlagsEditCmd("toggle <flag>", "Enable or disable a flag", m.ToggleFlag),
		newFlagsEditCmd("rm <flag>", "Remove a flag", m.RemoveFlag),
	)

	return cmd
}

func init() {
	rootCmd.AddCommand(flagsCmd)
}

// newFlagsEditCmd builds a subcommand applying edit to the stored flags.
// Flag parsing is disabled so values such as "-x" arrive as arguments.
func newFlagsEditCmd(use, short string, edit func([]m.CLIFlag, string) ([]m.CLIFlag, error)) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		Args:               cobra.ExactArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := newFlagStore()

			flags, err := store.Load()
			if err != nil {
				return err
			}

			flags, err = edit(flags, args[0])
			if err != nil {
				return err
			}

			if err := store.Save(flags); err != nil {
				return err
			}

			printFlags(cmd, flags)

			return nil
		},
	}
}

func printFlags(cmd *cobra.Command, flags []m.CLIFlag) {
	if len(flags) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No flags configured")
		return
	}

	for _, flag := range flags {
		mark := " "
		if flag.Enabled {
			mark = "x"
		}

		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", mark, flag.Value)
	}
}
