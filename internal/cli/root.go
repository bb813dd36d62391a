// Package cli wires the pstack commands onto the stack engine.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pstack",
		Short: "pstack manages a stack of patches on top of a git branch",
		Long: `pstack manages a stack of patches on top of a git branch.

Each patch is a single commit with a name. Applied patches form the top of the
branch, unapplied patches wait to be pushed, and hidden patches are kept out of
the way. Every command runs as one transaction that can be undone.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return pstackerrors.NewUsageError("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().Bool("debug", false, "Write engine diagnostics to the console")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return pstackerrors.NewUsageError("%v", err)
	})

	// Stack setup
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newRepairCmd())
	rootCmd.AddCommand(newConfigCmd())

	// Patch creation
	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newReplaceCmd())
	rootCmd.AddCommand(newSpillCmd())

	// Stack movement
	rootCmd.AddCommand(newPushCmd())
	rootCmd.AddCommand(newPopCmd())
	rootCmd.AddCommand(newGotoCmd())
	rootCmd.AddCommand(newFloatCmd())
	rootCmd.AddCommand(newSinkCmd())
	rootCmd.AddCommand(newSortCmd())
	rootCmd.AddCommand(newRebaseCmd())

	// Patch management
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newHideCmd())
	rootCmd.AddCommand(newUnhideCmd())
	rootCmd.AddCommand(newAbortCmd())

	// Inspection
	rootCmd.AddCommand(newSeriesCmd())
	rootCmd.AddCommand(newTopCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newLogCmd())

	// History
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newRedoCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}
