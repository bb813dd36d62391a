package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/runtime"
	"stackit.dev/pstack/internal/tui"
)

// newDeleteCmd creates the delete command
func newDeleteCmd() *cobra.Command {
	var (
		yes    bool
		policy engine.PopPolicy
	)

	cmd := &cobra.Command{
		Use:   "delete <patch...>",
		Short: "Delete patches from the stack",
		Long: `Delete patches from the stack.

Applied patches are popped first, following the pop policy. When run in a
terminal, delete asks for confirmation unless --yes is given.`,
		Args:              helpers.MinimumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompletePatches,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && tui.Interactive() {
				ok, err := tui.PromptConfirm(fmt.Sprintf("Delete %s?", strings.Join(args, ", ")), false)
				if err != nil {
					return err
				}
				if !ok {
					return tui.ErrCanceled
				}
			}
			return helpers.RunTxThen(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Delete(args...)
			}, announce("Deleted %s", args), engine.WithPopPolicy(policy))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().Var(&policy, "policy", "Pop policy for applied patches below the top: cascade, reorder or reject")

	return cmd
}

// newRenameCmd creates the rename command
func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "rename <old> <new>",
		Short:             "Rename a patch",
		Args:              helpers.ExactArgs(2),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompletePatches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTxThen(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Rename(args[0], args[1])
			}, func(ctx *runtime.Context, _ *engine.Outcome) {
				ctx.Splog.Info("Renamed %s to %s", args[0], args[1])
			})
		},
	}

	return cmd
}

// newHideCmd creates the hide command
func newHideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "hide <patch...>",
		Short:             "Hide unapplied patches",
		Long:              `Hide unapplied patches. Hidden patches are kept but never pushed until they are unhidden.`,
		Args:              helpers.MinimumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteUnapplied,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTxThen(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Hide(args...)
			}, announce("Hid %s", args))
		},
	}

	return cmd
}

// newUnhideCmd creates the unhide command
func newUnhideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "unhide <patch...>",
		Short:             "Move hidden patches back to the end of the unapplied series",
		Args:              helpers.MinimumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteHidden,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTxThen(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Unhide(args...)
			}, announce("Unhid %s", args))
		},
	}

	return cmd
}

func announce(format string, names []string) func(*runtime.Context, *engine.Outcome) {
	return func(ctx *runtime.Context, _ *engine.Outcome) {
		ctx.Splog.Info(format, strings.Join(names, ", "))
	}
}
