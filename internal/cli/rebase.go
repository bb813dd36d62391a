package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/runtime"
)

// newRebaseCmd creates the rebase command
func newRebaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebase <revision>",
		Short: "Move the stack onto another base commit",
		Long: `Move the stack onto another base commit.

All applied patches are popped, the branch is reset to the new base and the
patches are pushed back. A conflict stops the rebase on the conflicting patch.`,
		Args:         helpers.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTx(cmd, args, func(ctx *runtime.Context, tx *engine.Transaction) error {
				onto, err := ctx.Repo.ResolveRevision(ctx, args[0])
				if err != nil {
					return err
				}
				return tx.Rebase(onto)
			})
		},
	}

	return cmd
}

// newRepairCmd creates the repair command
func newRepairCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Bring the stack back in line with the branch",
		Long: `Bring the stack back in line with the branch after it was changed by plain git.

Patches reachable from the branch head become applied and the others
unapplied. Plain commits between the stack and the head are adopted as new
patches. With --reset the branch head becomes the new base and every patch is
unapplied.`,
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
				out, err := stack.Repair(ctx, reset)
				if err != nil {
					return err
				}
				helpers.Report(ctx, out)
				return out.Err()
			})
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Make the branch head the new base")

	return cmd
}
