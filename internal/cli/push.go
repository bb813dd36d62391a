package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/runtime"
)

// newPushCmd creates the push command
func newPushCmd() *cobra.Command {
	var (
		all    bool
		number int
	)

	cmd := &cobra.Command{
		Use:   "push [patch...]",
		Short: "Push unapplied patches onto the stack",
		Long: `Push unapplied patches onto the stack.

Without arguments the next unapplied patch is pushed. Named patches are pushed
in the order given. A push that does not merge cleanly stops with the conflict
written to the worktree; resolve it and run 'pstack refresh'.`,
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteUnapplied,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exclusive(len(args) > 0, all, number != 0); err != nil {
				return err
			}
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				switch {
				case len(args) > 0:
					return tx.Push(args...)
				case all:
					return tx.PushNext(-1)
				case number > 0:
					return tx.PushNext(number)
				case number < 0:
					return pstackerrors.NewUsageError("--number must be positive")
				default:
					return tx.PushNext(1)
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Push all unapplied patches")
	cmd.Flags().IntVarP(&number, "number", "n", 0, "Push the next n unapplied patches")

	return cmd
}

// exclusive rejects invocations that pick patches in more than one way
func exclusive(choices ...bool) error {
	picked := 0
	for _, c := range choices {
		if c {
			picked++
		}
	}
	if picked > 1 {
		return pstackerrors.NewUsageError("patch names, --all and --number cannot be combined")
	}
	return nil
}
