package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/runtime"
)

// newPopCmd creates the pop command
func newPopCmd() *cobra.Command {
	var (
		all    bool
		number int
		policy engine.PopPolicy
	)

	cmd := &cobra.Command{
		Use:   "pop [patch...]",
		Short: "Pop applied patches off the stack",
		Long: `Pop applied patches off the stack.

Without arguments the top patch is popped. Popping a patch that is not on top
follows the pop policy: "cascade" also pops everything above it, "reorder"
pushes the patches above it back, and "reject" refuses. The default comes from
the pop.policy setting.`,
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteApplied,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exclusive(len(args) > 0, all, number != 0); err != nil {
				return err
			}
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				switch {
				case len(args) > 0:
					return tx.Pop(args...)
				case all:
					return tx.PopTop(-1)
				case number > 0:
					return tx.PopTop(number)
				case number < 0:
					return pstackerrors.NewUsageError("--number must be positive")
				default:
					return tx.Pop()
				}
			}, engine.WithPopPolicy(policy))
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Pop all applied patches")
	cmd.Flags().IntVarP(&number, "number", "n", 0, "Pop the top n patches")
	cmd.Flags().Var(&policy, "policy", "Pop policy for patches below the top: cascade, reorder or reject")

	return cmd
}
