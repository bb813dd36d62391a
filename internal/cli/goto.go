package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/runtime"
)

// newGotoCmd creates the goto command
func newGotoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "goto <patch>",
		Short:             "Push or pop patches until the given patch is on top",
		Args:              helpers.ExactArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompletePatches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Goto(args[0])
			})
		},
	}

	return cmd
}
