package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/runtime"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Start a patch stack on the current branch",
		Long: `Start a patch stack on the current branch.

The current head becomes the stack base. Use --remove to drop the stack again;
the branch itself is left as it is.`,
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				if remove {
					stack, err := ctx.Stack()
					if err != nil {
						return err
					}
					if err := stack.Uninit(ctx); err != nil {
						return err
					}
					ctx.Splog.Info("Removed the stack of %s", stack.Branch())
					return nil
				}

				stack, err := ctx.InitStack()
				if err != nil {
					return err
				}
				ctx.Splog.Info("Initialized a stack on %s", stack.Branch())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the stack from the current branch")

	return cmd
}
