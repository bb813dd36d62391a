package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/runtime"
)

// newNewCmd creates the new command
func newNewCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Create an empty patch on top of the stack",
		Long: `Create an empty patch on top of the stack.

Without a name, one is derived from the message. Use 'pstack refresh' to record
changes into the new patch.`,
		Args:         helpers.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				_, err := tx.New(name, message)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Patch message")

	return cmd
}
