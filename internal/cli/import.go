package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/runtime"
	"stackit.dev/pstack/internal/utils"
)

// newImportCmd creates the import command
func newImportCmd() *cobra.Command {
	var (
		name    string
		message string
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Create a patch on top of the stack from a diff",
		Long: `Create a patch on top of the stack from a unified diff.

The diff is read from the file, or from standard input when the file is
omitted or "-". Without --name the patch is named after the message, or after
the file.`,
		Args:         helpers.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			diff, err := utils.ReadInput(path)
			if err != nil {
				return err
			}
			if name == "" && message == "" {
				if path == "" || path == "-" {
					return pstackerrors.NewUsageError("give --name or --message when importing from standard input")
				}
				name = engine.MakePatchName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), 0)
			}
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				_, err := tx.Import(name, message, diff)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Patch name")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Patch message")

	return cmd
}

// newReplaceCmd creates the replace command
func newReplaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replace <patch> [file]",
		Short: "Replace the changes of a patch with a diff",
		Long: `Replace the changes of a patch with a unified diff applied to its parent.

The diff is read from the file, or from standard input. Applied patches above
the replaced one are pushed back on top.`,
		Args:              helpers.RangeArgs(1, 2),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompletePatches,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			diff, err := utils.ReadInput(path)
			if err != nil {
				return err
			}
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Replace(args[0], diff)
			})
		},
	}

	return cmd
}
