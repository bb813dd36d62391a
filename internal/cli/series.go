package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/output"
	"stackit.dev/pstack/internal/runtime"
)

// newSeriesCmd creates the series command
func newSeriesCmd() *cobra.Command {
	var opts output.SeriesOptions

	cmd := &cobra.Command{
		Use:     "series",
		Aliases: []string{"ls"},
		Short:   "List the patches of the stack",
		Long: `List the patches of the stack, bottom first.

  + applied
  > top
  X top, with an unresolved conflict
  - unapplied
  ! hidden`,
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
				state, err := stack.State(ctx)
				if err != nil {
					return err
				}
				ctx.Splog.Page(output.FormatSeries(state, opts))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Description, "description", "d", false, "Show patch subjects")
	cmd.Flags().BoolVar(&opts.Hidden, "hidden", false, "Include hidden patches")
	cmd.Flags().BoolVarP(&opts.Short, "short", "s", false, "Only show patches around the top")

	return cmd
}

// newTopCmd creates the top command
func newTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "top",
		Short:        "Print the name of the top patch",
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
				state, err := stack.State(ctx)
				if err != nil {
					return err
				}
				top, ok := state.Top()
				if !ok {
					return pstackerrors.ErrNoAppliedPatches
				}
				ctx.Splog.Page(top.Name + "\n")
				return nil
			})
		},
	}

	return cmd
}

// newShowCmd creates the show command
func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "show [patch]",
		Short:             "Show the diff of a patch",
		Long:              `Show the diff a patch introduces against its parent. Defaults to the top patch.`,
		Args:              helpers.MaximumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompletePatches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
				name := ""
				if len(args) > 0 {
					name = args[0]
				} else {
					state, err := stack.State(ctx)
					if err != nil {
						return err
					}
					top, ok := state.Top()
					if !ok {
						return pstackerrors.ErrNoAppliedPatches
					}
					name = top.Name
				}
				diff, err := stack.Diff(ctx, name)
				if err != nil {
					return err
				}
				ctx.Splog.Page(string(diff))
				return nil
			})
		},
	}

	return cmd
}
