package cli

import (
	"slices"

	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/runtime"
	"stackit.dev/pstack/internal/tui"
)

// newFloatCmd creates the float command
func newFloatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "float <patch...>",
		Short: "Move patches to the top of the stack",
		Long: `Move patches to the top of the stack, in the order given.

Applied patches above the lowest floated patch are popped and pushed back in
their new order.`,
		Args:              helpers.MinimumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompletePatches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Float(args...)
			})
		},
	}

	return cmd
}

// newSinkCmd creates the sink command
func newSinkCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "sink <patch...>",
		Short: "Move patches towards the bottom of the stack",
		Long: `Move patches towards the bottom of the stack.

The patches are placed at the bottom, or just below the patch given with --to.`,
		Args:              helpers.MinimumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompletePatches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Sink(target, args...)
			})
		},
	}

	cmd.Flags().StringVarP(&target, "to", "t", "", "Sink below this applied patch instead of to the bottom")
	_ = cmd.RegisterFlagCompletionFunc("to", helpers.CompleteApplied)

	return cmd
}

// newSortCmd creates the sort command
func newSortCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "sort [patch...]",
		Short: "Reorder the applied and unapplied patches",
		Long: `Reorder the applied and unapplied patches.

List every applied patch, bottom first, followed by every unapplied patch in
push order. With --interactive the new order is picked in a terminal UI, where
the applied/unapplied boundary can be moved as well.`,
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompletePatches,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive == (len(args) > 0) {
				return pstackerrors.NewUsageError("give the new order or --interactive, but not both")
			}
			return helpers.RunTx(cmd, args, func(ctx *runtime.Context, tx *engine.Transaction) error {
				if !interactive {
					return tx.Reorder(args)
				}
				return sortInteractively(ctx, tx)
			})
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Pick the order interactively")

	return cmd
}

func sortInteractively(ctx *runtime.Context, tx *engine.Transaction) error {
	if !tui.Interactive() {
		return tui.ErrInteractiveDisabled
	}
	applied := tx.Applied()
	ctx.Splog.SetQuiet(true)
	order, count, err := tui.RunReorderTUI(applied, tx.Unapplied())
	ctx.Splog.SetQuiet(false)
	if err != nil {
		return err
	}

	if count == len(applied) && sameSet(order[:count], applied) {
		return tx.Reorder(order)
	}
	// Moving the boundary: pop everything, queue the new order, then push the new applied prefix
	if len(applied) > 0 {
		if err := tx.PopTop(-1); err != nil {
			return err
		}
	}
	if err := tx.Reorder(order); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return tx.PushNext(count)
}

func sameSet(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
