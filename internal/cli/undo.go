package cli

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/output"
	"stackit.dev/pstack/internal/runtime"
	"stackit.dev/pstack/internal/tui"
)

// newUndoCmd creates the undo command
func newUndoCmd() *cobra.Command {
	var (
		number int
		hard   bool
	)

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Undo the last stack operations",
		Long: `Undo the last stack operations.

Running undo again keeps going back in the log; use redo to return. With --hard
local changes in the worktree are discarded instead of blocking the undo.`,
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
				out, err := stack.Undo(ctx, number, hard)
				if err != nil {
					return err
				}
				helpers.Report(ctx, out)
				return out.Err()
			})
		},
	}

	cmd.Flags().IntVarP(&number, "number", "n", 1, "Number of operations to undo")
	cmd.Flags().BoolVar(&hard, "hard", false, "Discard local changes")

	return cmd
}

// newRedoCmd creates the redo command
func newRedoCmd() *cobra.Command {
	var (
		number int
		hard   bool
	)

	cmd := &cobra.Command{
		Use:          "redo",
		Short:        "Redo operations reverted by undo",
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
				out, err := stack.Redo(ctx, number, hard)
				if err != nil {
					return err
				}
				helpers.Report(ctx, out)
				return out.Err()
			})
		},
	}

	cmd.Flags().IntVarP(&number, "number", "n", 1, "Number of undos to revert")
	cmd.Flags().BoolVar(&hard, "hard", false, "Discard local changes")

	return cmd
}

// newResetCmd creates the reset command
func newResetCmd() *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "reset [state]",
		Short: "Restore the stack to any state in the log",
		Long: `Restore the stack to any state in the log.

The state is a log entry id as printed by 'pstack log'. Without one, an entry is
picked interactively.`,
		Args:         helpers.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
				var (
					id  plumbing.Hash
					err error
				)
				if len(args) > 0 {
					id, err = ctx.Repo.ResolveRevision(ctx, args[0])
				} else {
					id, err = pickLogEntry(ctx, stack)
				}
				if err != nil {
					return err
				}
				out, err := stack.Reset(ctx, id, hard)
				if err != nil {
					return err
				}
				helpers.Report(ctx, out)
				return out.Err()
			})
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "Discard local changes")

	return cmd
}

func pickLogEntry(ctx *runtime.Context, stack *engine.Stack) (plumbing.Hash, error) {
	if !tui.Interactive() {
		return plumbing.ZeroHash, pstackerrors.NewUsageError("give the state to reset to; see 'pstack log'")
	}
	entries, err := stack.Log(ctx, 20)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if len(entries) < 2 {
		return plumbing.ZeroHash, pstackerrors.ErrNothingToUndo
	}
	options := make([]tui.SelectOption, 0, len(entries)-1)
	for _, e := range entries[1:] {
		options = append(options, tui.SelectOption{Label: output.FormatLogEntry(e), Value: e.ID.String()})
	}
	picked, err := tui.PromptSelect("Reset the stack to", options, 0)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return plumbing.NewHash(picked), nil
}

// newLogCmd creates the log command
func newLogCmd() *cobra.Command {
	var number int

	cmd := &cobra.Command{
		Use:          "log",
		Short:        "Show the stack log, newest first",
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
				entries, err := stack.Log(ctx, number)
				if err != nil {
					return err
				}
				var b strings.Builder
				for _, e := range entries {
					b.WriteString(output.FormatLogEntry(e))
					b.WriteByte('\n')
				}
				ctx.Splog.Page(b.String())
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&number, "number", "n", 0, "Show at most n entries")

	return cmd
}
