package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/runtime"
)

// newRefreshCmd creates the refresh command
func newRefreshCmd() *cobra.Command {
	var (
		message   string
		untracked bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Record worktree changes into the top patch",
		Long: `Record worktree changes into the top patch.

Refresh is also how a conflicted push is completed: resolve the conflict in the
worktree, then refresh to record the resolution.`,
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []engine.TxOption{engine.AllowDirty()}
			if untracked {
				opts = append(opts, engine.IncludeUntracked())
			}
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Refresh(message)
			}, opts...)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Replace the patch message")
	cmd.Flags().BoolVarP(&untracked, "untracked", "u", false, "Include untracked files")

	return cmd
}

// newSpillCmd creates the spill command
func newSpillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spill",
		Short: "Empty the top patch, leaving its changes in the worktree",
		Args:  helpers.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Spill()
			}, engine.AllowDirty())
		},
		SilenceUsage: true,
	}

	return cmd
}

// newAbortCmd creates the abort command
func newAbortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Give up on a conflicted push",
		Long: `Give up on a conflicted push.

The conflicted patch is popped with its content from before the push, and the
worktree is reset. Any resolution in progress is lost.`,
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.RunTx(cmd, args, func(_ *runtime.Context, tx *engine.Transaction) error {
				return tx.Abort()
			}, engine.AllowDirty())
		},
	}

	return cmd
}
