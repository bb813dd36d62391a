package helpers

import (
	"strings"

	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/output"
	"stackit.dev/pstack/internal/runtime"
)

// Run is a helper that provides a runtime context to a command's execution function
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) error {
	debug, _ := cmd.Flags().GetBool("debug")
	ctx, err := runtime.GetContext(cmd.Context(), runtime.Options{Debug: debug, Out: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()
	return fn(ctx)
}

// RunStack opens the stack of the checked out branch
func RunStack(cmd *cobra.Command, fn func(ctx *runtime.Context, stack *engine.Stack) error) error {
	return Run(cmd, func(ctx *runtime.Context) error {
		stack, err := ctx.Stack()
		if err != nil {
			return err
		}
		return fn(ctx, stack)
	})
}

// RunTx runs fn inside a stack transaction, commits it and reports the outcome.
// A conflicted outcome is returned as a merge conflict error.
func RunTx(cmd *cobra.Command, args []string, fn func(ctx *runtime.Context, tx *engine.Transaction) error, opts ...engine.TxOption) error {
	return RunTxThen(cmd, args, fn, nil, opts...)
}

// RunTxThen is RunTx with a callback that runs once the transaction is published
func RunTxThen(cmd *cobra.Command, args []string, fn func(ctx *runtime.Context, tx *engine.Transaction) error,
	published func(ctx *runtime.Context, out *engine.Outcome), opts ...engine.TxOption,
) error {
	return RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
		tx, err := stack.Begin(ctx, CommandLine(cmd, args), opts...)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx); err != nil {
			tx.Discard()
			return err
		}
		out, err := tx.Commit(ctx)
		if err != nil {
			return err
		}
		if published != nil && out.Published {
			published(ctx, out)
		}
		Report(ctx, out)
		return out.Err()
	})
}

// Report prints what a transaction did
func Report(ctx *runtime.Context, out *engine.Outcome) {
	for _, line := range output.FormatOutcome(out) {
		ctx.Splog.Info("%s", line)
	}
	if out.Conflict != nil {
		ctx.Splog.Tip("Resolve the conflict and run 'pstack refresh', or run 'pstack abort' to go back.")
	}
}

// CommandLine is the log description of an invocation: the command path below the root plus its arguments
func CommandLine(cmd *cobra.Command, args []string) string {
	path := strings.Fields(cmd.CommandPath())
	if len(path) > 0 {
		path = path[1:]
	}
	return strings.Join(append(path, args...), " ")
}
