package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"stackit.dev/pstack/internal/cli"
	pstackerrors "stackit.dev/pstack/internal/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	rootCmd := cli.NewRootCmd(version, commit, date)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Conflicts were already reported with the outcome
		if !errors.Is(err, pstackerrors.ErrMergeConflict) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(pstackerrors.ExitCode(err))
	}
}
