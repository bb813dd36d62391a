// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/runtime"
)

// CompletePatches is a helper for cobra.ValidArgsFunction that returns every patch name of the current stack
func CompletePatches(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(cmd, (*engine.StackState).All)
}

// CompleteApplied returns the applied patch names
func CompleteApplied(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(cmd, (*engine.StackState).Applied)
}

// CompleteUnapplied returns the unapplied patch names
func CompleteUnapplied(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(cmd, (*engine.StackState).Unapplied)
}

// CompleteHidden returns the hidden patch names
func CompleteHidden(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(cmd, (*engine.StackState).Hidden)
}

func completeFrom(cmd *cobra.Command, pick func(*engine.StackState) []engine.Patch) ([]string, cobra.ShellCompDirective) {
	var names []string
	err := RunStack(cmd, func(ctx *runtime.Context, stack *engine.Stack) error {
		state, err := stack.State(ctx)
		if err != nil {
			return err
		}
		for _, p := range pick(state) {
			names = append(names, p.Name)
		}
		return nil
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
