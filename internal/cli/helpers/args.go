package helpers

import (
	"github.com/spf13/cobra"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// usage turns cobra's argument validation failures into usage errors
func usage(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return pstackerrors.NewUsageError("%v", err)
		}
		return nil
	}
}

// ExactArgs is cobra.ExactArgs reporting a usage error
func ExactArgs(n int) cobra.PositionalArgs {
	return usage(cobra.ExactArgs(n))
}

// MinimumNArgs is cobra.MinimumNArgs reporting a usage error
func MinimumNArgs(n int) cobra.PositionalArgs {
	return usage(cobra.MinimumNArgs(n))
}

// MaximumNArgs is cobra.MaximumNArgs reporting a usage error
func MaximumNArgs(n int) cobra.PositionalArgs {
	return usage(cobra.MaximumNArgs(n))
}

// RangeArgs is cobra.RangeArgs reporting a usage error
func RangeArgs(lo, hi int) cobra.PositionalArgs {
	return usage(cobra.RangeArgs(lo, hi))
}

// NoArgs is cobra.NoArgs reporting a usage error
var NoArgs = usage(cobra.NoArgs)
