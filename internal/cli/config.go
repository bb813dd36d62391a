package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/pstack/internal/cli/helpers"
	"stackit.dev/pstack/internal/config"
	"stackit.dev/pstack/internal/runtime"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get and set repository configuration",
		Long: `Get and set repository configuration values.

Examples:
  pstack config get pop.policy
  pstack config set pop.policy reorder
  pstack config set lock.timeout 5s
  pstack config list`,
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

// newConfigGetCmd creates the config get command
func newConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "get <key>",
		Short:        "Get a configuration value",
		Args:         helpers.ExactArgs(1),
		SilenceUsage: true,
		ValidArgs:    config.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				value, err := ctx.Config.Get(args[0])
				if err != nil {
					return err
				}
				ctx.Splog.Page(value + "\n")
				return nil
			})
		},
	}

	return cmd
}

// newConfigSetCmd creates the config set command
func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "set <key> <value>",
		Short:        "Set a configuration value",
		Args:         helpers.ExactArgs(2),
		SilenceUsage: true,
		ValidArgs:    config.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				if err := ctx.Config.Set(args[0], args[1]); err != nil {
					return err
				}
				ctx.Splog.Info("Set %s to: %s", args[0], args[1])
				return nil
			})
		},
	}

	return cmd
}

// newConfigListCmd creates the config list command
func newConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List all configuration values",
		Args:         helpers.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				for _, key := range config.Keys {
					value, err := ctx.Config.Get(key)
					if err != nil {
						return err
					}
					ctx.Splog.Page(key + "=" + value + "\n")
				}
				return nil
			})
		},
	}

	return cmd
}
