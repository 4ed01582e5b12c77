package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mxslade/procmux/internal/config"
	"github.com/mxslade/procmux/schema"
)

func newConfigCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with the process manifest",
	}
	cmd.AddCommand(newConfigLintCmd(ctx))
	cmd.AddCommand(newConfigShowCmd(ctx))
	cmd.AddCommand(newConfigSchemaCmd())
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for process manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(schema.ManifestV1Schema)
			return err
		},
	}
}

func newConfigLintCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Validate the process manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(*ctx.configFile); err != nil {
				return err
			}
			return nil
		},
	}
}

func newConfigShowCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved process settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := ctx.loadManifest(cmd)
			if err != nil {
				return err
			}
			settings := manifest.Process
			if _, _, err := settings.Resolve(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "encoding: %s\n", settings.Encoding)
			fmt.Fprintf(out, "killDescendants: %t\n", settings.KillDescendants)
			fmt.Fprintf(out, "gracefulTimeout: %s\n", settings.GracefulTimeout.Duration)
			fmt.Fprintf(out, "lineSeparator: %s\n", settings.LineSeparator)
			return nil
		},
	}
}
