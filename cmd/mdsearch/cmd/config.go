package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/mdsearch/internal/config"
	"github.com/Aman-CERP/mdsearch/internal/output"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration",
		Long: `Show the effective configuration or create a project config file.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/mdsearch/config.yaml)
  3. Project config (<root>/.mdsearch.yaml, or --config)
  4. Environment variables (MDSEARCH_*)
  5. Command-line flags`,
		Example: `  # Show effective configuration
  mdsearch config show

  # Create .mdsearch.yaml in the root
  mdsearch config init

  # Print the user config path
  mdsearch config path`,
	}

	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project config file",
		Long: `Write the effective configuration to .mdsearch.yaml in the root so it
can be edited. An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			root, err := cfg.RootDir()
			if err != nil {
				return err
			}
			path := g.configPath
			if path == "" {
				path = filepath.Join(root, ".mdsearch.yaml")
			}

			out := output.New(cmd.OutOrStdout())
			if _, err := os.Stat(path); err == nil && !force {
				out.Warning("Configuration already exists")
				out.Statusf("", "  Location: %s", path)
				out.Status("", "  Use --force to overwrite it")
				return nil
			}

			if err := cfg.WriteYAML(path); err != nil {
				return err
			}
			out.Success("Created configuration")
			out.Statusf("", "  Location: %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
