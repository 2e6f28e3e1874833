package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sharethrift/searchindex/configs"
	"github.com/sharethrift/searchindex/internal/config"
	"github.com/sharethrift/searchindex/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the searchindex configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. Config file (--config, or ~/.config/searchindex/config.yaml)
  3. Environment variables (SEARCHINDEX_*)`,
		Example: `  # Write the annotated default config
  searchindex config init

  # Show effective configuration
  searchindex config show --json

  # Print the config file path
  searchindex config path`,
	}

	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigPathCmd(a))

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file",
		Long: `Write the annotated default configuration to --config, or to
~/.config/searchindex/config.yaml ($XDG_CONFIG_HOME/searchindex/config.yaml
if XDG_CONFIG_HOME is set).`,
		Example: `  searchindex config init
  searchindex config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, a.targetConfigPath(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after defaults, the config file and environment variables are applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := cfg.MarshalYAMLBytes()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.targetConfigPath())
			return err
		},
	}
}

func (a *app) targetConfigPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.GetUserConfigPath()
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration already exists")
		out.KeyValue("Location", path)
		out.Status("", "Use --force to overwrite it with the defaults")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Configuration written")
	out.KeyValue("Location", path)
	return nil
}
