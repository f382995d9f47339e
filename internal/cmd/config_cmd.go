package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/runger/sk/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Get or set configuration values",
		Long: `Get or set sk configuration values.

Without arguments, lists all configuration keys.
With one argument, shows the value of that key.
With two arguments, sets the key to the value.

Configuration is stored in ~/.config/sk/config.yaml (XDG compliant).
Command-line flags override it for a single run.

Keys are in the format: section.key
Sections: ui, requery, history, log

Examples:
  sk config                        # List all keys
  sk config ui.layout              # Get ui.layout value
  sk config ui.layout reverse      # Put the prompt at the top
  sk config history.enabled false  # Stop recording queries`,
		Args: cobra.MaximumNArgs(2),
		RunE: runConfig,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPaths().ConfigFile())
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return configCmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	switch len(args) {
	case 0:
		return listConfig(out, cfg, paths)
	case 1:
		return getConfig(out, cfg, args[0])
	case 2:
		return setConfig(out, cfg, paths, args[0], args[1])
	}
	return nil
}

func listConfig(out io.Writer, cfg *config.Config, paths *config.Paths) error {
	fmt.Fprintf(out, "%sConfiguration Keys%s\n", colorBold, colorReset)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintln(out)

	for _, key := range config.ListKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = colorDim + "(not set)" + colorReset
		}
		fmt.Fprintf(out, "  %s%s%s = %s\n", colorCyan, key, colorReset, value)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Config file: %s\n", paths.ConfigFile())
	return nil
}

func getConfig(out io.Writer, cfg *config.Config, key string) error {
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		fmt.Fprintf(out, "%s(not set)%s\n", colorDim, colorReset)
	} else {
		fmt.Fprintln(out, value)
	}
	return nil
}

func setConfig(out io.Writer, cfg *config.Config, paths *config.Paths, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := cfg.SaveToFile(paths.ConfigFile()); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s%s%s = %s\n", colorCyan, key, colorReset, value)
	fmt.Fprintf(out, "Saved to: %s\n", paths.ConfigFile())
	return nil
}
