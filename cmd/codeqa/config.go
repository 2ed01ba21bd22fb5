package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"codeqa/internal/paths"
)

var configOutFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect codeqa configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, the config file and CODEQA_*
environment overrides are merged. API keys are never printed.

Examples:
  codeqa config show
  codeqa config show --output json > .codeqa/config.json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show which config file is used and where codeqa looks",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configShowCmd.Flags().StringVarP(&configOutFormat, "output", "o", "yaml", "Output format (yaml, json)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, closer, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	format := configOutFormat
	if !cmd.Flags().Changed("output") && formatFlag == string(FormatJSON) {
		format = "json"
	}
	data, err := cfg.Marshal(format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cfg, _, closer, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	out := cmd.OutOrStdout()
	if cfg.Source != "" {
		fmt.Fprintf(out, "Using: %s\n", cfg.Source)
	} else {
		fmt.Fprintln(out, "Using: built-in defaults")
	}
	fmt.Fprintln(out, "Search path:")
	fmt.Fprintf(out, "  %s\n", filepath.Join(".codeqa", "config.{json,yaml,toml}"))
	if home, err := paths.Home(); err == nil {
		fmt.Fprintf(out, "  %s\n", filepath.Join(home, "config.{json,yaml,toml}"))
	}
	return nil
}
