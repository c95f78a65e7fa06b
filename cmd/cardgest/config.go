package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/cardgest/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the config and report problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if cfg.File == "" {
			fmt.Fprintln(w, "no config file found, using defaults and environment")
		} else {
			fmt.Fprintf(w, "config: %s\n", cfg.File)
		}
		fmt.Fprintf(w, "fetch mode: %s\nllm: %s %s\ndeck: %s\n",
			cfg.Trilium.FetchMode, cfg.LLM.Provider, cfg.LLM.Model, cfg.Anki.DeckName)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		fmt.Fprintln(w, "ok")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configCheckCmd)
}
