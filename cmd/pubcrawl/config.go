package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/henrybloomingdale/pubcrawl/internal/config"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the pubcrawl config file",
	// Overrides the root hook: nothing here needs a loaded config.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter pubcrawl.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.FileName + ".yaml"
		if flagConfig != "" {
			path = flagConfig
		}
		if len(args) == 1 {
			path = args[0]
		}

		if err := config.WriteDefault(path, flagForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
