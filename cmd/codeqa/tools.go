package main

import (
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered analysis tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return writeOutput(cmd.OutOrStdout(), a.format, a.svc.ListTools())
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
