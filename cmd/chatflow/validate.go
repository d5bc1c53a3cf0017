package main

import (
	"fmt"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow.json>",
	Short: "Check a flow document for consistency",
	Long: `Validates the document against the flow schema, then reports missing start
nodes, dangling edges, handles no node produces, unreachable nodes and content
beyond Messenger limits. Exits non-zero when errors are found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := cli.ValidateFlow(args[0], cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("flow %s is invalid", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Flow is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
