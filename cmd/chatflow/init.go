package main

import (
	"fmt"
	"os"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [flow.json]",
	Short: "Scaffold a starter flow",
	Long: `Writes a starter flow that uses every node kind. Without a path the flow is
printed to stdout. Existing files are kept unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cli.WriteStarterFlow(cmd.OutOrStdout())
		}

		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if force, _ := cmd.Flags().GetBool("force"); force {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}
		f, err := os.OpenFile(args[0], flags, 0o644)
		if err != nil {
			return err
		}
		if err := cli.WriteStarterFlow(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s. Try: chatflow run %s\n", args[0], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}
