package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flow.json]",
	Short: "Chat with a flow in the terminal",
	Long: `Plays a flow document for a single simulated user. Type a number to tap an
option, anything else to send free text, exit to quit. Without a file the
default flow of new chatbots is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		headless, _ := cmd.Flags().GetBool("headless")
		debug, _ := cmd.Flags().GetBool("debug")

		opts := cli.RunOptions{
			Headless: headless,
			Input:    cmd.InOrStdin(),
			Output:   cmd.OutOrStdout(),
		}
		if len(args) > 0 {
			opts.FlowPath = args[0]
		}
		if debug {
			opts.Logger = logging.NewWriter(os.Stderr, slog.LevelDebug, logging.FormatText)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.RunFlow(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("headless", false, "Run in headless mode (no banner, prompts or styling)")
	runCmd.Flags().Bool("debug", false, "Log engine activity to stderr")
}
