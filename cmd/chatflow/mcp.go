package main

import (
	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Serves flow authoring tools over MCP on Standard Input/Output:
simulate and validate_flow always, list_chatbots when --stores is set.
Logs go to stderr so they never corrupt the JSON-RPC stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		opts := []mcp.Option{mcp.WithLogger(logger)}
		if withStores, _ := cmd.Flags().GetBool("stores"); withStores {
			bots, closeStores, err := cli.OpenChatbots(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStores()
			opts = append(opts, mcp.WithChatbots(bots))
		}

		logger.Info("Starting chatflow MCP server (stdio)")
		return mcp.NewServer(opts...).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Bool("stores", false, "Open the configured stores to expose list_chatbots")
}
