package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/internal/mcpserver"
	"github.com/agentic-research/faultcat/internal/navigator"
	"github.com/agentic-research/faultcat/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve DIR",
	Short: "Serve the catalog editor API over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		return server.New(navigator.New(store, run.changes)).Run(ctx, serveAddr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp DIR",
	Short: "Serve browse, search, edit and check tools over MCP stdio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		return mcpserver.New(navigator.New(store, run.changes)).Serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd, mcpCmd)
}
