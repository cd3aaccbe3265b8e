package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcptr "github.com/kailas-cloud/pieces/internal/transport/mcp"
)

func mcpCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server (stdio by default)",
		Long: `Run a Model Context Protocol server exposing the piece store as tools
(add_piece, add_pieces, get_piece, update_piece, delete_piece, query_pieces, rag_query)
and pieces as piece://{id} resources.

With --http the server speaks streamable HTTP on the given address instead of stdio.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if httpAddr == "" {
				httpAddr = a.cfg.MCP.HTTPAddr
			}

			srv, err := mcptr.NewServer(&mcptr.Ports{Pieces: a.pieces, RAG: a.rag}, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if httpAddr != "" {
				a.logger.Info("Starting MCP server", zap.String("transport", "http"), zap.String("addr", httpAddr))
				return srv.RunHTTP(ctx, httpAddr)
			}
			a.logger.Info("Starting MCP server", zap.String("transport", "stdio"))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address (e.g. :8090) instead of stdio")
	return cmd
}
