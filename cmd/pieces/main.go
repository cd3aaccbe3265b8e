// Command pieces stores tagged text passages, retrieves them by meaning and answers
// questions from them. It runs as an HTTP API, an MCP server or a one-shot CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pieces/internal/version"
)

const defaultCommandTimeout = 2 * time.Minute

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pieces",
		Short: "Tagged text store with semantic retrieval and question answering",
		Long: `pieces stores short passages of text with tags in a vector index (Redis/Valkey
with the search module, or in memory), finds them by meaning and answers questions
from them with a chat model behind an OpenAI-compatible endpoint.

Configuration: config/<ENV>.yaml with ${VAR:-default} expansion; ENV defaults to "local".`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Duration("timeout", defaultCommandTimeout, "deadline for one-shot commands")

	root.AddCommand(serveCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(addCmd())
	root.AddCommand(getCmd())
	root.AddCommand(updateCmd())
	root.AddCommand(deleteCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(askCmd())
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
