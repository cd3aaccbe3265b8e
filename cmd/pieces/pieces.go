package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pieces/internal/domain"
	pieceuc "github.com/kailas-cloud/pieces/internal/usecase/piece"
)

// openApp builds the composition root; tests substitute an in-memory one.
var openApp = newApp

// withStore opens the app, initializes the piece store and runs fn under the command timeout.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := a.pieces.Init(ctx); err != nil {
		return fmt.Errorf("init piece store: %w", err)
	}
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addCmd() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:     "add <content>",
		Short:   "Store a piece",
		Example: `  pieces add "The mitochondria is the powerhouse of the cell." --tags biology,cells`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, a *app) error {
				p, err := a.pieces.AddPiece(ctx, args[0], tags)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "comma-separated tags")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a piece",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, a *app) error {
				p, found, err := a.pieces.GetPiece(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("piece %q: %w", args[0], domain.ErrPieceNotFound)
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
}

func updateCmd() *cobra.Command {
	var (
		content   string
		tags      []string
		clearTags bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a piece's content or tags",
		Long: `Change a piece's content, tags or both. Flags that are not given keep the stored value.
Changing the content re-embeds the piece; changing only the tags does not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd pieceuc.Update
			if cmd.Flags().Changed("content") {
				upd.Content = &content
			}
			switch {
			case clearTags:
				upd.Tags = []string{}
			case cmd.Flags().Changed("tags"):
				upd.Tags = append([]string{}, tags...)
			}
			if upd.Content == nil && upd.Tags == nil {
				return errors.New("nothing to update: pass --content, --tags or --clear-tags")
			}

			return withStore(cmd, func(ctx context.Context, a *app) error {
				p, found, err := a.pieces.UpdatePiece(ctx, args[0], upd)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("piece %q: %w", args[0], domain.ErrPieceNotFound)
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}

	cmd.Flags().StringVarP(&content, "content", "c", "", "new content")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "replace the tags")
	cmd.Flags().BoolVar(&clearTags, "clear-tags", false, "remove all tags")
	cmd.MarkFlagsMutuallyExclusive("tags", "clear-tags")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a piece (no error if it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, a *app) error {
				if err := a.pieces.DeletePiece(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return err
			})
		},
	}
}

func queryCmd() *cobra.Command {
	var (
		tags   []string
		topK   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Find the pieces closest in meaning to text",
		Example: `  pieces query "how do cells make energy" --tags biology -k 3
  pieces query "quarterly revenue" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, a *app) error {
				results, err := a.pieces.QueryPieces(ctx, args[0], domain.QueryOptions{Tags: tags, TopK: topK})
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), results)
				}
				return printResults(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "only pieces carrying all of these tags")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "maximum results (default 10, at most 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printResults(w io.Writer, results []domain.QueryResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no matching pieces")
		return err
	}
	for i, r := range results {
		if _, err := fmt.Fprintf(w, "%d. [%.3f] %s (%s)\n   %s\n",
			i+1, r.Score, r.Piece.ID, strings.Join(r.Piece.Tags, ", "), r.Piece.Content); err != nil {
			return err
		}
	}
	return nil
}

func askCmd() *cobra.Command {
	var (
		tags   []string
		topK   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "ask <question>",
		Short:   "Answer a question from the stored pieces",
		Example: `  pieces ask "what is the powerhouse of the cell?" --tags biology`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, a *app) error {
				res, err := a.rag.Query(ctx, args[0], domain.QueryOptions{Tags: tags, TopK: topK})
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), res)
				}
				w := cmd.OutOrStdout()
				if _, err := fmt.Fprintln(w, res.Answer); err != nil {
					return err
				}
				for _, s := range res.Sources {
					if _, err := fmt.Fprintf(w, "  - %s [%.3f]\n", s.Piece.ID, s.Score); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "retrieve only pieces carrying all of these tags")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "pieces to retrieve (default 10, at most 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
