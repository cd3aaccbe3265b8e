// Package pieces is a Go client for a tagged passage store with semantic retrieval
// and retrieve-then-generate question answering.
//
// Pieces are short texts with a list of tags. Each piece is embedded once on write and
// kept in a vector index (Valkey/Redis with the search module, or in memory). Queries
// return the nearest pieces, optionally restricted to pieces carrying every given tag.
// RagQuery feeds the retrieved pieces to a chat model and returns its answer along with
// the pieces it was grounded on.
//
// # Quick start
//
//	client, _ := pieces.New(
//	    pieces.WithRedis("localhost:6379", ""),
//	    pieces.WithOpenAI("http://localhost:11434/v1", ""),
//	)
//	defer client.Close()
//
//	_ = client.Init(ctx)
//	_, _ = client.AddPiece(ctx, "The mitochondria is the powerhouse of the cell.", []string{"biology"})
//
//	results, _ := client.QueryPieces(ctx, "what produces energy in a cell?",
//	    pieces.QueryOptions{Tags: []string{"biology"}, TopK: 3})
//	answer, _ := client.RagQuery(ctx, "what produces energy in a cell?", pieces.QueryOptions{})
//
// Every data operation fails with ErrNotInitialized until Init succeeds. Init is safe to
// call concurrently and may be retried after a failure.
package pieces
