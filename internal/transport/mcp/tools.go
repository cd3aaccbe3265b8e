package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/domain"
	pieceuc "github.com/kailas-cloud/pieces/internal/usecase/piece"
)

// AddPieceInput is the input schema for add_piece.
type AddPieceInput struct {
	Content string   `json:"content" jsonschema:"the text of the piece"`
	Tags    []string `json:"tags,omitempty" jsonschema:"labels for filtering; must not contain commas"`
}

// AddPiecesInput is the input schema for add_pieces.
type AddPiecesInput struct {
	Pieces []AddPieceInput `json:"pieces" jsonschema:"pieces to add in one batch (max 100)"`
}

// IDInput identifies one piece.
type IDInput struct {
	ID string `json:"id" jsonschema:"the piece id"`
}

// UpdatePieceInput is the input schema for update_piece. Omitted fields are kept.
type UpdatePieceInput struct {
	ID      string   `json:"id" jsonschema:"the piece id"`
	Content *string  `json:"content,omitempty" jsonschema:"new text; re-embeds the piece"`
	Tags    []string `json:"tags,omitempty" jsonschema:"new tag list replacing the old one"`
}

// QueryInput is the input schema for query_pieces and rag_query.
type QueryInput struct {
	Query string   `json:"query" jsonschema:"natural language query or question"`
	Tags  []string `json:"tags,omitempty" jsonschema:"only use pieces carrying all of these tags"`
	TopK  int      `json:"topK,omitempty" jsonschema:"maximum number of pieces to retrieve (default 10, max 100)"`
}

// PieceOutput wraps a single piece.
type PieceOutput struct {
	Piece domain.Piece `json:"piece"`
}

// PiecesOutput lists pieces.
type PiecesOutput struct {
	Pieces []domain.Piece `json:"pieces"`
}

// LookupOutput reports a piece that may not exist.
type LookupOutput struct {
	Found bool          `json:"found"`
	Piece *domain.Piece `json:"piece,omitempty"`
}

// DeleteOutput confirms a deletion.
type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

// QueryOutput lists scored pieces, most relevant first.
type QueryOutput struct {
	Results []domain.QueryResult `json:"results"`
	Count   int                  `json:"count"`
}

// RagOutput is a generated answer with its sources.
type RagOutput struct {
	Answer  string               `json:"answer"`
	Sources []domain.QueryResult `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_piece",
		Description: "Store a passage of text with optional tags",
	}, s.handleAddPiece)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_pieces",
		Description: "Store several passages in one call",
	}, s.handleAddPieces)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_piece",
		Description: "Fetch a stored piece by id",
	}, s.handleGetPiece)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_piece",
		Description: "Change the content and/or tags of a piece",
	}, s.handleUpdatePiece)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_piece",
		Description: "Delete a piece by id; deleting a missing id succeeds",
	}, s.handleDeletePiece)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_pieces",
		Description: "Find the pieces most similar in meaning to a query, optionally restricted by tags",
	}, s.handleQueryPieces)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rag_query",
		Description: "Answer a question from the stored pieces, citing the pieces used",
	}, s.handleRagQuery)
}

func (s *Server) init(ctx context.Context, op string) error {
	if err := s.ports.Pieces.Init(ctx); err != nil {
		s.logger.Warn("Piece store unavailable", zap.String("tool", op), zap.Error(err))
		return toolError(op, err)
	}
	return nil
}

func (s *Server) handleAddPiece(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddPieceInput,
) (*mcp.CallToolResult, PieceOutput, error) {
	if err := s.init(ctx, "add_piece"); err != nil {
		return nil, PieceOutput{}, err
	}
	p, err := s.ports.Pieces.AddPiece(ctx, input.Content, input.Tags)
	if err != nil {
		return nil, PieceOutput{}, toolError("add_piece", err)
	}
	return nil, PieceOutput{Piece: p}, nil
}

func (s *Server) handleAddPieces(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddPiecesInput,
) (*mcp.CallToolResult, PiecesOutput, error) {
	if err := s.init(ctx, "add_pieces"); err != nil {
		return nil, PiecesOutput{}, err
	}
	batch := make([]pieceuc.NewPiece, len(input.Pieces))
	for i, p := range input.Pieces {
		batch[i] = pieceuc.NewPiece{Content: p.Content, Tags: p.Tags}
	}
	added, err := s.ports.Pieces.AddPieces(ctx, batch)
	if err != nil {
		return nil, PiecesOutput{}, toolError("add_pieces", err)
	}
	return nil, PiecesOutput{Pieces: added}, nil
}

func (s *Server) handleGetPiece(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IDInput,
) (*mcp.CallToolResult, LookupOutput, error) {
	if err := s.init(ctx, "get_piece"); err != nil {
		return nil, LookupOutput{}, err
	}
	p, found, err := s.ports.Pieces.GetPiece(ctx, input.ID)
	if err != nil {
		return nil, LookupOutput{}, toolError("get_piece", err)
	}
	if !found {
		return nil, LookupOutput{Found: false}, nil
	}
	return nil, LookupOutput{Found: true, Piece: &p}, nil
}

func (s *Server) handleUpdatePiece(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdatePieceInput,
) (*mcp.CallToolResult, LookupOutput, error) {
	if err := s.init(ctx, "update_piece"); err != nil {
		return nil, LookupOutput{}, err
	}
	p, found, err := s.ports.Pieces.UpdatePiece(ctx, input.ID, pieceuc.Update{Content: input.Content, Tags: input.Tags})
	if err != nil {
		return nil, LookupOutput{}, toolError("update_piece", err)
	}
	if !found {
		return nil, LookupOutput{Found: false}, nil
	}
	return nil, LookupOutput{Found: true, Piece: &p}, nil
}

func (s *Server) handleDeletePiece(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IDInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := s.init(ctx, "delete_piece"); err != nil {
		return nil, DeleteOutput{}, err
	}
	if err := s.ports.Pieces.DeletePiece(ctx, input.ID); err != nil {
		return nil, DeleteOutput{}, toolError("delete_piece", err)
	}
	return nil, DeleteOutput{Deleted: true}, nil
}

func (s *Server) handleQueryPieces(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if err := s.init(ctx, "query_pieces"); err != nil {
		return nil, QueryOutput{}, err
	}
	results, err := s.ports.Pieces.QueryPieces(ctx, input.Query, domain.QueryOptions{Tags: input.Tags, TopK: input.TopK})
	if err != nil {
		return nil, QueryOutput{}, toolError("query_pieces", err)
	}
	return nil, QueryOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleRagQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, RagOutput, error) {
	if err := s.init(ctx, "rag_query"); err != nil {
		return nil, RagOutput{}, err
	}
	res, err := s.ports.RAG.Query(ctx, input.Query, domain.QueryOptions{Tags: input.Tags, TopK: input.TopK})
	if err != nil {
		return nil, RagOutput{}, toolError("rag_query", err)
	}
	return nil, RagOutput{Answer: res.Answer, Sources: res.Sources}, nil
}
