package mcp

import (
	"context"

	"github.com/kailas-cloud/pieces/internal/domain"
	pieceuc "github.com/kailas-cloud/pieces/internal/usecase/piece"
)

// PieceService is the piece store as the tools use it.
type PieceService interface {
	Init(ctx context.Context) error
	AddPiece(ctx context.Context, content string, tags []string) (domain.Piece, error)
	AddPieces(ctx context.Context, batch []pieceuc.NewPiece) ([]domain.Piece, error)
	GetPiece(ctx context.Context, id string) (domain.Piece, bool, error)
	UpdatePiece(ctx context.Context, id string, upd pieceuc.Update) (domain.Piece, bool, error)
	DeletePiece(ctx context.Context, id string) error
	QueryPieces(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error)
}

// RagService answers questions from stored pieces.
type RagService interface {
	Query(ctx context.Context, question string, opts domain.QueryOptions) (domain.RagResult, error)
}

// Ports aggregates the services the MCP server drives.
type Ports struct {
	Pieces PieceService
	RAG    RagService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Pieces == nil {
		return ErrMissingPieceService
	}
	if p.RAG == nil {
		return ErrMissingRagService
	}
	return nil
}
