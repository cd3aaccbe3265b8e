package mcp

import (
	"context"

	"github.com/kailas-cloud/pieces/internal/domain"
	pieceuc "github.com/kailas-cloud/pieces/internal/usecase/piece"
)

type mockPieceService struct {
	initErr error

	piece   domain.Piece
	pieces  []domain.Piece
	found   bool
	results []domain.QueryResult
	err     error

	gotID      string
	gotContent string
	gotTags    []string
	gotUpdate  pieceuc.Update
	gotBatch   []pieceuc.NewPiece
	gotOpts    domain.QueryOptions
	deleted    []string
}

func (m *mockPieceService) Init(_ context.Context) error { return m.initErr }

func (m *mockPieceService) AddPiece(_ context.Context, content string, tags []string) (domain.Piece, error) {
	m.gotContent, m.gotTags = content, tags
	return m.piece, m.err
}

func (m *mockPieceService) AddPieces(_ context.Context, batch []pieceuc.NewPiece) ([]domain.Piece, error) {
	m.gotBatch = batch
	return m.pieces, m.err
}

func (m *mockPieceService) GetPiece(_ context.Context, id string) (domain.Piece, bool, error) {
	m.gotID = id
	return m.piece, m.found, m.err
}

func (m *mockPieceService) UpdatePiece(_ context.Context, id string, upd pieceuc.Update) (domain.Piece, bool, error) {
	m.gotID, m.gotUpdate = id, upd
	return m.piece, m.found, m.err
}

func (m *mockPieceService) DeletePiece(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *mockPieceService) QueryPieces(_ context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	m.gotContent, m.gotOpts = query, opts
	return m.results, m.err
}

type mockRagService struct {
	result  domain.RagResult
	err     error
	gotOpts domain.QueryOptions
}

func (m *mockRagService) Query(_ context.Context, _ string, opts domain.QueryOptions) (domain.RagResult, error) {
	m.gotOpts = opts
	return m.result, m.err
}
