package pieces

import (
	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/usecase/piece"
	"github.com/kailas-cloud/pieces/internal/usecase/rag"
)

// Piece is a stored passage with its tags.
type Piece = domain.Piece

// QueryResult is a matched piece with its similarity score (1 - cosine distance).
type QueryResult = domain.QueryResult

// RagResult is a generated answer and the pieces it was grounded on.
type RagResult = domain.RagResult

// QueryOptions narrows a query. Tags are ANDed; TopK of zero means 10, at most 100.
type QueryOptions = domain.QueryOptions

// NewPiece is one entry of AddPieces.
type NewPiece = piece.NewPiece

// PieceUpdate is a partial change. A nil Content keeps the text and its embedding;
// nil Tags keeps the tags, an empty non-nil slice clears them.
type PieceUpdate = piece.Update

// EmbeddingBackend turns texts into vectors with the named model, one vector per input.
type EmbeddingBackend = domain.EmbeddingBackend

// EmbeddingResult carries the vectors and token usage of one embedding call.
type EmbeddingResult = domain.EmbeddingResult

// Generator produces a chat completion with the named model.
type Generator = domain.Generator

// Message is one chat turn sent to a Generator.
type Message = domain.Message

// ChatResponse is a Generator's reply.
type ChatResponse = domain.ChatResponse

// NoContextAnswer is returned by RagQuery when no piece matches; the model is not called.
const NoContextAnswer = rag.NoContextAnswer
