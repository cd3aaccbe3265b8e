// Package rag answers questions from stored pieces: retrieve, build a grounded prompt, generate.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/metrics"
)

// NoContextAnswer is returned, without calling the generator, when retrieval finds nothing.
const NoContextAnswer = "There is not enough context in the stored pieces to answer this question."

// SystemPrompt instructs the model to stay within the retrieved context.
const SystemPrompt = "You answer questions using only the numbered context passages provided by the user. " +
	"If the context does not contain enough information to answer, say that there is not enough context. " +
	"Cite the passages you used by their numbers, for example [1] or [2]."

// Retriever finds pieces relevant to a question.
type Retriever interface {
	QueryPieces(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error)
}

// Service runs retrieval-augmented queries.
type Service struct {
	retriever Retriever
	generator domain.Generator
	model     string
	logger    *zap.Logger
}

// New creates a RAG service generating with the given model.
func New(retriever Retriever, generator domain.Generator, model string, logger *zap.Logger) (*Service, error) {
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if model == "" {
		return nil, errors.New("generation model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: retriever, generator: generator, model: model, logger: logger}, nil
}

// Query retrieves pieces for question and asks the generator to answer from them.
// Sources are the retrieved pieces in retrieval order.
func (s *Service) Query(ctx context.Context, question string, opts domain.QueryOptions) (domain.RagResult, error) {
	results, err := s.retriever.QueryPieces(ctx, question, opts)
	if err != nil {
		metrics.RagQueriesTotal.WithLabelValues("error").Inc()
		return domain.RagResult{}, fmt.Errorf("retrieve context: %w", err)
	}

	if len(results) == 0 {
		metrics.RagQueriesTotal.WithLabelValues("no_context").Inc()
		s.logger.Debug("RAG query found no context", zap.Strings("tags", opts.Tags))
		return domain.RagResult{Answer: NoContextAnswer, Sources: []domain.QueryResult{}}, nil
	}

	resp, err := s.generator.Chat(ctx, s.model, BuildMessages(question, results))
	if err != nil {
		metrics.RagQueriesTotal.WithLabelValues("error").Inc()
		return domain.RagResult{}, fmt.Errorf("generate answer: %w", err)
	}

	metrics.RagQueriesTotal.WithLabelValues("answered").Inc()
	return domain.RagResult{Answer: resp.Content, Sources: results}, nil
}

// BuildMessages returns the system instruction and the user message carrying the
// numbered context block followed by the question.
func BuildMessages(question string, results []domain.QueryResult) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: SystemPrompt},
		{Role: domain.RoleUser, Content: "Context:\n" + BuildContext(results) + "\n\nQuestion: " + question},
	}
}

// BuildContext renders results as "[i] Tags: a, b\n<content>" entries separated by a blank line.
func BuildContext(results []domain.QueryResult) string {
	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = "[" + strconv.Itoa(i+1) + "] Tags: " + strings.Join(r.Piece.Tags, ", ") + "\n" + r.Piece.Content
	}
	return strings.Join(entries, "\n\n")
}
