// Package chi serves the piece store and the RAG pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/domain"
	logpkg "github.com/kailas-cloud/pieces/internal/logger"
	"github.com/kailas-cloud/pieces/internal/metrics"
	healthuc "github.com/kailas-cloud/pieces/internal/usecase/health"
	pieceuc "github.com/kailas-cloud/pieces/internal/usecase/piece"
)

const maxBodyBytes = 1 << 20

// PieceService is the piece store as the HTTP layer uses it.
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

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// Request and response bodies.
type (
	AddPieceRequest struct {
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	}
	AddPiecesRequest struct {
		Pieces []AddPieceRequest `json:"pieces"`
	}
	PiecesResponse struct {
		Pieces []domain.Piece `json:"pieces"`
	}
	UpdatePieceRequest struct {
		Content *string  `json:"content"`
		Tags    []string `json:"tags"`
	}
	QueryRequest struct {
		Query string   `json:"query"`
		Tags  []string `json:"tags"`
		TopK  int      `json:"topK"`
	}
	QueryResponse struct {
		Results []domain.QueryResult `json:"results"`
	}
)

// Server handles the pieces HTTP API.
type Server struct {
	pieces        PieceService
	rag           RagService
	health        HealthReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. health may be nil.
func NewServer(pieces PieceService, rag RagService, health HealthReporter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pieces:        pieces,
		rag:           rag,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Handler returns the router with the full middleware chain.
func (s *Server) Handler(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLog(s.logger))
	r.Use(APIKeyAuth(apiKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(s.requireStore)

		r.Post("/pieces", s.AddPiece)
		r.Post("/pieces/batch", s.AddPieces)
		r.Post("/pieces/query", s.QueryPieces)
		r.Get("/pieces/{id}", s.GetPiece)
		r.Patch("/pieces/{id}", s.UpdatePiece)
		r.Put("/pieces/{id}", s.UpdatePiece)
		r.Delete("/pieces/{id}", s.DeletePiece)
		r.Post("/rag/query", s.RagQuery)
	})
	return r
}

// requireStore initializes the piece store before any data route; concurrent
// requests share the same initialization.
func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.pieces.Init(r.Context()); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddPiece handles POST /pieces.
func (s *Server) AddPiece(w http.ResponseWriter, r *http.Request) {
	var req AddPieceRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := s.pieces.AddPiece(r.Context(), req.Content, req.Tags)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/pieces/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

// AddPieces handles POST /pieces/batch.
func (s *Server) AddPieces(w http.ResponseWriter, r *http.Request) {
	var req AddPiecesRequest
	if !decode(w, r, &req) {
		return
	}

	batch := make([]pieceuc.NewPiece, len(req.Pieces))
	for i, p := range req.Pieces {
		batch[i] = pieceuc.NewPiece{Content: p.Content, Tags: p.Tags}
	}
	added, err := s.pieces.AddPieces(r.Context(), batch)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, PiecesResponse{Pieces: added})
}

// GetPiece handles GET /pieces/{id}.
func (s *Server) GetPiece(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, found, err := s.pieces.GetPiece(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !found {
		s.pieceNotFound(w, id)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// UpdatePiece handles PATCH and PUT /pieces/{id}. Omitted fields keep their value.
func (s *Server) UpdatePiece(w http.ResponseWriter, r *http.Request) {
	var req UpdatePieceRequest
	if !decode(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	p, found, err := s.pieces.UpdatePiece(r.Context(), id, pieceuc.Update{Content: req.Content, Tags: req.Tags})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !found {
		s.pieceNotFound(w, id)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// DeletePiece handles DELETE /pieces/{id}.
func (s *Server) DeletePiece(w http.ResponseWriter, r *http.Request) {
	if err := s.pieces.DeletePiece(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// QueryPieces handles POST /pieces/query.
func (s *Server) QueryPieces(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decode(w, r, &req) {
		return
	}

	results, err := s.pieces.QueryPieces(r.Context(), req.Query, domain.QueryOptions{Tags: req.Tags, TopK: req.TopK})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{Results: results})
}

// RagQuery handles POST /rag/query.
func (s *Server) RagQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.rag.Query(r.Context(), req.Query, domain.QueryOptions{Tags: req.Tags, TopK: req.TopK})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}})
		return
	}

	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) pieceNotFound(w http.ResponseWriter, id string) {
	writeError(w, http.StatusNotFound, CodePieceNotFound, fmt.Sprintf("piece %q not found", id))
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))

	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// decode reads a JSON body. It writes a 400 and returns false on malformed input.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
