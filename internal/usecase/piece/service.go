// Package piece stores tagged text passages in a vector index and retrieves them by meaning.
package piece

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/domain/filter"
	"github.com/kailas-cloud/pieces/internal/domain/tags"
	"github.com/kailas-cloud/pieces/internal/validate"
	"github.com/kailas-cloud/pieces/internal/vectorindex"
)

// TagsField is the metadata key holding the encoded tag list.
const TagsField = "tags"

// Defaults.
const (
	DefaultCollection = "pieces"
	DefaultTopK       = 10
	MaxTopK           = 100
	MaxBatchSize      = 100

	DefaultInitTimeout = 30 * time.Second
)

// State is the initialization state of the store.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Config holds store settings. Zero values fall back to the package defaults.
type Config struct {
	Collection  string
	DefaultTopK int
	// InitTimeout bounds one shared initialization attempt.
	InitTimeout time.Duration
}

// NewPiece is one entry of a batch add.
type NewPiece struct {
	Content string   `json:"content" validate:"notblank"`
	Tags    []string `json:"tags" validate:"max=32,dive,piecetag"`
}

// Update is a partial change to a piece. Nil fields keep the stored value.
type Update struct {
	Content *string
	Tags    []string
}

type addBatchRequest struct {
	Pieces []NewPiece `json:"pieces" validate:"min=1,max=100,dive"`
}

type idRequest struct {
	ID string `json:"id" validate:"notblank"`
}

type updateRequest struct {
	ID      string   `json:"id" validate:"notblank"`
	Content *string  `json:"content" validate:"omitnil,notblank"`
	Tags    []string `json:"tags" validate:"omitnil,max=32,dive,piecetag"`
}

type queryRequest struct {
	Query string   `json:"query" validate:"notblank"`
	Tags  []string `json:"tags" validate:"max=32,dive,piecetag"`
	TopK  int      `json:"topK" validate:"gte=0,lte=100"`
}

// Service is the piece store. Data operations require a successful Init.
type Service struct {
	index    vectorindex.Index
	embedder Embedder
	cfg      Config
	logger   *zap.Logger

	init  singleflight.Group
	mu    sync.RWMutex
	state State
	coll  vectorindex.Collection
}

// New creates a store. Nothing is contacted until Init.
func New(index vectorindex.Index, embedder Embedder, cfg Config, logger *zap.Logger) (*Service, error) {
	if index == nil {
		return nil, errors.New("vector index is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.DefaultTopK <= 0 || cfg.DefaultTopK > MaxTopK {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = DefaultInitTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, embedder: embedder, cfg: cfg, logger: logger}, nil
}

// State reports the current initialization state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether Init has succeeded.
func (s *Service) Ready() bool { return s.State() == StateReady }

// Init opens or creates the collection. Concurrent callers share one attempt.
// After success it is a no-op; after failure the next call tries again.
// The attempt runs detached from any single caller, bounded by InitTimeout:
// a caller whose ctx ends stops waiting with ctx.Err() while the others keep waiting.
func (s *Service) Init(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}

	ch := s.init.DoChan("init", func() (any, error) {
		s.mu.Lock()
		if s.state == StateReady {
			s.mu.Unlock()
			return nil, nil
		}
		s.state = StateInitializing
		s.mu.Unlock()

		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.InitTimeout)
		defer cancel()
		coll, err := s.index.GetOrCreateCollection(attemptCtx, s.cfg.Collection, vectorindex.MetricCosine)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = StateUninitialized
			s.logger.Warn("Piece store initialization failed",
				zap.String("collection", s.cfg.Collection), zap.Error(err))
			return nil, err
		}
		s.coll = coll
		s.state = StateReady
		s.logger.Info("Piece store ready", zap.String("collection", s.cfg.Collection))
		return nil, nil
	})

	var err error
	select {
	case <-ctx.Done():
		return fmt.Errorf("initialize collection %s: %w", s.cfg.Collection, ctx.Err())
	case res := <-ch:
		err = res.Err
	}
	if err != nil {
		if errors.Is(err, domain.ErrBackendUnavailable) {
			return fmt.Errorf("initialize collection %s: %w", s.cfg.Collection, err)
		}
		return fmt.Errorf("initialize collection %s: %w: %w", s.cfg.Collection, domain.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Service) collection() (vectorindex.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return nil, domain.ErrNotInitialized
	}
	return s.coll, nil
}

// AddPiece embeds content and stores it under a new id.
func (s *Service) AddPiece(ctx context.Context, content string, tagList []string) (domain.Piece, error) {
	added, err := s.AddPieces(ctx, []NewPiece{{Content: content, Tags: tagList}})
	if err != nil {
		return domain.Piece{}, err
	}
	return added[0], nil
}

// AddPieces embeds all contents in one call and stores them in one write.
// Nothing is stored if embedding fails.
func (s *Service) AddPieces(ctx context.Context, batch []NewPiece) ([]domain.Piece, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(addBatchRequest{Pieces: batch}); err != nil {
		return nil, err
	}

	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("vectorize pieces: %w", err)
	}

	pieces := make([]domain.Piece, len(batch))
	records := make([]vectorindex.Record, len(batch))
	for i, p := range batch {
		content := p.Content
		pieces[i] = domain.Piece{ID: uuid.NewString(), Content: content, Tags: tags.Normalize(p.Tags)}
		records[i] = vectorindex.Record{
			ID:        pieces[i].ID,
			Document:  &content,
			Embedding: vectors[i],
			Metadata:  map[string]string{TagsField: tags.Encode(pieces[i].Tags)},
		}
	}
	if err := coll.Add(ctx, records); err != nil {
		return nil, fmt.Errorf("store pieces: %w", err)
	}
	return pieces, nil
}

// GetPiece returns the piece with id. found is false when it does not exist.
func (s *Service) GetPiece(ctx context.Context, id string) (domain.Piece, bool, error) {
	coll, err := s.collection()
	if err != nil {
		return domain.Piece{}, false, err
	}
	if err := validate.Struct(idRequest{ID: id}); err != nil {
		return domain.Piece{}, false, err
	}
	return s.get(ctx, coll, id)
}

func (s *Service) get(ctx context.Context, coll vectorindex.Collection, id string) (domain.Piece, bool, error) {
	records, err := coll.Get(ctx, []string{id})
	if err != nil {
		return domain.Piece{}, false, fmt.Errorf("get piece %s: %w", id, err)
	}
	for _, r := range records {
		if r.ID == id {
			return pieceFromRecord(r), true, nil
		}
	}
	return domain.Piece{}, false, nil
}

// UpdatePiece changes the content, the tags or both. Only a content change is re-embedded.
// found is false, and nothing is written, when the piece does not exist.
func (s *Service) UpdatePiece(ctx context.Context, id string, upd Update) (domain.Piece, bool, error) {
	coll, err := s.collection()
	if err != nil {
		return domain.Piece{}, false, err
	}
	if err := validate.Struct(updateRequest{ID: id, Content: upd.Content, Tags: upd.Tags}); err != nil {
		return domain.Piece{}, false, err
	}

	existing, found, err := s.get(ctx, coll, id)
	if err != nil || !found {
		return domain.Piece{}, found, err
	}

	next := existing
	if upd.Content != nil {
		next.Content = *upd.Content
	}
	if upd.Tags != nil {
		next.Tags = tags.Normalize(upd.Tags)
	}

	change := vectorindex.Update{
		ID:       id,
		Metadata: map[string]string{TagsField: tags.Encode(next.Tags)},
	}
	if upd.Content != nil {
		vec, err := s.embedder.Embed(ctx, next.Content)
		if err != nil {
			return domain.Piece{}, false, fmt.Errorf("vectorize piece %s: %w", id, err)
		}
		content := next.Content
		change.Document = &content
		change.Embedding = vec
	}
	if err := coll.Update(ctx, []vectorindex.Update{change}); err != nil {
		return domain.Piece{}, false, fmt.Errorf("update piece %s: %w", id, err)
	}
	return next, true, nil
}

// DeletePiece removes the piece. Deleting an absent id succeeds.
func (s *Service) DeletePiece(ctx context.Context, id string) error {
	coll, err := s.collection()
	if err != nil {
		return err
	}
	if err := validate.Struct(idRequest{ID: id}); err != nil {
		return err
	}
	if err := coll.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete piece %s: %w", id, err)
	}
	return nil
}

// QueryPieces returns the pieces nearest to query in meaning, restricted to pieces
// carrying every requested tag, most relevant first.
func (s *Service) QueryPieces(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(queryRequest{Query: query, Tags: opts.Tags, TopK: opts.TopK}); err != nil {
		return nil, err
	}

	topK := opts.TopK
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	where, err := filter.ForTags(TagsField, tags.Normalize(opts.Tags))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	matches, err := coll.Query(ctx, vectorindex.QueryRequest{
		Embedding: vec,
		NResults:  topK,
		Where:     where,
	})
	if err != nil {
		return nil, fmt.Errorf("query pieces: %w", err)
	}

	results := make([]domain.QueryResult, len(matches))
	for i, m := range matches {
		results[i] = domain.QueryResult{Piece: pieceFromRecord(m.Record), Score: score(m.Distance)}
	}
	return results, nil
}

// score converts cosine distance to relevance. A missing distance counts as 0.
func score(distance *float64) float64 {
	if distance == nil {
		return 1
	}
	return 1 - *distance
}

func pieceFromRecord(r vectorindex.Record) domain.Piece {
	p := domain.Piece{ID: r.ID, Tags: tags.Decode(r.Metadata[TagsField])}
	if r.Document != nil {
		p.Content = *r.Document
	}
	return p
}
