package pieces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbredis "github.com/kailas-cloud/pieces/internal/db/redis"
	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/transport/openai"
	"github.com/kailas-cloud/pieces/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pieces/internal/usecase/health"
	"github.com/kailas-cloud/pieces/internal/usecase/piece"
	"github.com/kailas-cloud/pieces/internal/usecase/rag"
	"github.com/kailas-cloud/pieces/internal/vectorindex"
	"github.com/kailas-cloud/pieces/internal/vectorindex/memory"
	vredis "github.com/kailas-cloud/pieces/internal/vectorindex/redis"
)

// Internal interfaces for substitution in tests.
type pieceUseCase interface {
	Init(ctx context.Context) error
	Ready() bool
	AddPieces(ctx context.Context, batch []piece.NewPiece) ([]domain.Piece, error)
	GetPiece(ctx context.Context, id string) (domain.Piece, bool, error)
	UpdatePiece(ctx context.Context, id string, upd piece.Update) (domain.Piece, bool, error)
	DeletePiece(ctx context.Context, id string) error
	QueryPieces(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error)
}

type ragUseCase interface {
	Query(ctx context.Context, question string, opts domain.QueryOptions) (domain.RagResult, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the pieces entry point. It is safe for concurrent use.
type Client struct {
	pieces    pieceUseCase
	rag       ragUseCase
	healthSvc healthUseCase
	closeFn   func()
	obs       *observer
}

// New builds a Client. No connection is made: the vector index is reached on Init.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.collection, cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	index, pinger, closeFn, err := createIndex(cfg)
	if err != nil {
		return nil, err
	}

	c, err := wireClient(cfg, index, pinger)
	if err != nil {
		if closeFn != nil {
			closeFn()
		}
		return nil, err
	}
	c.closeFn = closeFn
	c.obs = obs
	return c, nil
}

func createIndex(cfg *clientConfig) (vectorindex.Index, healthuc.IndexPinger, func(), error) {
	switch cfg.driver {
	case "memory":
		return memory.New(), nil, nil, nil
	case "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, nil, nil, errors.New("pieces: redis address required")
		}
		ix, err := vredis.New(
			vredis.Dial(dbredis.Config{Addrs: cfg.addrs, Password: cfg.password}),
			vredis.Config{
				KeyPrefix:       cfg.keyPrefix,
				Dimensions:      cfg.vectorDimensions,
				TagFields:       []string{piece.TagsField},
				HNSWM:           cfg.hnswM,
				HNSWEFConstruct: cfg.hnswEFConstruct,
			},
			zap.NewNop(),
		)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pieces: create redis index: %w", err)
		}
		return ix, ix, ix.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("pieces: unknown index driver %q", cfg.driver)
	}
}

func wireClient(cfg *clientConfig, index vectorindex.Index, pinger healthuc.IndexPinger) (*Client, error) {
	conn := openai.Config{
		APIKey:   cfg.apiKey,
		BaseURL:  cfg.baseURL,
		Provider: "openai",
		Timeout:  cfg.timeout,
	}

	var embChecker, genChecker healthuc.ProviderChecker

	backend := cfg.embedding
	if backend == nil {
		e := openai.NewEmbedder(&openai.EmbedderConfig{Config: conn})
		backend, embChecker = e, e
	} else if hc, ok := backend.(domain.HealthChecker); ok {
		embChecker = hc
	}

	generator := cfg.generator
	if generator == nil {
		g := openai.NewChatGenerator(&openai.ChatConfig{Config: conn})
		generator, genChecker = g, g
	} else if hc, ok := generator.(domain.HealthChecker); ok {
		genChecker = hc
	}

	gateway, err := embedding.NewGateway(backend, cfg.embeddingModel, nil)
	if err != nil {
		return nil, fmt.Errorf("pieces: %w", err)
	}
	pieceSvc, err := piece.New(index, gateway, piece.Config{
		Collection:  cfg.collection,
		DefaultTopK: cfg.defaultTopK,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("pieces: %w", err)
	}
	ragSvc, err := rag.New(pieceSvc, generator, cfg.generationModel, nil)
	if err != nil {
		return nil, fmt.Errorf("pieces: %w", err)
	}

	return &Client{
		pieces:    pieceSvc,
		rag:       ragSvc,
		healthSvc: healthuc.New(pieceSvc, pinger, embChecker, genChecker),
	}, nil
}

// Close releases the vector index connection, if one was made.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Init opens (creating if needed) the collection. Concurrent calls share one attempt;
// after a failure the next call tries again.
func (c *Client) Init(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("init", start, err) }()

	return c.pieces.Init(ctx)
}

// Ready reports whether Init has succeeded.
func (c *Client) Ready() bool {
	return c.pieces.Ready()
}

// AddPiece embeds and stores one piece under a fresh id.
func (c *Client) AddPiece(ctx context.Context, content string, tags []string) (p Piece, err error) {
	start := time.Now()
	defer func() { c.obs.observe("piece.add", start, err) }()

	added, err := c.pieces.AddPieces(ctx, []NewPiece{{Content: content, Tags: tags}})
	if err != nil {
		return Piece{}, err
	}
	return added[0], nil
}

// AddPieces embeds all contents in one call and stores them together.
// Nothing is stored when any entry is invalid or embedding fails.
func (c *Client) AddPieces(ctx context.Context, batch []NewPiece) (added []Piece, err error) {
	start := time.Now()
	defer func() { c.obs.observe("piece.add_batch", start, err) }()

	return c.pieces.AddPieces(ctx, batch)
}

// GetPiece returns the piece with id, or ErrPieceNotFound.
func (c *Client) GetPiece(ctx context.Context, id string) (p Piece, err error) {
	start := time.Now()
	defer func() { c.obs.observe("piece.get", start, err) }()

	p, found, err := c.pieces.GetPiece(ctx, id)
	if err != nil {
		return Piece{}, err
	}
	if !found {
		return Piece{}, fmt.Errorf("piece %q: %w", id, ErrPieceNotFound)
	}
	return p, nil
}

// UpdatePiece applies upd and returns the stored piece, or ErrPieceNotFound.
// Only a content change calls the embedding model.
func (c *Client) UpdatePiece(ctx context.Context, id string, upd PieceUpdate) (p Piece, err error) {
	start := time.Now()
	defer func() { c.obs.observe("piece.update", start, err) }()

	p, found, err := c.pieces.UpdatePiece(ctx, id, upd)
	if err != nil {
		return Piece{}, err
	}
	if !found {
		return Piece{}, fmt.Errorf("piece %q: %w", id, ErrPieceNotFound)
	}
	return p, nil
}

// DeletePiece removes the piece. Deleting a missing id is not an error.
func (c *Client) DeletePiece(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("piece.delete", start, err) }()

	return c.pieces.DeletePiece(ctx, id)
}

// QueryPieces returns the pieces nearest to query, best first.
func (c *Client) QueryPieces(ctx context.Context, query string, opts QueryOptions) (res []QueryResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("piece.query", start, err) }()

	return c.pieces.QueryPieces(ctx, query, opts)
}

// RagQuery answers question from the retrieved pieces. With no matching pieces it
// returns NoContextAnswer and empty sources without calling the model.
func (c *Client) RagQuery(ctx context.Context, question string, opts QueryOptions) (res RagResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("rag.query", start, err) }()

	return c.rag.Query(ctx, question, opts)
}
