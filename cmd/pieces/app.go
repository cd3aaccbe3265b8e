package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/config"
	dbredis "github.com/kailas-cloud/pieces/internal/db/redis"
	"github.com/kailas-cloud/pieces/internal/domain"
	logpkg "github.com/kailas-cloud/pieces/internal/logger"
	"github.com/kailas-cloud/pieces/internal/metrics"
	"github.com/kailas-cloud/pieces/internal/repository/embcache"
	openaitr "github.com/kailas-cloud/pieces/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/pieces/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pieces/internal/usecase/health"
	pieceuc "github.com/kailas-cloud/pieces/internal/usecase/piece"
	raguc "github.com/kailas-cloud/pieces/internal/usecase/rag"
	"github.com/kailas-cloud/pieces/internal/vectorindex"
	"github.com/kailas-cloud/pieces/internal/vectorindex/memory"
	vredis "github.com/kailas-cloud/pieces/internal/vectorindex/redis"
)

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	pieces *pieceuc.Service
	rag    *raguc.Service
	health *healthuc.Service

	closers []func()
}

func newApp() (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger}
	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg := a.cfg

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	index, pinger, cacheStore, err := a.buildIndex()
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.LLM.TimeoutSec) * time.Second
	embedder := openaitr.NewEmbedder(&openaitr.EmbedderConfig{
		Config: openaitr.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.EmbeddingBaseURL,
			Provider: cfg.LLM.Provider,
			Timeout:  timeout,
			Logger:   a.logger,
		},
	})
	generator := openaitr.NewChatGenerator(&openaitr.ChatConfig{
		Config: openaitr.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Provider: cfg.LLM.Provider,
			Timeout:  timeout,
			Logger:   a.logger,
		},
		Temperature: cfg.LLM.Temperature,
	})

	// Decorator chain: OpenAI -> Cached (keys include the model)
	var backend domain.EmbeddingBackend = embedder
	if cacheStore != nil {
		backend = embcache.New(embedder, cacheStore, embcache.Options{
			KeyPrefix:  cfg.VectorIndex.KeyPrefix + "emb_cache:",
			TTL:        time.Duration(cfg.EmbeddingCache.TTLSec) * time.Second,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     a.logger,
		})
	}

	gateway, err := embeddinguc.NewGateway(backend, cfg.LLM.EmbeddingModel, a.logger)
	if err != nil {
		return fmt.Errorf("create embedding gateway: %w", err)
	}

	a.pieces, err = pieceuc.New(index, gateway, pieceuc.Config{
		Collection:  cfg.VectorIndex.Collection,
		DefaultTopK: cfg.RAG.DefaultTopK,
		InitTimeout: time.Duration(cfg.VectorIndex.ReadinessTimeout) * time.Second,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("create piece store: %w", err)
	}

	a.rag, err = raguc.New(a.pieces, generator, cfg.LLM.GenerationModel, a.logger)
	if err != nil {
		return fmt.Errorf("create rag service: %w", err)
	}

	a.health = healthuc.New(a.pieces, pinger, embedder, generator)

	a.logger.Debug("Pieces wired",
		zap.String("driver", cfg.VectorIndex.Driver),
		zap.String("collection", cfg.VectorIndex.Collection),
		zap.String("embedding_model", cfg.LLM.EmbeddingModel),
		zap.String("generation_model", cfg.LLM.GenerationModel),
		zap.Bool("embedding_cache", cacheStore != nil),
	)
	return nil
}

// buildIndex returns the vector index, its pinger (nil for memory) and, when the
// embedding cache is enabled, the connected store backing it.
func (a *app) buildIndex() (vectorindex.Index, healthuc.IndexPinger, *dbredis.Store, error) {
	vi := a.cfg.VectorIndex
	if vi.Driver == "memory" {
		a.logger.Warn("Using in-memory vector index; pieces are lost on exit")
		return memory.New(), nil, nil, nil
	}

	ixCfg := vredis.Config{
		KeyPrefix:       vi.KeyPrefix,
		Dimensions:      vi.VectorDimensions,
		TagFields:       []string{pieceuc.TagsField},
		HNSWM:           vi.HNSWM,
		HNSWEFConstruct: vi.HNSWEFConstruct,
	}
	storeCfg := dbredis.Config{
		Addrs:       vi.Addrs,
		Username:    vi.Username,
		Password:    vi.Password,
		DB:          vi.DB,
		DialTimeout: time.Duration(vi.ReadinessTimeout) * time.Second,
	}

	if !a.cfg.EmbeddingCache.Enabled {
		// Lazy: the first Init dials, so the server starts with the index down.
		ix, err := vredis.New(vredis.Dial(storeCfg), ixCfg, a.logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create vector index: %w", err)
		}
		a.closers = append(a.closers, ix.Close)
		return ix, ix, nil, nil
	}

	// The cache needs a live store up front; the index shares it.
	store, err := dbredis.NewStore(storeCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create redis store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(vi.ReadinessTimeout)*time.Second); err != nil {
		return nil, nil, nil, fmt.Errorf("redis not ready: %w", err)
	}

	ix, err := vredis.NewWithStore(store, ixCfg, a.logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create vector index: %w", err)
	}
	return ix, ix, store, nil
}

// Close releases connections in reverse order and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
