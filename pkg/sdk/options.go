package pieces

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Defaults used when the matching option is not given.
const (
	DefaultRedisAddr        = "localhost:6379"
	DefaultBaseURL          = "http://localhost:11434/v1"
	DefaultEmbeddingModel   = "nomic-embed-text"
	DefaultGenerationModel  = "llama3.2"
	DefaultCollection       = "pieces"
	DefaultVectorDimensions = 768
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "redis" or "memory"
	addrs     []string
	password  string
	keyPrefix string

	baseURL string
	apiKey  string
	timeout time.Duration

	embeddingModel  string
	generationModel string
	embedding       EmbeddingBackend
	generator       Generator

	collection       string
	defaultTopK      int
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		driver:           "redis",
		addrs:            []string{DefaultRedisAddr},
		baseURL:          DefaultBaseURL,
		embeddingModel:   DefaultEmbeddingModel,
		generationModel:  DefaultGenerationModel,
		collection:       DefaultCollection,
		vectorDimensions: DefaultVectorDimensions,
	}
}

// WithRedis stores pieces in a Redis or Valkey instance with the search module.
// The connection is made by Init, not by New.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemoryIndex keeps pieces in process memory. Nothing survives Close.
func WithMemoryIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithKeyPrefix namespaces the Redis keys and index. Default "pieces:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithOpenAI points embedding and generation at an OpenAI-compatible endpoint
// (OpenAI, Ollama, vLLM). An empty apiKey is fine for local servers.
func WithOpenAI(baseURL, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = baseURL
		c.apiKey = apiKey
	})
}

// WithRequestTimeout bounds each call to the model endpoint. Zero means no limit.
func WithRequestTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithEmbeddingModel sets the embedding model name. Default "nomic-embed-text".
func WithEmbeddingModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = model
	})
}

// WithGenerationModel sets the chat model used by RagQuery. Default "llama3.2".
func WithGenerationModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.generationModel = model
	})
}

// WithEmbeddingBackend replaces the OpenAI-compatible embedding client.
func WithEmbeddingBackend(b EmbeddingBackend) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedding = b
	})
}

// WithGenerator replaces the OpenAI-compatible chat client.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithCollection sets the collection pieces are stored in. Default "pieces".
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
	})
}

// WithDefaultTopK sets how many results a query returns when QueryOptions.TopK is zero.
func WithDefaultTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = k
	})
}

// WithVectorDimensions sets the embedding length the Redis index is created with.
// Must match the embedding model. Default 768 (nomic-embed-text).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetrics registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
