package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the pieces server configuration.
type Config struct {
	HTTP           HTTPConfig           `yaml:"http"`
	VectorIndex    VectorIndexConfig    `yaml:"vector_index"`
	LLM            LLMConfig            `yaml:"llm"`
	EmbeddingCache EmbeddingCacheConfig `yaml:"embedding_cache"`
	RAG            RAGConfig            `yaml:"rag"`
	Auth           AuthConfig           `yaml:"auth"`
	Logging        LoggingConfig        `yaml:"logging"`
	MCP            MCPConfig            `yaml:"mcp"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys means auth is off.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// VectorIndexConfig selects and configures the vector index.
type VectorIndexConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Collection       string   `yaml:"collection"`
	KeyPrefix        string   `yaml:"key_prefix"`
	VectorDimensions int      `yaml:"vector_dimensions"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig points at an OpenAI-compatible endpoint for embeddings and chat.
type LLMConfig struct {
	Provider         string  `yaml:"provider"` // label for metrics (default: ollama)
	BaseURL          string  `yaml:"base_url"`
	APIKey           string  `yaml:"api_key"`
	EmbeddingBaseURL string  `yaml:"embedding_base_url"` // default: base_url
	EmbeddingModel   string  `yaml:"embedding_model"`
	GenerationModel  string  `yaml:"generation_model"`
	Temperature      float32 `yaml:"temperature"`
	TimeoutSec       int     `yaml:"timeout_sec"`
}

// EmbeddingCacheConfig controls the Redis-backed embedding cache.
type EmbeddingCacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = keep forever
}

// RAGConfig holds retrieval settings.
type RAGConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	HTTPAddr string `yaml:"http_addr"` // streamable HTTP listen address; empty = stdio
}

// Default returns the zero-config configuration.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file is loaded first if present. A missing YAML file yields the defaults.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	var cfg Config
	data, err := os.ReadFile(filepath.Clean(configPath))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	default:
		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	vi := &c.VectorIndex
	if vi.Driver == "" {
		vi.Driver = "redis"
	}
	if len(vi.Addrs) == 0 {
		vi.Addrs = []string{"localhost:6379"}
	}
	if vi.Collection == "" {
		vi.Collection = "pieces"
	}
	if vi.KeyPrefix == "" {
		vi.KeyPrefix = "pieces:"
	}
	if vi.VectorDimensions <= 0 {
		vi.VectorDimensions = 768
	}
	if vi.HNSWM <= 0 {
		vi.HNSWM = 16
	}
	if vi.HNSWEFConstruct <= 0 {
		vi.HNSWEFConstruct = 200
	}
	if vi.ReadinessTimeout <= 0 {
		vi.ReadinessTimeout = 10
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "http://localhost:11434/v1"
	}
	if c.LLM.EmbeddingBaseURL == "" {
		c.LLM.EmbeddingBaseURL = c.LLM.BaseURL
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = "nomic-embed-text"
	}
	if c.LLM.GenerationModel == "" {
		c.LLM.GenerationModel = "llama3.2"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}

	if c.RAG.DefaultTopK <= 0 {
		c.RAG.DefaultTopK = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.VectorIndex.Driver {
	case "redis", "valkey":
		if len(c.VectorIndex.Addrs) == 0 {
			return fmt.Errorf("vector_index.addrs is required")
		}
	case "memory":
	default:
		return fmt.Errorf("vector_index.driver must be \"redis\" or \"memory\", got %q", c.VectorIndex.Driver)
	}
	if c.RAG.DefaultTopK > 100 {
		return fmt.Errorf("rag.default_top_k must be at most 100, got %d", c.RAG.DefaultTopK)
	}
	if c.EmbeddingCache.Enabled && c.VectorIndex.Driver == "memory" {
		return fmt.Errorf("embedding_cache requires the redis vector_index driver")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
