package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/db"
	"github.com/kailas-cloud/pieces/internal/domain"
)

// mockBackend returns vec(text) = [len(text), 1] and records what it was asked for.
type mockBackend struct {
	err    error
	calls  [][]string
	tokens int
}

func (m *mockBackend) Embed(_ context.Context, _ string, input []string) (domain.EmbeddingResult, error) {
	m.calls = append(m.calls, input)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	out := make([][]float32, len(input))
	for i, text := range input {
		out[i] = []float32{float32(len(text)), 1}
	}
	return domain.EmbeddingResult{Embeddings: out, PromptTokens: m.tokens, TotalTokens: m.tokens}, nil
}

// mockKVStore is an in-memory implementation of the consumer interface.
type mockKVStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCachedBackend(t *testing.T, inner *mockBackend) (*CachedBackend, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, Options{TTL: time.Hour, Logger: zap.NewNop()}), ms
}
