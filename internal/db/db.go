// Package db describes the key-value and search operations the vector index and
// the embedding cache need from a Valkey or Redis server. The redis subpackage
// implements them.
package db

import (
	"context"
	"time"
)

// Store is everything a connected server offers. Consumers take the narrow
// interface they need; only wiring code holds a Store.
//
//nolint:interfacebloat // composed of the narrow interfaces below
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher

	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one HSET in a pipelined batch.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore holds one hash per piece. Multi-key calls are pipelined and return
// results in key order; HGetAllMulti yields an empty map for an absent key.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	ExistsMulti(ctx context.Context, keys []string) ([]bool, error)
	Del(ctx context.Context, keys ...string) error
}

// KVStore backs the embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
