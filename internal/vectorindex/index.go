// Package vectorindex defines the collection-oriented vector index the piece store talks to.
// Implementations keep one collection per name with documents, embeddings and string metadata.
package vectorindex

import (
	"context"

	"github.com/kailas-cloud/pieces/internal/domain/filter"
)

// Metric is the distance function a collection is created with.
type Metric string

// MetricCosine is cosine distance (1 - cosine similarity).
const MetricCosine Metric = "cosine"

// Index opens collections, creating them on first use.
type Index interface {
	GetOrCreateCollection(ctx context.Context, name string, metric Metric) (Collection, error)
}

// Collection stores records keyed by id.
type Collection interface {
	// Add inserts records. An existing id is overwritten.
	Add(ctx context.Context, records []Record) error
	// Get returns the records that exist, in request order. Absent ids are skipped.
	Get(ctx context.Context, ids []string) ([]Record, error)
	// Update changes only the parts set on each Update. Absent ids are ignored.
	Update(ctx context.Context, updates []Update) error
	// Delete removes records. Absent ids are ignored.
	Delete(ctx context.Context, ids []string) error
	// Query returns up to NResults nearest records, nearest first.
	Query(ctx context.Context, req QueryRequest) ([]Match, error)
}

// Record is a stored entry. Document and Metadata may be missing on reads.
type Record struct {
	ID        string
	Document  *string
	Embedding []float32
	Metadata  map[string]string
}

// Update is a partial write: nil fields keep their stored value.
type Update struct {
	ID        string
	Document  *string
	Embedding []float32
	Metadata  map[string]string
}

// QueryRequest is a nearest-neighbour lookup.
type QueryRequest struct {
	Embedding []float32
	NResults  int
	Where     filter.Filter
}

// Match is a query hit. Distance is nil when the index did not report one.
type Match struct {
	Record
	Distance *float64
}
