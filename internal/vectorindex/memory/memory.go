// Package memory is an in-process vector index with exact (brute-force) cosine search.
// It serves zero-infrastructure runs and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/vectorindex"
)

// Compile-time checks.
var (
	_ vectorindex.Index      = (*Index)(nil)
	_ vectorindex.Collection = (*Collection)(nil)
)

// Index holds named collections in memory.
type Index struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// New creates an empty index.
func New() *Index {
	return &Index{collections: make(map[string]*Collection)}
}

// GetOrCreateCollection returns the named collection, creating it if needed.
func (ix *Index) GetOrCreateCollection(_ context.Context, name string, metric vectorindex.Metric) (vectorindex.Collection, error) {
	if metric != vectorindex.MetricCosine {
		return nil, fmt.Errorf("unsupported metric %q", metric)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	c, ok := ix.collections[name]
	if !ok {
		c = &Collection{records: make(map[string]*entry)}
		ix.collections[name] = c
	}
	return c, nil
}

type entry struct {
	seq       uint64
	document  string
	embedding []float32
	metadata  map[string]string
}

// Collection is a mutex-guarded map of records. The first stored embedding
// fixes the dimension for the collection's lifetime.
type Collection struct {
	mu      sync.RWMutex
	seq     uint64
	dim     int
	records map[string]*entry
}

// checkDim reports a length mismatch against dim; dim 0 accepts any length.
func checkDim(dim int, id string, v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: record %s has no embedding", domain.ErrInvalidInput, id)
	}
	if dim != 0 && len(v) != dim {
		return fmt.Errorf("%w: record %s has %d dimensions, collection expects %d",
			domain.ErrInvalidInput, id, len(v), dim)
	}
	return nil
}

// Add inserts or overwrites records. The batch is checked as a whole first,
// so a rejected batch stores nothing.
func (c *Collection) Add(_ context.Context, records []vectorindex.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dim := c.dim
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
		}
		if err := checkDim(dim, r.ID, r.Embedding); err != nil {
			return err
		}
		dim = len(r.Embedding)
	}
	c.dim = dim

	for _, r := range records {
		c.seq++
		e := &entry{seq: c.seq, embedding: slices.Clone(r.Embedding), metadata: maps.Clone(r.Metadata)}
		if r.Document != nil {
			e.document = *r.Document
		}
		c.records[r.ID] = e
	}
	return nil
}

// Get returns present records in request order.
func (c *Collection) Get(_ context.Context, ids []string) ([]vectorindex.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]vectorindex.Record, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.records[id]; ok {
			out = append(out, e.record(id))
		}
	}
	return out, nil
}

// Update applies partial writes to present records.
func (c *Collection) Update(_ context.Context, updates []vectorindex.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dim := c.dim
	for _, u := range updates {
		if u.Embedding == nil {
			continue
		}
		if err := checkDim(dim, u.ID, u.Embedding); err != nil {
			return err
		}
		dim = len(u.Embedding)
	}
	c.dim = dim

	for _, u := range updates {
		e, ok := c.records[u.ID]
		if !ok {
			continue
		}
		if u.Document != nil {
			e.document = *u.Document
		}
		if u.Embedding != nil {
			e.embedding = slices.Clone(u.Embedding)
		}
		if u.Metadata != nil {
			if e.metadata == nil {
				e.metadata = make(map[string]string, len(u.Metadata))
			}
			maps.Copy(e.metadata, u.Metadata)
		}
	}
	return nil
}

// Delete removes records; absent ids are ignored.
func (c *Collection) Delete(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		delete(c.records, id)
	}
	return nil
}

// Query scans every record matching the filter and returns the nearest ones.
// Ties keep insertion order.
func (c *Collection) Query(_ context.Context, req vectorindex.QueryRequest) ([]vectorindex.Match, error) {
	if req.NResults <= 0 {
		return nil, fmt.Errorf("n_results must be positive")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.dim != 0 && len(req.Embedding) != c.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection expects %d",
			domain.ErrInvalidInput, len(req.Embedding), c.dim)
	}

	type scored struct {
		id   string
		e    *entry
		dist float64
	}
	hits := make([]scored, 0, len(c.records))
	for id, e := range c.records {
		if !req.Where.Match(e.metadata) {
			continue
		}
		hits = append(hits, scored{id: id, e: e, dist: CosineDistance(req.Embedding, e.embedding)})
	}

	slices.SortFunc(hits, func(a, b scored) int {
		if d := cmp.Compare(a.dist, b.dist); d != 0 {
			return d
		}
		return cmp.Compare(a.e.seq, b.e.seq)
	})
	if len(hits) > req.NResults {
		hits = hits[:req.NResults]
	}

	out := make([]vectorindex.Match, len(hits))
	for i, h := range hits {
		d := h.dist
		out[i] = vectorindex.Match{Record: h.e.record(h.id), Distance: &d}
	}
	return out, nil
}

func (e *entry) record(id string) vectorindex.Record {
	doc := e.document
	return vectorindex.Record{
		ID:        id,
		Document:  &doc,
		Embedding: slices.Clone(e.embedding),
		Metadata:  maps.Clone(e.metadata),
	}
}

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
