// Package redis implements vectorindex over Valkey/Redis hashes indexed by an FT vector index.
//
// A collection named c stores each record as the hash <prefix><c>:<id> with the fields
// "document", "vector" (FLOAT32 blob) and one field per metadata key. The FT index
// <prefix><c>:idx covers the vector field and the configured TAG fields.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/db"
	dbredis "github.com/kailas-cloud/pieces/internal/db/redis"
	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/vectorindex"
)

// Hash field names reserved for the record itself.
const (
	FieldDocument = "document"
	FieldVector   = "vector"
)

// Compile-time checks.
var (
	_ vectorindex.Index      = (*Index)(nil)
	_ vectorindex.Collection = (*Collection)(nil)
)

// Connector opens the underlying store. It is retried on every call until it succeeds once.
type Connector func(ctx context.Context) (db.Store, error)

// Config controls collection layout.
type Config struct {
	KeyPrefix       string   // default "pieces:"
	Dimensions      int      // embedding length, required
	TagFields       []string // metadata keys indexed as TAG SEPARATOR ","; default ["tags"]
	HNSWM           int
	HNSWEFConstruct int
}

// Index opens collections on a lazily connected store.
type Index struct {
	cfg     Config
	connect Connector
	logger  *zap.Logger

	mu    sync.Mutex
	store db.Store
}

// New creates an Index. No connection is made until the first collection is opened.
func New(connect Connector, cfg Config, logger *zap.Logger) (*Index, error) {
	if connect == nil {
		return nil, errors.New("connector is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("vector dimensions must be positive")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "pieces:"
	}
	if len(cfg.TagFields) == 0 {
		cfg.TagFields = []string{"tags"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{cfg: cfg, connect: connect, logger: logger}, nil
}

// NewWithStore creates an Index over an already connected store.
func NewWithStore(store db.Store, cfg Config, logger *zap.Logger) (*Index, error) {
	return New(func(context.Context) (db.Store, error) { return store, nil }, cfg, logger)
}

// Dial returns a Connector that creates a rueidis store and waits for it to answer PING.
func Dial(cfg dbredis.Config) Connector {
	return func(ctx context.Context) (db.Store, error) {
		store, err := dbredis.NewStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	}
}

func (ix *Index) acquire(ctx context.Context) (db.Store, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.store != nil {
		return ix.store, nil
	}
	store, err := ix.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	ix.store = store
	return store, nil
}

// Ping connects if needed and checks the server answers.
func (ix *Index) Ping(ctx context.Context) error {
	store, err := ix.acquire(ctx)
	if err != nil {
		return err
	}
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Close releases the connection, if one was made.
func (ix *Index) Close() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.store != nil {
		ix.store.Close()
		ix.store = nil
	}
}

// GetOrCreateCollection ensures the FT index for name exists and returns a handle to it.
func (ix *Index) GetOrCreateCollection(
	ctx context.Context, name string, metric vectorindex.Metric,
) (vectorindex.Collection, error) {
	if metric != vectorindex.MetricCosine {
		return nil, fmt.Errorf("unsupported metric %q", metric)
	}

	store, err := ix.acquire(ctx)
	if err != nil {
		return nil, err
	}

	c := &Collection{
		store:      store,
		name:       name,
		keyPrefix:  ix.cfg.KeyPrefix + name + ":",
		indexName:  ix.cfg.KeyPrefix + name + ":idx",
		dimensions: ix.cfg.Dimensions,
		tagFields:  ix.cfg.TagFields,
	}

	exists, err := store.IndexExists(ctx, c.indexName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	if exists {
		return c, nil
	}

	def := &db.IndexDefinition{
		Name:   c.indexName,
		Prefix: c.keyPrefix,
		Vector: db.VectorField{
			Name:           FieldVector,
			Dim:            ix.cfg.Dimensions,
			Distance:       db.DistanceCosine,
			M:              ix.cfg.HNSWM,
			EFConstruction: ix.cfg.HNSWEFConstruct,
		},
	}
	for _, f := range ix.cfg.TagFields {
		def.Tags = append(def.Tags, db.TagField{Name: f, Separator: ",", CaseSensitive: true})
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("index definition: %w", err)
	}

	if err := store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		if db.IsServerError(err) {
			// Typically "unknown command": the server has no search module.
			return nil, fmt.Errorf("create index %s: %w: %w", c.indexName, domain.ErrBackendUnavailable, err)
		}
		return nil, fmt.Errorf("create index %s: %w", c.indexName, err)
	}
	ix.logger.Info("vector index created",
		zap.String("index", c.indexName),
		zap.Int("dimensions", ix.cfg.Dimensions),
	)
	return c, nil
}

// Collection is a handle on one FT index and its hashes.
type Collection struct {
	store      db.Store
	name       string
	keyPrefix  string
	indexName  string
	dimensions int
	tagFields  []string
}

func (c *Collection) key(id string) string { return c.keyPrefix + id }

func (c *Collection) checkEmbedding(id string, v []float32) error {
	if len(v) != c.dimensions {
		return fmt.Errorf("%w: record %s has %d dimensions, collection %s expects %d",
			domain.ErrInvalidInput, id, len(v), c.name, c.dimensions)
	}
	return nil
}

func checkMetadataKey(k string) error {
	if k == FieldDocument || k == FieldVector {
		return fmt.Errorf("%w: metadata key %q is reserved", domain.ErrInvalidInput, k)
	}
	return nil
}

// Add writes full records in one pipeline.
func (c *Collection) Add(ctx context.Context, records []vectorindex.Record) error {
	items := make([]db.HashSetItem, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
		}
		if err := c.checkEmbedding(r.ID, r.Embedding); err != nil {
			return err
		}
		fields := map[string]string{FieldVector: dbredis.EncodeVector(r.Embedding)}
		if r.Document != nil {
			fields[FieldDocument] = *r.Document
		}
		for k, v := range r.Metadata {
			if err := checkMetadataKey(k); err != nil {
				return err
			}
			fields[k] = v
		}
		items = append(items, db.HashSetItem{Key: c.key(r.ID), Fields: fields})
	}
	if err := c.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("add to %s: %w: %w", c.name, domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Get reads records; hashes with no fields are treated as absent.
func (c *Collection) Get(ctx context.Context, ids []string) ([]vectorindex.Record, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	hashes, err := c.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get from %s: %w: %w", c.name, domain.ErrBackendUnavailable, err)
	}

	out := make([]vectorindex.Record, 0, len(ids))
	for i, h := range hashes {
		if len(h) == 0 {
			continue
		}
		out = append(out, recordFromFields(ids[i], h))
	}
	return out, nil
}

// Update writes only the parts set on each update, skipping ids that do not exist.
func (c *Collection) Update(ctx context.Context, updates []vectorindex.Update) error {
	if len(updates) == 0 {
		return nil
	}

	keys := make([]string, len(updates))
	for i, u := range updates {
		keys[i] = c.key(u.ID)
	}
	exists, err := c.store.ExistsMulti(ctx, keys)
	if err != nil {
		return fmt.Errorf("update %s: %w: %w", c.name, domain.ErrBackendUnavailable, err)
	}

	items := make([]db.HashSetItem, 0, len(updates))
	for i, u := range updates {
		if !exists[i] {
			continue
		}
		fields := make(map[string]string, len(u.Metadata)+2)
		if u.Document != nil {
			fields[FieldDocument] = *u.Document
		}
		if u.Embedding != nil {
			if err := c.checkEmbedding(u.ID, u.Embedding); err != nil {
				return err
			}
			fields[FieldVector] = dbredis.EncodeVector(u.Embedding)
		}
		for k, v := range u.Metadata {
			if err := checkMetadataKey(k); err != nil {
				return err
			}
			fields[k] = v
		}
		if len(fields) > 0 {
			items = append(items, db.HashSetItem{Key: keys[i], Fields: fields})
		}
	}
	if err := c.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("update %s: %w: %w", c.name, domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Delete removes the hashes; the FT index drops them automatically.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete from %s: %w: %w", c.name, domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Query runs KNN over the collection's index.
func (c *Collection) Query(ctx context.Context, req vectorindex.QueryRequest) ([]vectorindex.Match, error) {
	for _, leaf := range req.Where.Conjuncts() {
		if !slices.Contains(c.tagFields, leaf.Field()) {
			return nil, fmt.Errorf("%w: field %q is not indexed", domain.ErrUnsupportedFilter, leaf.Field())
		}
	}

	res, err := c.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    c.indexName,
		VectorField:  FieldVector,
		Where:        req.Where,
		Vector:       req.Embedding,
		K:            req.NResults,
		ReturnFields: append([]string{FieldDocument}, c.tagFields...),
	})
	if err != nil {
		if errors.Is(err, db.ErrUnsupportedFilter) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnsupportedFilter, err)
		}
		return nil, fmt.Errorf("query %s: %w: %w", c.name, domain.ErrBackendUnavailable, err)
	}

	out := make([]vectorindex.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := strings.TrimPrefix(e.Key, c.keyPrefix)
		out = append(out, vectorindex.Match{
			Record:   recordFromFields(id, e.Fields),
			Distance: e.Distance,
		})
	}
	return out, nil
}

func recordFromFields(id string, fields map[string]string) vectorindex.Record {
	r := vectorindex.Record{ID: id, Metadata: make(map[string]string, len(fields))}
	for k, v := range fields {
		switch k {
		case FieldDocument:
			doc := v
			r.Document = &doc
		case FieldVector:
			r.Embedding = dbredis.DecodeVector(v)
		default:
			r.Metadata[k] = v
		}
	}
	return r
}
