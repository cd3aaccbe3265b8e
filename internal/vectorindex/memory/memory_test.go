package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/domain/filter"
	"github.com/kailas-cloud/pieces/internal/vectorindex"
)

func strPtr(s string) *string { return &s }

func newCollection(t *testing.T) vectorindex.Collection {
	t.Helper()
	c, err := New().GetOrCreateCollection(context.Background(), "pieces", vectorindex.MetricCosine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestGetOrCreateCollection_SameInstance(t *testing.T) {
	ix := New()
	ctx := context.Background()
	a, _ := ix.GetOrCreateCollection(ctx, "x", vectorindex.MetricCosine)
	b, _ := ix.GetOrCreateCollection(ctx, "x", vectorindex.MetricCosine)
	if a != b {
		t.Error("expected the same collection for the same name")
	}
	if _, err := ix.GetOrCreateCollection(ctx, "y", "l2"); err == nil {
		t.Error("expected error for unsupported metric")
	}
}

func TestAddGetDelete(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()

	err := c.Add(ctx, []vectorindex.Record{{
		ID: "1", Document: strPtr("hello"), Embedding: []float32{1, 0}, Metadata: map[string]string{"tags": ",a,"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := c.Get(ctx, []string{"missing", "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || *got[0].Document != "hello" || got[0].Metadata["tags"] != ",a," {
		t.Fatalf("unexpected records: %+v", got)
	}

	if err := c.Delete(ctx, []string{"1", "never-existed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = c.Get(ctx, []string{"1"})
	if len(got) != 0 {
		t.Errorf("expected record gone, got %+v", got)
	}
}

func TestUpdate_Partial(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()

	_ = c.Add(ctx, []vectorindex.Record{{
		ID: "1", Document: strPtr("old"), Embedding: []float32{1, 0}, Metadata: map[string]string{"tags": ",a,"},
	}})

	err := c.Update(ctx, []vectorindex.Update{
		{ID: "1", Metadata: map[string]string{"tags": ",b,"}},
		{ID: "absent", Document: strPtr("ignored")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := c.Get(ctx, []string{"1"})
	if *got[0].Document != "old" {
		t.Errorf("document changed: %q", *got[0].Document)
	}
	if got[0].Metadata["tags"] != ",b," {
		t.Errorf("tags = %q, want ,b,", got[0].Metadata["tags"])
	}
	if got[0].Embedding[0] != 1 {
		t.Errorf("embedding changed: %v", got[0].Embedding)
	}
	if got, _ := c.Get(ctx, []string{"absent"}); len(got) != 0 {
		t.Error("update must not create records")
	}
}

func TestQuery_OrderAndFilter(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()

	_ = c.Add(ctx, []vectorindex.Record{
		{ID: "far", Document: strPtr("far"), Embedding: []float32{0, 1}, Metadata: map[string]string{"tags": ",a,b,"}},
		{ID: "near", Document: strPtr("near"), Embedding: []float32{1, 0.1}, Metadata: map[string]string{"tags": ",a,"}},
		{ID: "mid", Document: strPtr("mid"), Embedding: []float32{1, 1}, Metadata: map[string]string{"tags": ",b,"}},
	})

	matches, err := c.Query(ctx, vectorindex.QueryRequest{Embedding: []float32{1, 0}, NResults: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 3 || matches[0].ID != "near" || matches[1].ID != "mid" || matches[2].ID != "far" {
		t.Fatalf("unexpected order: %+v", matches)
	}
	for i := 1; i < len(matches); i++ {
		if *matches[i].Distance < *matches[i-1].Distance {
			t.Errorf("distances not ascending at %d", i)
		}
	}

	both, err := filter.ForTags("tags", []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matches, _ = c.Query(ctx, vectorindex.QueryRequest{Embedding: []float32{1, 0}, NResults: 10, Where: both})
	if len(matches) != 1 || matches[0].ID != "far" {
		t.Fatalf("conjunction filter: %+v", matches)
	}

	matches, _ = c.Query(ctx, vectorindex.QueryRequest{Embedding: []float32{1, 0}, NResults: 1})
	if len(matches) != 1 {
		t.Errorf("NResults not honoured: %d", len(matches))
	}
}

func TestQuery_Validation(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()
	if _, err := c.Query(ctx, vectorindex.QueryRequest{Embedding: []float32{1}}); err == nil {
		t.Error("expected error for zero NResults")
	}

	_ = c.Add(ctx, []vectorindex.Record{{ID: "1", Embedding: []float32{1, 0}}})
	if _, err := c.Query(ctx, vectorindex.QueryRequest{Embedding: []float32{1}, NResults: 1}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for query dimension mismatch, got %v", err)
	}
}

func TestDimensionFixedByFirstWrite(t *testing.T) {
	c := newCollection(t)
	ctx := context.Background()

	if err := c.Add(ctx, []vectorindex.Record{{ID: "a", Embedding: []float32{1, 0}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := c.Add(ctx, []vectorindex.Record{
		{ID: "b", Embedding: []float32{0, 1}},
		{ID: "c", Embedding: []float32{1, 0, 0}},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for 3-dim add, got %v", err)
	}
	if got, _ := c.Get(ctx, []string{"b"}); len(got) != 0 {
		t.Error("rejected batch was partly stored")
	}

	err = c.Update(ctx, []vectorindex.Update{{ID: "a", Embedding: []float32{1, 2, 3}}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for 3-dim update, got %v", err)
	}
	if err := c.Add(ctx, []vectorindex.Record{{ID: "d"}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing embedding, got %v", err)
	}

	res, err := c.Query(ctx, vectorindex.QueryRequest{Embedding: []float32{1, 0}, NResults: 5})
	if err != nil {
		t.Fatalf("query after rejected writes: %v", err)
	}
	if len(res) != 1 || res[0].ID != "a" {
		t.Errorf("unexpected matches: %+v", res)
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 0},
		{[]float32{1, 0}, []float32{0, 1}, 1},
		{[]float32{1, 0}, []float32{-1, 0}, 2},
		{[]float32{0, 0}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		if got := CosineDistance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("CosineDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
