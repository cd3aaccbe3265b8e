package embcache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockBackend{tokens: 7}
	cb, ms := newTestCachedBackend(t, inner)
	ctx := context.Background()

	first, err := cb.Embed(ctx, "m", []string{"abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Embeddings[0][0] != 3 || first.TotalTokens != 7 {
		t.Fatalf("unexpected result: %+v", first)
	}
	if len(ms.data) != 1 {
		t.Fatalf("expected 1 cached entry, got %d", len(ms.data))
	}

	second, err := cb.Embed(ctx, "m", []string{"abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Fatalf("inner calls = %d, want 1", len(inner.calls))
	}
	if second.Embeddings[0][0] != 3 {
		t.Errorf("cached vector = %v", second.Embeddings[0])
	}
	if second.TotalTokens != 0 {
		t.Errorf("expected TotalTokens=0 on full hit, got %d", second.TotalTokens)
	}
}

func TestEmbed_PartialHitSendsOnlyMisses(t *testing.T) {
	inner := &mockBackend{}
	cb, _ := newTestCachedBackend(t, inner)
	ctx := context.Background()

	if _, err := cb.Embed(ctx, "m", []string{"bb"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := cb.Embed(ctx, "m", []string{"a", "bb", "cccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := inner.calls[len(inner.calls)-1]
	if len(last) != 2 || last[0] != "a" || last[1] != "cccc" {
		t.Errorf("inner received %v, want [a cccc]", last)
	}
	want := []float32{1, 2, 4}
	for i, w := range want {
		if res.Embeddings[i][0] != w {
			t.Errorf("vector %d = %v, want first component %v", i, res.Embeddings[i], w)
		}
	}
}

func TestEmbed_KeyIncludesModel(t *testing.T) {
	inner := &mockBackend{}
	cb, _ := newTestCachedBackend(t, inner)
	ctx := context.Background()

	_, _ = cb.Embed(ctx, "model-a", []string{"x"})
	_, _ = cb.Embed(ctx, "model-b", []string{"x"})
	if len(inner.calls) != 2 {
		t.Errorf("inner calls = %d, want 2 (different models must not share entries)", len(inner.calls))
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockBackend{err: errors.New("provider down")}
	cb, ms := newTestCachedBackend(t, inner)

	_, err := cb.Embed(context.Background(), "m", []string{"x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, inner.err) {
		t.Errorf("cause lost: %v", err)
	}
	if len(ms.data) != 0 {
		t.Error("nothing should be cached on error")
	}
}

func TestEmbed_StoreFailuresDegradeToMiss(t *testing.T) {
	inner := &mockBackend{}
	cb, ms := newTestCachedBackend(t, inner)
	ms.getErr = errors.New("READONLY")
	ms.setErr = errors.New("READONLY")

	res, err := cb.Embed(context.Background(), "m", []string{"abc"})
	if err != nil {
		t.Fatalf("cache failures must not fail embedding: %v", err)
	}
	if res.Embeddings[0][0] != 3 {
		t.Errorf("unexpected vector: %v", res.Embeddings[0])
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockBackend{}
	cb, ms := newTestCachedBackend(t, inner)
	ms.data[cb.cacheKey("m", "abc")] = []byte{1, 2, 3}

	if _, err := cb.Embed(context.Background(), "m", []string{"abc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Errorf("corrupt entry should fall through to inner backend")
	}
}

func TestEmbed_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ms := newMockKVStore()
	cb := New(&mockBackend{}, ms, Options{CacheTotal: counter})

	_, _ = cb.Embed(context.Background(), "m", []string{"a"})
	_, _ = cb.Embed(context.Background(), "m", []string{"a"})

	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("miss = %v, want 1", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("hit = %v, want 1", v)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	v := []float32{0.5, -1, 3}
	got, err := bytesToVector(vectorToCacheBytes(v))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], v[i])
		}
	}
}
