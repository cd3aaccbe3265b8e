package pieces

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unicode"
)

var vocabulary = []string{
	"cats", "purr", "sleep", "dogs", "bark", "loudly", "stocks", "fell", "sharply", "why", "do",
	"typescript", "typed", "superset", "javascript", "languages",
}

// wordBackend embeds a text as counts over a fixed vocabulary.
type wordBackend struct {
	index map[string]int
	calls atomic.Int32
}

func newWordBackend() *wordBackend {
	b := &wordBackend{index: make(map[string]int, len(vocabulary))}
	for i, w := range vocabulary {
		b.index[w] = i
	}
	return b
}

func (b *wordBackend) Embed(_ context.Context, _ string, input []string) (EmbeddingResult, error) {
	b.calls.Add(1)
	out := make([][]float32, len(input))
	for i, text := range input {
		v := make([]float32, len(vocabulary))
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
		for _, w := range words {
			if j, ok := b.index[w]; ok {
				v[j]++
			}
		}
		out[i] = v
	}
	return EmbeddingResult{Embeddings: out, TotalTokens: len(input)}, nil
}

// scriptedGenerator answers with a fixed text and records what it was sent.
type scriptedGenerator struct {
	mu       sync.Mutex
	calls    int
	messages []Message
}

func (g *scriptedGenerator) Chat(_ context.Context, _ string, messages []Message) (ChatResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.messages = messages
	return ChatResponse{Content: "Dogs bark to communicate."}, nil
}

func newMemoryClient(t *testing.T) (*Client, *wordBackend, *scriptedGenerator) {
	t.Helper()
	backend := newWordBackend()
	gen := &scriptedGenerator{}
	c, err := New(WithMemoryIndex(), WithEmbeddingBackend(backend), WithGenerator(gen))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, backend, gen
}

func TestClient_Scenario(t *testing.T) {
	ctx := context.Background()
	c, backend, gen := newMemoryClient(t)

	if _, err := c.AddPiece(ctx, "cats purr", nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("AddPiece before Init: err = %v, want ErrNotInitialized", err)
	}
	if err := c.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !c.Ready() {
		t.Fatal("client not ready after Init")
	}

	added, err := c.AddPieces(ctx, []NewPiece{
		{Content: "Cats purr and sleep.", Tags: []string{"animals", "cats"}},
		{Content: "Dogs bark loudly.", Tags: []string{"animals", "dogs"}},
		{Content: "Stocks fell sharply.", Tags: []string{"finance"}},
	})
	if err != nil {
		t.Fatalf("AddPieces: %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("added %d pieces, want 3", len(added))
	}
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("batch add made %d embedding calls, want 1", got)
	}
	cats, dogs := added[0], added[1]

	results, err := c.QueryPieces(ctx, "sleeping cats sleep", QueryOptions{TopK: 1})
	if err != nil {
		t.Fatalf("QueryPieces: %v", err)
	}
	if len(results) != 1 || results[0].Piece.ID != cats.ID {
		t.Fatalf("nearest piece = %+v, want %s", results, cats.ID)
	}
	if results[0].Score <= 0 || results[0].Score > 1 {
		t.Errorf("score = %f, want in (0, 1]", results[0].Score)
	}

	filtered, err := c.QueryPieces(ctx, "cats", QueryOptions{Tags: []string{"animals", "dogs"}})
	if err != nil {
		t.Fatalf("QueryPieces with tags: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Piece.ID != dogs.ID {
		t.Fatalf("tag filter returned %+v, want only %s", filtered, dogs.ID)
	}

	empty, err := c.RagQuery(ctx, "why do dogs bark", QueryOptions{Tags: []string{"astronomy"}})
	if err != nil {
		t.Fatalf("RagQuery without context: %v", err)
	}
	if empty.Answer != NoContextAnswer || len(empty.Sources) != 0 {
		t.Errorf("no-context result = %+v", empty)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times without context", gen.calls)
	}

	answer, err := c.RagQuery(ctx, "why do dogs bark", QueryOptions{Tags: []string{"animals"}})
	if err != nil {
		t.Fatalf("RagQuery: %v", err)
	}
	if answer.Answer != "Dogs bark to communicate." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Sources) != 2 || answer.Sources[0].Piece.ID != dogs.ID {
		t.Errorf("sources = %+v, want dogs piece first of 2", answer.Sources)
	}
	if gen.calls != 1 || !strings.Contains(gen.messages[len(gen.messages)-1].Content, "Dogs bark loudly.") {
		t.Errorf("generator prompt did not carry the retrieved piece: %+v", gen.messages)
	}

	before := backend.calls.Load()
	updated, err := c.UpdatePiece(ctx, dogs.ID, PieceUpdate{Tags: []string{"pets"}})
	if err != nil {
		t.Fatalf("UpdatePiece: %v", err)
	}
	if backend.calls.Load() != before {
		t.Error("tags-only update called the embedding model")
	}
	if updated.Content != dogs.Content || len(updated.Tags) != 1 || updated.Tags[0] != "pets" {
		t.Errorf("updated = %+v", updated)
	}

	if err := c.DeletePiece(ctx, dogs.ID); err != nil {
		t.Fatalf("DeletePiece: %v", err)
	}
	if err := c.DeletePiece(ctx, dogs.ID); err != nil {
		t.Fatalf("second DeletePiece: %v", err)
	}
	if _, err := c.GetPiece(ctx, dogs.ID); !errors.Is(err, ErrPieceNotFound) {
		t.Errorf("GetPiece after delete: err = %v, want ErrPieceNotFound", err)
	}
	if _, err := c.UpdatePiece(ctx, dogs.ID, PieceUpdate{Tags: []string{}}); !errors.Is(err, ErrPieceNotFound) {
		t.Errorf("UpdatePiece after delete: err = %v, want ErrPieceNotFound", err)
	}

	got, err := c.GetPiece(ctx, cats.ID)
	if err != nil {
		t.Fatalf("GetPiece: %v", err)
	}
	if got.Content != "Cats purr and sleep." || len(got.Tags) != 2 {
		t.Errorf("GetPiece = %+v", got)
	}
}

func TestClient_QueryByMeaning(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newMemoryClient(t)
	if err := c.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ts, err := c.AddPiece(ctx, "TypeScript is a typed superset of JavaScript.", []string{"typescript", "programming"})
	if err != nil {
		t.Fatalf("AddPiece: %v", err)
	}
	if _, err := c.AddPiece(ctx, "Dogs bark loudly.", []string{"animals"}); err != nil {
		t.Fatalf("AddPiece: %v", err)
	}

	results, err := c.QueryPieces(ctx, "typed languages", QueryOptions{})
	if err != nil {
		t.Fatalf("QueryPieces: %v", err)
	}
	if len(results) == 0 || results[0].Piece.ID != ts.ID {
		t.Fatalf("results = %+v, want %s first", results, ts.ID)
	}
	top := results[0]
	if top.Score <= 0 {
		t.Errorf("score = %f, want > 0", top.Score)
	}
	if top.Piece.Content != "TypeScript is a typed superset of JavaScript." {
		t.Errorf("content = %q", top.Piece.Content)
	}
	if len(top.Piece.Tags) != 2 || top.Piece.Tags[0] != "typescript" || top.Piece.Tags[1] != "programming" {
		t.Errorf("tags = %v", top.Piece.Tags)
	}
}

func TestClient_AddPieceValidation(t *testing.T) {
	ctx := context.Background()
	c, backend, _ := newMemoryClient(t)
	if err := c.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := c.AddPiece(ctx, "   ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank content: err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.AddPiece(ctx, "cats", []string{"a,b"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("tag with separator: err = %v, want ErrInvalidInput", err)
	}
	if backend.calls.Load() != 0 {
		t.Error("invalid input reached the embedding model")
	}
}

func TestClient_Health(t *testing.T) {
	c, _, _ := newMemoryClient(t)

	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("status = %q, want ok (checks %v)", h.Status, h.Checks)
	}
	if h.Checks["store"] != "ok" {
		t.Errorf("store check = %q", h.Checks["store"])
	}
	if !c.Ready() {
		t.Error("health check should initialize the store")
	}
}
