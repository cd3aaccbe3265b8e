package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/domain/tags"
)

type sample struct {
	Content string   `json:"content" validate:"notblank"`
	Tags    []string `json:"tags" validate:"max=3,dive,piecetag"`
	TopK    int      `json:"top_k" validate:"gte=0,lte=100"`
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(sample{Content: "x", Tags: []string{"a", "b"}, TopK: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Struct(sample{Content: "x"}); err != nil {
		t.Fatalf("nil tags should be valid: %v", err)
	}
}

func TestStruct_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		in    sample
		field string
	}{
		{"blank content", sample{Content: "   "}, "content"},
		{"empty tag", sample{Content: "x", Tags: []string{""}}, "tags[0]"},
		{"comma tag", sample{Content: "x", Tags: []string{"ok", "a,b"}}, "tags[1]"},
		{"too many tags", sample{Content: "x", Tags: []string{"a", "b", "c", "d"}}, "tags"},
		{"negative top_k", sample{Content: "x", TopK: -1}, "top_k"},
		{"top_k too large", sample{Content: "x", TopK: 101}, "top_k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			var ve *Error
			if !errors.As(err, &ve) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if _, ok := ve.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want key %q", ve.Fields, tt.field)
			}
		})
	}
}

func TestError_MessageIsStable(t *testing.T) {
	err := Struct(sample{Content: "", TopK: 200})
	msg := err.Error()
	if !strings.HasPrefix(msg, "validation failed: ") {
		t.Fatalf("msg = %q", msg)
	}
	if strings.Index(msg, "content") > strings.Index(msg, "top_k") {
		t.Errorf("fields not sorted: %q", msg)
	}
}

func TestPieceTag_MatchesTagRules(t *testing.T) {
	for _, tag := range []string{"go", "c++", "a b", "", ",", "a,b", ",lead"} {
		type one struct {
			Tag string `json:"tag" validate:"piecetag"`
		}
		got := Struct(one{Tag: tag}) == nil
		want := tags.Validate(tag) == nil
		if got != want {
			t.Errorf("tag %q: validator accepts=%v, tags.Validate accepts=%v", tag, got, want)
		}
	}
}
