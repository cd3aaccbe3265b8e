package tags

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kailas-cloud/pieces/internal/domain"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"empty", []string{}, ",,"},
		{"nil", nil, ",,"},
		{"single", []string{"go"}, ",go,"},
		{"many", []string{"a", "b", "c"}, ",a,b,c,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.in); got != tt.want {
				t.Errorf("Encode(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty string", "", []string{}},
		{"empty list", ",,", []string{}},
		{"single", ",go,", []string{"go"}},
		{"many", ",a,b,c,", []string{"a", "b", "c"}},
		{"empty segments dropped", ",a,,b,", []string{"a", "b"}},
		{"no delimiters", "solo", []string{"solo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.in)
			if got == nil {
				t.Fatal("Decode returned nil, want non-nil slice")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, in := range [][]string{{}, {"x"}, {"lang", "typed", "web"}} {
		if got := Decode(Encode(in)); !reflect.DeepEqual(got, in) {
			t.Errorf("round trip %v -> %v", in, got)
		}
	}
}

func TestMarker_NoPartialMatch(t *testing.T) {
	encoded := Encode([]string{"golang", "rust"})
	if strings.Contains(encoded, Marker("go")) {
		t.Errorf("%q should not contain marker for %q", encoded, "go")
	}
	if !strings.Contains(encoded, Marker("golang")) {
		t.Errorf("%q should contain marker for %q", encoded, "golang")
	}
	if !strings.Contains(encoded, Marker("rust")) {
		t.Errorf("%q should contain marker for %q", encoded, "rust")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("ok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "a,b"} {
		err := Validate(bad)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{"b", "a", "b", "c", "a"})
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
	if got := Normalize(nil); got == nil || len(got) != 0 {
		t.Errorf("Normalize(nil) = %#v, want empty slice", got)
	}
}
