// Package filter is the metadata predicate language passed to the vector index:
// no filter, a single "field contains substring" check, or a conjunction of them.
package filter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/pieces/internal/domain/tags"
)

// MaxClauses is the maximum number of clauses in a conjunction.
const MaxClauses = 32

// Kind discriminates the Filter variants.
type Kind int

const (
	// KindNone matches everything.
	KindNone Kind = iota
	// KindContains checks that a metadata field contains a literal substring.
	KindContains
	// KindAnd requires every clause to match.
	KindAnd
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindContains:
		return "contains"
	case KindAnd:
		return "and"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Filter is an immutable predicate over metadata fields.
type Filter struct {
	kind      Kind
	field     string
	substring string
	clauses   []Filter
}

// None returns the filter that matches everything.
func None() Filter { return Filter{} }

// Contains creates a "field contains substring" predicate.
func Contains(field, substring string) (Filter, error) {
	if field == "" {
		return Filter{}, fmt.Errorf("filter field is required")
	}
	if substring == "" {
		return Filter{}, fmt.Errorf("substring is required for field %q", field)
	}
	return Filter{kind: KindContains, field: field, substring: substring}, nil
}

// And creates a conjunction. None clauses are dropped; a single remaining clause is returned as is.
func And(clauses ...Filter) (Filter, error) {
	kept := make([]Filter, 0, len(clauses))
	for _, c := range clauses {
		if c.kind != KindNone {
			kept = append(kept, c)
		}
	}
	if len(kept) > MaxClauses {
		return Filter{}, fmt.Errorf("too many clauses (max %d)", MaxClauses)
	}
	switch len(kept) {
	case 0:
		return None(), nil
	case 1:
		return kept[0], nil
	}
	return Filter{kind: KindAnd, clauses: kept}, nil
}

// ForTags builds the filter requiring every tag to be present in the encoded tag field.
// Empty tags are skipped. More than MaxClauses distinct tags is an error.
func ForTags(field string, tagList []string) (Filter, error) {
	clauses := make([]Filter, 0, len(tagList))
	for _, t := range tagList {
		if t == "" {
			continue
		}
		c, err := Contains(field, tags.Marker(t))
		if err != nil {
			return Filter{}, err
		}
		clauses = append(clauses, c)
	}
	return And(clauses...)
}

// Kind returns the variant.
func (f Filter) Kind() Kind { return f.kind }

// Field returns the field checked by a Contains filter.
func (f Filter) Field() string { return f.field }

// Substring returns the literal checked by a Contains filter.
func (f Filter) Substring() string { return f.substring }

// Clauses returns the operands of an And filter.
func (f Filter) Clauses() []Filter { return f.clauses }

// Conjuncts flattens nested conjunctions into their Contains leaves.
func (f Filter) Conjuncts() []Filter {
	switch f.kind {
	case KindContains:
		return []Filter{f}
	case KindAnd:
		var out []Filter
		for _, c := range f.clauses {
			out = append(out, c.Conjuncts()...)
		}
		return out
	default:
		return nil
	}
}

// Match evaluates the filter against metadata. A missing field never contains anything.
func (f Filter) Match(metadata map[string]string) bool {
	switch f.kind {
	case KindContains:
		v, ok := metadata[f.field]
		return ok && strings.Contains(v, f.substring)
	case KindAnd:
		for _, c := range f.clauses {
			if !c.Match(metadata) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the filter in the index's where-clause notation.
func (f Filter) String() string {
	switch f.kind {
	case KindContains:
		return fmt.Sprintf("{%q: {\"$contains\": %q}}", f.field, f.substring)
	case KindAnd:
		parts := make([]string, len(f.clauses))
		for i, c := range f.clauses {
			parts[i] = c.String()
		}
		return "{\"$and\": [" + strings.Join(parts, ", ") + "]}"
	default:
		return "{}"
	}
}
