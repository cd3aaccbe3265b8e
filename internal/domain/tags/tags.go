// Package tags encodes a piece's labels into the single delimited string stored
// as index metadata, so a "has tag T" check becomes a substring check for ",T,".
package tags

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/pieces/internal/domain"
)

// Delimiter separates tags in the encoded form and also brackets it.
const Delimiter = ","

// Encode joins tags into ",a,b,c,". An empty list encodes to ",,".
func Encode(tags []string) string {
	return Delimiter + strings.Join(tags, Delimiter) + Delimiter
}

// Decode reverses Encode. Empty segments are dropped, so "" and ",," both decode to [].
func Decode(encoded string) []string {
	trimmed := strings.TrimPrefix(encoded, Delimiter)
	trimmed = strings.TrimSuffix(trimmed, Delimiter)

	out := []string{}
	for _, seg := range strings.Split(trimmed, Delimiter) {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Marker returns the substring that an encoded list contains iff it holds tag.
func Marker(tag string) string {
	return Delimiter + tag + Delimiter
}

// Validate rejects tags that could not survive an Encode/Decode round trip.
func Validate(tag string) error {
	if tag == "" {
		return fmt.Errorf("%w: tag must not be empty", domain.ErrInvalidInput)
	}
	if strings.Contains(tag, Delimiter) {
		return fmt.Errorf("%w: tag %q must not contain %q", domain.ErrInvalidInput, tag, Delimiter)
	}
	return nil
}

// Normalize drops duplicates keeping first occurrence order. Nil becomes an empty list.
func Normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
