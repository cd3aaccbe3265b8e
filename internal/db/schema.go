package db

import (
	"errors"
	"fmt"
)

// DistanceMetric is the DISTANCE_METRIC of a vector attribute.
type DistanceMetric string

const (
	DistanceCosine DistanceMetric = "COSINE"
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
)

// TagField is a TAG attribute. An empty Separator keeps the server default (",").
type TagField struct {
	Name          string
	Separator     string
	CaseSensitive bool
}

// VectorField is a FLOAT32 HNSW vector attribute.
// Zero M or EFConstruction leaves the server default in place.
type VectorField struct {
	Name           string
	Dim            int
	Distance       DistanceMetric
	M              int
	EFConstruction int
}

// IndexDefinition describes an FT index over the hashes under one key prefix:
// any number of tag attributes plus exactly one vector attribute.
type IndexDefinition struct {
	Name   string
	Prefix string
	Tags   []TagField
	Vector VectorField
}

// Validate checks names and dimensions before anything is sent to the server.
func (d *IndexDefinition) Validate() error {
	if !IsValidIdentifier(d.Name) {
		return fmt.Errorf("invalid index name %q", d.Name)
	}
	if d.Vector.Name == "" {
		return errors.New("vector field name is required")
	}
	if d.Vector.Dim <= 0 {
		return fmt.Errorf("vector field %s: DIM must be positive, got %d", d.Vector.Name, d.Vector.Dim)
	}

	seen := map[string]bool{d.Vector.Name: true}
	for _, t := range d.Tags {
		if t.Name == "" {
			return errors.New("tag field name is required")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate field name %s", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// IsValidIdentifier reports whether s is non-empty and made of [a-zA-Z0-9_:-].
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
