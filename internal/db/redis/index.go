package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/pieces/internal/db"
)

// CreateIndex runs FT.CREATE for def. An index that is already there maps to db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists asks FT.INFO. Redis replies "Unknown index name" and Valkey
// "Index ... not found" for a missing index; both mean false.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	err := s.do(ctx, cmd).Error()
	switch {
	case err == nil:
		return true, nil
	case isRedisErr(err, "unknown index name"), isRedisErr(err, "not found"):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
}

// createArgs renders everything after FT.CREATE.
func createArgs(def *db.IndexDefinition) ([]string, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	args := []string{def.Name, "ON", "HASH"}
	if def.Prefix != "" {
		args = append(args, "PREFIX", "1", def.Prefix)
	}
	args = append(args, "SCHEMA")
	for _, t := range def.Tags {
		args = append(args, tagArgs(t)...)
	}
	return append(args, vectorArgs(def.Vector)...), nil
}

func tagArgs(t db.TagField) []string {
	args := []string{t.Name, "TAG"}
	if t.Separator != "" {
		args = append(args, "SEPARATOR", t.Separator)
	}
	if t.CaseSensitive {
		args = append(args, "CASESENSITIVE")
	}
	return args
}

func vectorArgs(v db.VectorField) []string {
	distance := v.Distance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	if v.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(v.M))
	}
	if v.EFConstruction > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruction))
	}

	// The attribute count precedes the attributes themselves.
	return append([]string{v.Name, "VECTOR", "HNSW", strconv.Itoa(len(attrs))}, attrs...)
}
