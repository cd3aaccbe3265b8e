package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pieces/internal/db"
)

// pipelined sends one command per key in a single DoMulti round-trip and decodes
// the replies in key order. The first failing reply aborts with a db.Error.
func pipelined[T any](
	ctx context.Context,
	s *Store,
	op string,
	keys []string,
	build func(i int) rueidis.Completed,
	decode func(rueidis.RedisResult) (T, error),
) ([]T, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i := range keys {
		cmds[i] = build(i)
	}

	out := make([]T, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		v, err := decode(res)
		if err != nil {
			return nil, &db.Error{Op: op, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = v
	}
	return out, nil
}

// HSetMulti writes every item in one round-trip. Fields not named in an item are left as they are.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}

	_, err := pipelined(ctx, s, db.OpHSet, keys,
		func(i int) rueidis.Completed {
			cmd := s.b().Hset().Key(items[i].Key).FieldValue()
			for f, v := range items[i].Fields {
				cmd = cmd.FieldValue(f, v)
			}
			return cmd.Build()
		},
		func(r rueidis.RedisResult) (struct{}, error) { return struct{}{}, r.Error() },
	)
	return err
}

// HGetAllMulti returns the fields of each hash; an absent key yields an empty map.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	return pipelined(ctx, s, db.OpHGetAll, keys,
		func(i int) rueidis.Completed { return s.b().Hgetall().Key(keys[i]).Build() },
		func(r rueidis.RedisResult) (map[string]string, error) { return r.AsStrMap() },
	)
}

// ExistsMulti reports per key whether it exists.
func (s *Store) ExistsMulti(ctx context.Context, keys []string) ([]bool, error) {
	return pipelined(ctx, s, db.OpExists, keys,
		func(i int) rueidis.Completed { return s.b().Exists().Key(keys[i]).Build() },
		func(r rueidis.RedisResult) (bool, error) {
			n, err := r.AsInt64()
			return n > 0, err
		},
	)
}

// Del removes keys in a single DEL. Missing keys are not an error.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.do(ctx, s.b().Del().Key(keys...).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}
