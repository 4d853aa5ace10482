package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mandelbrot-ai/neural-engine/internal/registry"
)

const (
	docKeyPrefix = "document:"
	indexKey     = "documents"
)

// Store keeps the registry in Redis so multiple engine processes can share
// one document set. Entries are JSON values; the identifier list lives in a
// sorted set scored by insertion sequence so List preserves upload order.
type Store struct {
	client *redis.Client
	seqKey string
}

func NewStore(addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s): %w", addr, err)
	}
	return &Store{client: rdb, seqKey: "documents:seq"}, nil
}

func (s *Store) Upsert(ctx context.Context, doc registry.StoredDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	exists, err := s.client.Exists(ctx, docKeyPrefix+doc.Identifier).Result()
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, docKeyPrefix+doc.Identifier, data, 0).Err(); err != nil {
		return err
	}
	if exists == 1 {
		// Re-upload keeps the original insertion position.
		return nil
	}
	seq, err := s.client.Incr(ctx, s.seqKey).Result()
	if err != nil {
		return err
	}
	return s.client.ZAdd(ctx, indexKey, redis.Z{Score: float64(seq), Member: doc.Identifier}).Err()
}

func (s *Store) Get(ctx context.Context, identifier string) (registry.StoredDocument, bool, error) {
	val, err := s.client.Get(ctx, docKeyPrefix+identifier).Result()
	if err == redis.Nil {
		return registry.StoredDocument{}, false, nil
	}
	if err != nil {
		return registry.StoredDocument{}, false, err
	}
	var doc registry.StoredDocument
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return registry.StoredDocument{}, false, err
	}
	return doc, true, nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.client.ZRange(ctx, indexKey, 0, -1).Result()
}
