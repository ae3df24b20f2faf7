package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"liveboard/backend/services/liveboard-ingest/internal/service"
)

// ErrNoRun is returned when no run summary is cached.
var ErrNoRun = errors.New("no run recorded")

// KV is the go-redis subset used by the store.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RunStore caches the last ingest run per station.
type RunStore struct {
	client KV
	ttl    time.Duration
}

// NewRunStore returns redis-backed store.
func NewRunStore(client KV, ttl time.Duration) *RunStore {
	return &RunStore{client: client, ttl: ttl}
}

func (s *RunStore) key(station string) string {
	return fmt.Sprintf("liveboard:runs:last:%s", station)
}

// SaveLastRun overwrites the station's cached summary.
func (s *RunStore) SaveLastRun(ctx context.Context, result service.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(result.Station), data, s.ttl).Err()
}

// LastRun returns the cached summary or ErrNoRun.
func (s *RunStore) LastRun(ctx context.Context, station string) (*service.Result, error) {
	raw, err := s.client.Get(ctx, s.key(station)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, err
	}
	var result service.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
