package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the serialised form of a fetched catalog.
type Snapshot struct {
	Menu     []MenuItem `json:"menu"`
	Toppings []Topping  `json:"toppings"`
}

// Store shares fetched catalogs between sessions. Get returns (nil, nil) on
// a miss.
type Store interface {
	Get(ctx context.Context) (*Snapshot, error)
	Put(ctx context.Context, snap Snapshot) error
}

const redisKey = "catalog:snapshot"

// RedisStore keeps one catalog snapshot under a fixed key with a TTL.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{Client: client, TTL: ttl}
}

func (s *RedisStore) Get(ctx context.Context) (*Snapshot, error) {
	raw, err := s.Client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *RedisStore) Put(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisKey, payload, s.TTL).Err()
}
