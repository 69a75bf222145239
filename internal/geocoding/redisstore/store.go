package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/jengzang/recap-backend-go/internal/geocoding"
	"github.com/jengzang/recap-backend-go/internal/models"
)

// Compile-time check: Store implements geocoding.Store.
var _ geocoding.Store = (*Store)(nil)

// DefaultKeyPrefix namespaces geocode entries
const DefaultKeyPrefix = "recap:geocode:"

// Config holds connection parameters for a Redis/Valkey store.
type Config struct {
	Addrs     []string      `yaml:"addrs"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"` // 0 keeps entries until evicted by the server
}

// Store keeps geocode results in Redis so several processes share one cache.
type Store struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, cfg), nil
}

func newStore(client rueidis.Client, cfg Config) *Store {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: cfg.TTL}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// Get returns the cached result for key.
func (s *Store) Get(ctx context.Context, key string) (models.GeocodeResult, bool, error) {
	cmd := s.client.B().Get().Key(s.prefix + key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return models.GeocodeResult{}, false, nil
		}
		return models.GeocodeResult{}, false, fmt.Errorf("GET %s: %w", key, err)
	}

	var res models.GeocodeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return models.GeocodeResult{}, false, fmt.Errorf("failed to decode cached geocode %s: %w", key, err)
	}
	return res, true, nil
}

// Set stores result under key, with the configured TTL if any.
func (s *Store) Set(ctx context.Context, key string, result models.GeocodeResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode geocode %s: %w", key, err)
	}

	var cmd rueidis.Completed
	if s.ttl > 0 {
		cmd = s.client.B().Set().Key(s.prefix + key).Value(string(data)).Ex(s.ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(s.prefix + key).Value(string(data)).Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("SET %s: %w", key, err)
	}
	return nil
}
