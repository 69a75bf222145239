package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/recap-backend-go/internal/clustering"
	"github.com/jengzang/recap-backend-go/internal/database"
	"github.com/jengzang/recap-backend-go/internal/geocoding/redisstore"
	"github.com/jengzang/recap-backend-go/internal/share"
)

// DefaultShareSecret must be replaced outside local development
const DefaultShareSecret = "your-secret-key-change-in-production"

// Geocode store kinds
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds the application configuration
type Config struct {
	Env        string            `yaml:"env"`
	Port       string            `yaml:"port"`
	Database   database.Config   `yaml:"database"`
	Clustering clustering.Config `yaml:"clustering"`
	Geocoding  GeocodingConfig   `yaml:"geocoding"`
	Share      share.Config      `yaml:"share"`
	RateLimit  RateLimitConfig   `yaml:"rate_limit"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// GeocodingConfig holds the resolver, backend and cache settings
type GeocodingConfig struct {
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	Language    string        `yaml:"language"`
	Timeout     time.Duration `yaml:"timeout"`      // Per backend request
	MinInterval time.Duration `yaml:"min_interval"` // Between backend requests
	Zoom        int           `yaml:"zoom"`

	ResolverTimeout time.Duration `yaml:"resolver_timeout"` // One shared lookup
	Precision       int           `yaml:"precision"`
	CacheSize       int           `yaml:"cache_size"` // 0 = unbounded
	Concurrency     int           `yaml:"concurrency"`

	Store       string            `yaml:"store"`         // memory, sqlite, redis
	CacheMaxAge time.Duration     `yaml:"cache_max_age"` // sqlite entries older than this are purged at startup, 0 keeps all
	Redis       redisstore.Config `yaml:"redis"`
}

// RateLimitConfig holds per-client HTTP rate limits
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads .env, the optional YAML file at CONFIG_PATH and environment overrides
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// applyEnv lets environment variables override file values
func (c *Config) applyEnv() {
	if env := os.Getenv("ENV"); env != "" {
		c.Env = env
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		c.Database.Path = dbPath
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Share.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if url := os.Getenv("NOMINATIM_URL"); url != "" {
		c.Geocoding.BaseURL = url
	}
	if store := os.Getenv("GEOCODE_STORE"); store != "" {
		c.Geocoding.Store = store
	}
	if addrs := os.Getenv("REDIS_ADDRS"); addrs != "" {
		c.Geocoding.Redis.Addrs = strings.Split(addrs, ",")
	}
	if gap, err := time.ParseDuration(os.Getenv("MAX_TIME_GAP")); err == nil {
		c.Clustering.MaxTimeGapBetweenClusters = gap
	}
	if dist, err := strconv.ParseFloat(os.Getenv("MAX_DISTANCE_M"), 64); err == nil {
		c.Clustering.MaxDistanceWithinCluster = dist
	}
}

// ApplyDefaults fills empty fields with default values
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/recap.db"
	}
	c.Clustering.ApplyDefaults()
	if c.Geocoding.Concurrency <= 0 {
		c.Geocoding.Concurrency = 4
	}
	if c.Geocoding.Store == "" {
		c.Geocoding.Store = StoreSQLite
	}
	if c.Share.Secret == "" {
		c.Share.Secret = DefaultShareSecret
	}
	if c.Share.TTL <= 0 {
		c.Share.TTL = 7 * 24 * time.Hour
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	if err := c.Clustering.Validate(); err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	switch c.Geocoding.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if len(c.Geocoding.Redis.Addrs) == 0 {
			return fmt.Errorf("geocoding.redis.addrs is required for the redis store")
		}
	default:
		return fmt.Errorf("geocoding.store must be memory, sqlite or redis, got %q", c.Geocoding.Store)
	}
	if c.Geocoding.CacheSize < 0 {
		return fmt.Errorf("geocoding.cache_size must not be negative, got %d", c.Geocoding.CacheSize)
	}
	if c.Env == "prod" && c.Share.Secret == DefaultShareSecret {
		return fmt.Errorf("JWT_SECRET must be set in prod")
	}
	return nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
