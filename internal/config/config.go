package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL connection settings for the system of
// record behind the cache.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for cache snapshots.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CacheConfig controls the in-memory store layout and eviction.
type CacheConfig struct {
	Shards          int
	ShardCapacity   int
	Policy          string // lru, lfu, or fifo
	DefaultTTLSec   int    // 0 = no expiry
	HotKeyThreshold int
	HotKeyDecaySec  int
	WriteStrategy   string // cache_aside, write_through, write_behind
}

// WriteBehindConfig tunes the asynchronous database flusher.
type WriteBehindConfig struct {
	QueueSize       int
	BatchSize       int
	FlushIntervalMs int
}

// SnowflakeConfig identifies this node for ID generation.
type SnowflakeConfig struct {
	NodeID  int64
	EpochMs int64 // 0 = package default epoch
}

// OriginsConfig lists backend servers consulted on cache misses.
// URLs is comma-separated; Weights is an optional parallel
// comma-separated list of integers.
type OriginsConfig struct {
	URLs            []string
	Weights         []int
	HealthPath      string
	CheckIntervalMs int
	MaxFailures     int
}

// SnapshotConfig controls periodic object-storage snapshots.
type SnapshotConfig struct {
	IntervalSec      int // 0 disables periodic snapshots
	RestoreOnStartup bool
}

// AppConfig is the centralized configuration struct for the service.
// It is populated from environment variables. Sensitive values are not
// hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	Cache       CacheConfig
	WriteBehind WriteBehindConfig
	Snowflake   SnowflakeConfig
	Origins     OriginsConfig
	Snapshot    SnapshotConfig
	Database    DatabaseConfig
	MinIO       MinIOConfig
}

// DefaultTTL returns the configured default item TTL.
func (c CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSec) * time.Second
}

// HotKeyDecay returns the hot-key counter decay interval.
func (c CacheConfig) HotKeyDecay() time.Duration {
	return time.Duration(c.HotKeyDecaySec) * time.Second
}

// FlushInterval returns the write-behind flush period.
func (c WriteBehindConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// CheckInterval returns the origin health probe period.
func (c OriginsConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMs) * time.Millisecond
}

// Interval returns the snapshot period.
func (c SnapshotConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Cache: CacheConfig{
			Shards:          getEnvInt("CACHE_SHARDS", 16),
			ShardCapacity:   getEnvInt("CACHE_SHARD_CAPACITY", 1024),
			Policy:          getEnv("CACHE_POLICY", "lru"),
			DefaultTTLSec:   getEnvInt("CACHE_DEFAULT_TTL_SEC", 0),
			HotKeyThreshold: getEnvInt("CACHE_HOTKEY_THRESHOLD", 0),
			HotKeyDecaySec:  getEnvInt("CACHE_HOTKEY_DECAY_SEC", 60),
			WriteStrategy:   getEnv("CACHE_WRITE_STRATEGY", "write_through"),
		},
		WriteBehind: WriteBehindConfig{
			QueueSize:       getEnvInt("WRITE_BEHIND_QUEUE_SIZE", 4096),
			BatchSize:       getEnvInt("WRITE_BEHIND_BATCH_SIZE", 64),
			FlushIntervalMs: getEnvInt("WRITE_BEHIND_FLUSH_INTERVAL_MS", 200),
		},
		Snowflake: SnowflakeConfig{
			NodeID:  getEnvInt64("SNOWFLAKE_NODE_ID", 0),
			EpochMs: getEnvInt64("SNOWFLAKE_EPOCH_MS", 0),
		},
		Origins: OriginsConfig{
			URLs:            splitList(getEnv("ORIGIN_URLS", "")),
			Weights:         parseInts(splitList(getEnv("ORIGIN_WEIGHTS", ""))),
			HealthPath:      getEnv("ORIGIN_HEALTH_PATH", "/healthz"),
			CheckIntervalMs: getEnvInt("ORIGIN_CHECK_INTERVAL_MS", 5000),
			MaxFailures:     getEnvInt("ORIGIN_MAX_FAILURES", 3),
		},
		Snapshot: SnapshotConfig{
			IntervalSec:      getEnvInt("SNAPSHOT_INTERVAL_SEC", 0),
			RestoreOnStartup: getEnvBool("SNAPSHOT_RESTORE_ON_STARTUP", false),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(parts []string) []int {
	if len(parts) == 0 {
		return nil
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(p)
		if err != nil {
			i = 1
		}
		out = append(out, i)
	}
	return out
}
