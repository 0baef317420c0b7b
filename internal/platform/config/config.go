package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration for the auditor.
type Server struct {
	Addr             string
	RegistryBaseURL  string
	RegistryToken    string
	DirectoryBaseURL string
	DirectoryToken   string
	HQSpaceID        string
	PostgresURL     string
	RedisURL        string
	JWTSigningKey   string
	AuditFanout     int64
	GuildCacheTTL   time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ROLLCALL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	fanout := int64(8)
	if raw := os.Getenv("ROLLCALL_AUDIT_FANOUT"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			fanout = n
		}
	}

	cacheTTL := 5 * time.Minute
	if raw := os.Getenv("ROLLCALL_GUILD_CACHE_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cacheTTL = d
		}
	}

	jwtSigningKey := os.Getenv("ROLLCALL_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:             addr,
		RegistryBaseURL:  os.Getenv("ROLLCALL_REGISTRY_URL"),
		RegistryToken:    os.Getenv("ROLLCALL_REGISTRY_TOKEN"),
		DirectoryBaseURL: os.Getenv("ROLLCALL_DIRECTORY_URL"),
		DirectoryToken:   os.Getenv("ROLLCALL_DIRECTORY_TOKEN"),
		HQSpaceID:        os.Getenv("ROLLCALL_HQ_SPACE_ID"),
		PostgresURL:      os.Getenv("ROLLCALL_POSTGRES_URL"),
		RedisURL:         os.Getenv("ROLLCALL_REDIS_URL"),
		JWTSigningKey:    jwtSigningKey,
		AuditFanout:      fanout,
		GuildCacheTTL:    cacheTTL,
	}
}

// RedisConfig captures connection tuning for the optional Redis cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisFromEnv builds a RedisConfig with defaults suitable for a small cache.
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("ROLLCALL_REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
