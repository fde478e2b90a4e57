package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// App holds server-level settings.
type App struct {
	HTTPEndpoint string
	// PublicBaseURL is what short links are advertised under, e.g.
	// "https://lnk.example.com". Used to build fullShortUrl in responses.
	PublicBaseURL string
	DBAddress     string
	// ReservedAliases are custom-alias values that would collide with
	// system routes.
	ReservedAliases []string
}

// Redis holds cache settings.
type Redis struct {
	Addr      string
	URLPrefix string
	PoolSize  int
	// URLTTL caps how long a resolved link may live in the cache. Entries
	// for links expiring sooner get a shorter TTL so they self-evict.
	URLTTL time.Duration
}

// RateLimiter holds token bucket settings for the API surface.
type RateLimiter struct {
	KeyPrefix    string        // Redis key prefix
	Capacity     int           // Maximum tokens in bucket
	RefillRate   int           // Tokens added per period
	RefillPeriod time.Duration // How often to refill tokens
}

// Auth holds JWT settings.
type Auth struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Clicks holds click counter settings.
type Clicks struct {
	BufferSize    int
	FlushInterval time.Duration
	FlushBatch    int
}

// Reaper holds expired-record cleanup settings.
type Reaper struct {
	Interval time.Duration
}

type Config struct {
	App         App
	Redis       Redis
	RateLimiter RateLimiter
	Auth        Auth
	Clicks      Clicks
	Reaper      Reaper
}

// Load reads settings from the environment, falling back to local-dev
// defaults. A .env file, if present, is loaded by the caller before this
// runs.
func Load() Config {
	return Config{
		App: App{
			HTTPEndpoint:    getEnv("HTTP_ENDPOINT", "localhost:8080"),
			PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			DBAddress:       getEnv("DB_ADDRESS", "postgres://linkmint:@localhost:5432/linkmint?sslmode=disable"),
			ReservedAliases: splitList(getEnv("RESERVED_ALIASES", "api,docs,metrics,healthz")),
		},
		Redis: Redis{
			Addr:      getEnv("REDIS_ADDRESS", "localhost:6379"),
			URLPrefix: getEnv("REDIS_URL_PREFIX", "url"),
			PoolSize:  getEnvInt("REDIS_POOL_SIZE", 10),
			URLTTL:    getEnvDuration("REDIS_URL_TTL", time.Hour),
		},
		RateLimiter: RateLimiter{
			KeyPrefix:    getEnv("RATE_LIMITER_KEY_PREFIX", "ratelimit:"),
			Capacity:     getEnvInt("RATE_LIMITER_CAPACITY", 10),
			RefillRate:   getEnvInt("RATE_LIMITER_REFILL_RATE", 40),
			RefillPeriod: getEnvDuration("RATE_LIMITER_REFILL_PERIOD", time.Second),
		},
		Auth: Auth{
			JWTSecret: getEnv("JWT_SECRET", "dev-only-secret"),
			TokenTTL:  getEnvDuration("JWT_TOKEN_TTL", 30*24*time.Hour),
		},
		Clicks: Clicks{
			BufferSize:    getEnvInt("CLICKS_BUFFER_SIZE", 1024),
			FlushInterval: getEnvDuration("CLICKS_FLUSH_INTERVAL", 2*time.Second),
			FlushBatch:    getEnvInt("CLICKS_FLUSH_BATCH", 64),
		},
		Reaper: Reaper{
			Interval: getEnvDuration("REAPER_INTERVAL", 10*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
