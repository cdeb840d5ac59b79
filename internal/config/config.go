package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os" // os provides access to environment variables
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus" // log is used to report configuration errors and halt execution
)

// Storage backends selectable with STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	StoreBackend    string        // memory | mysql
	DBUser          string        // database username (mysql only)
	DBPass          string        // database password (optional)
	DBHost          string        // database host address (mysql only)
	DBPort          string        // database port number (mysql only)
	DBName          string        // database name (mysql only)
	JWTSecret       string        // secret used to sign JWTs
	AccessTTLMin    int           // access token time-to-live in minutes
	BcryptCost      int           // bcrypt cost for password hashing
	SeedDemoData    bool          // load demo trains and users on start
	LogLevel        string        // logrus level name
	LogFormat       string        // text | json
	ShutdownTimeout time.Duration // grace period for in-flight requests
	LockStripes     int           // size of the per-train lock table

	PNR       PNRConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Events    EventsConfig
}

// Load reads an optional .env file and then the environment.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("config: could not read .env")
	}

	cfg := Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		StoreBackend:    strings.ToLower(envStr("STORE_BACKEND", BackendMemory)),
		DBPass:          os.Getenv("DB_PASS"),
		JWTSecret:       must("JWT_SECRET"),
		AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:      envInt("BCRYPT_COST", 10),
		SeedDemoData:    envBool("SEED_DEMO_DATA", false),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LogFormat:       strings.ToLower(envStr("LOG_FORMAT", "text")),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
		LockStripes:     envInt("LOCK_STRIPES", 64),
		PNR:             LoadPNRConfig(),
		Redis:           LoadRedisConfig(),
		Cache:           LoadCacheConfig(),
		RateLimit:       LoadRateLimitConfig(),
		Events:          LoadEventsConfig(),
	}
	if cfg.StoreBackend == BackendMySQL {
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

// Validate checks values that have no safe default.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendMySQL:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendMySQL, c.StoreBackend)
	}
	if c.AccessTTLMin <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.LockStripes <= 0 {
		return fmt.Errorf("LOCK_STRIPES must be positive")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return c.PNR.Validate()
}

// ConfigureLogging applies LogLevel and LogFormat to the standard logrus
// logger.
func (c Config) ConfigureLogging() {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
