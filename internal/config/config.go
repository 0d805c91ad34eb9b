package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Wargaming WargamingConfig
	Sync      SyncConfig
	Database  DatabaseConfig
	Cache     CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"wot-clan-dashboard"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// WargamingConfig identifies the application against the remote game API.
type WargamingConfig struct {
	AppID  string `envconfig:"WOT_APP_ID" default:""`
	ClanID string `envconfig:"CLAN_ID" default:""`
	Realm  string `envconfig:"WOT_REALM" default:"https://api.worldoftanks.com"`
}

// SyncConfig controls the background roster/garage sync.
type SyncConfig struct {
	// Interval between scheduled runs.
	Interval time.Duration `envconfig:"SYNC_INTERVAL" default:"20m"`
	// MinInterval debounces triggers against the last completed run.
	MinInterval time.Duration `envconfig:"MIN_SYNC_INTERVAL" default:"45s"`
	// EncyclopediaBatch is how many tank ids go into one metadata request.
	EncyclopediaBatch int `envconfig:"ENCYCLOPEDIA_BATCH" default:"50"`
	// SleepBetweenBatches spaces metadata requests to respect rate limits.
	SleepBetweenBatches time.Duration `envconfig:"SLEEP_BETWEEN_BATCHES" default:"300ms"`
	// FallbackThreshold: if more than this fraction of requested tank ids
	// is still unresolved after batch fetching, one full encyclopedia dump
	// is pulled. Heuristic carried over from the original deployment.
	FallbackThreshold float64 `envconfig:"SYNC_FALLBACK_THRESHOLD" default:"0.25"`
	// FetchWorkers bounds concurrent per-account tank fetches.
	FetchWorkers int `envconfig:"SYNC_FETCH_WORKERS" default:"4"`

	TankCachePath    string        `envconfig:"TANK_CACHE_PATH" default:"./data/tank_cache.json"`
	MembersCachePath string        `envconfig:"MEMBERS_CACHE_PATH" default:"./data/members_cache.json"`
	MembersCacheTTL  time.Duration `envconfig:"MEMBERS_CACHE_TTL" default:"10m"`
}

// DatabaseConfig holds relational store settings.
// Driver "sqlite" uses Path; driver "mysql" uses the host/user fields.
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	Path     string `envconfig:"DB_PATH" default:"./data/dashboard.db"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"wotclan"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// CacheConfig holds session store settings.
type CacheConfig struct {
	Type       string        `envconfig:"CACHE_TYPE" default:"memory"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MySQLDSN returns the MySQL data source name.
func (d *DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
