// Package config loads service configuration.
//
// Values are resolved with Viper in this order (highest first):
//  1. Environment variables with the SUPPLIERFLOW_ prefix, nested keys joined
//     by underscores (SUPPLIERFLOW_DATABASE_URL, SUPPLIERFLOW_KAFKA_BROKERS)
//  2. The YAML file passed to [Loader.Load], if any
//  3. [Default]
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "SUPPLIERFLOW"

// Config is the root configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Redis     Redis     `mapstructure:"redis"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Matcher   Matcher   `mapstructure:"matcher"`
	Vault     Vault     `mapstructure:"vault"`
	Lock      Lock      `mapstructure:"lock"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
	Log       Log       `mapstructure:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout bounds each request's context.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Database selects the submission store. An empty URL keeps everything in
// memory.
type Database struct {
	URL string `mapstructure:"url"`
	// Driver is "postgres" (lib/pq) or "pgx".
	Driver       string        `mapstructure:"driver"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
	Migrate      bool          `mapstructure:"migrate"`
}

// Redis is optional; it backs the bank details vault and the distributed
// submission lock when set.
type Redis struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Kafka is optional; effects are only logged when no brokers are set.
type Kafka struct {
	Brokers           []string      `mapstructure:"brokers"`
	ClientID          string        `mapstructure:"client_id"`
	Topic             string        `mapstructure:"topic"`
	Partitions        int32         `mapstructure:"partitions"`
	ReplicationFactor int16         `mapstructure:"replication_factor"`
	ProduceTimeout    time.Duration `mapstructure:"produce_timeout"`
	EnsureTopic       bool          `mapstructure:"ensure_topic"`
}

// Matcher tunes duplicate screening.
type Matcher struct {
	SupplierThreshold  int `mapstructure:"supplier_threshold"`
	WatchlistThreshold int `mapstructure:"watchlist_threshold"`
	// WatchlistSeed is an optional YAML file of names loaded into the
	// watchlist at start-up.
	WatchlistSeed string `mapstructure:"watchlist_seed"`
}

// Vault configures where redacted bank details are kept.
type Vault struct {
	// Key is the secret for bank detail fingerprints.
	Key string        `mapstructure:"key"`
	TTL time.Duration `mapstructure:"ttl"`
}

// Lock configures per-submission locking.
type Lock struct {
	TTL       time.Duration `mapstructure:"ttl"`
	RetryWait time.Duration `mapstructure:"retry_wait"`
}

// RateLimit bounds write requests per caller. The window is shared through
// Redis when it is configured.
type RateLimit struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a configuration that runs fully in memory.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Database: Database{
			Driver:       "postgres",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnMaxLife:  30 * time.Minute,
			Migrate:      true,
		},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			ClientID:          "supplierflow",
			Topic:             "supplierflow.effects",
			Partitions:        3,
			ReplicationFactor: 1,
			ProduceTimeout:    10 * time.Second,
			EnsureTopic:       true,
		},
		Matcher: Matcher{
			SupplierThreshold:  75,
			WatchlistThreshold: 70,
		},
		Vault: Vault{
			Key: "dev-fingerprint-key-change-in-production",
			TTL: 90 * 24 * time.Hour,
		},
		Lock: Lock{
			TTL:       10 * time.Second,
			RetryWait: 50 * time.Millisecond,
		},
		RateLimit: RateLimit{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Loader wraps a Viper instance seeded with [Default].
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader with defaults and env overrides registered.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return &Loader{v: v}
}

// Load reads path when non-empty and returns the merged configuration.
func (l *Loader) Load(path string) (Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	// Comma separated env values arrive as a single element.
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be postgres or pgx", c.Database.Driver))
	}
	for name, threshold := range map[string]int{
		"matcher.supplier_threshold":  c.Matcher.SupplierThreshold,
		"matcher.watchlist_threshold": c.Matcher.WatchlistThreshold,
	} {
		if threshold < 0 || threshold > 100 {
			errs = append(errs, fmt.Errorf("%s must be between 0 and 100", name))
		}
	}
	if c.Vault.Key == "" {
		errs = append(errs, errors.New("vault.key is required"))
	}
	if c.Lock.TTL <= 0 {
		errs = append(errs, errors.New("lock.ttl must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate_limit.requests and rate_limit.window must be positive when enabled"))
	}
	return errors.Join(errs...)
}

// setDefaults registers every key so AutomaticEnv can override nested
// values that are absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_life", d.Database.ConnMaxLife)
	v.SetDefault("database.migrate", d.Database.Migrate)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", d.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)

	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("kafka.partitions", d.Kafka.Partitions)
	v.SetDefault("kafka.replication_factor", d.Kafka.ReplicationFactor)
	v.SetDefault("kafka.produce_timeout", d.Kafka.ProduceTimeout)
	v.SetDefault("kafka.ensure_topic", d.Kafka.EnsureTopic)

	v.SetDefault("matcher.supplier_threshold", d.Matcher.SupplierThreshold)
	v.SetDefault("matcher.watchlist_threshold", d.Matcher.WatchlistThreshold)
	v.SetDefault("matcher.watchlist_seed", d.Matcher.WatchlistSeed)

	v.SetDefault("vault.key", d.Vault.Key)
	v.SetDefault("vault.ttl", d.Vault.TTL)

	v.SetDefault("lock.ttl", d.Lock.TTL)
	v.SetDefault("lock.retry_wait", d.Lock.RetryWait)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests", d.RateLimit.Requests)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
