// Package config loads the service configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrSecretRequired = errors.New("token secrets must be set")
	ErrSecretsEqual   = errors.New("long and short token secrets must differ")
	ErrShortTTL       = errors.New("short token ttl must not exceed long token ttl")
	ErrInvalidValue   = errors.New("invalid configuration value")
)

type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Server    ServerConfig    `mapstructure:"server"`
	Tokens    TokensConfig    `mapstructure:"tokens"`
	Password  PasswordConfig  `mapstructure:"password"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServiceConfig struct {
	Name string `mapstructure:"name"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy  bool     `mapstructure:"trust_proxy"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	StaticDir   string   `mapstructure:"static_dir"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort("", strconv.Itoa(s.Port))
}

type TokensConfig struct {
	LongSecret  string        `mapstructure:"long_secret"`
	ShortSecret string        `mapstructure:"short_secret"`
	LongTTL     time.Duration `mapstructure:"long_ttl"`
	ShortTTL    time.Duration `mapstructure:"short_ttl"`
	Issuer      string        `mapstructure:"issuer"`
}

type PasswordConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "memory" or "redis".
	Backend string        `mapstructure:"backend"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
	Prefix  string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type DatabaseConfig struct {
	// Type is "memory" or "postgres".
	Type     string         `mapstructure:"type"`
	Migrate  bool           `mapstructure:"migrate"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// URL returns the connection string for pgx and golang-migrate.
func (p PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type AuditConfig struct {
	Secret string `mapstructure:"secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration. An empty path searches ./config.yaml and
// /etc/schoolhub/config.yaml; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/schoolhub")
	}

	v.SetEnvPrefix("SCHOOLHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for existing deployments.
	_ = v.BindEnv("tokens.long_secret", "SCHOOLHUB_TOKENS_LONG_SECRET", "LONG_TOKEN_SECRET")
	_ = v.BindEnv("tokens.short_secret", "SCHOOLHUB_TOKENS_SHORT_SECRET", "SHORT_TOKEN_SECRET")
	_ = v.BindEnv("server.port", "SCHOOLHUB_SERVER_PORT", "USER_PORT")
	_ = v.BindEnv("service.name", "SCHOOLHUB_SERVICE_NAME", "SERVICE_NAME")
	_ = v.BindEnv("redis.url", "SCHOOLHUB_REDIS_URL", "CACHE_REDIS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "schoolhub")

	v.SetDefault("server.port", 5111)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.static_dir", "")

	v.SetDefault("tokens.long_secret", "")
	v.SetDefault("tokens.short_secret", "")
	v.SetDefault("tokens.long_ttl", "26280h")
	v.SetDefault("tokens.short_ttl", "8760h")
	v.SetDefault("tokens.issuer", "schoolhub")

	v.SetDefault("password.bcrypt_cost", 10)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.limit", 100)
	v.SetDefault("ratelimit.window", "15m")
	v.SetDefault("ratelimit.prefix", "schoolhub:ratelimit:")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("database.type", "memory")
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "schoolhub")
	v.SetDefault("database.postgres.user", "schoolhub")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_conns", 10)
	v.SetDefault("database.postgres.min_conns", 0)
	v.SetDefault("database.postgres.max_conn_lifetime", "1h")
	v.SetDefault("database.postgres.max_conn_idle_time", "30m")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("audit.secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	t := c.Tokens
	if t.LongSecret == "" || t.ShortSecret == "" {
		return ErrSecretRequired
	}
	if t.LongSecret == t.ShortSecret {
		return ErrSecretsEqual
	}
	if t.LongTTL <= 0 || t.ShortTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalidValue)
	}
	if t.ShortTTL > t.LongTTL {
		return ErrShortTTL
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalidValue, c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: server.max_body_bytes must be positive", ErrInvalidValue)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("%w: ratelimit limit and window must be positive", ErrInvalidValue)
		}
		switch c.RateLimit.Backend {
		case "memory", "redis":
		default:
			return fmt.Errorf("%w: ratelimit.backend %q", ErrInvalidValue, c.RateLimit.Backend)
		}
	}

	switch c.Database.Type {
	case "memory", "postgres":
	default:
		return fmt.Errorf("%w: database.type %q", ErrInvalidValue, c.Database.Type)
	}
	return nil
}

// AuditSecret is the audit signing key, falling back to the long token secret.
func (c *Config) AuditSecret() string {
	if c.Audit.Secret != "" {
		return c.Audit.Secret
	}
	return c.Tokens.LongSecret
}
