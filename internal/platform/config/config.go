// Package config loads process configuration from NAMELEDGER_* environment
// variables, an optional env file and built-in defaults, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	pstrings "nameledger/pkg/platform/strings"
)

const (
	EnvPrefix         = "NAMELEDGER"
	DefaultConfigFile = "nameledger.env"

	// DevSigningKey is only fit for local development.
	DevSigningKey = "dev-secret-key-change-in-production"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// DevIdentityHeader allows X-Caller-Identity in place of a bearer token.
	DevIdentityHeader bool
}

type Log struct {
	Level  string
	Format string
}

// TldSeed is one entry of the initial TLD catalog.
type TldSeed struct {
	TLD        string
	Multiplier uint64
}

// Ledger configures the registry itself.
type Ledger struct {
	AdminIdentity string
	BaseFee       uint64
	Tlds          []TldSeed
	TxTimeout     time.Duration
}

type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration
}

// Database selects the Postgres store. An empty URL selects the memory store.
type Database struct {
	URL string
}

// RedisConfig configures the resolve cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// Kafka configures the notification sink. No brokers means notifications are
// only logged.
type Kafka struct {
	Brokers    []string
	Topic      string
	ClientID   string
	BufferSize int
}

type Config struct {
	Server   Server
	Log      Log
	Ledger   Ledger
	Auth     Auth
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
}

// raw mirrors the flat environment keys.
type raw struct {
	Addr              string        `mapstructure:"ADDR"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	DevIdentityHeader bool          `mapstructure:"DEV_IDENTITY_HEADER"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogFormat         string        `mapstructure:"LOG_FORMAT"`
	AdminIdentity     string        `mapstructure:"ADMIN_IDENTITY"`
	BaseFee           string        `mapstructure:"BASE_FEE"`
	Tlds              string        `mapstructure:"TLDS"`
	TxTimeout         time.Duration `mapstructure:"TX_TIMEOUT"`
	JWTSigningKey     string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer         string        `mapstructure:"JWT_ISSUER"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	RedisPoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	RedisMinIdle      int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	RedisDialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	RedisReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	RedisWriteTimeout time.Duration `mapstructure:"REDIS_WRITE_TIMEOUT"`
	RedisCacheTTL     time.Duration `mapstructure:"REDIS_CACHE_TTL"`
	KafkaBrokers      string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic        string        `mapstructure:"KAFKA_TOPIC"`
	KafkaClientID     string        `mapstructure:"KAFKA_CLIENT_ID"`
	KafkaBufferSize   int           `mapstructure:"KAFKA_BUFFER_SIZE"`
}

var defaults = map[string]any{
	"ADDR":                 ":8080",
	"REQUEST_TIMEOUT":      30 * time.Second,
	"SHUTDOWN_TIMEOUT":     15 * time.Second,
	"DEV_IDENTITY_HEADER":  false,
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
	"ADMIN_IDENTITY":       "",
	"BASE_FEE":             "10000",
	"TLDS":                 "com=200,net=150",
	"TX_TIMEOUT":           5 * time.Second,
	"JWT_SIGNING_KEY":      DevSigningKey,
	"JWT_ISSUER":           "nameledger",
	"TOKEN_TTL":            24 * time.Hour,
	"DATABASE_URL":         "",
	"REDIS_URL":            "",
	"REDIS_POOL_SIZE":      10,
	"REDIS_MIN_IDLE_CONNS": 2,
	"REDIS_DIAL_TIMEOUT":   5 * time.Second,
	"REDIS_READ_TIMEOUT":   3 * time.Second,
	"REDIS_WRITE_TIMEOUT":  3 * time.Second,
	"REDIS_CACHE_TTL":      30 * time.Second,
	"KAFKA_BROKERS":        "",
	"KAFKA_TOPIC":          "nameledger.events",
	"KAFKA_CLIENT_ID":      "nameledger",
	"KAFKA_BUFFER_SIZE":    1024,
}

// Load reads configuration. configFile may be empty, in which case
// nameledger.env is read when present.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && explicit {
		return nil, fmt.Errorf("read config file %s: %w", configFile, err)
	}

	var r raw
	if err := v.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return r.build()
}

func (r raw) build() (*Config, error) {
	baseFee, err := strconv.ParseUint(strings.TrimSpace(r.BaseFee), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("BASE_FEE must be a non-negative integer: %w", err)
	}
	tlds, err := ParseTlds(r.Tlds)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: Server{
			Addr:              r.Addr,
			RequestTimeout:    r.RequestTimeout,
			ShutdownTimeout:   r.ShutdownTimeout,
			DevIdentityHeader: r.DevIdentityHeader,
		},
		Log: Log{Level: r.LogLevel, Format: r.LogFormat},
		Ledger: Ledger{
			AdminIdentity: strings.TrimSpace(r.AdminIdentity),
			BaseFee:       baseFee,
			Tlds:          tlds,
			TxTimeout:     r.TxTimeout,
		},
		Auth: Auth{
			JWTSigningKey: r.JWTSigningKey,
			JWTIssuer:     r.JWTIssuer,
			TokenTTL:      r.TokenTTL,
		},
		Database: Database{URL: r.DatabaseURL},
		Redis: RedisConfig{
			URL:          r.RedisURL,
			PoolSize:     r.RedisPoolSize,
			MinIdleConns: r.RedisMinIdle,
			DialTimeout:  r.RedisDialTimeout,
			ReadTimeout:  r.RedisReadTimeout,
			WriteTimeout: r.RedisWriteTimeout,
			CacheTTL:     r.RedisCacheTTL,
		},
		Kafka: Kafka{
			Brokers:    pstrings.SplitList(r.KafkaBrokers, ","),
			Topic:      r.KafkaTopic,
			ClientID:   r.KafkaClientID,
			BufferSize: r.KafkaBufferSize,
		},
	}, nil
}

// ParseTlds parses "com=200,net=150". Order is kept; a repeated TLD keeps
// its first multiplier.
func ParseTlds(raw string) ([]TldSeed, error) {
	pairs, bad := pstrings.SplitPairs(raw)
	if len(bad) > 0 {
		return nil, fmt.Errorf("TLDS entries must be tld=multiplier, got %q", strings.Join(bad, ","))
	}
	seeds := make([]TldSeed, 0, len(pairs))
	for _, p := range pairs {
		m, err := strconv.ParseUint(p[1], 10, 64)
		if err != nil || m == 0 {
			return nil, fmt.Errorf("TLDS multiplier for %q must be a positive integer", p[0])
		}
		seeds = append(seeds, TldSeed{TLD: strings.ToLower(p[0]), Multiplier: m})
	}
	return seeds, nil
}

// Validate checks what the server needs to start.
func (c *Config) Validate() error {
	var errs []error
	if c.Ledger.AdminIdentity == "" {
		errs = append(errs, errors.New("ADMIN_IDENTITY is required"))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c *Config) UsesDevSigningKey() bool {
	return c.Auth.JWTSigningKey == DevSigningKey
}
