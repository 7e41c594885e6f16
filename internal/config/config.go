// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends selectable via STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// EnvProduction is the APP_ENV value that enables production-only behaviour (Secure cookies, JSON logs).
const EnvProduction = "production"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on; empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Required when Store is "postgres".
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Store selects the credential/audit backend: "postgres" or "memory" (non-production only).
	Store string `mapstructure:"STORE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// AdminToken is the static shared secret guarding /admin/* routes.
	AdminToken string `mapstructure:"ADMIN_TOKEN"`
	// BcryptCost is the bcrypt cost factor (4–31) for credential secrets; default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// GrantPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file used to sign session grants.
	GrantPrivateKey string `mapstructure:"GRANT_PRIVATE_KEY"`
	// GrantPublicKey is the PEM-encoded public key or path to file; used with GRANT_PRIVATE_KEY.
	GrantPublicKey string `mapstructure:"GRANT_PUBLIC_KEY"`
	// GrantIssuer is the iss claim of session grants.
	GrantIssuer string `mapstructure:"GRANT_ISSUER"`
	// GrantAudience is the aud claim of session grants.
	GrantAudience string `mapstructure:"GRANT_AUDIENCE"`
	// DefaultGrantTTL is the grant lifetime (e.g. "24h") when the redeemed credential has no expiry.
	DefaultGrantTTL string `mapstructure:"DEFAULT_GRANT_TTL"`
	// RequestTimeout bounds each HTTP request (e.g. "10s").
	RequestTimeout string `mapstructure:"REQUEST_TIMEOUT"`

	// RedisAddr enables the Redis-backed rate limiter for /validate when set (e.g. localhost:6379).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// ValidateRatePerMinute is the sustained number of validation attempts allowed per client address.
	ValidateRatePerMinute int `mapstructure:"VALIDATE_RATE_PER_MINUTE"`
	// ValidateBurst is the number of attempts a client may make back-to-back.
	ValidateBurst int `mapstructure:"VALIDATE_BURST"`
	// TrustedProxies is a comma-separated list of proxy addresses or CIDRs whose X-Forwarded-For
	// and X-Real-IP headers name the rate-limited client. Empty trusts no proxy.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// KafkaBrokers is a comma-separated list of Kafka brokers; when set, access events are streamed to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AccessEventsTopic is the Kafka topic for access events.
	AccessEventsTopic string `mapstructure:"ACCESS_EVENTS_TOPIC"`
	// KafkaGroupID is the consumer group ID for the access-event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker pushes access events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates the API server's Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars override .env.
// Returns an error if required fields are invalid.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateServer(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker is Load for the access-event worker: it checks only the Kafka and Loki keys.
func LoadWorker() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if len(cfg.KafkaBrokersList()) == 0 {
		return nil, errors.New("config: KAFKA_BROKERS must be set for the worker")
	}
	if strings.TrimSpace(cfg.LokiURL) == "" {
		return nil, errors.New("config: LOKI_URL must be set for the worker")
	}
	if cfg.AccessEventsTopic == "" || cfg.KafkaGroupID == "" {
		return nil, errors.New("config: ACCESS_EVENTS_TOPIC and KAFKA_GROUP_ID must not be empty")
	}
	return cfg, nil
}

func read() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ADMIN_TOKEN", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("GRANT_PRIVATE_KEY", "")
	v.SetDefault("GRANT_PUBLIC_KEY", "")
	v.SetDefault("GRANT_ISSUER", "creator-gate")
	v.SetDefault("GRANT_AUDIENCE", "creator-gallery")
	v.SetDefault("DEFAULT_GRANT_TTL", "24h")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("VALIDATE_RATE_PER_MINUTE", 20)
	v.SetDefault("VALIDATE_BURST", 10)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ACCESS_EVENTS_TOPIC", "creator-access-events")
	v.SetDefault("KAFKA_GROUP_ID", "creator-access-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "creator-access-gate")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validateServer() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(c.AdminToken) == "" {
		return errors.New("config: ADMIN_TOKEN must be set")
	}

	switch c.Store {
	case StorePostgres:
	case StoreMemory:
		if c.IsProduction() {
			return errors.New("config: STORE=memory must not be used when APP_ENV=production")
		}
	default:
		return errors.New("config: STORE must be postgres or memory")
	}

	if c.IsProduction() && (c.GrantPrivateKey == "" || c.GrantPublicKey == "") {
		return errors.New("config: GRANT_PRIVATE_KEY and GRANT_PUBLIC_KEY must be set when APP_ENV=production")
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.ValidateRatePerMinute < 0 || c.ValidateBurst < 0 {
		return errors.New("config: VALIDATE_RATE_PER_MINUTE and VALIDATE_BURST must not be negative")
	}

	for _, p := range c.TrustedProxiesList() {
		if !validProxyEntry(p) {
			return fmt.Errorf("config: TRUSTED_PROXIES entry %q is not an address or CIDR", p)
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == EnvProduction
}

// GrantTTL parses DefaultGrantTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) GrantTTL() time.Duration {
	d, err := time.ParseDuration(c.DefaultGrantTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// RequestTimeoutDuration parses RequestTimeout. Returns 10s if unset or invalid.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// TrustedProxiesList returns the trimmed, non-empty TRUSTED_PROXIES entries.
func (c *Config) TrustedProxiesList() []string {
	return splitList(c.TrustedProxies)
}

func validProxyEntry(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event streaming is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
