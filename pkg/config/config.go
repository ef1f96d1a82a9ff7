package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	DatabaseURL string `yaml:"database_url"`
	DataDir     string `yaml:"data_dir"`

	Media     MediaConfig     `yaml:"media"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	OTel      OTelConfig      `yaml:"otel"`

	CORSOrigins   []string `yaml:"cors_origins"`
	OrderingMode  string   `yaml:"ordering_mode"`
	AboutSlots    int      `yaml:"about_slots"`
	DefaultLocale string   `yaml:"default_locale"`
}

// MediaConfig selects the object store.
type MediaConfig struct {
	StorageType   string `yaml:"storage_type"` // "fs" | "s3" | "gcs"
	PublicBaseURL string `yaml:"public_base_url"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Region      string `yaml:"s3_region"`
	S3Endpoint    string `yaml:"s3_endpoint"`
	S3Prefix      string `yaml:"s3_prefix"`
	GCSBucket     string `yaml:"gcs_bucket"`
	GCSPrefix     string `yaml:"gcs_prefix"`
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	// SigningKey is a hex-encoded 32-byte ed25519 seed. Empty generates one per process.
	SigningKey  string        `yaml:"signing_key"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	AllowSignup bool          `yaml:"allow_signup"`
}

// RedisConfig enables shared ordering locks and rate limits when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig is the per-client request budget.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// OTelConfig controls trace and metric export.
type OTelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:      "8080",
		LogLevel:  "INFO",
		LogFormat: "text",
		DataDir:   "data",
		Media: MediaConfig{
			StorageType: "fs",
		},
		Auth: AuthConfig{
			TokenTTL:    12 * time.Hour,
			AllowSignup: true,
		},
		RateLimit: RateLimitConfig{
			RPS:   20,
			Burst: 40,
		},
		OTel: OTelConfig{
			Endpoint: "localhost:4317",
		},
		CORSOrigins:   []string{"http://localhost:3000"},
		OrderingMode:  "atomic",
		AboutSlots:    4,
		DefaultLocale: "tr",
	}
}

// Load builds the configuration from defaults, the YAML file named by EVENTDESK_CONFIG
// (if any), and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("EVENTDESK_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.overlayEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults without consulting the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	//nolint:gosec // G304: path comes from the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("DATABASE_URL", &c.DatabaseURL)
	str("DATA_DIR", &c.DataDir)
	str("MEDIA_STORAGE_TYPE", &c.Media.StorageType)
	str("MEDIA_PUBLIC_BASE_URL", &c.Media.PublicBaseURL)
	str("MEDIA_S3_BUCKET", &c.Media.S3Bucket)
	str("MEDIA_S3_REGION", &c.Media.S3Region)
	str("MEDIA_S3_ENDPOINT", &c.Media.S3Endpoint)
	str("MEDIA_S3_PREFIX", &c.Media.S3Prefix)
	str("MEDIA_GCS_BUCKET", &c.Media.GCSBucket)
	str("MEDIA_GCS_PREFIX", &c.Media.GCSPrefix)
	str("AUTH_SIGNING_KEY", &c.Auth.SigningKey)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("ORDERING_MODE", &c.OrderingMode)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTel.Endpoint)
	str("DEFAULT_LOCALE", &c.DefaultLocale)

	if c.Media.S3Region == "" {
		c.Media.S3Region = os.Getenv("AWS_REGION")
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUTH_TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = d
	}
	for key, dst := range map[string]*bool{
		"AUTH_ALLOW_SIGNUP": &c.Auth.AllowSignup,
		"OTEL_ENABLED":      &c.OTel.Enabled,
	} {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	for key, dst := range map[string]*int{
		"RATE_LIMIT_BURST": &c.RateLimit.Burst,
		"ABOUT_SLOTS":      &c.AboutSlots,
		"REDIS_DB":         &c.Redis.DB,
	} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = f
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	switch c.Media.StorageType {
	case "", "fs", "s3", "gcs":
	default:
		return fmt.Errorf("unsupported media storage type: %s", c.Media.StorageType)
	}
	switch c.OrderingMode {
	case "atomic", "sequential":
	default:
		return fmt.Errorf("ORDERING_MODE must be atomic or sequential, got %q", c.OrderingMode)
	}
	if c.AboutSlots <= 0 {
		return fmt.Errorf("ABOUT_SLOTS must be positive, got %d", c.AboutSlots)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}
	return nil
}

// LiteMode reports whether SQLite is used instead of PostgreSQL.
func (c *Config) LiteMode() bool { return c.DatabaseURL == "" }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
