package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // gateway timezone must resolve on minimal images

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Sadad     SadadConfig     `mapstructure:"sadad"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
	// TrustedProxies lists the proxies whose X-Forwarded-For is honoured.
	// Empty means the TCP peer address is the client IP.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig validates access tokens issued by the external auth provider.
// An empty secret disables bearer validation.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// Enabled reports whether bearer validation is active.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// SadadConfig is the gateway configuration. It is built once at startup and handed to
// every component that needs it; business code never reads the environment directly.
type SadadConfig struct {
	MerchantID      string `mapstructure:"merchant_id"`
	SecretKey       string `mapstructure:"secret_key"`
	TestMode        bool   `mapstructure:"test_mode"`
	Website         string `mapstructure:"website"`
	Language        string `mapstructure:"language"`
	Version         string `mapstructure:"version"`
	Currency        string `mapstructure:"currency"`
	Timezone        string `mapstructure:"timezone"`
	CallbackBaseURL string `mapstructure:"callback_base_url"`

	PaymentURLTest string `mapstructure:"payment_url_test"`
	PaymentURLProd string `mapstructure:"payment_url_prod"`
	VerifyURLTest  string `mapstructure:"verify_url_test"`
	VerifyURLProd  string `mapstructure:"verify_url_prod"`

	IPCheckEnabled bool     `mapstructure:"ip_check_enabled"`
	AllowedIPsTest []string `mapstructure:"allowed_ips_test"`
	AllowedIPsProd []string `mapstructure:"allowed_ips_prod"`

	// SkipIPVerification is a debugging escape hatch. Never enable in production.
	SkipIPVerification bool `mapstructure:"skip_ip_verification"`
	StrictChecksum     bool `mapstructure:"strict_checksum"`

	BookingVerifiedStatuses []int         `mapstructure:"booking_verified_statuses"`
	ProductVerifiedStatuses []int         `mapstructure:"product_verified_statuses"`
	VerifyTimeout           time.Duration `mapstructure:"verify_timeout"`
	VerifyMaxRetries        uint64        `mapstructure:"verify_max_retries"`

	PlaceholderEmail  string `mapstructure:"placeholder_email"`
	PlaceholderMobile string `mapstructure:"placeholder_mobile"`
}

// Configured reports whether the merchant credentials are present.
func (s SadadConfig) Configured() bool {
	return s.MerchantID != "" && s.SecretKey != ""
}

// PaymentURL returns the hosted checkout URL for the active environment.
func (s SadadConfig) PaymentURL() string {
	if s.TestMode {
		return s.PaymentURLTest
	}
	return s.PaymentURLProd
}

// VerifyURL returns the server-to-server verification endpoint for the active environment.
func (s SadadConfig) VerifyURL() string {
	if s.TestMode {
		return s.VerifyURLTest
	}
	return s.VerifyURLProd
}

// AllowedIPs returns the gateway source addresses for the active environment.
func (s SadadConfig) AllowedIPs() []string {
	if s.TestMode {
		return s.AllowedIPsTest
	}
	return s.AllowedIPsProd
}

// Validate rejects an enforced IP check with nothing to allow, which would
// turn every gateway callback away with 403.
func (s SadadConfig) Validate() error {
	if s.IPCheckEnabled && !s.SkipIPVerification && len(s.AllowedIPs()) == 0 {
		env := "prod"
		if s.TestMode {
			env = "test"
		}
		return fmt.Errorf("sadad.ip_check_enabled is set but sadad.allowed_ips_%s is empty", env)
	}
	return nil
}

// Location resolves the gateway timezone, falling back to UTC.
func (s SadadConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CallbackURL joins the public callback base with a route path.
func (s SadadConfig) CallbackURL(path string) string {
	return strings.TrimRight(s.CallbackBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SPS_ (SADAD Payment Service).
// Nested keys use underscore: SPS_DATABASE_HOST, SPS_SADAD_MERCHANT_ID, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine, env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Sadad.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "sadad_payments")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("sadad.merchant_id", "")
	v.SetDefault("sadad.secret_key", "")
	v.SetDefault("sadad.test_mode", true)
	v.SetDefault("sadad.website", "")
	v.SetDefault("sadad.language", "eng")
	v.SetDefault("sadad.version", "1.1")
	v.SetDefault("sadad.currency", "QAR")
	v.SetDefault("sadad.timezone", "Asia/Qatar")
	v.SetDefault("sadad.callback_base_url", "http://localhost:8080")
	v.SetDefault("sadad.payment_url_test", "https://sadadqa.com/webpurchase")
	v.SetDefault("sadad.payment_url_prod", "https://sadadqa.com/webpurchase")
	v.SetDefault("sadad.verify_url_test", "https://api-s.sadad.qa/api/transactions/getTransaction")
	v.SetDefault("sadad.verify_url_prod", "https://api.sadad.qa/api/transactions/getTransaction")
	v.SetDefault("sadad.ip_check_enabled", true)
	v.SetDefault("sadad.allowed_ips_test", []string{"127.0.0.1", "::1"})
	v.SetDefault("sadad.allowed_ips_prod", []string{})
	v.SetDefault("sadad.skip_ip_verification", false)
	v.SetDefault("sadad.strict_checksum", false)
	v.SetDefault("sadad.booking_verified_statuses", []int{3})
	v.SetDefault("sadad.product_verified_statuses", []int{1, 3})
	v.SetDefault("sadad.verify_timeout", "10s")
	v.SetDefault("sadad.verify_max_retries", 2)
	v.SetDefault("sadad.placeholder_email", "customer@example.com")
	v.SetDefault("sadad.placeholder_mobile", "00000000")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 30)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
