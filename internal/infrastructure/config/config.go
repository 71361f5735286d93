// Package config loads connector settings with viper.
//
// Sources, strongest first: ERP_* environment variables (ERP_DATABASE_PASSWORD
// sets database.password), config.toml in the working directory or /app,
// and the defaults registered in setDefaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envProduction = "production"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Storefront StorefrontConfig `mapstructure:"storefront"`
	AMQP       AMQPConfig       `mapstructure:"amqp"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Swagger    SwaggerConfig    `mapstructure:"swagger"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// LogConfig output is stdout, stderr or a file path
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// lifetimes are in minutes
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int `mapstructure:"conn_max_idle_time"`

	// AutoMigrate applies the embedded migrations when the server starts
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN renders a postgres URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig: with Enabled false the mapping cache and line locks stay in
// process memory.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
	// RateLimit is requests per client and window; 0 disables limiting
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

type QueueConfig struct {
	// BatchSize caps the lines of one queue
	BatchSize int `mapstructure:"batch_size"`
	Workers   int `mapstructure:"workers"`

	AutoProcessEnabled  bool          `mapstructure:"auto_process_enabled"`
	AutoProcessInterval time.Duration `mapstructure:"auto_process_interval"`
	// AutoProcessLimit is queues picked per tick and kind
	AutoProcessLimit int `mapstructure:"auto_process_limit"`

	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	MappingCacheTTL time.Duration `mapstructure:"mapping_cache_ttl"`
}

type StorefrontConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	PageSize        int           `mapstructure:"page_size"`
	MaxResponseSize int64         `mapstructure:"max_response_size"`
}

type AMQPConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	Queue         string `mapstructure:"queue"`
	PrefetchCount int    `mapstructure:"prefetch_count"`
	ConsumerTag   string `mapstructure:"consumer_tag"`
}

type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	ServiceName       string  `mapstructure:"service_name"`
	// Insecure skips TLS to the collector
	Insecure bool `mapstructure:"insecure"`

	DBTraceEnabled bool `mapstructure:"db_trace_enabled"`
	// DBLogFullSQL puts statements with their arguments on spans
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`

	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled     bool          `mapstructure:"logs_enabled"`
	LogsLevel       string        `mapstructure:"logs_level"`

	// Profiling pushes continuous profiles to a Pyroscope server
	ProfilingEnabled    bool   `mapstructure:"profiling_enabled"`
	ProfilingServer     string `mapstructure:"profiling_server"`
	ProfilingUser       string `mapstructure:"profiling_user"`
	ProfilingPassword   string `mapstructure:"profiling_password"`
	ProfilingContention bool   `mapstructure:"profiling_contention"`
}

type AuthConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	TokenExpiration time.Duration `mapstructure:"token_expiration"`
}

// SwaggerConfig guards the /swagger API docs
type SwaggerConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	RequireAuth bool `mapstructure:"require_auth"`
	// AllowedIPs are addresses or CIDR ranges; empty allows every client
	AllowedIPs []string `mapstructure:"allowed_ips"`
}

// Load reads and validates the configuration. A missing config.toml is not
// an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key, which also lets AutomaticEnv reach keys
// absent from the file during Unmarshal.
func setDefaults(v *viper.Viper) {
	for key, value := range map[string]any{
		"app.name": "erp-connector",
		"app.env":  "development",
		"app.port": "8080",

		"http.read_timeout":       15 * time.Second,
		"http.write_timeout":      time.Minute,
		"http.idle_timeout":       time.Minute,
		"http.max_header_bytes":   1 << 20,
		"http.max_body_size":      32 << 20,
		"http.cors_allow_origins": []string{},
		"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
		"http.trusted_proxies":    []string{},
		"http.rate_limit":         0,
		"http.rate_limit_window":  time.Minute,

		"database.host":               "localhost",
		"database.port":               5432,
		"database.user":               "postgres",
		"database.password":           "",
		"database.dbname":             "erp",
		"database.sslmode":            "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  60,
		"database.conn_max_idle_time": 30,
		"database.auto_migrate":       false,

		"redis.enabled":  false,
		"redis.host":     "localhost",
		"redis.port":     6379,
		"redis.password": "",
		"redis.db":       0,

		"log.level":  "info",
		"log.format": "console",
		"log.output": "stdout",

		"queue.batch_size":            50,
		"queue.workers":               2,
		"queue.auto_process_enabled":  false,
		"queue.auto_process_interval": time.Minute,
		"queue.auto_process_limit":    20,
		"queue.lock_ttl":              5 * time.Minute,
		"queue.mapping_cache_ttl":     10 * time.Minute,

		"storefront.timeout":           30 * time.Second,
		"storefront.page_size":         50,
		"storefront.max_response_size": 20 << 20,

		"amqp.enabled":        false,
		"amqp.url":            "",
		"amqp.queue":          "storefront.orders",
		"amqp.prefetch_count": 10,
		"amqp.consumer_tag":   "erp-connector",

		"telemetry.enabled":                 false,
		"telemetry.collector_endpoint":      "localhost:4317",
		"telemetry.sampling_ratio":          1.0,
		"telemetry.service_name":            "erp-connector",
		"telemetry.insecure":                false,
		"telemetry.db_trace_enabled":        false,
		"telemetry.db_log_full_sql":         false,
		"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
		"telemetry.metrics_enabled":         false,
		"telemetry.metrics_interval":        time.Minute,
		"telemetry.logs_enabled":            false,
		"telemetry.logs_level":              "info",
		"telemetry.profiling_enabled":       false,
		"telemetry.profiling_server":        "http://localhost:4040",
		"telemetry.profiling_user":          "",
		"telemetry.profiling_password":      "",
		"telemetry.profiling_contention":    false,

		"auth.enabled":          false,
		"auth.secret":           "",
		"auth.issuer":           "erp-connector",
		"auth.token_expiration": 24 * time.Hour,

		"swagger.enabled":      true,
		"swagger.require_auth": false,
		"swagger.allowed_ips":  []string{},
	} {
		v.SetDefault(key, value)
	}
}

// validate reports every problem at once
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	check(c.Queue.BatchSize >= 0, "queue.batch_size cannot be negative")
	check(c.Queue.Workers >= 0, "queue.workers cannot be negative")
	check(!c.AMQP.Enabled || c.AMQP.URL != "", "amqp.url is required when amqp is enabled")
	check(!c.Auth.Enabled || c.Auth.Secret != "", "auth.secret is required when auth is enabled")
	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)

	if c.App.Env == envProduction {
		check(c.Auth.Enabled, "auth.enabled must be true in production")
		check(len(c.Auth.Secret) >= 32, "auth.secret must be at least 32 characters in production")
		check(db.Password != "", "database.password is required in production")
		check(db.SSLMode != "disable", "database.sslmode cannot be 'disable' in production")
		check(!slices.Contains(c.HTTP.CORSAllowOrigins, "*"), "http.cors_allow_origins cannot be '*' in production")
		check(!c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
		check(!c.Swagger.Enabled || c.Swagger.RequireAuth || len(c.Swagger.AllowedIPs) > 0,
			"swagger must be disabled, require auth or restrict allowed_ips in production")
	}
	return errors.Join(errs...)
}
