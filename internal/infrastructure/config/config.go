package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. CHANNELSYNC_MARKETPLACE_TOKEN.
const EnvPrefix = "CHANNELSYNC"

// Config holds all application configuration
type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	Telemetry    TelemetryConfig
	Marketplace  MarketplaceConfig
	Carrier      CarrierConfig
	Sync         SyncConfig
	Notification NotificationConfig
	Storage      StorageConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// HTTPConfig holds the ops API settings
type HTTPConfig struct {
	Enabled      bool
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// SwaggerEnabled serves the API docs under /swagger/. An empty
	// SwaggerAllowedIPs admits every client.
	SwaggerEnabled    bool
	SwaggerAllowedIPs []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	LogLevel        string
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. Without Redis, run locks are
// held in process memory.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string
	Format     string
	Output     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	DBTraceEnabled    bool
	ProfilingEnabled  bool
	ProfilerAddress   string
}

// MarketplaceConfig holds the marketplace API settings
type MarketplaceConfig struct {
	Code              string
	BaseURL           string
	Token             string
	InventoryPath     string
	OrdersPath        string
	PushPath          string
	Timeout           time.Duration
	MaxRetries        int
	RetryInterval     time.Duration
	RequestsPerSecond float64
}

// CarrierConfig holds carrier API client settings. Credentials live on the
// shipping carrier records.
type CarrierConfig struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// SyncConfig holds engine and scheduling settings
type SyncConfig struct {
	InventoryPageSize int
	InventoryMaxPages int
	OrderPageSize     int
	OrderMaxPages     int
	PushBatchSize     int
	ShipmentBatchSize int
	ShipmentThrottle  time.Duration
	ErrorSampleLimit  int

	Workers    int
	JobTimeout time.Duration
	LockTTL    time.Duration

	// A zero interval disables periodic scheduling of the job.
	InventoryInterval time.Duration
	PushInterval      time.Duration
	OrderInterval     time.Duration
	ShipmentInterval  time.Duration
}

// NotificationConfig holds report delivery settings
type NotificationConfig struct {
	Recipients      []string
	SubjectPrefix   string
	WebhookURL      string
	WebhookToken    string
	Locale          string
	NotifyOnSuccess bool
}

// StorageConfig holds the S3 report archive settings
type StorageConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Prefix          string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CHANNELSYNC_ prefix (e.g., CHANNELSYNC_MARKETPLACE_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/channelsync")
	v.SetDefault("http.enabled", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Enabled:      v.GetBool("http.enabled"),
			Port:         v.GetString("http.port"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),

			SwaggerEnabled:    v.GetBool("http.swagger_enabled"),
			SwaggerAllowedIPs: v.GetStringSlice("http.swagger_allowed_ips"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
			Compress:   v.GetBool("log.compress"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilerAddress:   v.GetString("telemetry.profiler_address"),
		},
		Marketplace: MarketplaceConfig{
			Code:              v.GetString("marketplace.code"),
			BaseURL:           v.GetString("marketplace.base_url"),
			Token:             v.GetString("marketplace.token"),
			InventoryPath:     v.GetString("marketplace.inventory_path"),
			OrdersPath:        v.GetString("marketplace.orders_path"),
			PushPath:          v.GetString("marketplace.push_path"),
			Timeout:           v.GetDuration("marketplace.timeout"),
			MaxRetries:        v.GetInt("marketplace.max_retries"),
			RetryInterval:     v.GetDuration("marketplace.retry_interval"),
			RequestsPerSecond: v.GetFloat64("marketplace.requests_per_second"),
		},
		Carrier: CarrierConfig{
			Timeout:       v.GetDuration("carrier.timeout"),
			MaxRetries:    v.GetInt("carrier.max_retries"),
			RetryInterval: v.GetDuration("carrier.retry_interval"),
		},
		Sync: SyncConfig{
			InventoryPageSize: v.GetInt("sync.inventory_page_size"),
			InventoryMaxPages: v.GetInt("sync.inventory_max_pages"),
			OrderPageSize:     v.GetInt("sync.order_page_size"),
			OrderMaxPages:     v.GetInt("sync.order_max_pages"),
			PushBatchSize:     v.GetInt("sync.push_batch_size"),
			ShipmentBatchSize: v.GetInt("sync.shipment_batch_size"),
			ShipmentThrottle:  v.GetDuration("sync.shipment_throttle"),
			ErrorSampleLimit:  v.GetInt("sync.error_sample_limit"),
			Workers:           v.GetInt("sync.workers"),
			JobTimeout:        v.GetDuration("sync.job_timeout"),
			LockTTL:           v.GetDuration("sync.lock_ttl"),
			InventoryInterval: v.GetDuration("sync.inventory_interval"),
			PushInterval:      v.GetDuration("sync.push_interval"),
			OrderInterval:     v.GetDuration("sync.order_interval"),
			ShipmentInterval:  v.GetDuration("sync.shipment_interval"),
		},
		Notification: NotificationConfig{
			Recipients:      v.GetStringSlice("notification.recipients"),
			SubjectPrefix:   v.GetString("notification.subject_prefix"),
			WebhookURL:      v.GetString("notification.webhook_url"),
			WebhookToken:    v.GetString("notification.webhook_token"),
			Locale:          v.GetString("notification.locale"),
			NotifyOnSuccess: v.GetBool("notification.notify_on_success"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			Prefix:          v.GetString("storage.prefix"),
		},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channelsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8081"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "channelsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 7
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}

	if cfg.Marketplace.Code == "" {
		cfg.Marketplace.Code = "marketplace"
	}
	if cfg.Marketplace.InventoryPath == "" {
		cfg.Marketplace.InventoryPath = "/inventory"
	}
	if cfg.Marketplace.OrdersPath == "" {
		cfg.Marketplace.OrdersPath = "/orders"
	}
	if cfg.Marketplace.PushPath == "" {
		cfg.Marketplace.PushPath = "/inventory/stock"
	}
	if cfg.Marketplace.Timeout == 0 {
		cfg.Marketplace.Timeout = 30 * time.Second
	}
	if cfg.Marketplace.MaxRetries == 0 {
		cfg.Marketplace.MaxRetries = 3
	}
	if cfg.Marketplace.RetryInterval == 0 {
		cfg.Marketplace.RetryInterval = time.Second
	}

	if cfg.Carrier.Timeout == 0 {
		cfg.Carrier.Timeout = 20 * time.Second
	}
	if cfg.Carrier.MaxRetries == 0 {
		cfg.Carrier.MaxRetries = 2
	}
	if cfg.Carrier.RetryInterval == 0 {
		cfg.Carrier.RetryInterval = 2 * time.Second
	}

	if cfg.Sync.InventoryPageSize == 0 {
		cfg.Sync.InventoryPageSize = 100
	}
	if cfg.Sync.InventoryMaxPages == 0 {
		cfg.Sync.InventoryMaxPages = 500
	}
	if cfg.Sync.OrderPageSize == 0 {
		cfg.Sync.OrderPageSize = 50
	}
	if cfg.Sync.OrderMaxPages == 0 {
		cfg.Sync.OrderMaxPages = 20
	}
	if cfg.Sync.PushBatchSize == 0 {
		cfg.Sync.PushBatchSize = 100
	}
	if cfg.Sync.ShipmentBatchSize == 0 {
		cfg.Sync.ShipmentBatchSize = 200
	}
	if cfg.Sync.ShipmentThrottle == 0 {
		cfg.Sync.ShipmentThrottle = 5 * time.Second
	}
	if cfg.Sync.ErrorSampleLimit == 0 {
		cfg.Sync.ErrorSampleLimit = 10
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 2
	}
	if cfg.Sync.JobTimeout == 0 {
		cfg.Sync.JobTimeout = 2 * time.Hour
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = cfg.Sync.JobTimeout + 5*time.Minute
	}

	if cfg.Notification.SubjectPrefix == "" {
		cfg.Notification.SubjectPrefix = "[channelsync]"
	}
	if cfg.Notification.Locale == "" {
		cfg.Notification.Locale = "en"
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "reports"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilerAddress == "" {
		return fmt.Errorf("telemetry.profiler_address is required when profiling is enabled")
	}
	if c.Marketplace.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Marketplace.BaseURL); err != nil {
			return fmt.Errorf("marketplace.base_url is invalid: %w", err)
		}
	}
	if c.Marketplace.RequestsPerSecond < 0 {
		return fmt.Errorf("marketplace.requests_per_second cannot be negative")
	}
	if c.Sync.ShipmentThrottle < 0 {
		return fmt.Errorf("sync.shipment_throttle cannot be negative")
	}
	if c.Sync.LockTTL < c.Sync.JobTimeout {
		return fmt.Errorf("sync.lock_ttl (%s) must not be shorter than sync.job_timeout (%s)", c.Sync.LockTTL, c.Sync.JobTimeout)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Marketplace.BaseURL == "" || c.Marketplace.Token == "" {
			return fmt.Errorf("marketplace.base_url and marketplace.token are required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port of the Redis server.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
