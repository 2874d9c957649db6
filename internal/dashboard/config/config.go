package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend        string `env:"STORE" envDefault:"mongo"`
	MongoDBURI     string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabasePrefix string `env:"TENANT_DB_PREFIX" envDefault:"office_org_"`
}

// RedisConfig holds connection settings. Redis is optional: with an empty
// host the service runs without resume streams and without page caching.
type RedisConfig struct {
	Host            string `env:"REDIS_HOST"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
	// StreamMaxLength is the length change streams are trimmed to.
	StreamMaxLength int64 `env:"REDIS_STREAM_MAX_LENGTH" envDefault:"10000"`
}

// Enabled reports whether a Redis host was configured.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// GetAddr returns host:port.
func (c RedisConfig) GetAddr() string { return c.Host + ":" + c.Port }

// RealtimeConfig configures live queries.
type RealtimeConfig struct {
	WebSocketPath string `env:"WEBSOCKET_PATH" envDefault:"/ws/v1/listen"`
	// ClientSendBuffer is the per-connection outbound queue; a full queue drops events.
	ClientSendBuffer int `env:"CLIENT_SEND_CHANNEL_BUFFER" envDefault:"64"`
	// InboundRate is the allowed client messages per second, with InboundBurst.
	InboundRate  float64 `env:"WS_INBOUND_RATE" envDefault:"20"`
	InboundBurst int     `env:"WS_INBOUND_BURST" envDefault:"40"`
}

// PagesConfig configures the public page engine.
type PagesConfig struct {
	CacheTTL time.Duration `env:"PAGE_CACHE_TTL" envDefault:"5m"`
	// ResponsesPerMinute limits public submissions per client IP.
	ResponsesPerMinute int `env:"PAGE_RESPONSES_PER_MINUTE" envDefault:"10"`
}

// MediaConfig configures object storage. An empty endpoint keeps uploads
// in memory.
type MediaConfig struct {
	Endpoint     string        `env:"MINIO_ENDPOINT"`
	AccessKey    string        `env:"MINIO_ACCESS_KEY"`
	SecretKey    string        `env:"MINIO_SECRET_KEY"`
	Bucket       string        `env:"MINIO_BUCKET" envDefault:"office-media"`
	UseSSL       bool          `env:"MINIO_USE_SSL" envDefault:"false"`
	MaxUploadMiB int           `env:"MEDIA_MAX_UPLOAD_MIB" envDefault:"10"`
	URLExpiry    time.Duration `env:"MEDIA_URL_EXPIRY" envDefault:"15m"`
}

// MaxUploadBytes is MaxUploadMiB in bytes.
func (c MediaConfig) MaxUploadBytes() int64 { return int64(c.MaxUploadMiB) << 20 }

// MailConfig configures contact notifications. Without an API key mails
// are logged instead of sent.
type MailConfig struct {
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	FromEmail      string `env:"MAIL_FROM_EMAIL" envDefault:"no-reply@office.local"`
	FromName       string `env:"MAIL_FROM_NAME" envDefault:"Office dashboard"`
}

// SchedulerConfig holds cron specs for maintenance jobs.
type SchedulerConfig struct {
	Enabled          bool   `env:"SCHEDULER_ENABLED" envDefault:"true"`
	InvoiceSweepSpec string `env:"INVOICE_SWEEP_SPEC" envDefault:"@hourly"`
	StreamTrimSpec   string `env:"STREAM_TRIM_SPEC" envDefault:"@daily"`
}

// DashboardConfig is the configuration of the dashboard module.
type DashboardConfig struct {
	Store     StoreConfig
	Redis     RedisConfig
	Realtime  RealtimeConfig
	Pages     PagesConfig
	Media     MediaConfig
	Mail      MailConfig
	Scheduler SchedulerConfig
}

// LoadConfig reads the module configuration from the environment.
func LoadConfig() (*DashboardConfig, error) {
	cfg := &DashboardConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load dashboard configuration from environment: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *DashboardConfig) Validate() error {
	c.Store.Backend = strings.ToLower(c.Store.Backend)
	if c.Store.Backend != StoreMongo && c.Store.Backend != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store.Backend)
	}
	if c.Store.Backend == StoreMongo && c.Store.MongoDBURI == "" {
		return errors.New("MONGODB_URI is required when STORE=mongo")
	}
	if c.Realtime.ClientSendBuffer <= 0 {
		c.Realtime.ClientSendBuffer = 64
	}
	if c.Realtime.InboundRate <= 0 {
		return errors.New("WS_INBOUND_RATE must be positive")
	}
	if c.Media.MaxUploadMiB <= 0 {
		c.Media.MaxUploadMiB = 10
	}
	if c.Media.Endpoint != "" && (c.Media.AccessKey == "" || c.Media.SecretKey == "") {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required with MINIO_ENDPOINT")
	}
	return nil
}

// DefaultDashboardConfig returns an in-memory configuration for tests and
// local development.
func DefaultDashboardConfig() *DashboardConfig {
	return &DashboardConfig{
		Store:    StoreConfig{Backend: StoreMemory, DatabasePrefix: "office_org_"},
		Redis:    RedisConfig{Port: "6379", StreamMaxLength: 10000},
		Realtime: RealtimeConfig{WebSocketPath: "/ws/v1/listen", ClientSendBuffer: 64, InboundRate: 20, InboundBurst: 40},
		Pages:    PagesConfig{CacheTTL: 5 * time.Minute, ResponsesPerMinute: 10},
		Media:    MediaConfig{Bucket: "office-media", MaxUploadMiB: 10, URLExpiry: 15 * time.Minute},
		Mail:     MailConfig{FromEmail: "no-reply@office.local", FromName: "Office dashboard"},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			InvoiceSweepSpec: "@hourly",
			StreamTrimSpec:   "@daily",
		},
	}
}
