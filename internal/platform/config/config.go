// Package config loads every knob the platform reads from the environment.
// One Load() at startup keeps main lean; nothing else in the tree touches
// os.Getenv.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment of the gateway and the admin CLI.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Session  Session
	OAuth    OAuth
	Guard    Guard
	Blob     Blob
	Audit    Audit
	Limits   Limits
	Tracing  Tracing
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string `env:"ATRIUM_ADDR" envDefault:":8080"`
	OpsAddr     string `env:"ATRIUM_OPS_ADDR" envDefault:":9090"`
	DefaultSite string `env:"ATRIUM_DEFAULT_SITE" envDefault:"corp"`
	LogFormat   string `env:"ATRIUM_LOG_FORMAT" envDefault:"text"`
	LogLevel    string `env:"ATRIUM_LOG_LEVEL" envDefault:"info"`
}

// Postgres configures the shared database pool.
type Postgres struct {
	DSN          string        `env:"ATRIUM_POSTGRES_DSN"`
	MaxOpenConns int           `env:"ATRIUM_POSTGRES_MAX_OPEN" envDefault:"25"`
	MaxIdleConns int           `env:"ATRIUM_POSTGRES_MAX_IDLE" envDefault:"5"`
	ConnLifetime time.Duration `env:"ATRIUM_POSTGRES_CONN_LIFETIME" envDefault:"30m"`
}

// Redis configures the cache used for callback locks, result slots, and rate
// limit buckets. Empty URL means the in-memory fallbacks are used.
type Redis struct {
	URL          string        `env:"ATRIUM_REDIS_URL"`
	PoolSize     int           `env:"ATRIUM_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"ATRIUM_REDIS_MIN_IDLE" envDefault:"2"`
	DialTimeout  time.Duration `env:"ATRIUM_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"ATRIUM_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"ATRIUM_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Session configures browser session cookies and their JWTs.
type Session struct {
	SigningKey string        `env:"ATRIUM_SESSION_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	TTL        time.Duration `env:"ATRIUM_SESSION_TTL" envDefault:"720h"`
	Secure     bool          `env:"ATRIUM_SESSION_SECURE" envDefault:"true"`
}

// OAuth configures the social login flows shared by all sites. Per-provider
// credentials; which providers a site actually offers lives on the Site
// record.
type OAuth struct {
	StateTTL     time.Duration `env:"ATRIUM_OAUTH_STATE_TTL" envDefault:"10m"`
	CallbackBase string        `env:"ATRIUM_OAUTH_CALLBACK_BASE"`

	GoogleClientID        string `env:"ATRIUM_OAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `env:"ATRIUM_OAUTH_GOOGLE_CLIENT_SECRET"`
	MicrosoftClientID     string `env:"ATRIUM_OAUTH_MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `env:"ATRIUM_OAUTH_MICROSOFT_CLIENT_SECRET"`
	MicrosoftTenant       string `env:"ATRIUM_OAUTH_MICROSOFT_TENANT" envDefault:"common"`
	FacebookClientID      string `env:"ATRIUM_OAUTH_FACEBOOK_CLIENT_ID"`
	FacebookClientSecret  string `env:"ATRIUM_OAUTH_FACEBOOK_CLIENT_SECRET"`
	LinkedInClientID      string `env:"ATRIUM_OAUTH_LINKEDIN_CLIENT_ID"`
	LinkedInClientSecret  string `env:"ATRIUM_OAUTH_LINKEDIN_CLIENT_SECRET"`
}

// Guard configures the callback replay guard.
type Guard struct {
	LockTTL      time.Duration `env:"ATRIUM_GUARD_LOCK_TTL" envDefault:"10s"`
	WaitBudget   time.Duration `env:"ATRIUM_GUARD_WAIT_BUDGET" envDefault:"5s"`
	PollInterval time.Duration `env:"ATRIUM_GUARD_POLL_INTERVAL" envDefault:"150ms"`
	SlotTTL      time.Duration `env:"ATRIUM_GUARD_SLOT_TTL" envDefault:"30s"`
}

// Blob configures the per-site blob storage account. The default connection
// string targets Azurite, the local Azure Storage emulator.
type Blob struct {
	ConnectionString string `env:"ATRIUM_BLOB_CONNECTION_STRING" envDefault:"DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"`
}

// Audit configures the audit trail fan-out. Empty brokers keeps events on the
// in-memory store only.
type Audit struct {
	KafkaBrokers []string `env:"ATRIUM_AUDIT_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"ATRIUM_AUDIT_KAFKA_TOPIC" envDefault:"atrium.audit.login"`
	BufferSize   int      `env:"ATRIUM_AUDIT_BUFFER" envDefault:"1024"`
}

// Limits configures rate limiting on the auth endpoints.
type Limits struct {
	AuthPerWindow int           `env:"ATRIUM_LIMIT_AUTH_REQUESTS" envDefault:"20"`
	AuthWindow    time.Duration `env:"ATRIUM_LIMIT_AUTH_WINDOW" envDefault:"1m"`
	Disabled      bool          `env:"ATRIUM_LIMIT_DISABLED"`
}

// Tracing configures the OTLP trace exporter. Disabled unless an endpoint is
// set.
type Tracing struct {
	Endpoint string `env:"ATRIUM_OTLP_ENDPOINT"`
	Insecure bool   `env:"ATRIUM_OTLP_INSECURE" envDefault:"true"`
}

// Load parses the full configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
