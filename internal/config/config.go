package config

import (
	"time"

	"github.com/smera-app/smera/internal/retry"
)

// Config holds the configuration of the smera-server binary.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Retry    retry.Config   `mapstructure:"retry"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Quota    QuotaConfig    `mapstructure:"quota"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains the Postgres connection settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains the bearer token settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"     validate:"required,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// LLMConfig contains the Gemini settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
	// RequestsPerSecond and Burst shape the client-side rate limiter.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst"               validate:"gt=0"`
}

// JobsConfig contains the background job runner settings.
type JobsConfig struct {
	WorkerCount           int           `mapstructure:"worker_count"             validate:"gt=0"`
	QueueSize             int           `mapstructure:"queue_size"               validate:"gt=0"`
	StuckJobAge           time.Duration `mapstructure:"stuck_job_age"            validate:"gt=0"`
	StuckJobCheckInterval time.Duration `mapstructure:"stuck_job_check_interval" validate:"gt=0"`
}

// PlanLimits are the quotas of one plan. -1 means unlimited.
type PlanLimits struct {
	Spaces    int `mapstructure:"spaces"     validate:"gte=-1"`
	AIParse   int `mapstructure:"ai_parse"   validate:"gte=-1"`
	AISummary int `mapstructure:"ai_summary" validate:"gte=-1"`
}

// QuotaConfig holds the limits of every plan.
type QuotaConfig struct {
	Free PlanLimits `mapstructure:"free"`
	Pro  PlanLimits `mapstructure:"pro"`
}

// ClientConfig holds the configuration of the smera CLI.
type ClientConfig struct {
	Client ClientSettings `mapstructure:"client" validate:"required"`
	Retry  retry.Config   `mapstructure:"retry"`
}

// ClientSettings contains the backend and offline queue settings of the CLI.
type ClientSettings struct {
	ServerURL      string        `mapstructure:"server_url"      validate:"required,url"`
	Token          string        `mapstructure:"token"`
	QueuePath      string        `mapstructure:"queue_path"      validate:"required"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"  validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	LogLevel       string        `mapstructure:"log_level"       validate:"required,oneof=debug info warn error"`
}
