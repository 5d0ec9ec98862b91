package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smera-app/smera/internal/retry"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load and LoadClient,
// e.g. SMERA_DATABASE_URL or SMERA_CLIENT_SERVER_URL.
const EnvPrefix = "SMERA"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the server configuration. Values come from, in increasing
// precedence: defaults, the YAML file at path (optional; "" looks for
// ./config.yaml) and SMERA_* environment variables.
func Load(path string) (*Config, error) {
	v := newViper()
	setServerDefaults(v)

	// Required keys have no default; bind them so the environment is seen.
	for _, key := range []string{"database.url", "auth.jwt_secret", "llm.gemini_api_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := readFile(v, path, "config"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadClient reads the CLI configuration from defaults, the YAML file at path
// ("" looks for ~/.smera/config.yaml) and SMERA_* environment variables.
func LoadClient(path string) (*ClientConfig, error) {
	v := newViper()

	home := DefaultClientDir()
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.token", "")
	v.SetDefault("client.queue_path", filepath.Join(home, "queue.db"))
	v.SetDefault("client.probe_interval", "15s")
	v.SetDefault("client.request_timeout", "20s")
	v.SetDefault("client.log_level", "warn")
	setRetryDefaults(v)

	if path == "" {
		path = filepath.Join(home, "config.yaml")
	}
	if err := readFile(v, path, ""); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal client config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}
	return &cfg, nil
}

// DefaultClientDir is the directory holding the CLI config and queue file.
func DefaultClientDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smera"
	}
	return filepath.Join(home, ".smera")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readFile merges a YAML file into v. A missing file is not an error unless
// it was named explicitly.
func readFile(v *viper.Viper, path, fallbackName string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fallbackName)
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		if path != "" && fallbackName != "" {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("auth.token_lifetime", "720h")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 4)

	v.SetDefault("jobs.worker_count", 2)
	v.SetDefault("jobs.queue_size", 100)
	v.SetDefault("jobs.stuck_job_age", "30m")
	v.SetDefault("jobs.stuck_job_check_interval", "5m")

	v.SetDefault("quota.free.spaces", 3)
	v.SetDefault("quota.free.ai_parse", 50)
	v.SetDefault("quota.free.ai_summary", 20)
	v.SetDefault("quota.pro.spaces", -1)
	v.SetDefault("quota.pro.ai_parse", 2000)
	v.SetDefault("quota.pro.ai_summary", 500)

	setRetryDefaults(v)
}

func setRetryDefaults(v *viper.Viper) {
	def := retry.DefaultConfig()
	v.SetDefault("retry.max_retries", def.MaxRetries)
	v.SetDefault("retry.initial_delay", def.InitialDelay.String())
	v.SetDefault("retry.multiplier", def.Multiplier)
	v.SetDefault("retry.max_delay", def.MaxDelay.String())
	v.SetDefault("retry.timeout", def.Timeout.String())
}
