package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Env      string `env:"APP_ENV" env-default:"dev"`
	LogLevel string `env:"LOG_LEVEL"`
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`
	GinMode  string `env:"GIN_MODE" env-default:"debug"`
	DB       DBConfig
	Redis    RedisConfig
	Session  SessionConfig
}

type DBConfig struct {
	Driver   string `env:"DB_DRIVER" env-default:"mysql"`
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"3306"`
	User     string `env:"DB_USER" env-default:"worklog"`
	Password string `env:"DB_PASSWORD" env-default:"worklog"`
	Name     string `env:"DB_NAME" env-default:"worklog"`
	Path     string `env:"DB_PATH" env-default:"worklog.db"`
}

// RedisConfig selects the redis session store. An empty host falls back to cookie sessions.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT" env-default:"6379"`
	Password string `env:"REDIS_PASSWORD"`
}

func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type SessionConfig struct {
	Secret string        `env:"SESSION_SECRET" env-default:"default-secret-key-change-me"`
	MaxAge time.Duration `env:"SESSION_MAX_AGE" env-default:"168h"`
}

// Release reports whether gin runs in release mode.
func (c ServerConfig) Release() bool {
	return c.GinMode == "release"
}

// ClientConfig configures the worklog CLI. Flags override these values.
type ClientConfig struct {
	Env            string        `env:"APP_ENV" env-default:"local"`
	LogLevel       string        `env:"LOG_LEVEL" env-default:"warn"`
	Server         string        `env:"WORKLOG_SERVER" env-default:"http://localhost:8080"`
	Email          string        `env:"WORKLOG_EMAIL"`
	Password       string        `env:"WORKLOG_PASSWORD"`
	RetryAttempts  int           `env:"WORKLOG_RETRY_ATTEMPTS" env-default:"3"`
	RetryBaseDelay time.Duration `env:"WORKLOG_RETRY_BASE_DELAY" env-default:"1s"`
	HTTPTimeout    time.Duration `env:"WORKLOG_HTTP_TIMEOUT" env-default:"10s"`
}

// LoadServer reads the server configuration from the environment.
func LoadServer() (*ServerConfig, error) {
	cfg := new(ServerConfig)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}
	switch cfg.DB.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	return cfg, nil
}

// LoadClient reads the CLI configuration from the environment.
func LoadClient() (*ClientConfig, error) {
	cfg := new(ClientConfig)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read client config: %w", err)
	}
	if cfg.RetryAttempts < 1 {
		return nil, fmt.Errorf("WORKLOG_RETRY_ATTEMPTS must be at least 1, got %d", cfg.RetryAttempts)
	}
	return cfg, nil
}
