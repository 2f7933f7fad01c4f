// Package config loads and validates runtime configuration from the
// environment. A .env file is honored when present. The loaded value is
// injected into components; there is no process-wide config singleton.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// Config is the full runtime configuration.
type Config struct {
	DB       DBConfig
	Server   ServerConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

// DBConfig holds PostgreSQL connection settings. When SecretName is set the
// credentials are resolved from AWS Secrets Manager at startup and override
// the plain values.
type DBConfig struct {
	Host       string
	Port       int
	Name       string
	Username   string
	Password   string
	SSLMode    string
	SecretName string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// DSN renders the lib/pq connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.Username, d.Password, d.SSLMode)
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AnalysisConfig drives the orchestrator and scheduler.
type AnalysisConfig struct {
	Mode          domain.AnalysisMode
	Schedule      string // cron spec; empty disables scheduling
	LookbackDays  int
	WorkerLimit   int // 0 means min(GOMAXPROCS, assets)
	DedupLookback time.Duration
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads the environment (plus .env when present) and validates it.
func Load() (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		DB: DBConfig{
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", ""),
			Username:        getEnv("DB_USERNAME", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			SecretName:      getEnv("DB_SECRET_NAME", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			QueryTimeout:    getEnvAsDuration("DB_QUERY_TIMEOUT", 30*time.Second),
		},
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Analysis: AnalysisConfig{
			Mode:          domain.AnalysisMode(getEnv("ANALYSIS_MODE", string(domain.ModeAdvanced))),
			Schedule:      getEnv("ANALYSIS_SCHEDULE", "0 0 */6 * * *"),
			LookbackDays:  getEnvAsInt("ANALYSIS_LOOKBACK_DAYS", 180),
			WorkerLimit:   getEnvAsInt("ANALYSIS_WORKERS", 0),
			DedupLookback: getEnvAsDuration("ANALYSIS_DEDUP_LOOKBACK", 3*24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !c.Analysis.Mode.Valid() {
		return fmt.Errorf("config: unknown ANALYSIS_MODE %q (want legacy or advanced)", c.Analysis.Mode)
	}
	if c.Analysis.LookbackDays < 1 {
		return fmt.Errorf("config: ANALYSIS_LOOKBACK_DAYS must be positive, got %d", c.Analysis.LookbackDays)
	}

	// With a secret name the credentials come from Secrets Manager later;
	// only the target database still has to be named.
	if c.DB.SecretName != "" {
		if c.DB.Name == "" {
			return fmt.Errorf("config: DB_NAME is required")
		}
		return nil
	}
	for name, val := range map[string]string{
		"DB_HOST":     c.DB.Host,
		"DB_NAME":     c.DB.Name,
		"DB_USERNAME": c.DB.Username,
		"DB_PASSWORD": c.DB.Password,
	} {
		if val == "" {
			return fmt.Errorf("config: %s is required", name)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
