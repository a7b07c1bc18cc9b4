// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pesio-ai/be-quote-approvals/internal/preview"
)

// Step sources understood by the server.
const (
	StepSourcePostgres   = "postgres"
	StepSourceRecordsAPI = "records_api"
)

// Config is the root configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	RecordsAPI RecordsAPIConfig `yaml:"records_api"`
	Preview    PreviewConfig    `yaml:"preview"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	GRPCPort        int           `yaml:"grpc_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// DatabaseConfig holds Postgres pool settings.
type DatabaseConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Database    string        `yaml:"database"`
	SSLMode     string        `yaml:"ssl_mode"`
	MaxConns    int32         `yaml:"max_conns"`
	MinConns    int32         `yaml:"min_conns"`
	MaxConnTime time.Duration `yaml:"max_conn_time"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
	HealthCheck time.Duration `yaml:"health_check"`
}

// RedisConfig configures the approval answer cache. An empty URL disables it.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	AnswerTTL time.Duration `yaml:"answer_ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// RecordsAPIConfig configures the remote records API step source.
type RecordsAPIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// PreviewConfig is the presentation configuration surface of the approval
// preview: status colors, level range and icon location.
type PreviewConfig struct {
	StepSource     string `yaml:"step_source"`
	StatusColorMap string `yaml:"status_color_map"`
	ApprovedColor  string `yaml:"approved_color"`
	RejectedColor  string `yaml:"rejected_color"`
	PendingColor   string `yaml:"pending_color"`
	NAColor        string `yaml:"na_color"`
	MaxLevel       int    `yaml:"max_level"`
	DividerLevel   int    `yaml:"divider_level"`
	IconBasePath   string `yaml:"icon_base_path"`

	MaxBoards    int           `yaml:"max_boards"`
	BoardIdleTTL time.Duration `yaml:"board_idle_ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "be-quote-approvals",
			Version:     "dev",
			Environment: "development",
			LogLevel:    "info",
		},
		Server: ServerConfig{
			Port:            8086,
			GRPCPort:        9086,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Host:        "localhost",
			Port:        5432,
			User:        "postgres",
			Database:    "quotes",
			SSLMode:     "disable",
			MaxConns:    10,
			MinConns:    1,
			MaxConnTime: time.Hour,
			MaxIdleTime: 30 * time.Minute,
			HealthCheck: time.Minute,
		},
		Redis: RedisConfig{
			AnswerTTL: 5 * time.Minute,
			KeyPrefix: "approval-answers:",
		},
		RecordsAPI: RecordsAPIConfig{
			Timeout: 10 * time.Second,
		},
		Preview: PreviewConfig{
			StepSource:   StepSourcePostgres,
			MaxLevel:     5,
			DividerLevel: 2,
			IconBasePath: "/resource/ApprovalPreviewIcons",
			MaxBoards:    1000,
			BoardIdleTTL: 30 * time.Minute,
		},
	}
}

// Load builds the configuration. CONFIG_FILE, when set, names a YAML file
// applied over the defaults; environment variables win over both.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Service.Name = getEnv("SERVICE_NAME", c.Service.Name)
	c.Service.Version = getEnv("SERVICE_VERSION", c.Service.Version)
	c.Service.Environment = getEnv("ENVIRONMENT", c.Service.Environment)
	c.Service.LogLevel = getEnv("LOG_LEVEL", c.Service.LogLevel)

	c.Server.Port = getEnvInt("HTTP_PORT", c.Server.Port)
	c.Server.GRPCPort = getEnvInt("GRPC_PORT", c.Server.GRPCPort)
	c.Server.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("HTTP_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.RequestTimeout = getEnvDuration("HTTP_REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(c.Database.MaxConns)))
	c.Database.MinConns = int32(getEnvInt("DB_MIN_CONNS", int(c.Database.MinConns)))

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Redis.AnswerTTL = getEnvDuration("REDIS_ANSWER_TTL", c.Redis.AnswerTTL)

	c.RecordsAPI.BaseURL = getEnv("RECORDS_API_URL", c.RecordsAPI.BaseURL)
	c.RecordsAPI.Token = getEnv("RECORDS_API_TOKEN", c.RecordsAPI.Token)
	c.RecordsAPI.Timeout = getEnvDuration("RECORDS_API_TIMEOUT", c.RecordsAPI.Timeout)

	c.Preview.StepSource = getEnv("STEP_SOURCE", c.Preview.StepSource)
	c.Preview.StatusColorMap = getEnv("STATUS_COLOR_MAP", c.Preview.StatusColorMap)
	c.Preview.ApprovedColor = getEnv("APPROVED_COLOR", c.Preview.ApprovedColor)
	c.Preview.RejectedColor = getEnv("REJECTED_COLOR", c.Preview.RejectedColor)
	c.Preview.PendingColor = getEnv("PENDING_COLOR", c.Preview.PendingColor)
	c.Preview.NAColor = getEnv("NA_COLOR", c.Preview.NAColor)
	c.Preview.MaxLevel = getEnvInt("MAX_LEVEL", c.Preview.MaxLevel)
	c.Preview.DividerLevel = getEnvInt("DIVIDER_LEVEL", c.Preview.DividerLevel)
	c.Preview.IconBasePath = getEnv("ICON_BASE_PATH", c.Preview.IconBasePath)
	c.Preview.MaxBoards = getEnvInt("MAX_BOARDS", c.Preview.MaxBoards)
	c.Preview.BoardIdleTTL = getEnvDuration("BOARD_IDLE_TTL", c.Preview.BoardIdleTTL)
}

// Validate checks settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.GRPCPort <= 0 {
		return fmt.Errorf("http and grpc ports must be positive (http=%d, grpc=%d)", c.Server.Port, c.Server.GRPCPort)
	}
	switch c.Preview.StepSource {
	case StepSourcePostgres:
	case StepSourceRecordsAPI:
		if c.RecordsAPI.BaseURL == "" {
			return fmt.Errorf("RECORDS_API_URL is required when STEP_SOURCE=%s", StepSourceRecordsAPI)
		}
	default:
		return fmt.Errorf("unknown step source %q", c.Preview.StepSource)
	}
	if c.Preview.MaxLevel > preview.MaxLevelLimit {
		return fmt.Errorf("max_level %d exceeds %d", c.Preview.MaxLevel, preview.MaxLevelLimit)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
