package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/hookdeck/workerctl/internal/logsink"
	"github.com/hookdeck/workerctl/internal/otel"
	"github.com/hookdeck/workerctl/internal/redis"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func getConfigLocations() []string {
	return []string{
		// Relative paths
		".env",
		".workerctl.yaml",
		"config/workerctl.yaml",
		"config/workerctl/config.yaml",
		"config/workerctl/.env",

		// Container-friendly absolute paths
		"/config/workerctl.yaml",
		"/config/workerctl/config.yaml",
		"/config/workerctl/.env",
	}
}

// Flags are the command line inputs that affect configuration loading.
type Flags struct {
	Config string
}

type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// API
	APIPort int    `yaml:"api_port" env:"API_PORT"`
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	GinMode string `yaml:"gin_mode" env:"GIN_MODE"`

	// Lifecycle
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS"`
	StatusIntervalSeconds  int `yaml:"status_interval_seconds" env:"STATUS_INTERVAL_SECONDS"`

	Worker WorkerConfig `yaml:"worker"`
	Sink   SinkConfig   `yaml:"sink"`
	Redis  *RedisConfig `yaml:"redis"`

	OpenTelemetry OpenTelemetryConfig `yaml:"otel"`

	configPath string
}

type WorkerConfig struct {
	NamePrefix    string `yaml:"name_prefix" env:"WORKER_NAME_PREFIX"`
	RetainStopped int    `yaml:"retain_stopped" env:"WORKER_RETAIN_STOPPED"`
}

type SinkConfig struct {
	Type           string `yaml:"type" env:"SINK_TYPE"`
	Dir            string `yaml:"dir" env:"SINK_DIR"`
	RedisKeyPrefix string `yaml:"redis_key_prefix" env:"SINK_REDIS_KEY_PREFIX"`
}

type RedisConfig struct {
	Host       string `yaml:"host" env:"REDIS_HOST"`
	Port       int    `yaml:"port" env:"REDIS_PORT"`
	Password   string `yaml:"password" env:"REDIS_PASSWORD"`
	Database   int    `yaml:"database" env:"REDIS_DATABASE"`
	TLSEnabled bool   `yaml:"tls_enabled" env:"REDIS_TLS_ENABLED"`
}

func (c *RedisConfig) ToConfig() *redis.RedisConfig {
	return &redis.RedisConfig{
		Host:       c.Host,
		Port:       c.Port,
		Password:   c.Password,
		Database:   c.Database,
		TLSEnabled: c.TLSEnabled,
	}
}

func (c *Config) initDefaults() {
	c.LogLevel = "info"
	c.APIPort = 3333
	c.GinMode = "release"
	c.ShutdownTimeoutSeconds = 10
	c.StatusIntervalSeconds = 1
	c.Worker = WorkerConfig{
		NamePrefix:    "Thread",
		RetainStopped: 16,
	}
	c.Sink = SinkConfig{
		Type:           logsink.TypeFile,
		Dir:            "logs",
		RedisKeyPrefix: "workerctl:log:",
	}
	c.Redis = &RedisConfig{
		Host: "127.0.0.1",
		Port: 6379,
	}
	c.OpenTelemetry = OpenTelemetryConfig{
		Exporter: otel.ExporterOTLP,
		Protocol: otel.ProtocolGRPC,
		Traces:   true,
		Metrics:  true,
		Logs:     true,
	}
}

func (c *Config) ConfigFilePath() string {
	return c.configPath
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalSeconds) * time.Second
}

func (c *Config) ToSinkConfig() logsink.Config {
	cfg := logsink.Config{
		Type:           c.Sink.Type,
		Dir:            c.Sink.Dir,
		RedisKeyPrefix: c.Sink.RedisKeyPrefix,
	}
	if c.Redis != nil {
		cfg.Redis = c.Redis.ToConfig()
	}
	return cfg
}

func (c *Config) parseConfigFile(flagPath string, osInterface OSInterface) error {
	// Get config file path from flag or env
	configPath := flagPath
	if envPath := osInterface.Getenv("CONFIG"); envPath != "" {
		if configPath != "" && configPath != envPath {
			return fmt.Errorf("conflicting config paths: flag=%s env=%s", configPath, envPath)
		}
		configPath = envPath
	}

	// If no explicit config path, try default locations
	if configPath == "" {
		for _, loc := range getConfigLocations() {
			if _, err := osInterface.Stat(loc); err == nil {
				configPath = loc
				break
			}
		}
	}

	if configPath == "" {
		return nil
	}

	data, err := osInterface.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	c.configPath = configPath

	if strings.HasSuffix(strings.ToLower(configPath), ".env") {
		envMap, err := godotenv.Unmarshal(string(data))
		if err != nil {
			return fmt.Errorf("error loading .env file: %w", err)
		}
		if err := env.ParseWithOptions(c, env.Options{
			Environment: envMap,
		}); err != nil {
			return fmt.Errorf("error parsing .env file: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing yaml config: %w", err)
	}
	return nil
}

func (c *Config) parseEnvVariables(osInterface OSInterface) error {
	if err := env.ParseWithOptions(c, env.Options{
		Environment: environMap(osInterface.Environ()),
	}); err != nil {
		return fmt.Errorf("error parsing environment variables: %w", err)
	}
	return nil
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}

func Parse(flags Flags) (*Config, error) {
	return ParseWithOS(flags, defaultOS)
}

// ParseWithOS loads defaults, then the config file, then environment
// variables (highest priority), and validates the result.
func ParseWithOS(flags Flags, osInterface OSInterface) (*Config, error) {
	var config Config

	config.initDefaults()

	if err := config.parseConfigFile(flags.Config, osInterface); err != nil {
		return nil, err
	}

	if err := config.parseEnvVariables(osInterface); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
