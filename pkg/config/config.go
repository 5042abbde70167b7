// Package config loads engine configuration from config.yaml with
// environment variable overrides.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for datacue-engine.
// Environment variables always override YAML values. Secrets (passwords,
// API keys) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Engine is the engine's own PostgreSQL store (schema cache rows,
	// forecast audit, chat history).
	Engine EngineDBConfig `yaml:"engine_db"`

	// Datasource is the tenant sales database the engine analyzes.
	Datasource DatasourceConfig `yaml:"datasource"`

	LLM   LLMConfig   `yaml:"llm"`
	Cache CacheConfig `yaml:"cache"`
	Chat  ChatConfig  `yaml:"chat"`
}

// EngineDBConfig holds the engine PostgreSQL configuration.
type EngineDBConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"datacue"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"datacue_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *EngineDBConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatasourceConfig holds the tenant MySQL sales database configuration.
type DatasourceConfig struct {
	Host         string `yaml:"host" env:"DSHOST" env-default:"localhost"`
	Port         int    `yaml:"port" env:"DSPORT" env-default:"3306"`
	User         string `yaml:"user" env:"DSUSER" env-default:"readonly"`
	Password     string `yaml:"-" env:"DSPASSWORD"` // Secret - not in YAML
	Database     string `yaml:"database" env:"DSDATABASE" env-default:""`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DSMAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DSMAX_IDLE_CONNS" env-default:"2"`
}

// DSN returns a go-sql-driver/mysql DSN. parseTime is required so DATE and
// TIMESTAMP columns scan into time.Time.
func (c *DatasourceConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// LLMConfig holds the text-generation service configuration.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" (any
	// OpenAI-compatible endpoint) or "anthropic".
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`
}

// CacheConfig holds schema and query cache tuning.
type CacheConfig struct {
	SchemaTTLHours       int `yaml:"schema_ttl_hours" env:"CACHE_SCHEMA_TTL_HOURS" env-default:"24"`
	QueryMaxEntries      int `yaml:"query_max_entries" env:"CACHE_QUERY_MAX_ENTRIES" env-default:"10000"`
	QueryDefaultTTLSecs  int `yaml:"query_default_ttl_secs" env:"CACHE_QUERY_DEFAULT_TTL_SECS" env-default:"3600"`
	QueryAggregateTTLSec int `yaml:"query_aggregate_ttl_secs" env:"CACHE_QUERY_AGGREGATE_TTL_SECS" env-default:"21600"`
	QueryVolatileTTLSecs int `yaml:"query_volatile_ttl_secs" env:"CACHE_QUERY_VOLATILE_TTL_SECS" env-default:"1800"`
}

// ChatConfig holds question handling limits.
type ChatConfig struct {
	MaxQuestionLength int `yaml:"max_question_length" env:"CHAT_MAX_QUESTION_LENGTH" env-default:"500"`
	MaxAttempts       int `yaml:"max_attempts" env:"CHAT_MAX_ATTEMPTS" env-default:"3"`
	HistoryLimit      int `yaml:"history_limit" env:"CHAT_HISTORY_LIMIT" env-default:"50"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}
	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}
	return cfg, nil
}
