// Package config loads termassist settings: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/termassist/common/environment"
)

// Queue backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is the full runtime configuration.
type Config struct {
	// DatabasePath is the SQLite file holding conversations, the turn log,
	// and (with the sqlite backend) the entry queue.
	DatabasePath string `yaml:"db_path"`

	Queue   QueueConfig   `yaml:"queue"`
	Redis   RedisConfig   `yaml:"redis"`
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Summary SummaryConfig `yaml:"summary"`

	// DryRun reports filesystem mutations instead of performing them.
	DryRun bool `yaml:"dry_run"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// QueueConfig selects where per-directory entry queues live.
type QueueConfig struct {
	Backend   string `yaml:"backend"`
	KeyPrefix string `yaml:"key_prefix"`
	BatchSize int    `yaml:"batch_size"`
}

// RedisConfig is used when Queue.Backend is "redis".
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LLMConfig holds provider settings.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
}

// AgentConfig bounds the turn loop.
type AgentConfig struct {
	MaxToolRounds int `yaml:"max_tool_rounds"`
}

// SummaryConfig controls history compaction.
type SummaryConfig struct {
	Enabled     bool `yaml:"enabled"`
	MinMessages int  `yaml:"min_messages"`
	MaxTokens   int  `yaml:"max_tokens"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		DatabasePath: defaultDBPath(),
		Queue: QueueConfig{
			Backend:   BackendSQLite,
			KeyPrefix: "termassist:entries:",
			BatchSize: 100,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		LLM: LLMConfig{
			Provider:    ProviderAnthropic,
			MaxTokens:   4096,
			MaxAttempts: 3,
			Timeout:     120 * time.Second,
		},
		Agent: AgentConfig{MaxToolRounds: 10},
		Summary: SummaryConfig{
			Enabled:     true,
			MinMessages: 24,
			MaxTokens:   6000,
		},
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

func defaultDBPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "termassist", "termassist.db")
	}
	return "termassist.db"
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and the process environment, then validates it.
func Load(path string) (*Config, error) {
	return load(path, environment.New())
}

func load(path string, env *environment.Overlay) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env *environment.Overlay) error {
	env.String("TERMASSIST_DB_PATH", &c.DatabasePath)

	env.String("QUEUE_BACKEND", &c.Queue.Backend)
	env.String("QUEUE_KEY_PREFIX", &c.Queue.KeyPrefix)
	env.Int("LIST_BATCH_SIZE", &c.Queue.BatchSize)

	env.String("REDIS_HOST", &c.Redis.Host)
	env.Int("REDIS_PORT", &c.Redis.Port)
	env.String("REDIS_PASSWORD", &c.Redis.Password)
	env.Int("REDIS_DB", &c.Redis.DB)

	env.String("LLM_PROVIDER", &c.LLM.Provider)
	provider := strings.ToLower(c.LLM.Provider)
	switch provider {
	case ProviderOpenAI:
		env.FirstString(&c.LLM.APIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	default:
		env.FirstString(&c.LLM.APIKey, "LLM_API_KEY", "ANTHROPIC_API_KEY")
	}
	env.String("LLM_BASE_URL", &c.LLM.BaseURL)
	env.String("LLM_MODEL", &c.LLM.Model)
	env.Int("LLM_MAX_TOKENS", &c.LLM.MaxTokens)
	env.Int("LLM_MAX_ATTEMPTS", &c.LLM.MaxAttempts)
	env.Duration("LLM_TIMEOUT", &c.LLM.Timeout)

	env.Int("MAX_TOOL_ROUNDS", &c.Agent.MaxToolRounds)

	env.Bool("SUMMARY_ENABLED", &c.Summary.Enabled)
	env.Int("SUMMARY_MIN_MESSAGES", &c.Summary.MinMessages)
	env.Int("SUMMARY_MAX_TOKENS", &c.Summary.MaxTokens)

	env.Bool("DRY_RUN", &c.DryRun)
	env.String("LOG_LEVEL", &c.LogLevel)
	env.String("LOG_FORMAT", &c.LogFormat)
	return env.Err()
}

func (c *Config) normalise() {
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
}

// Validate reports every invalid setting at once. A missing API key is not
// an error here because the offline subcommands never reach the LLM.
func (c *Config) Validate() error {
	var errs []error
	switch c.Queue.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("redis.host is required for the redis backend"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("redis.port %d out of range", c.Redis.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue backend %q (want sqlite, redis or memory)", c.Queue.Backend))
	}
	if c.Queue.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("queue.batch_size must be positive, got %d", c.Queue.BatchSize))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q (want anthropic or openai)", c.LLM.Provider))
	}
	if c.LLM.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_attempts must be positive, got %d", c.LLM.MaxAttempts))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must not be negative, got %d", c.LLM.MaxTokens))
	}
	if c.Agent.MaxToolRounds <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_tool_rounds must be positive, got %d", c.Agent.MaxToolRounds))
	}
	if c.Summary.Enabled && c.Summary.MinMessages < 2 {
		errs = append(errs, fmt.Errorf("summary.min_messages must be at least 2, got %d", c.Summary.MinMessages))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// RequireAPIKey fails when no LLM key is configured.
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey != "" {
		return nil
	}
	if c.LLM.Provider == ProviderOpenAI {
		return errors.New("no API key: set LLM_API_KEY or OPENAI_API_KEY")
	}
	return errors.New("no API key: set LLM_API_KEY or ANTHROPIC_API_KEY")
}
