// Package config loads service configuration from an optional YAML file
// with environment-variable overrides on top. Environment wins, so
// deployments can keep a checked-in file and override secrets per host.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Context provider sources.
const (
	SourceStatic   = "static"
	SourcePostgres = "postgres"
)

type Server struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Database struct {
	URL string `yaml:"url"`
}

type Redis struct {
	URL      string `yaml:"url"`
	QueueKey string `yaml:"queue_key"`
}

type LLM struct {
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type Context struct {
	Source         string `yaml:"source"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Safety struct {
	Triggers             []string `yaml:"triggers"`
	NotifyTimeoutSeconds int      `yaml:"notify_timeout_seconds"`
}

// Config is the full service configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	LLM      LLM      `yaml:"llm"`
	Context  Context  `yaml:"context"`
	Safety   Safety   `yaml:"safety"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		LLM: LLM{
			Model:          "gpt-4o-mini",
			Temperature:    0.2,
			TimeoutSeconds: 60,
		},
		Context: Context{
			Source:         SourceStatic,
			TimeoutSeconds: 5,
		},
		Safety: Safety{
			NotifyTimeoutSeconds: 3,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitCSV(v)
	}
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Redis.QueueKey, "REVIEW_QUEUE_KEY")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.Model, "OPENAI_MODEL_CHAT")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			c.LLM.Temperature = float32(f)
		}
	}
	setString(&c.Context.Source, "CONTEXT_SOURCE")
	if v := os.Getenv("ESCALATION_TRIGGERS"); v != "" {
		c.Safety.Triggers = splitCSV(v)
	}
}

func (c *Config) validate() error {
	switch c.Context.Source {
	case SourceStatic:
	case SourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("context source %q requires a database URL", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown context source %q", c.Context.Source)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
