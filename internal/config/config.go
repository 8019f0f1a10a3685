package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultPreamble is the framing text new conversations start with unless a
// persona file or the context command replaces it.
const defaultPreamble = "The following is a conversation with an AI named Dorothy. " +
	"Dorothy has short, red hair, red eyes and extremely pale (almost white) skin. " +
	"Dorothy appears to have a bubbly, joyful and somewhat flirtatious attitude. " +
	"She often greets every patron politely and doesn't at any point seem overly " +
	"aggressive or violent. She takes great pride in her work"

// Config contains all runtime settings for the chat companion service.
type Config struct {
	BindAddr         string
	MetricsNamespace string
	ShutdownTimeout  time.Duration
	AllowAnyOrigin   bool

	CompletionProvider  string
	CompletionAPIURL    string
	CompletionAPIKey    string
	CompletionModel     string
	CompletionTimeout   time.Duration
	CompletionMaxTokens int

	AgentName       string
	DefaultPreamble string
	CommandPrefix   string
	AdminIDs        []string

	PersonaFile string
}

// Persona is the optional YAML file overriding the agent's name and the
// default conversation preamble.
type Persona struct {
	Name    string `yaml:"name"`
	Context string `yaml:"context"`
}

// Load reads environment variables, applies safe defaults and merges the
// persona file when one is configured.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "dorothy"),
		ShutdownTimeout:     15 * time.Second,
		AllowAnyOrigin:      false,
		CompletionProvider:  strings.ToLower(envOrDefault("COMPLETION_PROVIDER", "auto")),
		CompletionAPIURL:    envOrDefault("COMPLETION_API_URL", "https://api.openai.com/v1"),
		CompletionAPIKey:    trimmedEnv("COMPLETION_API_KEY"),
		CompletionModel:     envOrDefault("COMPLETION_MODEL", "davinci"),
		CompletionTimeout:   30 * time.Second,
		CompletionMaxTokens: 50,
		AgentName:           envOrDefault("AGENT_NAME", "Dorothy"),
		DefaultPreamble:     defaultPreamble,
		CommandPrefix:       envOrDefault("COMMAND_PREFIX", "!"),
		AdminIDs:            listFromEnv("ADMIN_IDS"),
		PersonaFile:         trimmedEnv("PERSONA_FILE"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionMaxTokens, err = intFromEnv("COMPLETION_MAX_TOKENS", cfg.CompletionMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.PersonaFile != "" {
		persona, err := LoadPersona(cfg.PersonaFile)
		if err != nil {
			return Config{}, err
		}
		if strings.TrimSpace(persona.Name) != "" {
			cfg.AgentName = strings.TrimSpace(persona.Name)
		}
		if strings.TrimSpace(persona.Context) != "" {
			cfg.DefaultPreamble = strings.TrimSpace(persona.Context)
		}
	}

	switch cfg.CompletionProvider {
	case "auto", "http", "mock":
	default:
		return Config{}, fmt.Errorf("COMPLETION_PROVIDER must be auto, http or mock, got %q", cfg.CompletionProvider)
	}
	if cfg.CompletionProvider == "http" && cfg.CompletionAPIKey == "" {
		return Config{}, fmt.Errorf("COMPLETION_PROVIDER=http requires COMPLETION_API_KEY")
	}
	if cfg.CompletionMaxTokens <= 0 {
		return Config{}, fmt.Errorf("COMPLETION_MAX_TOKENS must be positive")
	}
	if cfg.CompletionTimeout < time.Second {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be at least 1s")
	}
	if strings.TrimSpace(cfg.AgentName) == "" {
		return Config{}, fmt.Errorf("AGENT_NAME must not be empty")
	}
	if cfg.CommandPrefix == "" {
		return Config{}, fmt.Errorf("COMMAND_PREFIX must not be empty")
	}

	return cfg, nil
}

// LoadPersona reads and parses a persona YAML file.
func LoadPersona(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file: %w", err)
	}
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	return p, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func listFromEnv(key string) []string {
	raw := trimmedEnv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
