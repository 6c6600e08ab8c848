package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultOfficialDomains is the baseline allow-list used to ground hazard
// events when no override is configured.
var defaultOfficialDomains = []string{
	"weather.gc.ca",
	"canada.ca",
	"travel.gc.ca",
	"weather.gov",
	"noaa.gov",
	"nhc.noaa.gov",
	"cdc.gov",
	"who.int",
	"state.gov",
	"gov.uk",
	"europa.eu",
}

// Config captures runtime configuration for the tripradar service and CLI.
type Config struct {
	ListenAddr      string
	StatePath       string
	MemoryBackend   string
	GroqAPIKey      string
	GroqModel       string
	LLMTemperature  float64
	LLMMaxTokens    int
	MaxEvents       int
	RejectionTTL    time.Duration
	WebTimeout      time.Duration
	WebRetries      int
	WebUserAgent    string
	OfficialDomains []string
}

// FileConfig mirrors the optional YAML configuration file. Timeout is a
// duration string such as "30s".
type FileConfig struct {
	OfficialDomains []string `yaml:"official_domains"`
	Web             struct {
		Timeout   string `yaml:"timeout"`
		Retries   int    `yaml:"retries"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"web"`
}

// FromEnv creates a configuration instance sourced from environment variables,
// overlaid with the optional YAML file named by TRIPRADAR_CONFIG.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:      getEnv("TRIPRADAR_LISTEN_ADDR", ":8080"),
		StatePath:       getEnv("TRIPRADAR_STATE_PATH", "outputs/state.json"),
		MemoryBackend:   getEnv("TRIPRADAR_MEMORY_BACKEND", "json"),
		GroqAPIKey:      getEnv("TRIPRADAR_GROQ_API_KEY", ""),
		GroqModel:       getEnv("TRIPRADAR_GROQ_MODEL", "llama-3.1-70b-versatile"),
		LLMTemperature:  0.2,
		LLMMaxTokens:    2048,
		MaxEvents:       8,
		RejectionTTL:    48 * time.Hour,
		WebTimeout:      20 * time.Second,
		WebRetries:      3,
		WebUserAgent:    "tripradar/1.0 (event-detection)",
		OfficialDomains: defaultOfficialDomains,
	}

	if cfg.MemoryBackend != "json" && cfg.MemoryBackend != "sqlite" {
		return Config{}, fmt.Errorf("TRIPRADAR_MEMORY_BACKEND must be json or sqlite, got %q", cfg.MemoryBackend)
	}

	if temp := os.Getenv("TRIPRADAR_LLM_TEMPERATURE"); temp != "" {
		if _, err := fmt.Sscanf(temp, "%f", &cfg.LLMTemperature); err != nil {
			return Config{}, fmt.Errorf("parse TRIPRADAR_LLM_TEMPERATURE: %w", err)
		}
	}

	if tokens := os.Getenv("TRIPRADAR_LLM_MAX_TOKENS"); tokens != "" {
		if _, err := fmt.Sscanf(tokens, "%d", &cfg.LLMMaxTokens); err != nil {
			return Config{}, fmt.Errorf("parse TRIPRADAR_LLM_MAX_TOKENS: %w", err)
		}
	}

	if maxEvents := os.Getenv("TRIPRADAR_MAX_EVENTS"); maxEvents != "" {
		if _, err := fmt.Sscanf(maxEvents, "%d", &cfg.MaxEvents); err != nil {
			return Config{}, fmt.Errorf("parse TRIPRADAR_MAX_EVENTS: %w", err)
		}
	}

	if ttl := os.Getenv("TRIPRADAR_REJECTION_TTL_H"); ttl != "" {
		var hours int
		if _, err := fmt.Sscanf(ttl, "%d", &hours); err != nil {
			return Config{}, fmt.Errorf("parse TRIPRADAR_REJECTION_TTL_H: %w", err)
		}
		cfg.RejectionTTL = time.Duration(hours) * time.Hour
	}

	if timeout := os.Getenv("TRIPRADAR_WEB_TIMEOUT_S"); timeout != "" {
		var seconds int
		if _, err := fmt.Sscanf(timeout, "%d", &seconds); err != nil {
			return Config{}, fmt.Errorf("parse TRIPRADAR_WEB_TIMEOUT_S: %w", err)
		}
		cfg.WebTimeout = time.Duration(seconds) * time.Second
	}

	if retries := os.Getenv("TRIPRADAR_WEB_RETRIES"); retries != "" {
		if _, err := fmt.Sscanf(retries, "%d", &cfg.WebRetries); err != nil {
			return Config{}, fmt.Errorf("parse TRIPRADAR_WEB_RETRIES: %w", err)
		}
	}

	if domains := os.Getenv("TRIPRADAR_OFFICIAL_DOMAINS"); domains != "" {
		cfg.OfficialDomains = splitCSV(domains)
	}

	if path := os.Getenv("TRIPRADAR_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if len(fc.OfficialDomains) > 0 {
		c.OfficialDomains = fc.OfficialDomains
	}
	if fc.Web.Timeout != "" {
		timeout, err := time.ParseDuration(fc.Web.Timeout)
		if err != nil {
			return fmt.Errorf("parse web timeout in %s: %w", path, err)
		}
		c.WebTimeout = timeout
	}
	if fc.Web.Retries > 0 {
		c.WebRetries = fc.Web.Retries
	}
	if fc.Web.UserAgent != "" {
		c.WebUserAgent = fc.Web.UserAgent
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
