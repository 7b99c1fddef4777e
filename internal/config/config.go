package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway     GatewayConfig     `yaml:"gateway"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Offline     OfflineConfig     `yaml:"offline"`
	Features    FeaturesConfig    `yaml:"features"`
	Performance PerformanceConfig `yaml:"performance"`
	Probe       ProbeConfig       `yaml:"probe"`
	Session     SessionConfig     `yaml:"session"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// GatewayConfig holds the HTTP listener settings
type GatewayConfig struct {
	Port int    `yaml:"port"`
	Bind string `yaml:"bind"`
}

// GeminiConfig holds settings for the primary cloud provider
type GeminiConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
	RateLimitMs int     `yaml:"rateLimitMs"` // minimum spacing between call starts
}

// HuggingFaceConfig holds settings for the secondary cloud provider
type HuggingFaceConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
	RateLimitMs int     `yaml:"rateLimitMs"`
}

// OfflineConfig holds pattern engine settings
type OfflineConfig struct {
	ConfidenceThreshold float64 `yaml:"confidenceThreshold"` // below this the engine falls back (default: 0.6)
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	EnableCloudAPI    bool `yaml:"enableCloudAPI"`
	EnableOfflineMode bool `yaml:"enableOfflineMode"`
	EnableSpeech      bool `yaml:"enableSpeech"`
	EnableTelephony   bool `yaml:"enableTelephony"`
	EnableCitation    bool `yaml:"enableCitation"`
}

// PerformanceConfig holds timeout, cache and queue settings
type PerformanceConfig struct {
	TimeoutMs         int      `yaml:"timeoutMs"`    // per cloud call (default: 30000)
	CacheEnabled      bool     `yaml:"cacheEnabled"` // response cache on/off
	MaxCacheSize      int      `yaml:"maxCacheSize"` // entries before eviction (default: 100)
	QueueSize         int      `yaml:"queueSize"`    // pending requests under limited connectivity (default: 5)
	ImportantKeywords []string `yaml:"importantKeywords"`
}

// ProbeConfig holds connectivity probe settings
type ProbeConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	IntervalSeconds int    `yaml:"intervalSeconds"`
}

// SessionConfig holds conversation history settings
type SessionConfig struct {
	DBPath     string `yaml:"dbPath"` // empty = ~/.shikshasetu/sessions.db
	MaxHistory int    `yaml:"maxHistory"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Port: 18990,
			Bind: "localhost",
		},
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("SHIKSHASETU_GEMINI_API_KEY"),
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			Model:       "gemini-1.5-flash",
			MaxTokens:   2048,
			Temperature: 0.7,
			RateLimitMs: 2000,
		},
		HuggingFace: HuggingFaceConfig{
			APIKey:      os.Getenv("SHIKSHASETU_HUGGINGFACE_API_KEY"),
			BaseURL:     "https://api-inference.huggingface.co/models",
			Model:       "microsoft/DialoGPT-large",
			MaxTokens:   200,
			Temperature: 0.7,
			RateLimitMs: 2000,
		},
		Offline: OfflineConfig{
			ConfidenceThreshold: 0.6,
		},
		Features: FeaturesConfig{
			EnableCloudAPI:    true,
			EnableOfflineMode: true,
			EnableSpeech:      false,
			EnableTelephony:   false,
			EnableCitation:    true,
		},
		Performance: PerformanceConfig{
			TimeoutMs:         30000,
			CacheEnabled:      true,
			MaxCacheSize:      100,
			QueueSize:         5,
			ImportantKeywords: []string{"career", "college", "exam", "admission", "job", "salary"},
		},
		Probe: ProbeConfig{
			Enabled:         true,
			URL:             "https://www.google.com",
			IntervalSeconds: 30,
		},
		Session: SessionConfig{
			DBPath:     "",
			MaxHistory: 40,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".shikshasetu")
}

func configPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom reads a config file and merges it over the defaults
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config not found: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func Save(cfg *Config) (string, error) {
	dir := configDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	path := configPath()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}

// Path returns the config file location
func Path() string {
	return configPath()
}

// ValidationResult holds the result of config validation
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

// Validate checks the configuration for required fields and common issues
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	if c.Features.EnableCloudAPI && c.Gemini.APIKey == "" && c.HuggingFace.APIKey == "" {
		result.Warnings = append(result.Warnings, "cloud API enabled but no provider key set, every request will be answered offline")
	}

	if !c.Features.EnableCloudAPI && !c.Features.EnableOfflineMode {
		result.Errors = append(result.Errors, "both cloud API and offline mode are disabled, nothing can answer requests")
	}

	if c.Performance.TimeoutMs < 1000 {
		result.Warnings = append(result.Warnings, "cloud call timeout < 1s, expect frequent provider failures")
	}

	if c.Performance.CacheEnabled && c.Performance.MaxCacheSize <= 0 {
		result.Warnings = append(result.Warnings, "cache enabled with maxCacheSize <= 0, cache will hold nothing")
	}

	if c.Performance.QueueSize <= 0 {
		result.Warnings = append(result.Warnings, "queueSize <= 0, limited-connectivity requests will never be queued")
	}

	if c.Offline.ConfidenceThreshold < 0 || c.Offline.ConfidenceThreshold > 1 {
		result.Errors = append(result.Errors, "offline.confidenceThreshold must be within [0,1]")
	}

	if c.Probe.Enabled && c.Probe.IntervalSeconds < 5 {
		result.Warnings = append(result.Warnings, "probe interval < 5s may generate excessive traffic")
	}

	return result
}
