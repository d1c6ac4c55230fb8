package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	DatabaseURL string
	RedisURL    string

	JWTSecret  string
	AuthIssuer string

	GeminiAPIKey         string
	YouTubeAPIKey        string
	InstagramAccessToken string

	OtelExporterOTLPEndpoint string
	SentryDSN                string

	Port string

	Pipeline PipelineConfig
}

// PipelineConfig holds the tunables of the extraction pipeline. Confidence
// thresholds and context budgets are deliberately configuration, not
// constants: the per-source defaults mirror observed behavior but carry no
// semantic weight.
type PipelineConfig struct {
	Model              string  `yaml:"model"`
	RefinementEnabled  bool    `yaml:"refinement_enabled"`
	MinConfidenceVideo float64 `yaml:"min_confidence_video"`
	MinConfidenceWeb   float64 `yaml:"min_confidence_web"`

	TranscriptBudget int `yaml:"transcript_budget"`
	WebHTMLBudget    int `yaml:"web_html_budget"`
	LinkTextBudget   int `yaml:"link_text_budget"`

	StepTimeoutSeconds     int `yaml:"step_timeout_seconds"`
	StaleJobTimeoutMinutes int `yaml:"stale_job_timeout_minutes"`
}

func (p PipelineConfig) StepTimeout() time.Duration {
	return time.Duration(p.StepTimeoutSeconds) * time.Second
}

func (p PipelineConfig) StaleJobTimeout() time.Duration {
	return time.Duration(p.StaleJobTimeoutMinutes) * time.Minute
}

// MinConfidence returns the acceptance threshold for a source family.
// Video sources historically use a slightly lower bar than web and photo
// imports.
func (p PipelineConfig) MinConfidence(video bool) float64 {
	if video {
		return p.MinConfidenceVideo
	}
	return p.MinConfidenceWeb
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		AuthIssuer:               os.Getenv("AUTH_ISSUER"),
		GeminiAPIKey:             os.Getenv("GEMINI_API_KEY"),
		YouTubeAPIKey:            os.Getenv("YOUTUBE_API_KEY"),
		InstagramAccessToken:     os.Getenv("INSTAGRAM_ACCESS_TOKEN"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
	}

	// Pipeline tunables come from an optional YAML overlay on top of the
	// built-in defaults
	cfg.SetPipelineDefaults()
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ladle"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Pipeline struct {
			Model              string  `yaml:"model"`
			RefinementEnabled  *bool   `yaml:"refinement_enabled"`
			MinConfidenceVideo float64 `yaml:"min_confidence_video"`
			MinConfidenceWeb   float64 `yaml:"min_confidence_web"`

			TranscriptBudget int `yaml:"transcript_budget"`
			WebHTMLBudget    int `yaml:"web_html_budget"`
			LinkTextBudget   int `yaml:"link_text_budget"`

			StepTimeoutSeconds     int `yaml:"step_timeout_seconds"`
			StaleJobTimeoutMinutes int `yaml:"stale_job_timeout_minutes"`
		} `yaml:"pipeline"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	y := yamlConfig.Pipeline
	if y.RefinementEnabled != nil {
		c.Pipeline.RefinementEnabled = *y.RefinementEnabled
	}
	if y.Model != "" {
		c.Pipeline.Model = y.Model
	}
	if y.MinConfidenceVideo > 0 {
		c.Pipeline.MinConfidenceVideo = y.MinConfidenceVideo
	}
	if y.MinConfidenceWeb > 0 {
		c.Pipeline.MinConfidenceWeb = y.MinConfidenceWeb
	}
	if y.TranscriptBudget > 0 {
		c.Pipeline.TranscriptBudget = y.TranscriptBudget
	}
	if y.WebHTMLBudget > 0 {
		c.Pipeline.WebHTMLBudget = y.WebHTMLBudget
	}
	if y.LinkTextBudget > 0 {
		c.Pipeline.LinkTextBudget = y.LinkTextBudget
	}
	if y.StepTimeoutSeconds > 0 {
		c.Pipeline.StepTimeoutSeconds = y.StepTimeoutSeconds
	}
	if y.StaleJobTimeoutMinutes > 0 {
		c.Pipeline.StaleJobTimeoutMinutes = y.StaleJobTimeoutMinutes
	}

	return nil
}

func (c *Config) SetPipelineDefaults() {
	if c.Pipeline.Model == "" {
		c.Pipeline.Model = "gemini-1.5-flash"
	}
	if c.Pipeline.MinConfidenceVideo == 0 {
		c.Pipeline.MinConfidenceVideo = 0.5
	}
	if c.Pipeline.MinConfidenceWeb == 0 {
		c.Pipeline.MinConfidenceWeb = 0.6
	}
	if c.Pipeline.TranscriptBudget == 0 {
		c.Pipeline.TranscriptBudget = 25000
	}
	if c.Pipeline.WebHTMLBudget == 0 {
		c.Pipeline.WebHTMLBudget = 150000
	}
	if c.Pipeline.LinkTextBudget == 0 {
		c.Pipeline.LinkTextBudget = 8000
	}
	if c.Pipeline.StepTimeoutSeconds == 0 {
		c.Pipeline.StepTimeoutSeconds = 60
	}
	if c.Pipeline.StaleJobTimeoutMinutes == 0 {
		c.Pipeline.StaleJobTimeoutMinutes = 15
	}
	c.Pipeline.RefinementEnabled = true
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}
