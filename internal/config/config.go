// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
	Geocoder GeocoderConfig `mapstructure:"geocoder" yaml:"geocoder"`
	Open311  Open311Config  `mapstructure:"open311" yaml:"open311"`
	Vision   VisionConfig   `mapstructure:"vision" yaml:"vision"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool     `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth     int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int      `mapstructure:"window_height" yaml:"window_height"`
	Args            []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig tunes timeouts and waits around page navigation.
// The target site renders forms with client-side JavaScript and gives no
// reliable event to wait on, so fixed settle waits are part of the contract.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StepTimeout       time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	SettleWait        time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
}

// WorkflowConfig controls the multi-step form submission flow.
type WorkflowConfig struct {
	// ScreenshotEverySteps captures a full-page screenshot after each stage.
	ScreenshotEveryStep bool `mapstructure:"screenshot_every_step" yaml:"screenshot_every_step"`
	// MapStrategy selects how the location step is satisfied:
	// "address-search" types the geocoded address into the map search box,
	// "center-click" clicks the center of the map widget.
	MapStrategy string `mapstructure:"map_strategy" yaml:"map_strategy"`
	// ConfirmationWait is how long to wait for the confirmation page to
	// render before scraping it for a service request number.
	ConfirmationWait time.Duration `mapstructure:"confirmation_wait" yaml:"confirmation_wait"`
	// AbortOnMissingStep fails the run when a required stage cannot locate
	// any of its candidate elements. When false, the run degrades and a
	// fallback tracking number is synthesized.
	AbortOnMissingStep bool `mapstructure:"abort_on_missing_step" yaml:"abort_on_missing_step"`
}

// GeocoderConfig configures the Nominatim reverse geocoder.
type GeocoderConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// UserAgent is mandatory; Nominatim rejects anonymous clients.
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RateLimit is requests per second. Nominatim's usage policy caps
	// anonymous clients at 1 req/s.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// Open311Endpoint describes one city's GeoReport v2 endpoint.
type Open311Endpoint struct {
	URL    string `mapstructure:"url" yaml:"url"`
	APIKey string `mapstructure:"api_key" yaml:"-"`
	// Format is "json" or "xml".
	Format string `mapstructure:"format" yaml:"format"`
	// Jurisdiction is passed as jurisdiction_id when non-empty.
	Jurisdiction string `mapstructure:"jurisdiction" yaml:"jurisdiction"`
}

// Open311Config configures the API submission path.
type Open311Config struct {
	// Endpoints is keyed by city name as returned by the geocoder.
	Endpoints map[string]Open311Endpoint `mapstructure:"endpoints" yaml:"endpoints"`
	Timeout   time.Duration              `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64                    `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// VisionConfig configures the optional Gemini image triage.
type VisionConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey  string `mapstructure:"api_key" yaml:"-"`
	Model   string `mapstructure:"model" yaml:"model"`
	// ConfidenceThreshold rejects detections below this value before any
	// submission is attempted.
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DatabaseConfig holds the optional submission-history database.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// OutputConfig controls where result logs and screenshots land.
type OutputConfig struct {
	Dir           string `mapstructure:"dir" yaml:"dir"`
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "civreport")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "90s")
	v.SetDefault("network.step_timeout", "10s")
	v.SetDefault("network.post_load_wait", "2s")
	v.SetDefault("network.settle_wait", "1500ms")

	// -- Workflow --
	v.SetDefault("workflow.screenshot_every_step", true)
	v.SetDefault("workflow.map_strategy", "address-search")
	v.SetDefault("workflow.confirmation_wait", "8s")
	v.SetDefault("workflow.abort_on_missing_step", false)

	// -- Geocoder --
	v.SetDefault("geocoder.endpoint", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("geocoder.user_agent", "civreport-cli/1.0")
	v.SetDefault("geocoder.timeout", "10s")
	v.SetDefault("geocoder.rate_limit", 1.0)

	// -- Open311 --
	v.SetDefault("open311.timeout", "15s")
	v.SetDefault("open311.rate_limit", 2.0)

	// -- Vision --
	v.SetDefault("vision.enabled", false)
	v.SetDefault("vision.model", "gemini-2.5-flash")
	v.SetDefault("vision.confidence_threshold", 0.7)
	v.SetDefault("vision.timeout", "45s")

	// -- Output --
	v.SetDefault("output.dir", "results")
	v.SetDefault("output.screenshot_dir", "results/screenshots")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive values.
	v.BindEnv("vision.api_key", "CIVREPORT_GEMINI_API_KEY")
	v.BindEnv("database.url", "CIVREPORT_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Network.StepTimeout <= 0 {
		return fmt.Errorf("network.step_timeout must be a positive duration")
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	switch c.Workflow.MapStrategy {
	case "address-search", "center-click":
	default:
		return fmt.Errorf("workflow.map_strategy must be %q or %q, got %q",
			"address-search", "center-click", c.Workflow.MapStrategy)
	}
	if c.Geocoder.UserAgent == "" {
		return fmt.Errorf("geocoder.user_agent is required (Nominatim rejects anonymous clients)")
	}
	if c.Geocoder.RateLimit <= 0 {
		return fmt.Errorf("geocoder.rate_limit must be positive")
	}
	if c.Open311.RateLimit <= 0 {
		return fmt.Errorf("open311.rate_limit must be positive")
	}
	for city, ep := range c.Open311.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("open311.endpoints[%s].url is required", city)
		}
		if ep.Format != "" && ep.Format != "json" && ep.Format != "xml" {
			return fmt.Errorf("open311.endpoints[%s].format must be json or xml", city)
		}
	}
	if c.Vision.Enabled {
		if c.Vision.Model == "" {
			return fmt.Errorf("vision.model is required when vision is enabled")
		}
		if c.Vision.ConfidenceThreshold < 0 || c.Vision.ConfidenceThreshold > 1 {
			return fmt.Errorf("vision.confidence_threshold must be between 0.0 and 1.0")
		}
	}
	return nil
}
