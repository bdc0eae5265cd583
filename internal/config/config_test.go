// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "civreport", cfg.Logger.ServiceName)

	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.DisableCache)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
	assert.Equal(t, 1080, cfg.Browser.WindowHeight)

	assert.Equal(t, 90*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Network.StepTimeout)
	assert.Equal(t, 2*time.Second, cfg.Network.PostLoadWait)
	assert.Equal(t, 1500*time.Millisecond, cfg.Network.SettleWait)

	assert.Equal(t, "address-search", cfg.Workflow.MapStrategy)
	assert.True(t, cfg.Workflow.ScreenshotEveryStep)
	assert.False(t, cfg.Workflow.AbortOnMissingStep)
	assert.Equal(t, 8*time.Second, cfg.Workflow.ConfirmationWait)

	assert.Equal(t, "https://nominatim.openstreetmap.org/reverse", cfg.Geocoder.Endpoint)
	assert.Equal(t, 1.0, cfg.Geocoder.RateLimit)

	assert.False(t, cfg.Vision.Enabled)
	assert.Equal(t, "gemini-2.5-flash", cfg.Vision.Model)
	assert.Equal(t, 0.7, cfg.Vision.ConfidenceThreshold)

	assert.Equal(t, "results", cfg.Output.Dir)
	assert.Equal(t, "results/screenshots", cfg.Output.ScreenshotDir)
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, NewDefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero step timeout", func(c *Config) { c.Network.StepTimeout = 0 }, "step_timeout"},
		{"zero navigation timeout", func(c *Config) { c.Network.NavigationTimeout = 0 }, "navigation_timeout"},
		{"bad map strategy", func(c *Config) { c.Workflow.MapStrategy = "dowsing" }, "map_strategy"},
		{"missing geocoder user agent", func(c *Config) { c.Geocoder.UserAgent = "" }, "user_agent"},
		{"non-positive geocoder rate", func(c *Config) { c.Geocoder.RateLimit = 0 }, "rate_limit"},
		{"non-positive open311 rate", func(c *Config) { c.Open311.RateLimit = 0 }, "open311.rate_limit"},
		{
			"endpoint without url",
			func(c *Config) {
				c.Open311.Endpoints = map[string]Open311Endpoint{"San Francisco": {}}
			},
			"url is required",
		},
		{
			"endpoint with bad format",
			func(c *Config) {
				c.Open311.Endpoints = map[string]Open311Endpoint{
					"San Francisco": {URL: "https://api.example.gov/v2", Format: "yaml"},
				}
			},
			"format must be json or xml",
		},
		{
			"vision enabled without model",
			func(c *Config) {
				c.Vision.Enabled = true
				c.Vision.Model = ""
			},
			"vision.model",
		},
		{
			"vision threshold out of range",
			func(c *Config) {
				c.Vision.Enabled = true
				c.Vision.ConfidenceThreshold = 1.5
			},
			"confidence_threshold",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("logger.level", "debug")
		v.Set("workflow.map_strategy", "center-click")
		v.Set("open311.endpoints", map[string]interface{}{
			"San Francisco": map[string]interface{}{
				"url":          "https://mobile311.sfgov.org/open311/v2",
				"format":       "xml",
				"jurisdiction": "sfgov.org",
			},
		})

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logger.Level)
		assert.Equal(t, "center-click", cfg.Workflow.MapStrategy)

		ep, ok := cfg.Open311.Endpoints["San Francisco"]
		require.True(t, ok)
		assert.Equal(t, "https://mobile311.sfgov.org/open311/v2", ep.URL)
		assert.Equal(t, "xml", ep.Format)
		assert.Equal(t, "sfgov.org", ep.Jurisdiction)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("workflow.map_strategy", "teleport")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("reads api key from environment binding", func(t *testing.T) {
		t.Setenv("CIVREPORT_GEMINI_API_KEY", "test-key-123")

		v := viper.New()
		SetDefaults(v)
		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "test-key-123", cfg.Vision.APIKey)
	})
}
