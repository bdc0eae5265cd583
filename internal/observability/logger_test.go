// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/v0idlock/civreport-cli/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func TestInitialize(t *testing.T) {
	t.Run("console format produces readable output", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "civreport-test",
		}, zapcore.Lock(&buf))

		GetLogger().Info("form submission started")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "form submission started")
		assert.Contains(t, output, "civreport-test")
	})

	t.Run("json format produces valid json", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "civreport-test",
		}, zapcore.Lock(&buf))

		GetLogger().Warn("geocoder degraded", zap.String("city", "San Francisco"))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output should be valid JSON")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "geocoder degraded", entry["msg"])
		assert.Equal(t, "San Francisco", entry["city"])
	})

	t.Run("level filtering drops debug at info level", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:  "info",
			Format: "json",
		}, zapcore.Lock(&buf))

		GetLogger().Debug("should not appear")
		assert.Empty(t, buf.String())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:  "shouting",
			Format: "json",
		}, zapcore.Lock(&buf))

		GetLogger().Debug("dropped")
		GetLogger().Info("kept")

		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("second initialize is a no-op", func(t *testing.T) {
		ResetForTest()
		var first, second syncBuffer

		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.Lock(&first))
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.Lock(&second))

		GetLogger().Info("routed to first writer")
		assert.Contains(t, first.String(), "routed to first writer")
		assert.Empty(t, second.String())
	})

	t.Run("file output is written through lumberjack", func(t *testing.T) {
		ResetForTest()
		logFile := filepath.Join(t.TempDir(), "civreport.log")
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:   "debug",
			Format:  "console",
			LogFile: logFile,
			MaxSize: 1,
		}, zapcore.Lock(&buf))

		GetLogger().Info("persisted entry")
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)

		// The file core always encodes JSON regardless of console format.
		line := strings.TrimSpace(string(data))
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "persisted entry", entry["msg"])
	})
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	logger := GetLogger()
	require.NotNil(t, logger, "fallback logger must always be available")
}
