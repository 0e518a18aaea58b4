package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetOutput(&buf)
	logger.SetLevel(WARN)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetOutput(&buf)
	logger.SetFormat("json")

	logger.Info("snapshot loaded", Int("customers", 120), String("backend", "filesystem"))

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "snapshot loaded", entry.Message)
	assert.Equal(t, "churnrisk", entry.Service)
	assert.Equal(t, float64(120), entry.Fields["customers"])
	assert.Equal(t, "filesystem", entry.Fields["backend"])
}

func TestLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetOutput(&buf)

	logger.Error("retrain failed", errors.New("bucket unreachable"))

	assert.Contains(t, buf.String(), "bucket unreachable")
	assert.Contains(t, buf.String(), "[ERROR]")
}

func TestComponentLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetOutput(&buf)

	cl := logger.WithComponent("artifact-store")
	cl.Info("loaded churn artifacts from storage")

	assert.Contains(t, buf.String(), "component=artifact-store")
}

func TestInitLoggerLevels(t *testing.T) {
	logger := GetLogger()
	defer logger.SetLevel(INFO)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	InitLogger("error", "text")
	logger.Warn("should be filtered")
	logger.Error("should appear", nil)

	lines := strings.TrimSpace(buf.String())
	assert.NotContains(t, lines, "should be filtered")
	assert.Contains(t, lines, "should appear")
}
