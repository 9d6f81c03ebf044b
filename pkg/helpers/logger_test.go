package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerOptions(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("profile-sync", "production", WithOutput(&buf), WithLevel(logrus.WarnLevel))

	LogInfo(logger, "hidden", nil)
	assert.Zero(t, buf.Len())

	LogWarn(logger, "rabbitmq unavailable", errors.New("dial tcp: refused"), logrus.Fields{"queue": "profile.updated"})
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "rabbitmq unavailable", line["msg"])
	assert.Equal(t, "dial tcp: refused", line["error"])
	assert.Equal(t, "profile.updated", line["queue"])
}

func TestNewLoggerDevelopmentIsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("profile-sync", "development", WithOutput(&buf))

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	LogError(logger, "save failed", errors.New("boom"), nil)
	assert.Contains(t, buf.String(), "save failed")
	assert.Contains(t, buf.String(), "error=boom")
}
