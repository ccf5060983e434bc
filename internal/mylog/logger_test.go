package mylog_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, mylog.ToLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, mylog.ToLogLevel("warn"))
	assert.Equal(t, slog.LevelInfo, mylog.ToLogLevel("unknown"))
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := mylog.NewLoggerWithWriter(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Warn("upload attempt failed", "attempt", 2, mylog.Err(errors.New("timeout")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "upload attempt failed", line["msg"])
	assert.Equal(t, float64(2), line["attempt"])
	assert.NotContains(t, buf.String(), "hidden")
}
