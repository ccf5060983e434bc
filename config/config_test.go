package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	conf := config.NewConfig()

	assert.Equal(t, 50, conf.Conversation.RotationThreshold)
	assert.Equal(t, 1500*time.Millisecond, conf.Conversation.PollInterval)
	assert.Equal(t, 90*time.Second, conf.Conversation.RunTimeout)
	assert.Equal(t, int64(25*1024*1024), conf.Conversation.MaxUploadBytes)
	assert.Equal(t, 3, conf.Conversation.UploadMaxAttempts)
	assert.Equal(t, time.Second, conf.Conversation.UploadBackoffBase)
	assert.Equal(t, "o3-mini", conf.OpenAI.Model)
	require.NoError(t, conf.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
conversation:
  rotationThreshold: 20
  pollInterval: 500ms
  runTimeout: 2m
server:
  port: 7000
  corsOrigins:
    - https://example.com
`), 0o600))

	t.Setenv("RUN_TIMEOUT", "45s")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	conf, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", conf.Log.LogLevel)
	assert.Equal(t, 20, conf.Conversation.RotationThreshold)
	assert.Equal(t, 500*time.Millisecond, conf.Conversation.PollInterval)
	assert.Equal(t, 45*time.Second, conf.Conversation.RunTimeout)
	assert.Equal(t, 7000, conf.Server.Port)
	assert.Equal(t, "sk-test", conf.OpenAI.APIKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, conf.Server.CORSOrigins)
	assert.Equal(t, 3, conf.Conversation.UploadMaxAttempts)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("ROTATION_THRESHOLD", "0")

	_, err := config.Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}
