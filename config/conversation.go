package config

import (
	"time"
)

const (
	DefaultRotationThreshold = 50
	DefaultPollInterval      = 1500 * time.Millisecond
	DefaultRunTimeout        = 90 * time.Second
	DefaultMaxUploadBytes    = 25 * 1024 * 1024
	DefaultUploadMaxAttempts = 3
	DefaultUploadBackoffBase = time.Second
)

type ConversationConfig struct {
	// RotationThreshold is the message count at which the active thread is
	// replaced by a fresh one.
	RotationThreshold int `yaml:"rotationThreshold" env:"ROTATION_THRESHOLD"`

	PollInterval time.Duration `yaml:"pollInterval" env:"RUN_POLL_INTERVAL"`
	RunTimeout   time.Duration `yaml:"runTimeout" env:"RUN_TIMEOUT"`

	MaxUploadBytes    int64         `yaml:"maxUploadBytes" env:"UPLOAD_MAX_BYTES"`
	UploadMaxAttempts int           `yaml:"uploadMaxAttempts" env:"UPLOAD_MAX_ATTEMPTS"`
	UploadBackoffBase time.Duration `yaml:"uploadBackoffBase" env:"UPLOAD_BACKOFF_BASE"`
}

func NewConversationConfig() ConversationConfig {
	return ConversationConfig{
		RotationThreshold: DefaultRotationThreshold,
		PollInterval:      DefaultPollInterval,
		RunTimeout:        DefaultRunTimeout,
		MaxUploadBytes:    DefaultMaxUploadBytes,
		UploadMaxAttempts: DefaultUploadMaxAttempts,
		UploadBackoffBase: DefaultUploadBackoffBase,
	}
}
