package config

import (
	"github.com/nadavsuissa/AiChatManager1/errors"
)

type Config struct {
	Log          LogConfig          `yaml:"log" env:",squash"`
	OpenAI       OpenAIConfig       `yaml:"openai" env:",squash"`
	Conversation ConversationConfig `yaml:"conversation" env:",squash"`
	Server       ServerConfig       `yaml:"server" env:",squash"`
}

func NewConfig() *Config {
	return &Config{
		Log:          NewLogConfig(),
		OpenAI:       NewOpenAIConfig(),
		Conversation: NewConversationConfig(),
		Server:       NewServerConfig(),
	}
}

func (c *Config) Validate() error {
	if err := c.Conversation.Validate(); err != nil {
		return err
	}
	if c.OpenAI.RequestsPerSecond < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "requests per second must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Wrapf(errors.ErrInvalidConfig, "invalid port %d", c.Server.Port)
	}
	return nil
}

func (c *ConversationConfig) Validate() error {
	switch {
	case c.RotationThreshold <= 0:
		return errors.Wrapf(errors.ErrInvalidConfig, "rotation threshold must be positive")
	case c.PollInterval <= 0:
		return errors.Wrapf(errors.ErrInvalidConfig, "poll interval must be positive")
	case c.RunTimeout <= 0:
		return errors.Wrapf(errors.ErrInvalidConfig, "run timeout must be positive")
	case c.MaxUploadBytes <= 0:
		return errors.Wrapf(errors.ErrInvalidConfig, "upload size ceiling must be positive")
	case c.UploadMaxAttempts <= 0:
		return errors.Wrapf(errors.ErrInvalidConfig, "upload attempts must be positive")
	case c.UploadBackoffBase < 0:
		return errors.Wrapf(errors.ErrInvalidConfig, "upload backoff must not be negative")
	}
	return nil
}
