package config

type LogConfig struct {
	LogLevel   string `yaml:"level" env:"LOG_LEVEL"`
	LogHandler string `yaml:"handler" env:"LOG_HANDLER"`
}

func NewLogConfig() LogConfig {
	return LogConfig{
		LogLevel:   "info",
		LogHandler: "default",
	}
}
