package config

import (
	"os"

	"github.com/jcooky/go-din"
)

// FileEnv names the variable holding the optional YAML config path.
const FileEnv = "AICHATMANAGER_CONFIG"

func init() {
	din.RegisterT(func(c *din.Container) (*Config, error) {
		if c.Env == din.EnvTest {
			conf := NewConfig()
			return conf, conf.Validate()
		}
		return Load(os.Getenv(FileEnv))
	})
}
