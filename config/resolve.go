package config

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"

	"github.com/nadavsuissa/AiChatManager1/errors"
)

// Load layers defaults, dotenv files, an optional YAML file and the process
// environment, in that order.
func Load(path string) (*Config, error) {
	conf := NewConfig()

	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	if path != "" {
		if err := conf.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := conf.mergeEnv(os.Environ()); err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// loadEnvFiles never overrides variables already present in the environment.
func loadEnvFiles() error {
	files := []string{".env"}
	if v := os.Getenv("ENV_TEST_FILE"); v != "" {
		files = append(files, v)
	}

	for _, filename := range files {
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(filename); err != nil {
			return errors.Wrapf(err, "failed to load %s", filename)
		}
	}

	return nil
}

func (c *Config) mergeFile(path string) error {
	yamlBytes, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read file %s", path)
	}

	var values map[string]any
	if err := yaml.Unmarshal(yamlBytes, &values); err != nil {
		return errors.Wrapf(err, "failed to unmarshal file %s", path)
	}

	return decode(values, c, "yaml")
}

func (c *Config) mergeEnv(environ []string) error {
	values := make(map[string]any, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || v == "" {
			continue
		}
		values[k] = v
	}

	return decode(values, c, "env")
}

func decode(input map[string]any, output *Config, tagName string) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ZeroFields:       true,
		TagName:          tagName,
		Result:           output,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create config decoder")
	}

	if err := decoder.Decode(input); err != nil {
		return errors.Wrapf(errors.ErrInvalidConfig, "failed to decode %s config: %v", tagName, err)
	}

	return nil
}
