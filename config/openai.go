package config

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey" env:"OPENAI_API_KEY"`
	BaseURL string `yaml:"baseUrl" env:"OPENAI_BASE_URL"`

	// Model used for newly created project assistants.
	Model string `yaml:"model" env:"OPENAI_MODEL"`

	// RequestsPerSecond throttles provider calls client-side. Zero disables it.
	RequestsPerSecond float64 `yaml:"requestsPerSecond" env:"OPENAI_REQUESTS_PER_SECOND"`
	Burst             int     `yaml:"burst" env:"OPENAI_BURST"`
}

func NewOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model: "o3-mini",
		Burst: 1,
	}
}
