package config

type ServerConfig struct {
	Host         string   `yaml:"host" env:"HOST"`
	Port         int      `yaml:"port" env:"PORT"`
	DatabasePath string   `yaml:"databasePath" env:"DATABASE_PATH"`
	CORSOrigins  []string `yaml:"corsOrigins" env:"CORS_ORIGINS"`
}

func NewServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         5000,
		DatabasePath: "aichatmanager.db",
		CORSOrigins:  []string{"*"},
	}
}
