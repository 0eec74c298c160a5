package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Miner    Miner    `mapstructure:"miner"`
	Ledger   Ledger   `mapstructure:"ledger"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Miner holds the configuration for the miner state API.
type Miner struct {
	BaseURL        string  `mapstructure:"base_url"`
	Authority      string  `mapstructure:"authority"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	PollInterval   int     `mapstructure:"poll_interval"`
}

// Ledger holds the configuration for the round history file.
type Ledger struct {
	Path   string `mapstructure:"path"`
	Report bool   `mapstructure:"report"`
}

// Server holds the configuration for the HTTP servers.
type Server struct {
	Port   int `mapstructure:"port"`
	UIPort int `mapstructure:"ui_port"`
}

// Database holds the configuration for the round archive. An empty DSN disables it.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory, if present, is loaded into the environment first.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	err = v.ReadInConfig()
	if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("miner.rate_limit", 5) // requests per second
	v.SetDefault("miner.rate_limit_burst", 1)
	v.SetDefault("miner.poll_interval", 5) // seconds
	v.SetDefault("ledger.path", "reward.json")
	v.SetDefault("ledger.report", true)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.ui_port", 8080)
}
