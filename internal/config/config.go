package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported storage formats
const (
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatSQLite = "sqlite"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Log     LogConfig
}

type AppConfig struct {
	Env      string
	PageSize int
}

type StorageConfig struct {
	Path   string
	Format string
}

type LogConfig struct {
	File string
}

// Load reads configuration from an optional .env file, an optional
// catalog.yaml in the working directory and CATALOG_* environment variables.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("catalog")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("app.env"),
			PageSize: v.GetInt("app.page_size"),
		},
		Storage: StorageConfig{
			Path:   v.GetString("storage.path"),
			Format: strings.ToLower(v.GetString("storage.format")),
		},
		Log: LogConfig{
			File: v.GetString("log.file"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.page_size", 5)
	v.SetDefault("storage.path", "products.json")
	v.SetDefault("storage.format", FormatJSON)
	v.SetDefault("log.file", "stderr")
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if c.App.PageSize < 1 {
		return fmt.Errorf("page size must be positive, got %d", c.App.PageSize)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage path must not be empty")
	}
	switch c.Storage.Format {
	case FormatJSON, FormatYAML, FormatSQLite:
	default:
		return fmt.Errorf("unsupported storage format %q", c.Storage.Format)
	}
	return nil
}
