package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`

	ClassifierCmd       string        `mapstructure:"CLASSIFIER_CMD"`
	ClassifierScript    string        `mapstructure:"CLASSIFIER_SCRIPT"`
	ClassifierTimeout   time.Duration `mapstructure:"CLASSIFIER_TIMEOUT"`
	ClassifyConcurrency int           `mapstructure:"CLASSIFY_CONCURRENCY"`

	TextGenBaseURL string        `mapstructure:"TEXTGEN_BASE_URL"`
	TextGenAPIKey  string        `mapstructure:"TEXTGEN_API_KEY"`
	TextGenTimeout time.Duration `mapstructure:"TEXTGEN_TIMEOUT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CLASSIFIER_CMD", "python3")
	v.SetDefault("CLASSIFIER_TIMEOUT", "30s")
	v.SetDefault("CLASSIFY_CONCURRENCY", 4)
	v.SetDefault("TEXTGEN_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("CLASSIFIER_CMD")
	v.BindEnv("CLASSIFIER_SCRIPT")
	v.BindEnv("CLASSIFIER_TIMEOUT")
	v.BindEnv("CLASSIFY_CONCURRENCY")
	v.BindEnv("TEXTGEN_BASE_URL")
	v.BindEnv("TEXTGEN_API_KEY")
	v.BindEnv("TEXTGEN_TIMEOUT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT signing key is required so that uploads carry a real identity, and the
// classifier script must be configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV is not development")
	}
	if c.ClassifierScript == "" {
		return fmt.Errorf("CLASSIFIER_SCRIPT is required")
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be positive")
	}
	if c.ClassifyConcurrency <= 0 {
		return fmt.Errorf("CLASSIFY_CONCURRENCY must be positive")
	}
	return nil
}
