package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Name string `mapstructure:"name"`
		Port string `mapstructure:"port"`
	} `mapstructure:"app"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Postgres struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		DBName   string `mapstructure:"dbname"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"postgres"`

	NBP struct {
		BaseURL             string        `mapstructure:"base_url"`
		AttemptTimeout      time.Duration `mapstructure:"attempt_timeout"`
		MaxRetries          uint64        `mapstructure:"max_retries"`
		RetryBaseDelay      time.Duration `mapstructure:"retry_base_delay"`
		BreakerWindow       time.Duration `mapstructure:"breaker_window"`
		BreakerFailureRatio float64       `mapstructure:"breaker_failure_ratio"`
		BreakerMinRequests  uint32        `mapstructure:"breaker_min_requests"`
		BreakerOpenDuration time.Duration `mapstructure:"breaker_open_duration"`
	} `mapstructure:"nbp"`

	HTTP struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		RateLimit      string   `mapstructure:"rate_limit"`
	} `mapstructure:"http"`

	WarmUp struct {
		Enabled    bool     `mapstructure:"enabled"`
		Schedule   string   `mapstructure:"schedule"`
		Currencies []string `mapstructure:"currencies"`
	} `mapstructure:"warmup"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "nbp-rates-service")
	v.SetDefault("app.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.dbname", "nbp_rates")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("nbp.base_url", "https://api.nbp.pl/api/exchangerates")
	v.SetDefault("nbp.attempt_timeout", 3*time.Second)
	v.SetDefault("nbp.max_retries", 3)
	v.SetDefault("nbp.retry_base_delay", time.Second)
	v.SetDefault("nbp.breaker_window", 10*time.Second)
	v.SetDefault("nbp.breaker_failure_ratio", 0.2)
	v.SetDefault("nbp.breaker_min_requests", 3)
	v.SetDefault("nbp.breaker_open_duration", time.Second)

	v.SetDefault("http.allowed_origins", []string{"http://localhost:8080", "http://127.0.0.1:8080"})
	v.SetDefault("http.rate_limit", "100-M")

	v.SetDefault("warmup.enabled", false)
	v.SetDefault("warmup.schedule", "15 12 * * 1-5")
	v.SetDefault("warmup.currencies", []string{})
}

// LoadConfig reads config.yaml from the usual lookup paths. A missing file is
// not an error: defaults and environment variables (POSTGRES_HOST, NBP_BASE_URL,
// ...) are enough to run. A .env file, when present, is loaded first.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("../../config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
