package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/nexpat/clinicq/pkg/regnumber"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Format    FormatConfig    `mapstructure:"format"`
	Blob      BlobConfig      `mapstructure:"blob"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// FormatConfig controls the separator policy for registration number
// formats. Policy is either "any" (any non-empty separator string) or
// "allowlist" (separators restricted to Allowlist).
type FormatConfig struct {
	SeparatorPolicy    string   `mapstructure:"separator_policy" validate:"oneof=any allowlist"`
	SeparatorAllowlist []string `mapstructure:"separator_allowlist"`
}

// Policy translates the configured flag into a codec policy.
func (c FormatConfig) Policy() regnumber.SeparatorPolicy {
	if c.SeparatorPolicy == "allowlist" {
		allowlist := c.SeparatorAllowlist
		if len(allowlist) == 0 {
			allowlist = []string{"-", "+"}
		}
		return regnumber.SeparatorPolicy{Allowlist: allowlist}
	}
	return regnumber.DefaultSeparatorPolicy()
}

type BlobConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	URLPrefix string `mapstructure:"url_prefix"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" validate:"min=0"`
	Burst int     `mapstructure:"burst" validate:"min=0"`
}

type CacheConfig struct {
	ResponseTTL time.Duration `mapstructure:"response_ttl"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("format.separator_policy", "any")
	viper.SetDefault("rate_limit.rps", 50)
	viper.SetDefault("rate_limit.burst", 100)
	viper.SetDefault("cache.response_ttl", 5*time.Minute)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
