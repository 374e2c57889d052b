package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "MEALCART"

// Config holds the service configuration.
type Config struct {
	Port               int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	DBPath             string        `mapstructure:"db_path" validate:"required"`
	LogLevel           string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat          string        `mapstructure:"log_format" validate:"oneof=text json"`
	Timezone           string        `mapstructure:"timezone" validate:"required"`
	PastPeriods        int           `mapstructure:"past_periods" validate:"gte=0,lte=120"`
	FuturePeriods      int           `mapstructure:"future_periods" validate:"gte=0,lte=120"`
	StoreTimeout       time.Duration `mapstructure:"store_timeout" validate:"gt=0"`
	GenerateRateLimit  int           `mapstructure:"generate_rate_limit" validate:"gte=1"`
	WSOriginPatterns   []string      `mapstructure:"ws_origin_patterns"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	RateLimitSweepTick time.Duration `mapstructure:"rate_limit_sweep" validate:"gt=0"`

	S3Endpoint       string        `mapstructure:"s3_endpoint"`
	S3Bucket         string        `mapstructure:"s3_bucket"`
	S3Region         string        `mapstructure:"s3_region"`
	S3AccessKey      string        `mapstructure:"s3_access_key"`
	S3SecretKey      string        `mapstructure:"s3_secret_key"`
	BackupPassphrase string        `mapstructure:"backup_passphrase"`
	BackupInterval   time.Duration `mapstructure:"backup_interval" validate:"gte=0"`
	BackupRetention  time.Duration `mapstructure:"backup_retention" validate:"gte=0"`

	// Location is resolved from Timezone.
	Location *time.Location `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "mealcart.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("past_periods", 8)
	v.SetDefault("future_periods", 4)
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("generate_rate_limit", 20)
	v.SetDefault("ws_origin_patterns", []string{})
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("rate_limit_sweep", "5m")

	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("backup_passphrase", "")
	v.SetDefault("backup_interval", "0s")
	v.SetDefault("backup_retention", "0s")
}

// NewFromEnv reads configuration from MEALCART_* environment variables.
func NewFromEnv() (*Config, error) {
	return Load("")
}

// Load reads an optional config file at path, then applies environment
// overrides. Environment variables always win.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges, resolves the timezone and rejects half-set
// backup configuration.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%s_%s: failed %q check (got %v)", envPrefix, strings.ToUpper(fieldKey(e.StructField())), e.Tag(), e.Value())
		}
		return err
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%s_TIMEZONE: %w", envPrefix, err)
	}
	c.Location = loc

	if c.BackupInterval > 0 && !c.BackupEnabled() {
		return fmt.Errorf("%s_BACKUP_INTERVAL is set but S3 bucket, credentials or passphrase are missing", envPrefix)
	}
	return nil
}

// BackupEnabled reports whether enough is configured to upload backups.
func (c *Config) BackupEnabled() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.BackupPassphrase != ""
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

var fieldKeys = map[string]string{
	"Port":               "port",
	"DBPath":             "db_path",
	"LogLevel":           "log_level",
	"LogFormat":          "log_format",
	"Timezone":           "timezone",
	"PastPeriods":        "past_periods",
	"FuturePeriods":      "future_periods",
	"StoreTimeout":       "store_timeout",
	"GenerateRateLimit":  "generate_rate_limit",
	"ShutdownTimeout":    "shutdown_timeout",
	"RateLimitSweepTick": "rate_limit_sweep",
	"BackupInterval":     "backup_interval",
	"BackupRetention":    "backup_retention",
}

func fieldKey(field string) string {
	if k, ok := fieldKeys[field]; ok {
		return k
	}
	return field
}
