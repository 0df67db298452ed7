package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/PaulFidika/supaguard/core"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds service configuration loaded from environment variables or config.yaml.
type Config struct {
	AppEnv      string `mapstructure:"app_env" default:"development" validate:"required"`
	Port        string `mapstructure:"port" default:"8080" validate:"required"`
	ServiceName string `mapstructure:"service_name" default:"supaguard"`

	// Authority
	SupabaseURL string `mapstructure:"supabase_url" validate:"required,url"`
	Issuer      string `mapstructure:"supaguard_issuer" validate:"omitempty,url"`
	Audience    string `mapstructure:"supaguard_audience" default:"authenticated" validate:"required"`

	// Key-set cache
	JWKSCacheTTL     time.Duration `mapstructure:"jwks_cache_ttl" default:"10m" validate:"gt=0s"`
	JWKSFetchTimeout time.Duration `mapstructure:"jwks_fetch_timeout" default:"10s" validate:"gt=0s,lte=1m"`
	ClockSkew        time.Duration `mapstructure:"clock_skew" default:"0s" validate:"gte=0s,lte=5m"`
	RefreshSchedule  string        `mapstructure:"refresh_schedule"`

	// Shared state; empty keeps everything in process. Key-set documents are only shared
	// through Redis when JWKSStoreKey is set.
	RedisURL      string        `secret:"true" mapstructure:"redis_url"`
	JWKSStoreKey  string        `secret:"true" mapstructure:"jwks_store_key" validate:"omitempty,min=16"`
	RefetchLimit  int           `mapstructure:"refetch_limit" default:"0" validate:"gte=0"`
	RefetchWindow time.Duration `mapstructure:"refetch_window" default:"10s" validate:"gt=0s"`

	// Logging
	LogLevel  string `mapstructure:"log_level" default:"INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	LogFormat string `mapstructure:"log_format" default:"text" validate:"oneof=text json"`
}

// Load reads config.yaml (if present) and the environment, applies defaults and validates.
func Load() (*Config, error) {
	return load(viper.New(), logrus.StandardLogger())
}

func load(v *viper.Viper, log logrus.FieldLogger) (*Config, error) {
	cfg := Config{}

	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	t := reflect.TypeOf(cfg)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = toSnakeCase(field.Name)
		}
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
		log.Debug("config: no config file, using environment")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	log.WithField("config", cfg.String()).Debug("config: loaded")
	return &cfg, nil
}

func Validate(cfg *Config) error {
	validate := validator.New()
	return validate.Struct(cfg)
}

// ToAccept converts the authority settings into a verification policy.
func (c *Config) ToAccept() core.AcceptConfig {
	return core.AcceptConfig{
		AuthorityURL: c.SupabaseURL,
		Issuer:       c.Issuer,
		Audience:     c.Audience,
		Skew:         c.ClockSkew,
		CacheTTL:     c.JWKSCacheTTL,
		FetchTimeout: c.JWKSFetchTimeout,
	}.Defaulted()
}

// String returns a string representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := reflect.TypeOf(*c)
	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprintf("%v", v.Field(i).Interface())
		if field.Tag.Get("secret") == "true" && value != "" {
			value = "***REDACTED***"
		}
		sb.WriteString(field.Name + ": " + value)
		if i < t.NumField()-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// toSnakeCase converts CamelCase to snake_case
func toSnakeCase(str string) string {
	runes := []rune(str)
	var out []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				out = append(out, '_')
			}
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
