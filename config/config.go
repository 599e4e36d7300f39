// Package config loads the gateway configuration from defaults, an optional
// YAML file, GRIDGATE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jonwraymond/gridgate/auth"
	"github.com/jonwraymond/gridgate/observe"
	"github.com/jonwraymond/gridgate/secret"
)

// EnvPrefix prefixes every environment variable, e.g. GRIDGATE_AUTH_ISSUER.
const EnvPrefix = "GRIDGATE"

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrLoad wraps file and decoding failures.
	ErrLoad = errors.New("config: load failed")
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Auth    AuthConfig     `mapstructure:"auth"`
	Health  HealthConfig   `mapstructure:"health"`
	Observe observe.Config `mapstructure:"observe" validate:"-"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// CORSOrigins lists browser origins allowed to call the API. Empty keeps the
	// development defaults.
	CORSOrigins []string `mapstructure:"cors_origins" validate:"dive,required"`
}

// AuthConfig configures the access policy.
type AuthConfig struct {
	// SigningSecret is a literal or a secretref (secretref:env:NAME,
	// secretref:file:/path). It has no default.
	SigningSecret string `mapstructure:"signing_secret" validate:"required"`

	// Issuer is stamped into and required of every token. It has no default.
	Issuer string `mapstructure:"issuer" validate:"required"`

	// TokenLifetime defaults to one hour.
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gte=0"`

	// SecretFileRoot confines secretref:file references when set.
	SecretFileRoot string `mapstructure:"secret_file_root"`
}

// HealthConfig configures readiness checks.
type HealthConfig struct {
	CheckTimeout time.Duration `mapstructure:"check_timeout" validate:"gt=0"`
	MaxHeapBytes uint64        `mapstructure:"max_heap_bytes"`
}

// Options controls where Load reads from. The zero value reads defaults and
// the environment only.
type Options struct {
	// File is an optional YAML config file.
	File string

	// Flags, when set, are bound by name via FlagBindings.
	Flags *pflag.FlagSet
}

// FlagBindings maps command-line flag names to config keys.
var FlagBindings = map[string]string{
	"addr":           "server.addr",
	"issuer":         "auth.issuer",
	"signing-secret": "auth.signing_secret",
	"token-lifetime": "auth.token_lifetime",
	"log-level":      "observe.logging.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{})

	// Secret and issuer get no default so a missing value fails loudly.
	v.SetDefault("auth.signing_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.token_lifetime", auth.DefaultTokenLifetime)
	v.SetDefault("auth.secret_file_root", "")

	v.SetDefault("health.check_timeout", 5*time.Second)
	v.SetDefault("health.max_heap_bytes", 0)

	v.SetDefault("observe.service_name", "gridgate")
	v.SetDefault("observe.version", "dev")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "none")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", true)
	v.SetDefault("observe.metrics.exporter", "prometheus")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")
}

// Load builds and validates the configuration.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrLoad, opts.File, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagBindings {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("%w: bind flag %s: %v", ErrLoad, name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrLoad, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks every section. Field errors name the config key, never
// the value.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fieldKey(fe), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// fieldKey turns the validator namespace Config.auth.issuer into the
// config key auth.issuer.
func fieldKey(fe validator.FieldError) string {
	_, key, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Namespace()
	}
	return key
}

// NewSecretResolver builds a strict resolver over the default providers,
// confining file references to SecretFileRoot when set.
func (c *Config) NewSecretResolver() (*secret.Resolver, error) {
	return secret.DefaultRegistry.NewResolver(true, secret.Options{FileRoot: c.Auth.SecretFileRoot})
}

// Policy resolves the signing secret and builds the immutable access policy.
// Insecure development defaults are rejected here.
func (c *Config) Policy(ctx context.Context, resolver *secret.Resolver) (auth.PolicyConfig, error) {
	key, err := resolver.ResolveValue(ctx, c.Auth.SigningSecret)
	if err != nil {
		return auth.PolicyConfig{}, fmt.Errorf("%w: auth.signing_secret: %w", ErrInvalidConfig, err)
	}
	policy, err := auth.NewPolicyConfig(key, c.Auth.Issuer, c.Auth.TokenLifetime)
	if err != nil {
		return auth.PolicyConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return policy, nil
}
