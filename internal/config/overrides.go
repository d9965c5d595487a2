package config

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"

	"github.com/eugenenazirov/service-starter/internal/document"
)

// bootstrap holds the variables that decide where configuration comes from.
type bootstrap struct {
	Env     string `env:"APP_ENV"`
	Dir     string `env:"CONFIG_DIR"`
	EnvFile string `env:"CONFIG_PATH"`
	APIKey  string `env:"API_KEY"`
}

func parseBootstrap(environ map[string]string) (bootstrap, error) {
	var b bootstrap
	if err := env.ParseWithOptions(&b, env.Options{Environment: environ}); err != nil {
		return bootstrap{}, &ValidationError{Problems: []string{err.Error()}}
	}
	return b, nil
}

// Overrides is the highest precedence layer. Nil fields leave the value from
// the files untouched. Environment variables fill it first, then non-nil CLI
// fields replace them.
type Overrides struct {
	AppName   *string `env:"APP_NAME"`
	Debug     *bool   `env:"DEBUG"`
	Port      *string `env:"PORT"`
	LogLevel  *string `env:"LOG_LEVEL"`
	LogFormat *string `env:"LOG_FORMAT"`
	// LogSensitiveFields set to the single item "__reset__" clears the list.
	LogSensitiveFields []string `env:"LOG_SENSITIVE_FIELDS" envSeparator:","`
	RateLimitRPS       *float64 `env:"RATE_LIMIT_RPS"`
	RateLimitBurst     *int     `env:"RATE_LIMIT_BURST"`
}

func collectOverrides(environ map[string]string, cli *Overrides) (Overrides, error) {
	var o Overrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return Overrides{}, &ValidationError{Problems: []string{fmt.Sprintf("environment overrides: %v", err)}}
	}
	if cli == nil {
		return o, nil
	}
	if err := mergo.Merge(&o, *cli, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		return Overrides{}, fmt.Errorf("apply command line overrides: %w", err)
	}
	return o, nil
}

// document renders the set fields as a configuration tree.
func (o Overrides) document() *document.Map {
	m := document.NewMap()
	if o.AppName != nil {
		m.SetPath(document.String(*o.AppName), "app", "name")
	}
	if o.Debug != nil {
		m.SetPath(document.Bool(*o.Debug), "app", "debug")
	}
	if o.Port != nil {
		m.SetPath(document.String(*o.Port), "server", "port")
	}
	if o.LogLevel != nil {
		m.SetPath(document.String(*o.LogLevel), "logging", "level")
	}
	if o.LogFormat != nil {
		m.SetPath(document.String(*o.LogFormat), "logging", "format")
	}
	if o.LogSensitiveFields != nil {
		m.SetPath(stringList(o.LogSensitiveFields), "logging", "http", "sensitive_fields")
	}
	if o.RateLimitRPS != nil {
		m.SetPath(document.Float(*o.RateLimitRPS), "rate_limit", "rps")
	}
	if o.RateLimitBurst != nil {
		m.SetPath(document.Int(int64(*o.RateLimitBurst)), "rate_limit", "burst")
	}
	return m
}

func stringList(items []string) document.Value {
	if len(items) == 1 && items[0] == document.ResetSentinel {
		return document.Reset{}
	}
	out := make(document.List, len(items))
	for i, item := range items {
		out[i] = document.String(item)
	}
	return out
}
