package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/service-starter/internal/document"
)

const redactedValue = "******"

// Config is the typed view of the effective configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Upload    UploadConfig    `yaml:"upload"`

	// Sources lists the files the configuration was resolved from.
	Sources []string `yaml:"-"`
}

// AppConfig identifies the service and its environment.
type AppConfig struct {
	Name  string `yaml:"name"`
	Env   string `yaml:"env"`
	Debug bool   `yaml:"debug"`
}

// ServerConfig configures the HTTP listener and its timeouts.
type ServerConfig struct {
	Port                  string        `yaml:"port"`
	ReadHeaderTimeout     time.Duration `yaml:"read_header_timeout"`
	WriteTimeout          time.Duration `yaml:"write_timeout"`
	IdleTimeout           time.Duration `yaml:"idle_timeout"`
	ShutdownGracePeriod   time.Duration `yaml:"shutdown_grace_period"`
	TrailingSlashRedirect bool          `yaml:"trailing_slash_redirect"`
}

// RateLimitConfig disables limiting when either value is zero. Paths matching
// ExcludePatterns are never limited.
type RateLimitConfig struct {
	RPS             float64  `yaml:"rps"`
	Burst           int      `yaml:"burst"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// APIConfig holds the API route prefix and authentication settings.
type APIConfig struct {
	Prefix string     `yaml:"prefix"`
	Auth   AuthConfig `yaml:"auth"`
}

// AuthConfig groups the supported authentication schemes.
type AuthConfig struct {
	APIKey APIKeyConfig `yaml:"api_key"`
	JWT    JWTConfig    `yaml:"jwt"`
}

// APIKeyConfig configures header based API key authentication.
type APIKeyConfig struct {
	Enabled         bool     `yaml:"enabled"`
	HeaderName      string   `yaml:"header_name"`
	Prefix          string   `yaml:"prefix"`
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// Key is only ever read from the API_KEY environment variable.
	Key string `yaml:"-"`
}

// JWTConfig configures bearer token authentication.
type JWTConfig struct {
	Enabled            bool          `yaml:"enabled"`
	SecretKey          string        `yaml:"secret_key"`
	Algorithm          string        `yaml:"algorithm"`
	TokenExpire        time.Duration `yaml:"token_expire"`
	RefreshTokenExpire time.Duration `yaml:"refresh_token_expire"`
	TokenURL           string        `yaml:"token_url"`
	ExcludePatterns    []string      `yaml:"exclude_patterns"`
}

// LoggingConfig selects the log level and the enabled sinks.
type LoggingConfig struct {
	Level          string            `yaml:"level"`
	Console        bool              `yaml:"console"`
	Format         string            `yaml:"format"`
	DetailedFormat bool              `yaml:"detailed_format"`
	File           LogFileConfig     `yaml:"file"`
	JSON           LogJSONConfig     `yaml:"json"`
	HTTP           HTTPLoggingConfig `yaml:"http"`
}

// LogFileConfig enables the plain text log file.
type LogFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogJSONConfig enables the JSON log file.
type LogJSONConfig struct {
	Enabled  bool   `yaml:"enabled"`
	FilePath string `yaml:"file_path"`
}

// HTTPLoggingConfig controls request/response access logs.
type HTTPLoggingConfig struct {
	RequestBody  bool `yaml:"request_body"`
	ResponseBody bool `yaml:"response_body"`
	// MaxBodyLength truncates logged bodies; zero or less logs them whole.
	MaxBodyLength   int      `yaml:"max_body_length"`
	SensitiveFields []string `yaml:"sensitive_fields"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// UploadConfig limits file uploads.
type UploadConfig struct {
	Path              string   `yaml:"path"`
	MaxFileSize       int64    `yaml:"max_file_size"`
	MaxTotalSize      int64    `yaml:"max_total_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

var defaultExcludePatterns = []string{"/health/**", "/metrics", "/docs/**", "/redoc/**", "/openapi.json"}

// Default returns the built-in settings that configuration files override.
func Default() Config {
	return Config{
		App: AppConfig{
			Name: "Service Starter",
			Env:  string(DefaultEnvironment),
		},
		Server: ServerConfig{
			Port:                "8080",
			ReadHeaderTimeout:   5 * time.Second,
			WriteTimeout:        15 * time.Second,
			IdleTimeout:         60 * time.Second,
			ShutdownGracePeriod: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:             25,
			Burst:           50,
			ExcludePatterns: []string{"/health/**"},
		},
		API: APIConfig{
			Prefix: "/api",
			Auth: AuthConfig{
				APIKey: APIKeyConfig{
					Enabled:         true,
					HeaderName:      "Authorization",
					Prefix:          "ApiKey ",
					ExcludePatterns: slices.Clone(defaultExcludePatterns),
				},
				JWT: JWTConfig{
					Algorithm:          "HS256",
					TokenExpire:        30 * time.Minute,
					RefreshTokenExpire: 7 * 24 * time.Hour,
					TokenURL:           "/api/auth/token",
					ExcludePatterns:    append(slices.Clone(defaultExcludePatterns), "/api/auth/token"),
				},
			},
		},
		Logging: LoggingConfig{
			Console: true,
			Format:  "text",
			HTTP: HTTPLoggingConfig{
				RequestBody:     true,
				ResponseBody:    true,
				MaxBodyLength:   10000,
				SensitiveFields: []string{"password", "token", "authorization", "api_key", "secret"},
				ExcludePatterns: slices.Clone(defaultExcludePatterns),
			},
		},
		Upload: UploadConfig{
			Path:              "uploads",
			MaxFileSize:       10 << 20,
			MaxTotalSize:      50 << 20,
			AllowedExtensions: []string{},
		},
	}
}

// Options selects where and how configuration is loaded. Empty fields fall
// back to APP_ENV, CONFIG_DIR and CONFIG_PATH.
type Options struct {
	Dir     string
	Env     string
	EnvFile string

	// CLI overrides take precedence over environment variables.
	CLI *Overrides

	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

// Load resolves the effective configuration.
// Precedence: CLI flags > environment variables > config.<env>.yaml >
// config.common.yaml > Default().
func Load(opts Options) (Config, error) {
	boot, err := parseBootstrap(opts.Environ)
	if err != nil {
		return Config{}, err
	}

	env, err := ParseEnvironment(firstNonEmpty(opts.Env, boot.Env))
	if err != nil {
		return Config{}, err
	}

	dir := firstNonEmpty(opts.Dir, boot.Dir)
	if dir == "" {
		if dir, err = LocateDir(DefaultDir); err != nil {
			return Config{}, fmt.Errorf("locate config directory: %w", err)
		}
	}

	resolver := Resolver{
		Dir:     dir,
		Env:     env,
		EnvFile: firstNonEmpty(opts.EnvFile, boot.EnvFile),
	}
	merged, sources, err := resolver.Resolve()
	if err != nil {
		return Config{}, err
	}

	overrides, err := collectOverrides(opts.Environ, opts.CLI)
	if err != nil {
		return Config{}, err
	}
	layer := overrides.document()
	layer.SetPath(document.String(env.String()), "app", "env")

	effective := document.Merge(merged, layer)
	zeroResetDurations(effective)

	cfg := Default()
	if err := effective.Decode(&cfg); err != nil {
		var fe *FormatError
		if errors.As(err, &fe) && fe.Source == "" {
			fe.Source = strings.Join(sources, ", ")
		}
		return Config{}, fmt.Errorf("decode effective configuration: %w", err)
	}
	cfg.API.Auth.APIKey.Key = boot.APIKey
	cfg.Sources = sources
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment returns the parsed App.Env.
func (c Config) Environment() Environment {
	env, err := ParseEnvironment(c.App.Env)
	if err != nil {
		return DefaultEnvironment
	}
	return env
}

// EffectiveLevel returns logging.level or the environment default.
func (c Config) EffectiveLevel() string {
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return c.Environment().DefaultLogLevel()
}

// Redacted returns a copy with secrets masked, safe to print or serve.
func (c Config) Redacted() Config {
	out := c
	if out.API.Auth.APIKey.Key != "" {
		out.API.Auth.APIKey.Key = redactedValue
	}
	if out.API.Auth.JWT.SecretKey != "" {
		out.API.Auth.JWT.SecretKey = redactedValue
	}
	out.API.Auth.APIKey.ExcludePatterns = slices.Clone(c.API.Auth.APIKey.ExcludePatterns)
	out.API.Auth.JWT.ExcludePatterns = slices.Clone(c.API.Auth.JWT.ExcludePatterns)
	out.Logging.HTTP.SensitiveFields = slices.Clone(c.Logging.HTTP.SensitiveFields)
	out.Logging.HTTP.ExcludePatterns = slices.Clone(c.Logging.HTTP.ExcludePatterns)
	out.Upload.AllowedExtensions = slices.Clone(c.Upload.AllowedExtensions)
	out.RateLimit.ExcludePatterns = slices.Clone(c.RateLimit.ExcludePatterns)
	out.Sources = slices.Clone(c.Sources)
	return out
}

// YAML renders the redacted configuration.
func (c Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshal configuration: %w", err)
	}
	return data, nil
}

// Document returns the redacted configuration as a document tree.
func (c Config) Document() (*document.Map, error) {
	return document.FromValue(c.Redacted())
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	for i, field := range c.Logging.HTTP.SensitiveFields {
		c.Logging.HTTP.SensitiveFields[i] = strings.ToLower(strings.TrimSpace(field))
	}
	if c.Logging.File.Path != "" {
		c.Logging.File.Path = filepath.Clean(c.Logging.File.Path)
	}
	if c.Logging.JSON.FilePath != "" {
		c.Logging.JSON.FilePath = filepath.Clean(c.Logging.JSON.FilePath)
	}
}

var validLevels = map[string]struct{}{
	"DEBUG": {}, "INFO": {}, "WARN": {}, "WARNING": {}, "ERROR": {}, "CRITICAL": {}, "FATAL": {},
}

// Validate checks the configuration and reports every problem at once.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.App.Name) == "" {
		add("app.name must not be empty")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		add("server.port must not be empty")
	}
	if c.Server.ReadHeaderTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		add("server timeouts must be >= 0")
	}
	if c.Server.ShutdownGracePeriod <= 0 {
		add("server.shutdown_grace_period must be > 0")
	}
	if c.RateLimit.RPS < 0 {
		add("rate_limit.rps must be >= 0")
	}
	if c.RateLimit.Burst < 0 {
		add("rate_limit.burst must be >= 0")
	}
	if !strings.HasPrefix(c.API.Prefix, "/") {
		add("api.prefix must start with '/'")
	}
	if c.API.Auth.JWT.Enabled && c.API.Auth.JWT.SecretKey == "" {
		add("api.auth.jwt.secret_key is required when jwt is enabled")
	}
	if c.Logging.Level != "" {
		if _, ok := validLevels[c.Logging.Level]; !ok {
			add("logging.level %q is not one of DEBUG, INFO, WARNING, ERROR, CRITICAL", c.Logging.Level)
		}
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		add("logging.format must be 'text' or 'json', got %q", c.Logging.Format)
	}
	if c.Logging.File.Enabled && c.Logging.File.Path == "" {
		add("logging.file.path is required when file logging is enabled")
	}
	if c.Logging.JSON.Enabled && c.Logging.JSON.FilePath == "" {
		add("logging.json.file_path is required when JSON logging is enabled")
	}
	if c.Upload.MaxFileSize <= 0 || c.Upload.MaxTotalSize <= 0 {
		add("upload size limits must be > 0")
	} else if c.Upload.MaxFileSize > c.Upload.MaxTotalSize {
		add("upload.max_file_size must not exceed upload.max_total_size")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// zeroResetDurations rewrites duration fields cleared by a reset. The reset
// leaves the empty string, which does not decode into time.Duration.
func zeroResetDurations(doc *document.Map) {
	for _, path := range durationPaths(reflect.TypeOf(Config{}), nil) {
		v, ok := doc.Lookup(path...)
		if !ok {
			continue
		}
		if s, isScalar := v.(document.Scalar); isScalar && s == document.String("") {
			doc.SetPath(document.String("0s"), path...)
		}
	}
}

// durationPaths lists the yaml paths of every time.Duration field in t.
func durationPaths(t reflect.Type, prefix []string) [][]string {
	var out [][]string
	for i := range t.NumField() {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		path := append(slices.Clone(prefix), name)
		switch {
		case field.Type == durationType:
			out = append(out, path)
		case field.Type.Kind() == reflect.Struct:
			out = append(out, durationPaths(field.Type, path)...)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
