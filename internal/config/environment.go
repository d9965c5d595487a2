package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Environment names the deployment stage whose overrides are layered on the
// common configuration.
type Environment string

const (
	Development Environment = "dev"
	Testing     Environment = "test"
	Staging     Environment = "stage"
	Production  Environment = "prod"

	// DefaultEnvironment may run without its own override file.
	DefaultEnvironment = Development
)

var environmentAliases = map[string]Environment{
	"development": Development,
	"local":       Development,
	"testing":     Testing,
	"staging":     Staging,
	"production":  Production,
}

var environmentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ParseEnvironment normalises raw into an Environment. An empty value selects
// DefaultEnvironment.
func ParseEnvironment(raw string) (Environment, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return DefaultEnvironment, nil
	}
	if env, ok := environmentAliases[name]; ok {
		return env, nil
	}
	if !environmentPattern.MatchString(name) {
		return "", &ValidationError{Problems: []string{fmt.Sprintf("environment name %q must match %s", raw, environmentPattern)}}
	}
	return Environment(name), nil
}

func (e Environment) String() string { return string(e) }

// IsDevelopment reports whether e is the development environment.
func (e Environment) IsDevelopment() bool { return e == Development }

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool { return e == Production }

// FileName is the name of the override file for e.
func (e Environment) FileName() string { return "config." + string(e) + ".yaml" }

// DefaultLogLevel is used when the configuration does not set logging.level.
func (e Environment) DefaultLogLevel() string {
	switch e {
	case Development, Testing:
		return "DEBUG"
	case Production:
		return "WARNING"
	default:
		return "INFO"
	}
}
