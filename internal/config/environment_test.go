package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		raw  string
		want Environment
	}{
		{raw: "", want: Development},
		{raw: "  ", want: Development},
		{raw: "dev", want: Development},
		{raw: "Development", want: Development},
		{raw: "local", want: Development},
		{raw: "TEST", want: Testing},
		{raw: "staging", want: Staging},
		{raw: "production", want: Production},
		{raw: "qa-2", want: Environment("qa-2")},
	}

	for _, tc := range tests {
		got, err := ParseEnvironment(tc.raw)
		require.NoError(t, err, "raw %q", tc.raw)
		assert.Equal(t, tc.want, got, "raw %q", tc.raw)
	}
}

func TestParseEnvironmentRejectsPaths(t *testing.T) {
	for _, raw := range []string{"../prod", "prod/x", "-dev", "dev env"} {
		_, err := ParseEnvironment(raw)
		assert.True(t, errors.Is(err, ErrConfigInvalid), "raw %q", raw)
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	assert.Equal(t, "config.stage.yaml", Staging.FileName())
	assert.True(t, Development.IsDevelopment())
	assert.True(t, Production.IsProduction())
	assert.False(t, Staging.IsProduction())

	assert.Equal(t, "DEBUG", Testing.DefaultLogLevel())
	assert.Equal(t, "INFO", Staging.DefaultLogLevel())
	assert.Equal(t, "WARNING", Production.DefaultLogLevel())
}
