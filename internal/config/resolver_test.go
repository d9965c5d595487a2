package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/service-starter/internal/document"
)

func TestResolverMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, CommonFile, `
logging:
  level: INFO
  http:
    sensitive_fields: [password, token]
    max_body_length: 1000
`)
	writeConfig(t, dir, "config.test.yaml", `
logging:
  level: DEBUG
  http:
    sensitive_fields: __reset__
`)

	merged, sources, err := Resolver{Dir: dir, Env: Testing}.Resolve()
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	level, _ := merged.Lookup("logging", "level")
	assert.Equal(t, document.String("DEBUG"), level)

	fields, ok := merged.Lookup("logging", "http", "sensitive_fields")
	require.True(t, ok)
	assert.Equal(t, document.List{}, fields)

	maxBody, _ := merged.Lookup("logging", "http", "max_body_length")
	assert.Equal(t, 1000, maxBody.(document.Scalar).Interface())
}

func TestResolverEmptyEnvDefaultsToDevelopment(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, CommonFile, "a: 1\n")
	writeConfig(t, dir, "config.dev.yaml", "a: 2\n")

	merged, sources, err := Resolver{Dir: dir}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.dev.yaml"), sources[1])

	a, _ := merged.Get("a")
	assert.Equal(t, 2, a.(document.Scalar).Interface())
}

func TestResolverFormatErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, CommonFile, "a: 1\n")
	path := writeConfig(t, dir, "config.stage.yaml", "a: [1\n")

	_, _, err := Resolver{Dir: dir, Env: Staging}.Resolve()
	require.Error(t, err)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, path, fe.Source)
}

func TestLocateDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "settings"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	got, err := LocateDir("settings")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(root, "settings"))
	require.NoError(t, err)
	gotResolved, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, want, gotResolved)

	_, err = LocateDir("definitely-not-here-7f3a")
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}
