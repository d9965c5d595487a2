package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eugenenazirov/service-starter/internal/document"
)

const (
	// CommonFile holds the environment independent base configuration.
	CommonFile = "config.common.yaml"
	// DefaultDir is searched for configuration files when no directory is given.
	DefaultDir = "config"
)

// Resolver loads the common configuration and layers one environment file on
// top of it.
type Resolver struct {
	Dir string
	Env Environment
	// EnvFile replaces <Dir>/config.<env>.yaml when set. It is always mandatory.
	EnvFile string
}

// Resolve returns the merged document and the files it was built from.
//
// The common file is mandatory. The environment file is mandatory unless Env
// is DefaultEnvironment and EnvFile is empty.
func (r Resolver) Resolve() (*document.Map, []string, error) {
	env := r.Env
	if env == "" {
		env = DefaultEnvironment
	}

	commonPath := filepath.Join(r.Dir, CommonFile)
	base, err := readDocument(commonPath, "")
	if err != nil {
		return nil, nil, err
	}
	sources := []string{commonPath}

	envPath := r.EnvFile
	required := true
	if envPath == "" {
		envPath = filepath.Join(r.Dir, env.FileName())
		required = env != DefaultEnvironment
	}

	overlay, err := readDocument(envPath, env)
	switch {
	case err == nil:
		sources = append(sources, envPath)
	case errors.Is(err, ErrConfigNotFound) && !required:
		overlay = nil
	default:
		return nil, nil, err
	}

	return document.Merge(base, overlay), sources, nil
}

func readDocument(path string, env Environment) (*document.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path, Env: env, Err: err}
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := document.ParseSource(path, data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LocateDir finds a directory named rel by walking up from the working
// directory.
func LocateDir(rel string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", &NotFoundError{Path: rel, Err: fs.ErrNotExist}
}
