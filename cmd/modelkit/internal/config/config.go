package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/modelkit/pkg/logging"
)

// FileName is the project configuration file.
const FileName = "modelkit.yaml"

// Config represents the optional modelkit.yaml configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Settings SettingsConfig `yaml:"settings"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
}

// RuntimeConfig configures the dispatcher and logging.
type RuntimeConfig struct {
	Workers  int    `yaml:"workers,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// SettingsConfig lists settings files merged after the built-in defaults.
type SettingsConfig struct {
	Files []string `yaml:"files,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root          string
	ModulePath    string
	AppName       string
	Workers       int
	LogLevel      zerolog.Level
	SettingsFiles []string
}

// LoadOptional reads modelkit.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads modelkit.yaml (if present) and resolves defaults. A
// missing go.mod is allowed; the app name then defaults to the directory
// name.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}

	if cfg.Runtime.Workers < 0 {
		return nil, fmt.Errorf("runtime.workers must not be negative, got %d", cfg.Runtime.Workers)
	}

	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(cfg.Runtime.LogLevel); raw != "" {
		parsed, ok := logging.ParseLevel(raw)
		if !ok {
			return nil, fmt.Errorf("unknown runtime.log_level %q", raw)
		}
		level = parsed
	}

	files := make([]string, 0, len(cfg.Settings.Files))
	for _, f := range cfg.Settings.Files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !filepath.IsAbs(f) {
			f = filepath.Join(dir, f)
		}
		files = append(files, f)
	}

	return &Resolved{
		Root:          dir,
		ModulePath:    modulePath,
		AppName:       appName,
		Workers:       cfg.Runtime.Workers,
		LogLevel:      level,
		SettingsFiles: files,
	}, nil
}

// FindProjectRoot walks up from the current directory to find go.mod or
// modelkit.yaml. Outside any project it returns the current directory.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		for _, marker := range []string{FileName, "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if modulePath != "" {
		modName, _, ok := module.SplitPathVersion(modulePath)
		if ok {
			parts := strings.Split(modName, "/")
			if len(parts) > 0 && parts[len(parts)-1] != "" {
				base = parts[len(parts)-1]
			}
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "modelkit_app"
	}
	return base
}
