// Package config resolves process-level settings from the environment.
// A .env file in the working directory is honored before the real
// environment so local setups stay reproducible.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// Config holds settings shared by every command.
type Config struct {
	// Home is the state directory holding profiles, rendered values and
	// certificate backups. Defaults to ~/.linto.
	Home string `env:"LINTO_HOME"`
	// Kubeconfig is used when a profile does not pin its own kubeconfig.
	Kubeconfig string `env:"LINTO_KUBECONFIG"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LINTO_LOG_LEVEL" envDefault:"info"`
	// ChartDir holds the platform charts. Defaults to <home>/charts.
	ChartDir string `env:"LINTO_CHART_DIR"`
	// DeployTimeout bounds each helm install or upgrade call.
	DeployTimeout time.Duration `env:"LINTO_DEPLOY_TIMEOUT" envDefault:"10m"`
}

// Load reads the optional .env file, parses the environment and fills in
// path defaults.
func Load() (*Config, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse environment", err)
	}

	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to determine home directory", err)
		}
		cfg.Home = filepath.Join(home, ".linto")
	}
	if cfg.ChartDir == "" {
		cfg.ChartDir = filepath.Join(cfg.Home, "charts")
	}

	return cfg, nil
}

// ProfilesDir returns the directory holding profile documents.
func (c *Config) ProfilesDir() string {
	return filepath.Join(c.Home, "profiles")
}

// CertsDir returns the root directory for certificate backups.
func (c *Config) CertsDir() string {
	return filepath.Join(c.Home, "certs")
}

// RenderDir returns the directory holding rendered values artifacts for
// one profile.
func (c *Config) RenderDir(profile string) string {
	return filepath.Join(c.Home, "profiles", profile+".values")
}
