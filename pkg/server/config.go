package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chordserve/chordserve/pkg/converter"
)

// MaxContentBytes is the request content size bound, enforced before any
// file I/O happens.
const MaxContentBytes = 1 << 20

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string `yaml:"listen_addr"`

	// RendererBinary is the chordpro executable; resolved via PATH when bare
	RendererBinary string `yaml:"renderer_binary"`

	// TempDir is where per-session input/output files are created
	TempDir string `yaml:"temp_dir"`

	// RenderTimeout is the hard wall-clock budget for one renderer run
	RenderTimeout time.Duration `yaml:"render_timeout"`

	// ShutdownTimeout is how long to wait for graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		RendererBinary:  converter.DefaultBinary,
		TempDir:         os.TempDir(),
		RenderTimeout:   converter.DefaultTimeout,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadConfigFile reads a YAML config file over the defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
