// Package config provides configuration file loading for botmesh
// deployments. Configuration is loaded from a single YAML file passed
// explicitly by the embedding application; there is no automatic
// discovery or hidden override, which keeps deployments deterministic
// and auditable.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/botmesh-io/botmesh/engine"
)

// Duration wraps time.Duration so YAML values can be written as
// "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// StorageConfig selects the durability backend for the memory and
// conversation stores.
type StorageConfig struct {
	// Driver is "memory" (volatile) or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the SQLite database file, required for the sqlite driver.
	Path string `yaml:"path"`
}

// LoggingConfig configures the runtime logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
}

// Config is the master configuration for a botmesh process.
type Config struct {
	// CommandPrefix marks message bodies as commands (default "!").
	CommandPrefix string `yaml:"command_prefix"`

	// HandlerTimeout bounds one handler invocation; zero disables it.
	HandlerTimeout Duration `yaml:"handler_timeout"`

	// MailboxSize is each agent's inbound queue depth.
	MailboxSize int `yaml:"mailbox_size"`

	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the configuration used when no file is supplied:
// in-memory storage, "!" prefix, JSON info-level logging, no handler
// timeout.
func Default() Config {
	return Config{
		CommandPrefix: "!",
		MailboxSize:   64,
		Storage:       StorageConfig{Driver: "memory"},
		Logging:       LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field shapes and cross-field requirements.
func (c Config) Validate() error {
	if c.CommandPrefix == "" {
		return fmt.Errorf("command_prefix must not be empty")
	}
	if c.MailboxSize <= 0 {
		return fmt.Errorf("mailbox_size must be positive")
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}

// EngineConfig converts the file values into the engine's Config.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		CommandPrefix:  c.CommandPrefix,
		MailboxSize:    c.MailboxSize,
		HandlerTimeout: time.Duration(c.HandlerTimeout),
	}
}
