package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Hue         HueConfig         `yaml:"hue"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Pairing     PairingConfig     `yaml:"pairing"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Log         LogConfig         `yaml:"log"`
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge         string   `yaml:"bridge"`          // Bridge address; latest paired bridge when empty
	Token          string   `yaml:"token"`           // Application key; credential store when empty
	Timeout        Duration `yaml:"timeout"`         // HTTP timeout for Hue API requests
	TransitionTime *int     `yaml:"transition_time"` // Scene transition in 100ms units; 1 when unset
	DeviceType     string   `yaml:"device_type"`     // App name announced when pairing
}

// Transition returns the scene transition time, 1 when unset
func (c HueConfig) Transition() int {
	if c.TransitionTime == nil {
		return 1
	}
	return *c.TransitionTime
}

// CredentialsConfig contains credential store settings
type CredentialsConfig struct {
	Path string `yaml:"path"`
}

// PairingConfig contains link-button pairing settings
type PairingConfig struct {
	Timeout Duration `yaml:"timeout"` // How long to wait for the link button
}

// DiscoveryConfig contains bridge discovery settings
type DiscoveryConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "warn"
	}
	return strings.ToLower(c.Level)
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Dir returns the configuration directory path
func Dir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hue"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hue"), nil
}

// DefaultPath returns the path of the config file used when none is given
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads and parses the configuration file.
// An empty path means the default location, which is allowed to be missing.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only
	default:
		return nil, err
	}

	// Environment overrides
	if v := os.Getenv("HUE_BRIDGE"); v != "" {
		cfg.Hue.Bridge = v
	}
	if v := os.Getenv("HUE_TOKEN"); v != "" {
		cfg.Hue.Token = v
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) setDefaults() error {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}

	// Hue defaults
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}
	if cfg.Hue.TransitionTime == nil {
		transition := 1
		cfg.Hue.TransitionTime = &transition
	}
	if cfg.Hue.DeviceType == "" {
		cfg.Hue.DeviceType = "hue-cli"
	}

	if cfg.Pairing.Timeout == 0 {
		cfg.Pairing.Timeout = Duration(30 * time.Second)
	}
	if cfg.Discovery.Timeout == 0 {
		cfg.Discovery.Timeout = Duration(5 * time.Second)
	}

	if cfg.Credentials.Path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		cfg.Credentials.Path = filepath.Join(dir, "credentials.sqlite")
	}
	cfg.Credentials.Path = expandHome(cfg.Credentials.Path)

	return nil
}

// Validate checks values that have no sensible fallback
func (cfg *Config) Validate() error {
	if t := cfg.Hue.Transition(); t < 0 || t > 65535 {
		return fmt.Errorf("hue.transition_time out of range: %d", t)
	}
	switch cfg.Log.GetLevel() {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be debug, info, warn or error", cfg.Log.Level)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
