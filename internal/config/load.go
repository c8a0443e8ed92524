package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvFile names an environment variable that points at a config file. It
// is consulted when no -config flag is given.
const EnvFile = "PMXPORT_CONFIG"

const fileName = "config.yaml"

// Load resolves the effective settings: defaults, then the first config
// file found, then command-line overrides. f may be nil.
func Load(f *Flags) (*Config, error) {
	cfg := Default()

	var explicit string
	if f != nil {
		explicit = f.Config
	}
	if path := locate(explicit); path != "" {
		if err := decodeFile(cfg, path); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if f != nil {
		f.apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// locate picks the config file to read. An explicit path or $PMXPORT_CONFIG
// is returned as is so that a typo surfaces as a read error; the working
// directory and the user config directory are only used when present.
func locate(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvFile); env != "" {
		return env
	}
	for _, path := range []string{
		filepath.Join(".", "pmxport.yaml"),
		UserPath(),
	} {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "pmxport")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "pmxport")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "pmxport")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "pmxport")
	}
}

// UserPath is the per-user config file written by Save.
func UserPath() string {
	return filepath.Join(ConfigDir(), fileName)
}

// decodeFile merges a YAML file over cfg. Unknown keys are rejected so a
// misspelled setting does not silently fall back to its default.
func decodeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}
