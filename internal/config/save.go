package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const fileHeader = "# pmxport settings. Keys left out keep their built-in defaults.\n"

// Save writes the settings to UserPath and returns the path written.
func (c *Config) Save() (string, error) {
	path := UserPath()
	return path, c.SaveTo(path)
}

// SaveTo writes the settings to path, creating parent directories.
func (c *Config) SaveTo(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	if _, err := fmt.Fprint(f, fileHeader); err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
