// Package config handles exporter configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid config")

// IK angle limit policies.
const (
	IKLimitsExportAll          = "EXPORT_ALL"
	IKLimitsIgnoreAll          = "IGNORE_ALL"
	IKLimitsOverrideControlled = "OVERRIDE_CONTROLLED"
)

// Vertex sort methods.
const (
	SortVerticesNone    = "NONE"
	SortVerticesBlender = "BLENDER"
	SortVerticesCustom  = "CUSTOM"
)

// Config holds all exporter settings.
type Config struct {
	Export   ExportConfig  `yaml:"export"`
	Textures TextureConfig `yaml:"textures"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ExportConfig holds the conversion settings.
type ExportConfig struct {
	Scale           float32 `yaml:"scale"`            // scene units to PMX units
	VertexSplitting bool    `yaml:"vertex_splitting"` // split on normal/color seams instead of averaging
	IKAngleLimits   string  `yaml:"ik_angle_limits"`
	SortMaterials   bool    `yaml:"sort_materials"`
	SortVertices    string  `yaml:"sort_vertices"`
	DisableSpecular bool    `yaml:"disable_specular"`
	IKLoopFactor    int     `yaml:"ik_loop_factor"` // used when the scene does not set one
}

// TextureConfig holds texture table settings.
type TextureConfig struct {
	Probe         bool `yaml:"probe"`          // decode existing textures to catch broken files
	RelativePaths bool `yaml:"relative_paths"` // store paths relative to the output file
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Scale:           12.5,
			VertexSplitting: false,
			IKAngleLimits:   IKLimitsExportAll,
			SortMaterials:   false,
			SortVertices:    SortVerticesNone,
			DisableSpecular: false,
			IKLoopFactor:    1,
		},
		Textures: TextureConfig{
			Probe:         true,
			RelativePaths: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	if c.Export.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive, got %v", ErrInvalid, c.Export.Scale)
	}
	if c.Export.IKLoopFactor < 1 {
		return fmt.Errorf("%w: ik_loop_factor must be at least 1, got %d", ErrInvalid, c.Export.IKLoopFactor)
	}
	switch c.Export.IKAngleLimits {
	case IKLimitsExportAll, IKLimitsIgnoreAll, IKLimitsOverrideControlled:
	default:
		return fmt.Errorf("%w: unknown ik_angle_limits %q", ErrInvalid, c.Export.IKAngleLimits)
	}
	switch c.Export.SortVertices {
	case SortVerticesNone, SortVerticesBlender, SortVerticesCustom:
	default:
		return fmt.Errorf("%w: unknown sort_vertices %q", ErrInvalid, c.Export.SortVertices)
	}
	return nil
}
