package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test export defaults
	if cfg.Export.Scale != 12.5 {
		t.Errorf("expected scale 12.5, got %v", cfg.Export.Scale)
	}
	if cfg.Export.VertexSplitting {
		t.Error("expected vertex_splitting to be false by default")
	}
	if cfg.Export.IKAngleLimits != IKLimitsExportAll {
		t.Errorf("expected ik_angle_limits %s, got %s", IKLimitsExportAll, cfg.Export.IKAngleLimits)
	}
	if cfg.Export.SortVertices != SortVerticesNone {
		t.Errorf("expected sort_vertices %s, got %s", SortVerticesNone, cfg.Export.SortVertices)
	}
	if cfg.Export.IKLoopFactor != 1 {
		t.Errorf("expected ik_loop_factor 1, got %d", cfg.Export.IKLoopFactor)
	}

	// Test texture defaults
	if !cfg.Textures.Probe {
		t.Error("expected probe to be true by default")
	}
	if !cfg.Textures.RelativePaths {
		t.Error("expected relative_paths to be true by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  scale: 10
  vertex_splitting: true
  ik_angle_limits: IGNORE_ALL
  sort_materials: true
  sort_vertices: CUSTOM
  disable_specular: true
  ik_loop_factor: 4

textures:
  probe: false

logging:
  level: "debug"
  log_file: "export.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := decodeFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Export.Scale != 10 {
		t.Errorf("expected scale 10, got %v", cfg.Export.Scale)
	}
	if !cfg.Export.VertexSplitting {
		t.Error("expected vertex_splitting to be true")
	}
	if cfg.Export.IKAngleLimits != IKLimitsIgnoreAll {
		t.Errorf("expected IGNORE_ALL, got %s", cfg.Export.IKAngleLimits)
	}
	if !cfg.Export.SortMaterials {
		t.Error("expected sort_materials to be true")
	}
	if cfg.Export.SortVertices != SortVerticesCustom {
		t.Errorf("expected CUSTOM, got %s", cfg.Export.SortVertices)
	}
	if !cfg.Export.DisableSpecular {
		t.Error("expected disable_specular to be true")
	}
	if cfg.Export.IKLoopFactor != 4 {
		t.Errorf("expected ik_loop_factor 4, got %d", cfg.Export.IKLoopFactor)
	}
	if cfg.Textures.Probe {
		t.Error("expected probe to be false")
	}
	// Unset keys keep their defaults
	if !cfg.Textures.RelativePaths {
		t.Error("expected relative_paths to keep its default")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "export.log" {
		t.Errorf("expected log file 'export.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
export:
  scale: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := decodeFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := decodeFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero scale", func(c *Config) { c.Export.Scale = 0 }, false},
		{"negative scale", func(c *Config) { c.Export.Scale = -1 }, false},
		{"zero loop factor", func(c *Config) { c.Export.IKLoopFactor = 0 }, false},
		{"override controlled", func(c *Config) { c.Export.IKAngleLimits = IKLimitsOverrideControlled }, true},
		{"unknown ik limits", func(c *Config) { c.Export.IKAngleLimits = "SOME" }, false},
		{"blender sort", func(c *Config) { c.Export.SortVertices = SortVerticesBlender }, true},
		{"unknown sort", func(c *Config) { c.Export.SortVertices = "random" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if filepath.Base(dir) != "pmxport" {
		t.Errorf("expected config dir to end in pmxport, got %s", dir)
	}
}

func TestLocate(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))
	t.Setenv(EnvFile, "")

	if path := locate(""); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.MkdirAll(ConfigDir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(UserPath(), []byte("export:\n  scale: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if path := locate(""); path != UserPath() {
		t.Errorf("expected user config, got %q", path)
	}

	// A config in the working directory wins over the user one.
	if err := os.WriteFile("pmxport.yaml", []byte("export:\n  scale: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if path := locate(""); filepath.Base(path) != "pmxport.yaml" {
		t.Errorf("expected local pmxport.yaml, got %q", path)
	}

	t.Setenv(EnvFile, "/elsewhere/pmx.yaml")
	if path := locate(""); path != "/elsewhere/pmx.yaml" {
		t.Errorf("expected env path, got %q", path)
	}
	if path := locate("cli.yaml"); path != "cli.yaml" {
		t.Errorf("expected explicit path, got %q", path)
	}
}

func TestDecodeFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("export:\n  scael: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := decodeFile(Default(), path); err == nil {
		t.Error("expected an error for a misspelled key")
	}
}

func TestDecodeFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if cfg.Export.Scale != 12.5 {
		t.Errorf("defaults lost: scale %v", cfg.Export.Scale)
	}
}

func TestLoadMissingExplicit(t *testing.T) {
	if _, err := Load(&Flags{Config: filepath.Join(t.TempDir(), "none.yaml")}); err == nil {
		t.Error("expected an error for a missing -config file")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "scale flag",
			args: []string{"-scale", "0.08"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.Scale != 0.08 {
					t.Errorf("expected scale 0.08, got %v", cfg.Export.Scale)
				}
			},
		},
		{
			name: "mesh flags",
			args: []string{"-split-vertices", "-sort-vertices", "BLENDER", "-sort-materials"},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Export.VertexSplitting {
					t.Error("expected vertex splitting")
				}
				if cfg.Export.SortVertices != SortVerticesBlender {
					t.Errorf("expected BLENDER, got %s", cfg.Export.SortVertices)
				}
				if !cfg.Export.SortMaterials {
					t.Error("expected material sorting")
				}
			},
		},
		{
			name: "texture flags",
			args: []string{"-no-texture-probe", "-absolute-textures", "-disable-specular"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Textures.Probe {
					t.Error("expected probe disabled")
				}
				if cfg.Textures.RelativePaths {
					t.Error("expected absolute texture paths")
				}
				if !cfg.Export.DisableSpecular {
					t.Error("expected specular disabled")
				}
			},
		},
		{
			name: "no flags keeps defaults",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.Scale != 12.5 {
					t.Errorf("expected default scale, got %v", cfg.Export.Scale)
				}
				if cfg.Export.IKAngleLimits != IKLimitsExportAll {
					t.Errorf("expected default ik limits, got %s", cfg.Export.IKAngleLimits)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Flags
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			f.Register(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := Default()
			f.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  scale: 8
  sort_vertices: CUSTOM
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	f := &Flags{Config: configPath, Scale: 20}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Scale should be from flag (20), not file (8)
	if cfg.Export.Scale != 20 {
		t.Errorf("expected scale 20 from flag, got %v", cfg.Export.Scale)
	}

	// Sort order from file since no flag override
	if cfg.Export.SortVertices != SortVerticesCustom {
		t.Errorf("expected CUSTOM from file, got %s", cfg.Export.SortVertices)
	}
}

func TestLoadRejectsInvalidFlag(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("export:\n  scale: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(&Flags{Config: configPath, IKAngleLimits: "bogus"})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Export.Scale = 3
	cfg.Export.SortVertices = SortVerticesBlender
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "#") {
		t.Errorf("missing header comment:\n%s", data)
	}

	loaded := Default()
	if err := decodeFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Export.Scale != 3 {
		t.Errorf("expected scale 3, got %v", loaded.Export.Scale)
	}
	if loaded.Export.SortVertices != SortVerticesBlender {
		t.Errorf("expected BLENDER, got %s", loaded.Export.SortVertices)
	}
}
