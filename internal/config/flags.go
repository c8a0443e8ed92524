package config

import "flag"

// Flags holds command-line overrides. Zero values leave the loaded
// configuration untouched.
type Flags struct {
	Config          string
	Debug           bool
	LogFile         string
	Scale           float64
	SplitVertices   bool
	IKAngleLimits   string
	SortMaterials   bool
	SortVertices    string
	DisableSpecular bool
	NoTextureProbe  bool
	AbsoluteTexture bool
}

// Register binds the flags to fs. Call this before fs.Parse.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file (rotated)")
	fs.Float64Var(&f.Scale, "scale", 0, "Scene to PMX unit scale (default 12.5)")
	fs.BoolVar(&f.SplitVertices, "split-vertices", false, "Split vertices on normal and color seams")
	fs.StringVar(&f.IKAngleLimits, "ik-limits", "", "IK angle limits: EXPORT_ALL, IGNORE_ALL or OVERRIDE_CONTROLLED")
	fs.BoolVar(&f.SortMaterials, "sort-materials", false, "Sort materials by distance from the model center")
	fs.StringVar(&f.SortVertices, "sort-vertices", "", "Vertex order: NONE, BLENDER or CUSTOM")
	fs.BoolVar(&f.DisableSpecular, "disable-specular", false, "Turn off sphere maps on every material")
	fs.BoolVar(&f.NoTextureProbe, "no-texture-probe", false, "Skip decoding texture files")
	fs.BoolVar(&f.AbsoluteTexture, "absolute-textures", false, "Store absolute texture paths")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Scale > 0 {
		cfg.Export.Scale = float32(f.Scale)
	}
	if f.SplitVertices {
		cfg.Export.VertexSplitting = true
	}
	if f.IKAngleLimits != "" {
		cfg.Export.IKAngleLimits = f.IKAngleLimits
	}
	if f.SortMaterials {
		cfg.Export.SortMaterials = true
	}
	if f.SortVertices != "" {
		cfg.Export.SortVertices = f.SortVertices
	}
	if f.DisableSpecular {
		cfg.Export.DisableSpecular = true
	}
	if f.NoTextureProbe {
		cfg.Textures.Probe = false
	}
	if f.AbsoluteTexture {
		cfg.Textures.RelativePaths = false
	}
}
