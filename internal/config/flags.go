package config

import "flag"

// Flags are the command-line overrides shared by every batchtool command.
type Flags struct {
	config         *string
	debug          *bool
	logFile        *string
	maxTextureSize *int
	noVTF          *bool
	scale          *int
}

// RegisterFlags adds the config flags to fs. Call before fs.Parse.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:         fs.String("config", "", "Path to config file"),
		debug:          fs.Bool("debug", false, "Enable debug logging"),
		logFile:        fs.String("log", "", "Write logs to file"),
		maxTextureSize: fs.Int("max-texture-size", 0, "Override the maximum texture size"),
		noVTF:          fs.Bool("no-vtf", false, "Disable vertex texture fetch"),
		scale:          fs.Int("scale", 0, "Upscale factor for dumped textures"),
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
	if *f.maxTextureSize > 0 {
		cfg.Limits.MaxTextureSize = *f.maxTextureSize
	}
	if *f.noVTF {
		cfg.Limits.MaxVertexTextureImageUnits = 0
	}
	if *f.scale > 0 {
		cfg.Output.Scale = *f.scale
	}
}
