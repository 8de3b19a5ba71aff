// Package config handles batchtool configuration loading and management.
package config

import (
	"github.com/Faultbox/tilebatch/internal/logger"
	"github.com/Faultbox/tilebatch/pkg/batchtable"
)

// Config holds all batchtool settings.
type Config struct {
	Limits  LimitsConfig  `yaml:"limits"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// LimitsConfig holds the device limits used by the in-memory device, and
// the caps applied to a real GL driver.
type LimitsConfig struct {
	MaxTextureSize             int `yaml:"max_texture_size"`
	MaxVertexTextureImageUnits int `yaml:"max_vertex_texture_image_units"`
}

// Batch returns the limits as batch table limits.
func (l LimitsConfig) Batch() batchtable.Limits {
	return batchtable.Limits{
		MaxTextureSize:             l.MaxTextureSize,
		MaxVertexTextureImageUnits: l.MaxVertexTextureImageUnits,
	}
}

// OutputConfig holds settings for dumped override textures.
type OutputConfig struct {
	Scale int `yaml:"scale"` // Nearest-neighbor upscale factor
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Options returns the logger options for these settings.
func (l LoggingConfig) Options() logger.Options {
	opts := logger.DefaultOptions()
	opts.Level = l.Level
	opts.File = l.LogFile
	if l.MaxSizeMB > 0 {
		opts.MaxSizeMB = l.MaxSizeMB
	}
	if l.MaxBackups > 0 {
		opts.MaxBackups = l.MaxBackups
	}
	return opts
}

// Default returns a Config with sensible default values.
func Default() *Config {
	limits := batchtable.DefaultLimits()
	return &Config{
		Limits: LimitsConfig{
			MaxTextureSize:             limits.MaxTextureSize,
			MaxVertexTextureImageUnits: limits.MaxVertexTextureImageUnits,
		},
		Output: OutputConfig{
			Scale: 1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}
