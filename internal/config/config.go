// Package config handles scxtool configuration loading and management.
package config

import (
	"fmt"
	"runtime"

	"github.com/Faultbox/scx-tools/pkg/encoding"
)

// Export formats.
const (
	FormatGLB  = "glb"
	FormatGLTF = "gltf"
)

// Config holds all scxtool settings.
type Config struct {
	Import   ImportConfig   `yaml:"import"`
	Export   ExportConfig   `yaml:"export"`
	Batch    BatchConfig    `yaml:"batch"`
	Textures TexturesConfig `yaml:"textures"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ImportConfig controls how decoded meshes are turned into scene objects.
type ImportConfig struct {
	JoinMeshes          bool `yaml:"join_meshes"`           // Merge all meshes of a file into one object
	ReuseMaterials      bool `yaml:"reuse_materials"`       // Share materials with equal names
	SkipDoubleSideFaces bool `yaml:"skip_doubleside_faces"` // Drop faces that repeat a vertex set
}

// ExportConfig holds output settings.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"` // "glb" or "gltf"
}

// BatchConfig holds settings for converting many files.
type BatchConfig struct {
	Workers    int      `yaml:"workers"` // 0 = one per CPU
	Extensions []string `yaml:"extensions"`
	Recursive  bool     `yaml:"recursive"`
}

// TexturesConfig holds texture list settings.
type TexturesConfig struct {
	ANSICodePage string `yaml:"ansi_codepage"` // Code page tried after UTF-8
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// defaultExtensions are the file extensions batch mode picks up.
var defaultExtensions = []string{".scx", ".scy"}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			JoinMeshes:          false,
			ReuseMaterials:      false,
			SkipDoubleSideFaces: true,
		},
		Export: ExportConfig{
			OutputDir: ".",
			Format:    FormatGLB,
		},
		Batch: BatchConfig{
			Workers:    0,
			Extensions: append([]string(nil), defaultExtensions...),
			Recursive:  false,
		},
		Textures: TexturesConfig{
			ANSICodePage: encoding.DefaultANSI,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// WorkerCount returns the effective number of batch workers.
func (c *Config) WorkerCount() int {
	if c.Batch.Workers > 0 {
		return c.Batch.Workers
	}
	return runtime.NumCPU()
}

// Validate checks values that cannot be fixed up silently.
func (c *Config) Validate() error {
	switch c.Export.Format {
	case FormatGLB, FormatGLTF:
	default:
		return fmt.Errorf("export.format: unknown format %q", c.Export.Format)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers: must not be negative, got %d", c.Batch.Workers)
	}
	if _, err := encoding.LookupCodePage(c.Textures.ANSICodePage); err != nil {
		return fmt.Errorf("textures.ansi_codepage: %w", err)
	}
	return nil
}
