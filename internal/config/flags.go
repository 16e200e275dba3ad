package config

import "flag"

var (
	flagConfig         = flag.String("config", "", "Path to config file")
	flagDebug          = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile        = flag.String("log-file", "", "Write logs to this file")
	flagJoin           = flag.Bool("join", false, "Join all meshes of a file into one object")
	flagReuseMaterials = flag.Bool("reuse-materials", false, "Share materials with equal names")
	flagKeepDoubleSide = flag.Bool("keep-doubleside", false, "Keep double-sided faces as flipped duplicates")
	flagWorkers        = flag.Int("workers", 0, "Number of batch workers")
	flagOut            = flag.String("out", "", "Output directory")
	flagFormat         = flag.String("format", "", "Export format: glb or gltf")
	flagANSI           = flag.String("ansi", "", "ANSI code page for texture lists")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagJoin {
		cfg.Import.JoinMeshes = true
	}
	if *flagReuseMaterials {
		cfg.Import.ReuseMaterials = true
	}
	if *flagKeepDoubleSide {
		cfg.Import.SkipDoubleSideFaces = false
	}
	if *flagWorkers > 0 {
		cfg.Batch.Workers = *flagWorkers
	}
	if *flagOut != "" {
		cfg.Export.OutputDir = *flagOut
	}
	if *flagFormat != "" {
		cfg.Export.Format = *flagFormat
	}
	if *flagANSI != "" {
		cfg.Textures.ANSICodePage = *flagANSI
	}
}
