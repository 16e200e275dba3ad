// scxtool is a CLI utility for inspecting and converting Invictus SCX models.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	xencoding "golang.org/x/text/encoding"

	"github.com/Faultbox/scx-tools/internal/batch"
	"github.com/Faultbox/scx-tools/internal/builder"
	"github.com/Faultbox/scx-tools/internal/config"
	"github.com/Faultbox/scx-tools/internal/logger"
	"github.com/Faultbox/scx-tools/pkg/encoding"
	"github.com/Faultbox/scx-tools/pkg/scx"
	"github.com/Faultbox/scx-tools/pkg/texlist"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(args)
	case "dump":
		cmdDump(args)
	case "textures", "tex":
		cmdTextures(cfg, args)
	case "export", "x":
		exit(cmdExport(cfg, args))
	case "batch":
		exit(cmdBatch(cfg, args))
	case "config":
		cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`scxtool - Invictus SCX model utility

Usage:
  scxtool [options] <command> [args]

Commands:
  info <file.scx>              Show container summary
  dump <file.scx>              Dump the decoded scene
  textures <file.scx>          List textures from the .tex sidecar
  export <file.scx>...         Convert files to glTF
  batch <dir|pattern>          Convert a directory in parallel
  config [path]                Write the current configuration

Options:
  -config <path>      Config file (default: ./scxtool.yaml or user config dir)
  -out <dir>          Output directory
  -format glb|gltf    Export format
  -join               Join all meshes of a file into one object
  -reuse-materials    Share materials with equal names
  -keep-doubleside    Keep double-sided faces as flipped duplicates
  -workers <n>        Number of batch workers
  -ansi <codepage>    ANSI code page for texture lists
  -debug              Enable debug logging
  -log-file <path>    Write logs to this file

Examples:
  scxtool info models/car.scx
  scxtool -format gltf -out ./out export models/car.scx
  scxtool -workers 8 -join batch ./models`)
}

// exit flushes the logger before leaving, since os.Exit skips deferred calls.
func exit(code int) {
	logger.Sync()
	os.Exit(code)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", a...)
	exit(1)
}

func parseScene(path string) *scx.Scene {
	scene, err := scx.ParseFile(path)
	if err != nil {
		fatalf("%v", err)
	}
	return scene
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scxtool info <file.scx>")
		os.Exit(1)
	}

	scene := parseScene(args[0])

	fmt.Printf("File:      %s\n", args[0])
	fmt.Printf("Version:   %d\n", scene.Version)
	fmt.Printf("Meshes:    %d\n", len(scene.Meshes))
	fmt.Printf("Vertices:  %d\n", scene.VertexCount())
	fmt.Printf("Triangles: %d\n", scene.TriangleCount())
	fmt.Println()

	for i := range scene.Meshes {
		m := &scene.Meshes[i]
		fmt.Printf("  [%d] %s\n", i, m)
		if m.Material != nil && m.Material.V3 != nil {
			fmt.Printf("      flags %s\n", m.Material.V3.Flags)
		}
		if m.Material == nil {
			continue
		}
		if idx, ok := m.Material.DiffuseTexture(); ok {
			fmt.Printf("      diffuse texture #%d\n", idx)
		}
	}

	if len(scene.Ignored) > 0 {
		fmt.Println()
		fmt.Println("Ignored entries:")
		for _, e := range scene.Ignored {
			fmt.Printf("  type %d at 0x%08X\n", e.Type, e.Offset)
		}
	}
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	depth := fs.Int("depth", 0, "Maximum nesting depth (0 = unlimited)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scxtool dump [-depth n] <file.scx>")
		os.Exit(1)
	}

	scene := parseScene(fs.Arg(0))

	dumper := spew.NewDefaultConfig()
	dumper.DisableCapacities = true
	dumper.DisablePointerAddresses = true
	dumper.MaxDepth = *depth
	dumper.Fdump(os.Stdout, scene)
}

func cmdTextures(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scxtool textures <file.scx>")
		os.Exit(1)
	}
	path := args[0]

	sidecar := texlist.SidecarPath(path)
	names, err := texlist.Load(sidecar, ansiEncoding(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", sidecar, err)
	}
	resolver := texlist.NewResolver(names)

	fmt.Printf("Texture list: %s (%d entries)\n", sidecar, resolver.Len())
	for i, name := range resolver.Names() {
		fmt.Printf("  %3d  %s\n", i, name)
	}

	scene, err := scx.ParseFile(path)
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Println()
	fmt.Println("Materials:")
	model := builder.ModelName(path)
	for i := range scene.Meshes {
		m := &scene.Meshes[i]
		name := m.Name(model)
		if m.Material == nil {
			fmt.Printf("  %-24s (no material)\n", name)
			continue
		}
		idx, ok := m.Material.DiffuseTexture()
		if !ok {
			fmt.Printf("  %-24s (no diffuse texture)\n", name)
			continue
		}
		tex := resolver.Resolve(idx, name)
		if tex.Path == "" {
			fmt.Printf("  %-24s #%d -> %s (not listed)\n", name, idx, tex.Name)
			continue
		}
		fmt.Printf("  %-24s #%d -> %s\n", name, idx, tex.Path)
	}
}

func cmdExport(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scxtool export <file.scx>...")
		return 1
	}

	bcfg := batchConfig(cfg)
	failed := 0
	for _, path := range args {
		res := batch.Convert(bcfg, path)
		if res.Status != batch.StatusOK {
			fmt.Fprintf(os.Stderr, "%s: %s: %v\n", path, res.Status, res.Err)
			failed++
			continue
		}
		fmt.Printf("Exported: %s (%d meshes, %d faces)\n", res.Output, res.Report.Meshes, res.Report.Faces.Inserted+res.Report.Faces.Flipped)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func cmdBatch(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scxtool batch <dir|pattern>")
		return 1
	}

	paths, err := batch.Collect(args[0], cfg.Batch.Extensions, cfg.Batch.Recursive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "No SCX files found")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, summary := batch.Run(ctx, batchConfig(cfg), paths)
	for _, r := range results {
		if r.Status == batch.StatusFailed {
			fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", r.Path, r.Err)
		}
	}

	fmt.Printf("\nRun %s: %d files in %s\n", summary.RunID, summary.Total, summary.Elapsed.Round(time.Millisecond))
	fmt.Printf("  ok:          %d\n", summary.OK)
	fmt.Printf("  unsupported: %d\n", summary.Unsupported)
	fmt.Printf("  failed:      %d\n", summary.Failed)
	if summary.Cancelled > 0 {
		fmt.Printf("  cancelled:   %d\n", summary.Cancelled)
	}

	if summary.Failed > 0 || summary.Cancelled > 0 {
		return 1
	}
	return 0
}

func cmdConfig(cfg *config.Config, args []string) {
	if len(args) > 0 {
		path := args[0]
		if err := cfg.SaveTo(path); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	path, err := cfg.Save()
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Wrote %s\n", path)
}

func batchConfig(cfg *config.Config) batch.Config {
	log := logger.Named("batch")
	opts := builder.Options{
		JoinMeshes:          cfg.Import.JoinMeshes,
		ReuseMaterials:      cfg.Import.ReuseMaterials,
		SkipDoubleSideFaces: cfg.Import.SkipDoubleSideFaces,
	}
	return batch.Config{
		OutputDir: filepath.Clean(cfg.Export.OutputDir),
		Binary:    cfg.Export.Format == config.FormatGLB,
		Workers:   cfg.WorkerCount(),
		ANSI:      ansiEncoding(cfg),
		Builder:   builder.New(opts, builder.NewTextureCache(), logger.Named("builder")),
		Logger:    log,
	}
}

func ansiEncoding(cfg *config.Config) xencoding.Encoding {
	enc, err := encoding.LookupCodePage(cfg.Textures.ANSICodePage)
	if err != nil {
		fatalf("%v", err)
	}
	return enc
}
