// Package batch converts many SCX files to glTF using a worker pool.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	xencoding "golang.org/x/text/encoding"

	"github.com/Faultbox/scx-tools/internal/builder"
	"github.com/Faultbox/scx-tools/pkg/scx"
	"github.com/Faultbox/scx-tools/pkg/texlist"
)

// Status classifies the outcome of one file.
type Status int

// Result statuses.
const (
	StatusOK Status = iota
	StatusUnsupported
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnsupported:
		return "unsupported"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Config holds the shared resources of a batch run.
type Config struct {
	OutputDir string
	Binary    bool // GLB instead of glTF JSON
	Workers   int
	ANSI      xencoding.Encoding // texture list code page; nil means the default
	Builder   *builder.Builder
	Logger    *zap.Logger

	// ProgressInterval sets how often progress is logged. Zero means 2s.
	ProgressInterval time.Duration
}

// Result holds the outcome of converting one file.
type Result struct {
	Path     string
	Output   string
	Status   Status
	Err      error
	Report   builder.Report
	Duration time.Duration
}

// Summary totals a run.
type Summary struct {
	RunID       string
	Total       int
	OK          int
	Unsupported int
	Failed      int
	Cancelled   int
	Elapsed     time.Duration
}

// Run converts all paths. Cancelling ctx stops dispatching new files; files
// already being converted finish. Results are in input order.
func Run(ctx context.Context, cfg Config, paths []string) ([]Result, Summary) {
	cfg = withDefaults(cfg)
	runID := uuid.NewString()
	log := cfg.Logger.With(zap.String("run", runID))

	total := len(paths)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()
	log.Info("batch started", zap.Int("files", total), zap.Int("workers", cfg.Workers))

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info("progress", zap.Int64("done", p), zap.Int("total", total), zap.Float64("files_per_sec", rate))
				}
			}
		}
	}()

	// Worker pool
	itemChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range itemChan {
				results[idx] = Convert(cfg, paths[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	sent := 0
dispatch:
	for i := range paths {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case itemChan <- i:
			sent++
		}
	}
	close(itemChan)

	wg.Wait()
	close(done)

	for i := sent; i < total; i++ {
		results[i] = Result{Path: paths[i], Status: StatusCancelled, Err: ctx.Err()}
	}

	summary := Summarize(results)
	summary.RunID = runID
	summary.Elapsed = time.Since(start)

	log.Info("batch finished",
		zap.Int("ok", summary.OK),
		zap.Int("unsupported", summary.Unsupported),
		zap.Int("failed", summary.Failed),
		zap.Int("cancelled", summary.Cancelled),
		zap.Duration("elapsed", summary.Elapsed))

	return results, summary
}

// Convert decodes one SCX file and writes its glTF export.
func Convert(cfg Config, path string) Result {
	cfg = withDefaults(cfg)
	log := cfg.Logger.With(zap.String("file", path))
	start := time.Now()

	res := Result{Path: path}
	finish := func(status Status, err error) Result {
		res.Status = status
		res.Err = err
		res.Duration = time.Since(start)
		switch status {
		case StatusUnsupported:
			log.Warn("skipping unsupported file", zap.Error(err))
		case StatusFailed:
			log.Error("conversion failed", zap.Error(err))
		default:
			log.Debug("converted",
				zap.String("output", res.Output),
				zap.Int("meshes", res.Report.Meshes),
				zap.Duration("took", res.Duration))
		}
		return res
	}

	scene, err := scx.ParseFile(path)
	if err != nil {
		if scx.IsUnsupported(err) {
			return finish(StatusUnsupported, err)
		}
		return finish(StatusFailed, err)
	}

	names, err := texlist.Load(texlist.SidecarPath(path), cfg.ANSI)
	if err != nil {
		// Textures fall back to synthesized names.
		log.Warn("texture list unreadable", zap.Error(err))
	}

	doc, report, err := cfg.Builder.Build(scene, builder.ModelName(path), texlist.NewResolver(names))
	res.Report = report
	if err != nil {
		if errors.Is(err, builder.ErrEmptyScene) {
			return finish(StatusUnsupported, err)
		}
		return finish(StatusFailed, err)
	}

	res.Output = builder.OutputPath(cfg.OutputDir, path, cfg.Binary)
	if err := builder.ExportFile(res.Output, doc, cfg.Binary); err != nil {
		return finish(StatusFailed, errors.Wrapf(err, "exporting %s", path))
	}
	return finish(StatusOK, nil)
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusUnsupported:
			s.Unsupported++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

func withDefaults(cfg Config) Config {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Builder == nil {
		cfg.Builder = builder.New(builder.DefaultOptions(), nil, cfg.Logger)
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 2 * time.Second
	}
	return cfg
}
