package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	framecompositor "github.com/menta2k/frame-compositor"
	"github.com/menta2k/frame-compositor/internal/config"
	"github.com/menta2k/frame-compositor/internal/utils"
	"github.com/menta2k/frame-compositor/pkg/batch"
	"github.com/menta2k/frame-compositor/pkg/types"
)

func main() {
	var cfgPath, writeConfig string
	var subjects, templates, outDir string
	var subjectExt, templateExt string
	var workers int
	var filter, anchor string
	var minRegion int
	var quality, webpQuality int
	var lossless, autoOrient, debug bool
	var report string
	var logLevel string
	var jsonLog bool

	flag.StringVar(&cfgPath, "config", "", "JSON config file (default "+config.GetConfigPath()+" when present)")
	flag.StringVar(&writeConfig, "write-config", "", "write the effective config to this path and exit")

	flag.StringVar(&subjects, "subjects", "kids", "directory of subject photos")
	flag.StringVar(&templates, "templates", "templates", "directory of frame templates")
	flag.StringVar(&outDir, "out", "resultado", "output directory")
	flag.StringVar(&subjectExt, "subject-ext", "jpg", "comma-separated subject extensions")
	flag.StringVar(&templateExt, "template-ext", "png", "comma-separated template extensions")

	flag.IntVar(&workers, "workers", 0, "concurrent work units (0 = number of CPUs)")
	flag.StringVar(&filter, "filter", "gaussian", "resampling filter: gaussian|lanczos|catmullrom|mitchellnetravali|bspline")
	flag.StringVar(&anchor, "anchor", "center", "crop anchor for resize-to-fill: center|top|bottom|left|right|topleft|...")
	flag.IntVar(&minRegion, "min-region", 1, "smallest accepted transparent region side (px)")
	flag.BoolVar(&autoOrient, "auto-orient", false, "apply EXIF orientation to subjects")

	flag.IntVar(&quality, "quality", 95, "JPEG output quality (1-100)")
	flag.IntVar(&webpQuality, "webp-quality", 90, "WebP output quality (0-100)")
	flag.BoolVar(&lossless, "lossless", true, "WebP output lossless mode")
	flag.BoolVar(&debug, "debug", false, "write <template>_region.png overlays")
	flag.StringVar(&report, "report", "", "write a JSON report with this file name into the output directory")

	flag.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.BoolVar(&jsonLog, "json-log", false, "log JSON lines instead of console output")

	flag.Parse()

	logger := newLogger(logLevel, jsonLog)

	cfg := config.Default()
	if cfgPath = resolveConfigPath(cfgPath); cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			logger.Fatal().Err(err).Str("config", cfgPath).Msg("load config")
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "subjects":
			cfg.Input.SubjectDir = subjects
		case "templates":
			cfg.Input.TemplateDir = templates
		case "out":
			cfg.Output.OutputDir = outDir
		case "subject-ext":
			cfg.Input.SubjectFormats = splitList(subjectExt)
		case "template-ext":
			cfg.Input.TemplateFormats = splitList(templateExt)
		case "workers":
			cfg.Workers = workers
		case "filter":
			cfg.Compositor.Filter = filter
		case "anchor":
			cfg.Compositor.Anchor = anchor
		case "min-region":
			cfg.Compositor.MinRegion = minRegion
		case "auto-orient":
			cfg.Input.AutoOrient = autoOrient
		case "quality":
			cfg.Output.JPEGQuality = quality
		case "webp-quality":
			cfg.Output.WebPQuality = webpQuality
		case "lossless":
			cfg.Output.Lossless = lossless
		case "debug":
			cfg.Output.Debug = debug
		case "report":
			cfg.Output.Report = report
		}
	})

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if writeConfig != "" {
		if err := cfg.SaveToFile(writeConfig); err != nil {
			logger.Fatal().Err(err).Msg("write config")
		}
		logger.Info().Str("path", writeConfig).Msg("wrote config")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fc := framecompositor.NewWithConfig(cfg.AnalyzerConfig(), cfg.PlacerConfig(), cfg.ProcessorConfig(), cfg.BatchOptions().Save)
	fc.SetLogger(logger)

	result, err := fc.RunBatch(ctx, cfg.BatchOptions())
	if err != nil && !errors.Is(err, types.ErrCancelled) {
		logger.Fatal().Err(err).Msg("batch aborted")
	}

	if cfg.Output.Report != "" && result != nil {
		path := cfg.Output.Report
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Output.OutputDir, path)
		}
		if werr := batch.WriteReport(path, result); werr != nil {
			logger.Error().Err(werr).Msg("report save failed")
		} else {
			logger.Info().Str("path", path).Msg("wrote report")
		}
	}

	if err != nil || result.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d work units did not complete\n", result.Failed+result.Cancelled, result.Total)
		os.Exit(1)
	}
}

// resolveConfigPath falls back to the per-user config file when no -config
// is given. An empty result means built-in defaults.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := config.GetConfigPath(); utils.FileExists(path) {
		return path
	}
	return ""
}

func newLogger(level string, jsonLog bool) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	if jsonLog {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
