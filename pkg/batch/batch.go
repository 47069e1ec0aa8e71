// Package batch composites every subject photograph into every frame template
// found in two input directories.
//
// Each (template, subject) pair is an isolated work unit. Units run on a
// bounded worker pool, share only the read-only decoded templates, and fail
// independently: a failed unit is recorded in the report and the batch keeps
// going.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/frame-compositor/internal/utils"
	"github.com/menta2k/frame-compositor/pkg/analyzer"
	"github.com/menta2k/frame-compositor/pkg/placer"
	"github.com/menta2k/frame-compositor/pkg/processing"
	"github.com/menta2k/frame-compositor/pkg/types"
)

// Options describes the inputs and outputs of a batch run
type Options struct {
	SubjectDir      string
	TemplateDir     string
	OutputDir       string
	SubjectFormats  []string
	TemplateFormats []string

	// Workers bounds the number of units processed concurrently.
	// Zero or less means runtime.NumCPU().
	Workers int

	Save processing.SaveOptions

	// Debug writes a region overlay for every template that analyzes cleanly.
	Debug bool
}

// DefaultOptions returns the conventional directory layout
func DefaultOptions() Options {
	return Options{
		SubjectDir:      "kids",
		TemplateDir:     "templates",
		OutputDir:       "resultado",
		SubjectFormats:  []string{"jpg"},
		TemplateFormats: []string{"png"},
		Save:            processing.DefaultSaveOptions(),
	}
}

// Runner drives a batch run
type Runner struct {
	opts      Options
	analyzer  *analyzer.ImageAnalyzer
	placer    *placer.Placer
	processor *processing.Processor
	logger    zerolog.Logger
}

// New creates a Runner. Nil components are replaced by their defaults.
func New(opts Options, a *analyzer.ImageAnalyzer, p *placer.Placer, proc *processing.Processor) *Runner {
	if a == nil {
		a = analyzer.New()
	}
	if p == nil {
		p = placer.New()
	}
	if proc == nil {
		proc = processing.NewProcessor()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Runner{
		opts:      opts,
		analyzer:  a,
		placer:    p,
		processor: proc,
		logger:    zerolog.Nop(),
	}
}

// SetLogger sets the logger used for per-unit and summary events
func (r *Runner) SetLogger(logger zerolog.Logger) {
	r.logger = logger
}

type unit struct {
	template string
	subject  string
}

func (u unit) MarshalZerologObject(e *zerolog.Event) {
	e.Str("template", u.template).Str("subject", u.subject)
}

// Run processes the Cartesian product of templates and subjects. Missing or
// unreadable input directories abort the run before any unit starts; unit
// failures are only recorded in the report. When ctx is cancelled, units
// that have not started are reported as cancelled and Run returns an error
// wrapping types.ErrCancelled alongside the report.
func (r *Runner) Run(ctx context.Context) (*types.Report, error) {
	start := time.Now()

	templates, err := listInputs(r.opts.TemplateDir, r.opts.TemplateFormats)
	if err != nil {
		return nil, err
	}
	subjects, err := listInputs(r.opts.SubjectDir, r.opts.SubjectFormats)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(r.opts.OutputDir); err != nil {
		return nil, fmt.Errorf("%w: create output dir %s: %w", types.ErrWrite, r.opts.OutputDir, err)
	}

	r.logger.Info().
		Int("templates", len(templates)).
		Int("subjects", len(subjects)).
		Int("workers", r.opts.Workers).
		Str("output", r.opts.OutputDir).
		Msg("batch started")

	units := make([]unit, 0, len(templates)*len(subjects))
	for _, t := range templates {
		for _, s := range subjects {
			units = append(units, unit{template: t, subject: s})
		}
	}

	cache := newTemplateCache(r.loadTemplate)
	results := make([]types.UnitResult, len(units))
	conflicts := r.claimOutputs(templates, units)

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, u := range units {
		if err := conflicts[i]; err != nil {
			results[i] = r.record(u, time.Now(), err, "")
			continue
		}
		if ctx.Err() != nil {
			results[i] = r.record(u, time.Now(), cancelled(u, ctx.Err()), "")
			continue
		}
		g.Go(func() error {
			started := time.Now()
			out, err := r.process(ctx, cache, u)
			results[i] = r.record(u, started, err, out)
			return nil
		})
	}
	g.Wait()

	report := &types.Report{
		Templates: len(templates),
		Subjects:  len(subjects),
		Total:     len(units),
		Elapsed:   time.Since(start),
		Results:   results,
	}
	for _, res := range results {
		switch {
		case res.OK():
			report.Succeeded++
		case res.Stage == types.StageCancelled:
			report.Cancelled++
		default:
			report.Failed++
		}
	}

	r.logger.Info().
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("cancelled", report.Cancelled).
		Dur("elapsed", report.Elapsed).
		Msg("batch finished")

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("%w: %w", types.ErrCancelled, err)
	}
	return report, nil
}

func listInputs(dir string, formats []string) ([]string, error) {
	if !utils.DirExists(dir) {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrInputUnavailable, dir)
	}
	files, err := utils.ListFiles(dir, formats)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInputUnavailable, err)
	}
	return files, nil
}

// claimOutputs assigns every output file name to the first unit (in listing
// order) that produces it. Names are compared case-insensitively. Later
// units with the same name get an error instead of overwriting the earlier
// output. Debug overlays, written at template load, claim their names first.
func (r *Runner) claimOutputs(templates []string, units []unit) []error {
	owners := make(map[string]string)
	if r.opts.Debug {
		for _, t := range templates {
			owners[strings.ToLower(utils.DebugFilename(t))] = "region overlay of " + t
		}
	}

	conflicts := make([]error, len(units))
	for i, u := range units {
		name := utils.OutputFilename(u.template, u.subject)
		key := strings.ToLower(name)
		if owner, taken := owners[key]; taken {
			conflicts[i] = &types.UnitError{
				Template: u.template,
				Subject:  u.subject,
				Stage:    types.StageWrite,
				Err:      fmt.Errorf("%w: %s is already produced by %s", types.ErrDuplicateOutput, name, owner),
			}
			continue
		}
		owners[key] = u.subject
	}
	return conflicts
}

func cancelled(u unit, cause error) error {
	return &types.UnitError{
		Template: u.template,
		Subject:  u.subject,
		Stage:    types.StageCancelled,
		Err:      fmt.Errorf("%w: %w", types.ErrCancelled, cause),
	}
}

// process runs one work unit: load template, load subject, place, write.
func (r *Runner) process(ctx context.Context, cache *templateCache, u unit) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", cancelled(u, err)
	}
	fail := func(stage types.Stage, err error) error {
		return &types.UnitError{Template: u.template, Subject: u.subject, Stage: stage, Err: err}
	}

	tpl, stage, err := cache.get(u.template)
	if err != nil {
		return "", fail(stage, err)
	}

	subject, err := r.processor.LoadImage(u.subject)
	if err != nil {
		return "", fail(types.StageLoadSubject, err)
	}

	canvas, err := r.placer.Place(tpl, subject)
	if err != nil {
		return "", fail(types.StagePlace, err)
	}

	out := filepath.Join(r.opts.OutputDir, utils.OutputFilename(u.template, u.subject))
	if err := r.processor.SaveImage(canvas, out, r.opts.Save); err != nil {
		return "", fail(types.StageWrite, err)
	}
	return out, nil
}

func (r *Runner) record(u unit, started time.Time, err error, out string) types.UnitResult {
	res := types.UnitResult{
		Template: u.template,
		Subject:  u.subject,
		Duration: time.Since(started),
	}

	if err != nil {
		var unitErr *types.UnitError
		if errors.As(err, &unitErr) {
			res.Stage = unitErr.Stage
		}
		res.Error = err.Error()

		level := zerolog.ErrorLevel
		if res.Stage == types.StageCancelled {
			level = zerolog.WarnLevel
		}
		r.logger.WithLevel(level).
			Object("unit", u).
			Str("stage", string(res.Stage)).
			Err(err).
			Msg("work unit failed")
		return res
	}

	res.Output = out
	event := r.logger.Debug().Object("unit", u).Str("output", out).Dur("took", res.Duration)
	if info, statErr := os.Stat(out); statErr == nil {
		event = event.Str("size", utils.FormatFileSize(info.Size()))
	}
	event.Msg("work unit done")
	return res
}

// loadTemplate decodes and analyzes a template once per run.
func (r *Runner) loadTemplate(path string) (*types.Template, types.Stage, error) {
	img, err := r.processor.LoadImage(path)
	if err != nil {
		return nil, types.StageLoadTemplate, err
	}

	tpl, err := r.analyzer.AnalyzeTemplate(filepath.Base(path), img)
	if err != nil {
		return nil, types.StageAnalyze, err
	}

	info := r.analyzer.GetImageInfo(tpl.Raster)
	r.logger.Debug().
		Str("template", path).
		Int("width", info.Width).
		Int("height", info.Height).
		Interface("region", tpl.Box).
		Msg("template analyzed")

	if r.opts.Debug {
		overlay := r.processor.CreateDebugOverlay(tpl.Raster, tpl.Box)
		dbgPath := filepath.Join(r.opts.OutputDir, utils.DebugFilename(path))
		if err := r.processor.SaveImage(overlay, dbgPath, r.opts.Save); err != nil {
			r.logger.Warn().Str("template", path).Err(err).Msg("debug overlay save failed")
		}
	}

	return tpl, "", nil
}

// WriteReport atomically saves report as indented JSON
func WriteReport(path string, report *types.Report) error {
	js, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := renameio.WriteFile(path, js, 0o644, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return fmt.Errorf("%w: %w", types.ErrWrite, err)
	}
	return nil
}
