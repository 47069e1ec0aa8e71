// Package framecompositor places photographs inside decorated frame templates.
//
// A template is a raster image whose artwork is opaque and whose "window" is
// transparent. The compositor finds the bounding box of the transparent
// window from the template's own alpha channel, resizes the photograph to
// fill that box, and slides it beneath the artwork so the frame's decoration,
// including its anti-aliased inner edge, stays on top.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		framecompositor "github.com/menta2k/frame-compositor"
//	)
//
//	func main() {
//		fc := framecompositor.New()
//
//		tpl, err := fc.LoadTemplate("templates/frame.png")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		kid, err := fc.LoadSubject("kids/ana.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		out, err := fc.Composite(tpl, kid)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		if err := fc.SaveImage(out, "resultado/frame_ana.png"); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
// 1. Analyzer (pkg/analyzer): finds the transparent region of a template
// 2. Blend (pkg/blend): straight-alpha source-over and its inverse
// 3. Placer (pkg/placer): resize-to-fill and placement beneath the template
// 4. Processing (pkg/processing): decoding, atomic encoding, debug overlays
// 5. Batch (pkg/batch): every template times every subject on a worker pool
//
// A CLI for batch processing lives in cmd/frame-compositor.
package framecompositor

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/menta2k/frame-compositor/pkg/analyzer"
	"github.com/menta2k/frame-compositor/pkg/batch"
	"github.com/menta2k/frame-compositor/pkg/placer"
	"github.com/menta2k/frame-compositor/pkg/processing"
	"github.com/menta2k/frame-compositor/pkg/types"
)

// Version of the frame compositor library
const Version = "1.0.0"

// Compositor provides a high-level interface over the compositing pipeline
type Compositor struct {
	analyzer  *analyzer.ImageAnalyzer
	placer    *placer.Placer
	processor *processing.Processor
	save      processing.SaveOptions
	logger    zerolog.Logger
}

// New creates a new Compositor with default configuration
func New() *Compositor {
	return &Compositor{
		analyzer:  analyzer.New(),
		placer:    placer.New(),
		processor: processing.NewProcessor(),
		save:      processing.DefaultSaveOptions(),
		logger:    zerolog.Nop(),
	}
}

// NewWithConfig creates a new Compositor with custom configuration
func NewWithConfig(analyzerConfig analyzer.Config, placerConfig placer.Config, processorConfig processing.Config, save processing.SaveOptions) *Compositor {
	return &Compositor{
		analyzer:  analyzer.NewWithConfig(analyzerConfig),
		placer:    placer.NewWithConfig(placerConfig),
		processor: processing.NewProcessorWithConfig(processorConfig),
		save:      save,
		logger:    zerolog.Nop(),
	}
}

// SetLogger sets the logger handed to batch runs
func (c *Compositor) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// LoadTemplate decodes a template file and locates its transparent region
func (c *Compositor) LoadTemplate(path string) (*types.Template, error) {
	img, err := c.processor.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return c.AnalyzeTemplate(filepath.Base(path), img)
}

// AnalyzeTemplate locates the transparent region of an already decoded template
func (c *Compositor) AnalyzeTemplate(name string, img image.Image) (*types.Template, error) {
	tpl, err := c.analyzer.AnalyzeTemplate(name, img)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return tpl, nil
}

// LoadSubject decodes a subject photograph
func (c *Compositor) LoadSubject(path string) (image.Image, error) {
	img, err := c.processor.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load subject: %w", err)
	}
	return img, nil
}

// Composite frames subject inside a copy of the template. tpl can be reused
// for any number of subjects.
func (c *Compositor) Composite(tpl *types.Template, subject image.Image) (*image.NRGBA, error) {
	return c.placer.Place(tpl, subject)
}

// SaveImage writes img atomically in the format implied by the path's extension
func (c *Compositor) SaveImage(img image.Image, path string) error {
	return c.processor.SaveImage(img, path, c.save)
}

// CompositeFiles is a convenience function that loads a template and a
// subject, composites them and saves the result to outputPath
func (c *Compositor) CompositeFiles(templatePath, subjectPath, outputPath string) error {
	tpl, err := c.LoadTemplate(templatePath)
	if err != nil {
		return err
	}

	subject, err := c.LoadSubject(subjectPath)
	if err != nil {
		return err
	}

	out, err := c.Composite(tpl, subject)
	if err != nil {
		return fmt.Errorf("compositing failed: %w", err)
	}

	if err := c.SaveImage(out, outputPath); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

// RunBatch composites every subject into every template described by opts
func (c *Compositor) RunBatch(ctx context.Context, opts batch.Options) (*types.Report, error) {
	runner := batch.New(opts, c.analyzer, c.placer, c.processor)
	runner.SetLogger(c.logger)
	return runner.Run(ctx)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
