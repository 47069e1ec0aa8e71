package placer

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/frame-compositor/pkg/blend"
	"github.com/menta2k/frame-compositor/pkg/types"
)

// Placer resizes subjects to fill a template's transparent region and slides
// them beneath the template artwork
type Placer struct {
	config Config
}

// Config holds configuration for subject placement
type Config struct {
	Filter imaging.ResampleFilter
	Anchor imaging.Anchor
}

// Resampling filters accepted by ParseFilter. Linear, box and nearest
// neighbour are left out: they alias badly on the large downscales typical
// of camera photos.
var filters = map[string]imaging.ResampleFilter{
	"gaussian":          imaging.Gaussian,
	"lanczos":           imaging.Lanczos,
	"catmullrom":        imaging.CatmullRom,
	"mitchellnetravali": imaging.MitchellNetravali,
	"bspline":           imaging.BSpline,
}

var anchors = map[string]imaging.Anchor{
	"center":      imaging.Center,
	"top":         imaging.Top,
	"bottom":      imaging.Bottom,
	"left":        imaging.Left,
	"right":       imaging.Right,
	"topleft":     imaging.TopLeft,
	"topright":    imaging.TopRight,
	"bottomleft":  imaging.BottomLeft,
	"bottomright": imaging.BottomRight,
}

// ParseFilter returns the resampling filter with the given name
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	f, ok := filters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unsupported filter %q (use one of %s)", name, strings.Join(keys(filters), ", "))
	}
	return f, nil
}

// ParseAnchor returns the crop anchor with the given name
func ParseAnchor(name string) (imaging.Anchor, error) {
	a, ok := anchors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return imaging.Center, fmt.Errorf("unsupported anchor %q (use one of %s)", name, strings.Join(keys(anchors), ", "))
	}
	return a, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New creates a new Placer with Gaussian resampling and centered cropping
func New() *Placer {
	return &Placer{
		config: Config{
			Filter: imaging.Gaussian,
			Anchor: imaging.Center,
		},
	}
}

// NewWithConfig creates a new Placer with custom configuration
func NewWithConfig(config Config) *Placer {
	if config.Filter.Kernel == nil {
		config.Filter = imaging.Gaussian
	}
	return &Placer{config: config}
}

// ResizeToFill scales img, preserving its aspect ratio, until it covers
// width x height, then crops the overflowing axis around the anchor. The
// result is always exactly width x height.
func (p *Placer) ResizeToFill(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid target size %dx%d", types.ErrResize, width, height)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty source image", types.ErrResize)
	}

	resized := imaging.Fill(img, width, height, p.config.Anchor, p.config.Filter)

	if b := resized.Bounds(); b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", types.ErrResize, b.Dx(), b.Dy(), width, height)
	}
	return resized, nil
}

// PlaceInto resizes subject to box.Rect() and composites it beneath dst.
// The rectangle is Width x Height from box.Min, so the inclusive last column
// and row of the box are not covered. dst is modified in place.
func (p *Placer) PlaceInto(dst *image.NRGBA, box types.BoundingBox, subject image.Image) error {
	if box.Area() == 0 {
		return fmt.Errorf("%w: region %v-%v has zero area", types.ErrDegenerateTemplate, box.Min, box.Max)
	}

	area := box.Rect()
	resized, err := p.ResizeToFill(subject, area.Dx(), area.Dy())
	if err != nil {
		return err
	}

	blend.Under(dst, resized, area.Min)
	return nil
}

// Place composites subject into a fresh copy of the template raster and
// returns the copy. The template itself is left untouched.
func (p *Placer) Place(tpl *types.Template, subject image.Image) (*image.NRGBA, error) {
	canvas := tpl.Clone()
	if err := p.PlaceInto(canvas, tpl.Box, subject); err != nil {
		return nil, err
	}
	return canvas, nil
}
