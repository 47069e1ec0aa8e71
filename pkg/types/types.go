package types

import (
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// BoundingBox is an inclusive, axis-aligned pixel region.
// Width and height are Max-Min, so a single-pixel box has zero area.
type BoundingBox struct {
	Min image.Point `json:"min"`
	Max image.Point `json:"max"`
}

// Width returns Max.X-Min.X, saturating at zero
func (b BoundingBox) Width() int {
	if b.Max.X < b.Min.X {
		return 0
	}
	return b.Max.X - b.Min.X
}

// Height returns Max.Y-Min.Y, saturating at zero
func (b BoundingBox) Height() int {
	if b.Max.Y < b.Min.Y {
		return 0
	}
	return b.Max.Y - b.Min.Y
}

// Area returns Width*Height
func (b BoundingBox) Area() int {
	return b.Width() * b.Height()
}

// Rect returns the region covered by a Width x Height raster placed at Min.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Min.X, b.Min.Y, b.Min.X+b.Width(), b.Min.Y+b.Height())
}

// Contains reports whether p lies inside the inclusive extent of the box.
func (b BoundingBox) Contains(p image.Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Template is a decoded frame template together with the bounding box of its
// transparent region. Raster must not be mutated; use Clone for a working copy.
type Template struct {
	Name   string
	Raster *image.NRGBA
	Box    BoundingBox
}

// Clone returns a private, mutable copy of the template raster.
func (t *Template) Clone() *image.NRGBA {
	return imaging.Clone(t.Raster)
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

// UnitResult is the outcome of one (template, subject) work unit.
type UnitResult struct {
	Template string        `json:"template"`
	Subject  string        `json:"subject"`
	Output   string        `json:"output,omitempty"`
	Stage    Stage         `json:"stage,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the unit produced an output file.
func (r UnitResult) OK() bool {
	return r.Error == ""
}

// Report summarises a batch run.
type Report struct {
	Templates int           `json:"templates"`
	Subjects  int           `json:"subjects"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Cancelled int           `json:"cancelled"`
	Elapsed   time.Duration `json:"elapsed"`
	Results   []UnitResult  `json:"results"`
}
