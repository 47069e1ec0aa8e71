package analyzer

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/frame-compositor/pkg/types"
)

// ImageAnalyzer locates the transparent region of frame templates
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	// MinRegionSize is the smallest accepted width and height of a
	// transparent region. Values below 1 are treated as 1.
	MinRegionSize int
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{
		config: Config{
			MinRegionSize: 1,
		},
	}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	if config.MinRegionSize < 1 {
		config.MinRegionSize = 1
	}
	return &ImageAnalyzer{config: config}
}

// TransparentBounds returns the bounding box of every pixel whose alpha is
// not 255, in coordinates relative to the top-left of img. The second result
// is false when the image has no such pixel.
//
// Any alpha below 255 counts, so anti-aliased template edges fall inside the
// region and get blended against the subject.
func (a *ImageAnalyzer) TransparentBounds(img image.Image) (types.BoundingBox, bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	minX, minY := w, h
	maxX, maxY := 0, 0
	found := false

	mark := func(x, y int) {
		found = true
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			i := y*src.Stride + 3
			for x := 0; x < w; x++ {
				if src.Pix[i] != 0xff {
					mark(x, y)
				}
				i += 4
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			i := y*src.Stride + 3
			for x := 0; x < w; x++ {
				if src.Pix[i] != 0xff {
					mark(x, y)
				}
				i += 4
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				_, _, _, alpha := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				if alpha>>8 != 0xff {
					mark(x, y)
				}
			}
		}
	}

	if !found {
		return types.BoundingBox{}, false
	}
	return types.BoundingBox{Min: image.Pt(minX, minY), Max: image.Pt(maxX, maxY)}, true
}

// AnalyzeTemplate converts img to a private NRGBA raster and attaches the
// bounding box of its transparent region. Templates without a usable region
// fail with types.ErrDegenerateTemplate.
func (a *ImageAnalyzer) AnalyzeTemplate(name string, img image.Image) (*types.Template, error) {
	raster := imaging.Clone(img)

	box, ok := a.TransparentBounds(raster)
	if !ok {
		return nil, fmt.Errorf("%w: no transparent region", types.ErrDegenerateTemplate)
	}
	if err := a.ValidateRegion(box); err != nil {
		return nil, err
	}

	return &types.Template{Name: name, Raster: raster, Box: box}, nil
}

// ValidateRegion checks that a transparent region is large enough to hold a subject
func (a *ImageAnalyzer) ValidateRegion(box types.BoundingBox) error {
	if box.Width() < a.config.MinRegionSize || box.Height() < a.config.MinRegionSize {
		return fmt.Errorf("%w: region %v-%v is %dx%d (minimum: %d)", types.ErrDegenerateTemplate,
			box.Min, box.Max, box.Width(), box.Height(), a.config.MinRegionSize)
	}
	return nil
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) types.ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := types.ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}
