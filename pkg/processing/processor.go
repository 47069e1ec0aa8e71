package processing

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/frame-compositor/pkg/types"
)

// Processor handles image decoding and encoding
type Processor struct {
	config Config
}

// Config holds configuration for decoding
type Config struct {
	// AutoOrient applies the EXIF orientation tag while decoding.
	AutoOrient bool
}

// SaveOptions controls output encoding
type SaveOptions struct {
	JPEGQuality    int
	WebPQuality    int
	Lossless       bool
	PNGCompression png.CompressionLevel
}

// DefaultSaveOptions returns lossless-friendly encoder defaults
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{
		JPEGQuality:    95,
		WebPQuality:    90,
		Lossless:       true,
		PNGCompression: png.DefaultCompression,
	}
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// NewProcessorWithConfig creates a new image processor with custom configuration
func NewProcessorWithConfig(config Config) *Processor {
	return &Processor{config: config}
}

// LoadImage loads an image from a file path with WebP support. Open errors
// wrap types.ErrInputUnavailable, parse errors wrap types.ErrDecode.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInputUnavailable, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(p.config.AutoOrient))
	if err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		if _, serr := f.Seek(0, io.SeekStart); serr == nil {
			if img, werr := webp.Decode(f); werr == nil {
				return img, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", types.ErrDecode, path, err)
}

// SaveImage encodes img in the format implied by the extension of path. The
// data goes to a pending file next to path that is synced and renamed into
// place, so a failed or interrupted save never leaves a partial file at path.
func (p *Processor) SaveImage(img image.Image, path string, opts SaveOptions) error {
	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrWrite, err)
	}
	defer pf.Cleanup()

	if err := encode(pf, img, path, opts); err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrWrite, path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrWrite, err)
	}
	return nil
}

func encode(w io.Writer, img image.Image, path string, opts SaveOptions) error {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		return webp.Encode(w, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(opts.WebPQuality)})
	}

	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return err
	}
	quality := opts.JPEGQuality
	if quality < 1 || quality > 100 {
		quality = 95
	}
	return imaging.Encode(w, img, format,
		imaging.JPEGQuality(quality),
		imaging.PNGCompressionLevel(opts.PNGCompression))
}

// CreateDebugOverlay returns a copy of img with the transparent region box
// outlined and its center marked
func (p *Processor) CreateDebugOverlay(img image.Image, box types.BoundingBox) *image.NRGBA {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	gold := color.NRGBA{255, 204, 0, 255} // region outline
	red := color.NRGBA{255, 0, 0, 255}    // region center
	stroke := int(math.Max(1, 0.004*float64(minInt(w, h))))
	cross := int(math.Max(4, 0.01*float64(minInt(w, h))))

	drawBox(nrgba, box, gold, stroke)

	cx := (box.Min.X + box.Max.X) / 2
	cy := (box.Min.Y + box.Max.Y) / 2
	drawHLine(nrgba, cy, cx-cross, cx+cross+1, red)
	drawVLine(nrgba, cx, cy-cross, cy+cross+1, red)

	return nrgba
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// drawBox outlines the inclusive extent of box, stroking inwards
func drawBox(img *image.NRGBA, box types.BoundingBox, c color.NRGBA, stroke int) {
	x0, y0 := box.Min.X, box.Min.Y
	x1, y1 := box.Max.X+1, box.Max.Y+1
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
