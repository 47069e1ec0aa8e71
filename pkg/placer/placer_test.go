package placer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/menta2k/frame-compositor/pkg/types"
)

var (
	white       = color.NRGBA{255, 255, 255, 255}
	red         = color.NRGBA{255, 0, 0, 255}
	transparent = color.NRGBA{0, 0, 0, 0}
)

// createTemplate creates an opaque white 100x100 template with a transparent
// hole at [20,80)x[30,70)
func createTemplate() *types.Template {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x >= 20 && x < 80 && y >= 30 && y < 70 {
				img.SetNRGBA(x, y, transparent)
			} else {
				img.SetNRGBA(x, y, white)
			}
		}
	}

	return &types.Template{
		Name:   "frame.png",
		Raster: img,
		Box:    types.BoundingBox{Min: image.Pt(20, 30), Max: image.Pt(79, 69)},
	}
}

func createSolid(width, height int, c color.NRGBA) *image.NRGBA {
	return imaging.New(width, height, c)
}

// createGradient creates a horizontal red-to-blue gradient
func createGradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	span := width - 1
	if span == 0 {
		span = 1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b := uint8(x * 255 / span)
			img.SetNRGBA(x, y, color.NRGBA{255 - b, 0, b, 255})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	placer := New()
	if placer == nil {
		t.Fatal("New() returned nil")
	}

	if placer.config.Filter.Support != imaging.Gaussian.Support {
		t.Error("Expected Gaussian filter by default")
	}

	if placer.config.Anchor != imaging.Center {
		t.Error("Expected center anchor by default")
	}
}

func TestNewWithConfig(t *testing.T) {
	placer := NewWithConfig(Config{Anchor: imaging.Top})

	if placer.config.Anchor != imaging.Top {
		t.Error("Expected top anchor")
	}

	if placer.config.Filter.Kernel == nil {
		t.Error("Expected a default filter when none is configured")
	}
}

func TestParseFilter(t *testing.T) {
	for _, name := range []string{"gaussian", "Lanczos", " catmullrom "} {
		if _, err := ParseFilter(name); err != nil {
			t.Errorf("Filter %q should be accepted: %v", name, err)
		}
	}

	for _, name := range []string{"linear", "nearest", "box", ""} {
		if _, err := ParseFilter(name); err == nil {
			t.Errorf("Filter %q should be rejected", name)
		}
	}
}

func TestParseAnchor(t *testing.T) {
	a, err := ParseAnchor("Top")
	if err != nil || a != imaging.Top {
		t.Errorf("Expected top anchor, got %v (%v)", a, err)
	}

	if _, err := ParseAnchor("middle"); err == nil {
		t.Error("Unknown anchor should be rejected")
	}
}

func TestResizeToFillDimensions(t *testing.T) {
	placer := New()
	sources := [][2]int{{1, 1}, {10, 10}, {400, 200}, {37, 211}, {640, 480}}
	targets := [][2]int{{1, 1}, {59, 39}, {40, 40}, {3, 90}, {120, 7}}

	for _, src := range sources {
		img := createGradient(src[0], src[1])
		for _, dst := range targets {
			resized, err := placer.ResizeToFill(img, dst[0], dst[1])
			if err != nil {
				t.Fatalf("ResizeToFill %v -> %v failed: %v", src, dst, err)
			}
			b := resized.Bounds()
			if b.Dx() != dst[0] || b.Dy() != dst[1] {
				t.Errorf("ResizeToFill %v -> %v produced %dx%d", src, dst, b.Dx(), b.Dy())
			}
		}
	}
}

func TestResizeToFillInvalid(t *testing.T) {
	placer := New()
	img := createSolid(10, 10, red)

	for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		_, err := placer.ResizeToFill(img, size[0], size[1])
		if !errors.Is(err, types.ErrResize) {
			t.Errorf("Expected ErrResize for %v, got %v", size, err)
		}
	}

	_, err := placer.ResizeToFill(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 10, 10)
	if !errors.Is(err, types.ErrResize) {
		t.Errorf("Expected ErrResize for empty source, got %v", err)
	}
}

func TestPlaceRectangularHole(t *testing.T) {
	placer := New()
	tpl := createTemplate()
	original := append([]uint8(nil), tpl.Raster.Pix...)

	out, err := placer.Place(tpl, createSolid(40, 40, red))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	if !bytes.Equal(tpl.Raster.Pix, original) {
		t.Error("Place must not modify the template raster")
	}

	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			got := out.NRGBAAt(x, y)
			switch {
			case x >= 20 && x < 79 && y >= 30 && y < 69:
				if got != red {
					t.Fatalf("(%d,%d): expected red, got %v", x, y, got)
				}
			case x >= 20 && x < 80 && y >= 30 && y < 70:
				// Last column and row of the hole lie outside the Max-Min sized subject.
				if got != transparent {
					t.Fatalf("(%d,%d): expected untouched transparent pixel, got %v", x, y, got)
				}
			default:
				if got != white {
					t.Fatalf("(%d,%d): expected white, got %v", x, y, got)
				}
			}
		}
	}
}

func TestPlaceLeavesLastColumnAndRow(t *testing.T) {
	placer := New()
	tpl := createTemplate()

	out, err := placer.Place(tpl, createSolid(40, 40, red))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	if got := tpl.Box.Rect(); got != image.Rect(20, 30, 79, 69) {
		t.Fatalf("Expected 59x39 placement rect, got %v", got)
	}

	cases := map[image.Point]color.NRGBA{
		{50, 50}: red,
		{20, 30}: red,
		{78, 68}: red,
		{79, 50}: transparent,
		{50, 69}: transparent,
		{78, 69}: transparent,
		{79, 69}: transparent,
		{80, 50}: white,
		{50, 70}: white,
	}
	for pt, want := range cases {
		if got := out.NRGBAAt(pt.X, pt.Y); got != want {
			t.Errorf("%v: expected %v, got %v", pt, want, got)
		}
	}
}

func TestPlaceSubjectLargerThanHole(t *testing.T) {
	placer := New()
	tpl := createTemplate()

	out, err := placer.Place(tpl, createGradient(400, 200))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	// The 2:1 subject is cropped horizontally, so neither edge of the hole
	// reaches the pure red or pure blue ends of the gradient.
	left := out.NRGBAAt(20, 50)
	if left.R > 240 || left.B < 15 {
		t.Errorf("Left edge should be cropped away from pure red, got %v", left)
	}

	right := out.NRGBAAt(78, 50)
	if right.B > 240 || right.R < 15 {
		t.Errorf("Right edge should be cropped away from pure blue, got %v", right)
	}

	middle := out.NRGBAAt(49, 50)
	if d := int(middle.R) - int(middle.B); d < -30 || d > 30 {
		t.Errorf("Middle of the hole should show the middle band, got %v", middle)
	}

	if left.R <= middle.R || middle.R <= right.R {
		t.Errorf("Gradient order should be preserved: %v %v %v", left, middle, right)
	}
}

func TestPlaceSubjectSmallerThanHole(t *testing.T) {
	placer := New()
	tpl := createTemplate()

	subject := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if (x+y)%2 == 0 {
				subject.SetNRGBA(x, y, red)
			} else {
				subject.SetNRGBA(x, y, color.NRGBA{0, 0, 255, 255})
			}
		}
	}

	out, err := placer.Place(tpl, subject)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	for y := 30; y < 69; y++ {
		for x := 20; x < 79; x++ {
			if a := out.NRGBAAt(x, y).A; a != 255 {
				t.Fatalf("(%d,%d): upscaled subject left a transparent pixel (alpha %d)", x, y, a)
			}
		}
	}
}

func TestPlaceSoftEdge(t *testing.T) {
	placer := New()

	img := imaging.New(20, 20, white)
	for y := 4; y <= 15; y++ {
		for x := 4; x <= 15; x++ {
			if x == 4 || x == 15 || y == 4 || y == 15 {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 128})
			} else {
				img.SetNRGBA(x, y, transparent)
			}
		}
	}
	tpl := &types.Template{
		Raster: img,
		Box:    types.BoundingBox{Min: image.Pt(4, 4), Max: image.Pt(15, 15)},
	}

	out, err := placer.Place(tpl, createSolid(30, 30, red))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	outer, edge, inner := out.NRGBAAt(3, 10), out.NRGBAAt(4, 10), out.NRGBAAt(5, 10)
	if outer != white {
		t.Errorf("Expected template color outside the border, got %v", outer)
	}
	if inner != red {
		t.Errorf("Expected subject color inside the border, got %v", inner)
	}
	if edge.A != 255 || edge.G <= inner.G || edge.G >= outer.G {
		t.Errorf("Border pixel should blend template and subject, got %v", edge)
	}
}

func TestPlaceDegenerate(t *testing.T) {
	placer := New()
	tpl := createTemplate()
	tpl.Box = types.BoundingBox{Min: image.Pt(5, 5), Max: image.Pt(5, 5)}

	_, err := placer.Place(tpl, createSolid(10, 10, red))
	if !errors.Is(err, types.ErrDegenerateTemplate) {
		t.Errorf("Expected ErrDegenerateTemplate, got %v", err)
	}
}

func TestPlaceIntoClipsToCanvas(t *testing.T) {
	placer := New()
	canvas := imaging.New(10, 10, transparent)
	box := types.BoundingBox{Min: image.Pt(6, 6), Max: image.Pt(16, 16)}

	if err := placer.PlaceInto(canvas, box, createSolid(4, 4, red)); err != nil {
		t.Fatalf("PlaceInto failed: %v", err)
	}

	if got := canvas.NRGBAAt(9, 9); got != red {
		t.Errorf("Expected red at (9,9), got %v", got)
	}
	if got := canvas.NRGBAAt(5, 5); got != transparent {
		t.Errorf("Expected untouched pixel at (5,5), got %v", got)
	}
}

func BenchmarkPlace(b *testing.B) {
	placer := New()
	tpl := createTemplate()
	subject := createGradient(1600, 1200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		placer.Place(tpl, subject)
	}
}
