// Package blend implements straight-alpha Porter-Duff compositing on
// *image.NRGBA rasters.
//
// Over is the ordinary source-over primitive: the source is painted on top of
// the destination. Under is its inverse: the source is slid beneath the
// destination, so only the destination's transparent and translucent pixels
// let it show through. Under is what frames a photograph inside a template.
package blend

import (
	"image"
)

// Over composites src over dst with the top-left of src at pt in dst's
// coordinate space. Parts of src falling outside dst are discarded.
func Over(dst, src *image.NRGBA, pt image.Point) {
	composite(dst, src, pt, false)
}

// Under composites src beneath dst with the top-left of src at pt in dst's
// coordinate space, writing dst-over-src back into dst. Parts of src falling
// outside dst are discarded.
func Under(dst, src *image.NRGBA, pt image.Point) {
	composite(dst, src, pt, true)
}

// Clip returns the rectangle of dst covered by src placed at pt, and the
// matching top-left point within src. The rectangle is empty when they do
// not overlap.
func Clip(dst, src image.Rectangle, pt image.Point) (image.Rectangle, image.Point) {
	placed := image.Rectangle{Min: pt, Max: pt.Add(src.Size())}
	r := placed.Intersect(dst)
	if r.Empty() {
		return image.Rectangle{}, image.Point{}
	}
	return r, src.Min.Add(r.Min.Sub(pt))
}

func composite(dst, src *image.NRGBA, pt image.Point, under bool) {
	// pt is relative to dst's top-left corner.
	r, sp := Clip(dst.Bounds(), src.Bounds(), dst.Bounds().Min.Add(pt))
	if r.Empty() {
		return
	}

	w := r.Dx() * 4
	for y := 0; y < r.Dy(); y++ {
		di := dst.PixOffset(r.Min.X, r.Min.Y+y)
		si := src.PixOffset(sp.X, sp.Y+y)
		d := dst.Pix[di : di+w : di+w]
		s := src.Pix[si : si+w : si+w]

		for i := 0; i < w; i += 4 {
			if under {
				sourceOver(d[i:i+4:i+4], d[i:i+4:i+4], s[i:i+4:i+4])
			} else {
				sourceOver(d[i:i+4:i+4], s[i:i+4:i+4], d[i:i+4:i+4])
			}
		}
	}
}

// sourceOver writes fg over bg into out. out may alias either input.
func sourceOver(out, fg, bg []uint8) {
	switch fg[3] {
	case 0xff:
		copy(out, fg)
		return
	case 0:
		copy(out, bg)
		return
	}

	fa := float64(fg[3]) / 255
	ba := float64(bg[3]) / 255
	keep := ba * (1 - fa)
	oa := fa + keep
	if oa == 0 {
		out[0], out[1], out[2], out[3] = 0, 0, 0, 0
		return
	}

	r := (float64(fg[0])*fa + float64(bg[0])*keep) / oa
	g := (float64(fg[1])*fa + float64(bg[1])*keep) / oa
	b := (float64(fg[2])*fa + float64(bg[2])*keep) / oa

	out[0] = clamp(r)
	out[1] = clamp(g)
	out[2] = clamp(b)
	out[3] = clamp(oa * 255)
}

func clamp(v float64) uint8 {
	v += 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
