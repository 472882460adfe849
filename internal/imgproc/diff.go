package imgproc

import (
	"image"
	"image/color"
)

// DiffImages subtracts b from a per channel with a 128 offset, so
// identical pixels come out mid-gray and out-of-range values clamp to
// 0/255. Used by the PTZ diff detection policy.
func DiffImages(a, b image.Image) *image.RGBA {
	bounds := a.Bounds().Intersect(b.Bounds())
	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			ar, ag, ab, _ := a.At(x, y).RGBA()
			br, bg, bb, _ := b.At(x, y).RGBA()
			out.Set(x, y, color.RGBA{
				R: clamp8(128 + int(ar>>8) - int(br>>8)),
				G: clamp8(128 + int(ag>>8) - int(bg>>8)),
				B: clamp8(128 + int(ab>>8) - int(bb>>8)),
				A: 255,
			})
		}
	}
	return out
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Translate shifts img by (dx, dy), filling uncovered pixels with
// mid-gray so a subsequent diff treats them as unchanged.
func Translate(img image.Image, dx, dy int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	gray := color.RGBA{128, 128, 128, 255}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sx, sy := x-dx, y-dy
			if sx < b.Min.X || sx >= b.Max.X || sy < b.Min.Y || sy >= b.Max.Y {
				out.Set(x, y, gray)
				continue
			}
			out.Set(x, y, img.At(sx, sy))
		}
	}
	return out
}
