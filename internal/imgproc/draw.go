package imgproc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	BoxRed    = color.RGBA{R: 255, A: 255}
	BoxYellow = color.RGBA{R: 255, G: 255, A: 255}
	BoxOrange = color.RGBA{R: 255, G: 140, A: 255}
)

// LoadJPEG decodes an image file.
func LoadJPEG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// SaveJPEG encodes img to path at quality 95, matching the archive
// convention.
func SaveJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
}

// ToRGBA copies img into a mutable RGBA buffer.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// Crop returns the sub-image for the given rectangle clamped to bounds.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// DrawRect outlines r on img with the given color and stroke width.
func DrawRect(img *image.RGBA, r image.Rectangle, c color.Color, width int) {
	r = r.Intersect(img.Bounds())
	for w := 0; w < width; w++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, r.Min.Y+w, c)
			img.Set(x, r.Max.Y-1-w, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.Set(r.Min.X+w, y, c)
			img.Set(r.Max.X-1-w, y, c)
		}
	}
}

// FillRectAlpha blends a translucent fill of c over r. alpha is 0-255.
func FillRectAlpha(img *image.RGBA, r image.Rectangle, c color.RGBA, alpha uint8) {
	r = r.Intersect(img.Bounds())
	overlay := image.NewUniform(color.RGBA{c.R, c.G, c.B, alpha})
	draw.DrawMask(img, r, overlay, image.Point{}, image.NewUniform(color.Alpha{alpha}), image.Point{}, draw.Over)
}

// FillPolygonAlpha blends a translucent fill of c over the polygon given
// in image coordinates, using even-odd scanline filling.
func FillPolygonAlpha(img *image.RGBA, pts []image.Point, c color.RGBA, alpha uint8) {
	if len(pts) < 3 {
		return
	}
	b := img.Bounds()
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	if minY < b.Min.Y {
		minY = b.Min.Y
	}
	if maxY > b.Max.Y-1 {
		maxY = b.Max.Y - 1
	}
	af := float64(alpha) / 255
	for y := minY; y <= maxY; y++ {
		var xs []float64
		j := len(pts) - 1
		for i := 0; i < len(pts); i++ {
			yi, yj := float64(pts[i].Y), float64(pts[j].Y)
			if (yi <= float64(y) && yj > float64(y)) || (yj <= float64(y) && yi > float64(y)) {
				xi, xj := float64(pts[i].X), float64(pts[j].X)
				xs = append(xs, xi+(float64(y)-yi)/(yj-yi)*(xj-xi))
			}
			j = i
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := xs[i], xs[i+1]
			if x0 > x1 {
				x0, x1 = x1, x0
			}
			for x := int(x0); x <= int(x1); x++ {
				if x < b.Min.X || x >= b.Max.X {
					continue
				}
				r0, g0, b0, _ := img.At(x, y).RGBA()
				nr := uint8(float64(r0>>8)*(1-af) + float64(c.R)*af)
				ng := uint8(float64(g0>>8)*(1-af) + float64(c.G)*af)
				nb := uint8(float64(b0>>8)*(1-af) + float64(c.B)*af)
				img.Set(x, y, color.RGBA{nr, ng, nb, 255})
			}
		}
	}
}

// Watermark draws label text at the given point with a dark backing
// strip for legibility.
func Watermark(img *image.RGBA, label string, at image.Point) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, label).Ceil()
	h := face.Metrics().Height.Ceil()
	strip := image.Rect(at.X-2, at.Y-h, at.X+w+2, at.Y+4)
	FillRectAlpha(img, strip, color.RGBA{}, 160)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(label)
}
