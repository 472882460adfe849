package imgproc

import (
	"errors"
	"image"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Alignment limits: PTZ re-aims between shots drift by at most a small
// translation; anything larger means a genuinely different view.
const (
	maxAlignDX = 20
	maxAlignDY = 10

	// Minimum share of correlation energy in the peak for the estimate
	// to count as converged.
	minPeakRatio = 4.0
)

var ErrNoAlignment = errors.New("phase correlation did not converge")

// AlignTranslation estimates the translation (dx, dy) that maps prev
// onto cur using phase correlation. Returns ErrNoAlignment when the
// correlation peak is not decisive or the shift exceeds the limits.
func AlignTranslation(prev, cur image.Image) (int, int, error) {
	b := prev.Bounds().Intersect(cur.Bounds())
	w, h := b.Dx(), b.Dy()
	if w < 2*maxAlignDX || h < 2*maxAlignDY {
		return 0, 0, ErrNoAlignment
	}

	fa := grayPlane(prev, b)
	fb := grayPlane(cur, b)

	Fa := fft2(fa, w, h, false)
	Fb := fft2(fb, w, h, false)

	// Cross power spectrum, whitened.
	cross := make([]complex128, w*h)
	for i := range cross {
		v := Fa[i] * cmplx.Conj(Fb[i])
		mag := cmplx.Abs(v)
		if mag > 1e-12 {
			cross[i] = v / complex(mag, 0)
		}
	}

	corr := fft2(cross, w, h, true)

	peakIdx := 0
	peakVal := 0.0
	sum := 0.0
	for i, v := range corr {
		m := cmplx.Abs(v)
		sum += m
		if m > peakVal {
			peakVal = m
			peakIdx = i
		}
	}
	mean := sum / float64(len(corr))
	if mean <= 0 || peakVal < minPeakRatio*mean {
		return 0, 0, ErrNoAlignment
	}

	px, py := peakIdx%w, peakIdx/w
	dx, dy := px, py
	if dx > w/2 {
		dx -= w
	}
	if dy > h/2 {
		dy -= h
	}
	// Correlation peak gives the shift of cur relative to prev.
	dx, dy = -dx, -dy
	if abs(dx) > maxAlignDX || abs(dy) > maxAlignDY {
		return 0, 0, ErrNoAlignment
	}
	return dx, dy, nil
}

func grayPlane(img image.Image, b image.Rectangle) []complex128 {
	w, h := b.Dx(), b.Dy()
	out := make([]complex128, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			out[y*w+x] = complex(lum, 0)
		}
	}
	return out
}

// fft2 runs a 2D FFT (rows then columns) over a w×h grid stored row
// major. inverse=true applies the unscaled inverse transform.
func fft2(data []complex128, w, h int, inverse bool) []complex128 {
	out := make([]complex128, len(data))
	copy(out, data)

	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, out[y*w:(y+1)*w])
		var res []complex128
		if inverse {
			res = rowFFT.Sequence(nil, row)
		} else {
			res = rowFFT.Coefficients(nil, row)
		}
		copy(out[y*w:(y+1)*w], res)
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = out[y*w+x]
		}
		var res []complex128
		if inverse {
			res = colFFT.Sequence(nil, col)
		} else {
			res = colFFT.Coefficients(nil, col)
		}
		for y := 0; y < h; y++ {
			out[y*w+x] = res[y]
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
