package imgproc

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// texture builds a deterministic high-frequency pattern so phase
// correlation has plenty of energy to lock onto.
func texture(w, h int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(r.Intn(256))
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// cyclicShift moves the image content by (dx, dy) with wraparound, so
// the shifted copy is an exact circular translation.
func cyclicShift(src *image.RGBA, dx, dy int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set((x+dx+w)%w, (y+dy+h)%h, src.At(x, y))
		}
	}
	return out
}

func TestAlignTranslation_RecoversShift(t *testing.T) {
	prev := texture(128, 64, 7)
	for _, shift := range []struct{ dx, dy int }{
		{0, 0}, {5, 3}, {-7, 2}, {12, -6}, {20, 10},
	} {
		cur := cyclicShift(prev, shift.dx, shift.dy)
		dx, dy, err := AlignTranslation(prev, cur)
		if err != nil {
			t.Fatalf("shift (%d,%d): %v", shift.dx, shift.dy, err)
		}
		if dx != shift.dx || dy != shift.dy {
			t.Errorf("shift (%d,%d): recovered (%d,%d)", shift.dx, shift.dy, dx, dy)
		}
	}
}

func TestAlignTranslation_RejectsTinyImages(t *testing.T) {
	small := texture(16, 8, 1)
	if _, _, err := AlignTranslation(small, small); err != ErrNoAlignment {
		t.Errorf("expected ErrNoAlignment, got %v", err)
	}
}

func TestDiffImages_IdenticalIsMidGray(t *testing.T) {
	img := texture(32, 32, 3)
	diff := DiffImages(img, img)
	r, g, b, _ := diff.At(10, 10).RGBA()
	if r>>8 != 128 || g>>8 != 128 || b>>8 != 128 {
		t.Errorf("identical diff pixel = (%d,%d,%d), want mid-gray", r>>8, g>>8, b>>8)
	}
}

func TestTranslate_FillsUncoveredWithGray(t *testing.T) {
	img := texture(32, 32, 4)
	out := Translate(img, 5, 0)
	r, g, b, _ := out.At(0, 10).RGBA()
	if r>>8 != 128 || g>>8 != 128 || b>>8 != 128 {
		t.Errorf("uncovered pixel = (%d,%d,%d), want mid-gray", r>>8, g>>8, b>>8)
	}
	wr, _, _, _ := img.At(0, 10).RGBA()
	gr, _, _, _ := out.At(5, 10).RGBA()
	if wr != gr {
		t.Error("shifted pixel mismatch")
	}
}
