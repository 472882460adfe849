package composer

import (
	"fmt"
	"image"
	"path/filepath"
	"regexp"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openfirewatch/firewatch/internal/blob"
	"github.com/openfirewatch/firewatch/internal/geom"
	"github.com/openfirewatch/firewatch/internal/imgproc"
)

// Base map blobs encode their coverage in the object name:
// <anything>_<minLat>_<minLon>_<maxLat>_<maxLon>.jpg
var mapNameRe = regexp.MustCompile(`_(-?\d+(?:\.\d+)?)_(-?\d+(?:\.\d+)?)_(-?\d+(?:\.\d+)?)_(-?\d+(?:\.\d+)?)\.jpe?g$`)

const (
	mapCropWidth  = 800
	mapCropHeight = 600

	sourceFillAlpha    = 51 // 20%
	confirmedFillAlpha = 77 // 30%
)

// baseMap is a decoded map tile with its geographic coverage.
type baseMap struct {
	img                        image.Image
	minLat, minLon             float64
	maxLat, maxLon             float64
}

// MapRenderer draws detection polygons onto camera base maps. Maps are
// pulled from the blob store once and kept in an in-process LRU; the
// fleet shares a small set of regional tiles so the cache stays hot.
type MapRenderer struct {
	Blob  *blob.Store
	cache *lru.Cache[string, *baseMap]
}

func NewMapRenderer(store *blob.Store, cacheSize int) (*MapRenderer, error) {
	cache, err := lru.New[string, *baseMap](cacheSize)
	if err != nil {
		return nil, err
	}
	return &MapRenderer{Blob: store, cache: cache}, nil
}

func (r *MapRenderer) load(mapPath string) (*baseMap, error) {
	if m, ok := r.cache.Get(mapPath); ok {
		return m, nil
	}
	match := mapNameRe.FindStringSubmatch(filepath.Base(mapPath))
	if match == nil {
		return nil, fmt.Errorf("map %s has no coordinate suffix", mapPath)
	}
	coords := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(match[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("map %s coordinate %q: %w", mapPath, match[i+1], err)
		}
		coords[i] = v
	}

	f, err := r.Blob.Open(mapPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode map %s: %w", mapPath, err)
	}

	m := &baseMap{
		img:    img,
		minLat: coords[0], minLon: coords[1],
		maxLat: coords[2], maxLon: coords[3],
	}
	r.cache.Add(mapPath, m)
	return m, nil
}

// toPixel projects a [lat, lon] vertex onto the tile. North is up, so
// latitude grows toward smaller Y.
func (m *baseMap) toPixel(v [2]float64) image.Point {
	b := m.img.Bounds()
	x := (v[1] - m.minLon) / (m.maxLon - m.minLon) * float64(b.Dx())
	y := (m.maxLat - v[0]) / (m.maxLat - m.minLat) * float64(b.Dy())
	return image.Point{X: b.Min.X + int(x), Y: b.Min.Y + int(y)}
}

// Render draws every source polygon in translucent red and, when more
// than one contributed, the confirmed intersection in translucent blue,
// then crops around the confirmed polygon's centroid and writes the
// result to outPath.
func (r *MapRenderer) Render(mapPath string, confirmed geom.Polygon, sources []geom.Polygon, outPath string) error {
	m, err := r.load(mapPath)
	if err != nil {
		return err
	}
	canvas := imgproc.ToRGBA(m.img)

	for _, poly := range sources {
		pts := make([]image.Point, len(poly))
		for i, v := range poly {
			pts[i] = m.toPixel(v)
		}
		imgproc.FillPolygonAlpha(canvas, pts, imgproc.BoxRed, sourceFillAlpha)
	}
	if len(sources) > 1 {
		pts := make([]image.Point, len(confirmed))
		for i, v := range confirmed {
			pts[i] = m.toPixel(v)
		}
		imgproc.FillPolygonAlpha(canvas, pts, blueFill, confirmedFillAlpha)
	}

	center := m.toPixel(confirmed.Centroid())
	b := canvas.Bounds()
	x0, x1 := imgproc.RangeFromCenter(center.X, mapCropWidth, b.Min.X, b.Max.X)
	y0, y1 := imgproc.RangeFromCenter(center.Y, mapCropHeight, b.Min.Y, b.Max.Y)
	crop := imgproc.Crop(canvas, image.Rect(x0, y0, x1, y1))

	return imgproc.SaveJPEG(outPath, crop)
}
