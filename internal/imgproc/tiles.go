package imgproc

import "math"

// TileSize matches the input size of the smoke classifier model.
const TileSize = 299

// overlapRatio gives roughly 15% overlap between adjacent tiles.
const overlapRatio = 1.15

// Range is a half-open [Start, End) span along one axis.
type Range struct {
	Start int
	End   int
}

// SegmentRanges divides (0, fullSize) into spans of segmentSize with
// ~15% overlap, equally spaced, with the final span flush against the
// edge. Returns nil when the full size cannot fit a single segment.
func SegmentRanges(fullSize, segmentSize int) []Range {
	if fullSize < segmentSize {
		return nil
	}
	if fullSize == segmentSize {
		return []Range{{0, segmentSize}}
	}
	firstCenter := segmentSize / 2
	lastCenter := fullSize - segmentSize/2
	flexSize := lastCenter - firstCenter
	numSegments := int(math.Ceil(float64(flexSize) / (float64(segmentSize) / overlapRatio)))
	offset := float64(flexSize) / float64(numSegments)

	var ranges []Range
	for i := 0; i < numSegments; i++ {
		center := firstCenter + int(math.Round(float64(i)*offset))
		start := center - segmentSize/2
		if start+segmentSize > fullSize {
			break
		}
		ranges = append(ranges, Range{start, start + segmentSize})
	}
	ranges = append(ranges, Range{fullSize - segmentSize, fullSize})
	return ranges
}

// RangeFromCenter returns a span of the given size ideally centered at
// center, clamped to [minLimit, maxLimit].
func RangeFromCenter(center, size, minLimit, maxLimit int) (int, int) {
	switch {
	case center-size/2 <= minLimit: // left edge limited
		v0 := minLimit
		v1 := min(v0+size, maxLimit)
		return v0, v1
	case center+size/2 >= maxLimit: // right edge limited
		v1 := maxLimit
		v0 := max(v1-size, minLimit)
		return v0, v1
	default:
		v0 := center - size/2
		v1 := min(v0+size, maxLimit)
		return v0, v1
	}
}
