package imagesource

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Image files follow the grammar
//
//	<cameraId>__<iso8601-with-semicolons>[_Diff<m>][_Crop_<x0>x<y0>x<x1>x<y1>].jpg
//
// e.g. lo-s-mobo-c__2018-06-06T11;12;23_Diff1_Crop_627x632x1279x931.jpg.
// Colons in the time portion are replaced with semicolons for filesystem
// compatibility.

// ParsedName holds the attributes encoded in an archive image filename.
type ParsedName struct {
	CameraID    string
	Timestamp   int64
	DiffMinutes int
	HasCrop     bool
	MinX        int
	MinY        int
	MaxX        int
	MaxY        int
}

// ImagePath builds the archive path for an image with optional diff and
// crop markers.
func ImagePath(dir, cameraID string, ts int64, diffMinutes int, cropCoords *[4]int) string {
	timeStr := time.Unix(ts, 0).Format("2006-01-02T15;04;05")
	name := cameraID + "__" + timeStr
	if diffMinutes > 0 {
		name += fmt.Sprintf("_Diff%d", diffMinutes)
	}
	if cropCoords != nil {
		name += fmt.Sprintf("_Crop_%dx%dx%dx%d",
			cropCoords[0], cropCoords[1], cropCoords[2], cropCoords[3])
	}
	return filepath.Join(dir, name+".jpg")
}

var (
	nameRe = regexp.MustCompile(
		`([A-Za-z0-9-_]+[^_])_+(\d{4}-\d\d-\d\d)T(\d\d)[_;](\d\d)[_;](\d\d)` +
			`(_Diff(\d+))?` +
			`(_Crop_(-?\d+)x(-?\d+)x(\d+)x(\d+))?`)
	unixNameRe = regexp.MustCompile(`(1\d{9})(_Diff(\d+))?(_Crop_(-?\d+)x(-?\d+)x(\d+)x(\d+))?`)
)

// ParseFilename extracts camera, time, diff and crop attributes from an
// image filename. Accepts both the camera__isotime form and the bare
// unix-seconds form used by some archive servers.
func ParseFilename(fileName string) (*ParsedName, error) {
	base := filepath.Base(fileName)

	if m := nameRe.FindStringSubmatch(base); m != nil {
		t, err := time.ParseInLocation("2006-01-02T15:04:05",
			fmt.Sprintf("%sT%s:%s:%s", m[2], m[3], m[4], m[5]), time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse time in %q: %w", fileName, err)
		}
		p := &ParsedName{CameraID: m[1], Timestamp: t.Unix()}
		if m[7] != "" {
			p.DiffMinutes, _ = strconv.Atoi(m[7])
		}
		if m[9] != "" {
			p.HasCrop = true
			p.MinX, _ = strconv.Atoi(m[9])
			p.MinY, _ = strconv.Atoi(m[10])
			p.MaxX, _ = strconv.Atoi(m[11])
			p.MaxY, _ = strconv.Atoi(m[12])
		}
		return p, nil
	}

	if m := unixNameRe.FindStringSubmatch(base); m != nil {
		ts, _ := strconv.ParseInt(m[1], 10, 64)
		p := &ParsedName{
			CameraID:  "UNKNOWN_" + strings.TrimSuffix(base, filepath.Ext(base)),
			Timestamp: ts,
		}
		if m[3] != "" {
			p.DiffMinutes, _ = strconv.Atoi(m[3])
		}
		if m[5] != "" {
			p.HasCrop = true
			p.MinX, _ = strconv.Atoi(m[5])
			p.MinY, _ = strconv.Atoi(m[6])
			p.MaxX, _ = strconv.Atoi(m[7])
			p.MaxY, _ = strconv.Atoi(m[8])
		}
		return p, nil
	}

	return nil, fmt.Errorf("unrecognized image name %q", fileName)
}
