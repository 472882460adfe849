package composer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openfirewatch/firewatch/internal/blob"
	"github.com/openfirewatch/firewatch/internal/classifier"
	"github.com/openfirewatch/firewatch/internal/data"
	"github.com/openfirewatch/firewatch/internal/geom"
	"github.com/openfirewatch/firewatch/internal/imgproc"
	"github.com/openfirewatch/firewatch/internal/notify"
	"github.com/openfirewatch/firewatch/internal/weather"
)

const (
	cropWidth  = 800
	cropHeight = 600

	// How many frames before the trigger go into the evidence video.
	priorFrames = 4

	notificationsPrefix = "notifications"
	productLabel        = "firewatch"
)

var blueFill = color.RGBA{B: 255, A: 255}

// Candidate is a qualified detection handed over by the pipeline.
type Candidate struct {
	Camera    *data.Camera
	Heading   int
	FOV       float64
	Timestamp int64
	ImagePath string
	Fire      classifier.FireSegment
	Polygon   geom.Polygon
	Sources   []geom.Polygon
	ModelID   string
	Stateless bool
}

// Composer turns a qualified candidate into artifacts (evidence video,
// annotated still, map), a Detection row, and, past the weather gate,
// an Alert plus a published notification.
type Composer struct {
	Models           data.Models
	Blob             *blob.Store
	Maps             *MapRenderer
	Weather          *weather.Service
	Publisher        notify.Publisher
	WorkDir          string
	FFmpegPath       string
	WeatherThreshold float64
	ProdTypes        []string
}

// Compose runs the full sequence. The returned bool reports whether an
// alert was written. Artifact failures abort the candidate; the
// Probable row written earlier by the pipeline is untouched.
func (c *Composer) Compose(ctx context.Context, cand Candidate) (bool, error) {
	current, err := imgproc.LoadJPEG(cand.ImagePath)
	if err != nil {
		return false, fmt.Errorf("load trigger frame: %w", err)
	}

	workDir, err := os.MkdirTemp(c.WorkDir, "compose-")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(workDir)

	base := strings.TrimSuffix(filepath.Base(cand.ImagePath), filepath.Ext(cand.ImagePath))

	videoPath := filepath.Join(workDir, base+"_Cropped.mp4")
	if err := c.composeVideo(ctx, cand, current, videoPath, workDir); err != nil {
		return false, fmt.Errorf("compose video: %w", err)
	}

	annotatedPath := filepath.Join(workDir, base+"_Annotated.jpg")
	if err := c.composeAnnotated(cand, current, annotatedPath); err != nil {
		return false, fmt.Errorf("compose annotated: %w", err)
	}

	mapPath := filepath.Join(workDir, base+"_Map.jpg")
	haveMap := false
	if cand.Camera.MapPath != "" {
		if err := c.Maps.Render(cand.Camera.MapPath, cand.Polygon, cand.Sources, mapPath); err != nil {
			return false, fmt.Errorf("compose map: %w", err)
		}
		haveMap = true
	}

	croppedURL, err := c.Blob.Copy(videoPath, notificationsPrefix, cand.Timestamp)
	if err != nil {
		return false, fmt.Errorf("upload video: %w", err)
	}
	annotatedURL, err := c.Blob.Copy(annotatedPath, notificationsPrefix, cand.Timestamp)
	if err != nil {
		return false, fmt.Errorf("upload annotated: %w", err)
	}
	mapURL := ""
	if haveMap {
		mapURL, err = c.Blob.Copy(mapPath, notificationsPrefix, cand.Timestamp)
		if err != nil {
			return false, fmt.Errorf("upload map: %w", err)
		}
	}

	centroid := cand.Polygon.Centroid()
	weatherScore := 1.0
	if c.Weather != nil {
		weatherScore = c.Weather.CombinedScore(ctx, cand.Camera.ID, cand.Timestamp,
			centroid[0], centroid[1], cand.Camera.Latitude, cand.Camera.Longitude,
			cand.Fire.AdjScore, len(cand.Sources))
	}

	isProto := cand.Camera.IsPrototype(c.ProdTypes)
	shouldAlert := weatherScore > c.WeatherThreshold && !isProto && !cand.Camera.IsPTZ()

	detection := data.Detection{
		CameraID:       cand.Camera.ID,
		Heading:        cand.Heading,
		Timestamp:      cand.Timestamp,
		MinX:           cand.Fire.MinX,
		MinY:           cand.Fire.MinY,
		MaxX:           cand.Fire.MaxX,
		MaxY:           cand.Fire.MaxY,
		AdjScore:       cand.Fire.AdjScore,
		Polygon:        cand.Polygon,
		SourcePolygons: sourcesToRows(cand.Sources),
		WeatherScore:   weatherScore,
		ImagePath:      cand.ImagePath,
		CroppedURL:     croppedURL,
		AnnotatedURL:   annotatedURL,
		MapURL:         mapURL,
		IsProto:        isProto,
		ModelID:        cand.ModelID,
	}
	alert := data.Alert{
		CameraID:     cand.Camera.ID,
		Timestamp:    cand.Timestamp,
		AdjScore:     cand.Fire.AdjScore,
		Polygon:      cand.Polygon,
		CroppedURL:   croppedURL,
		AnnotatedURL: annotatedURL,
		MapURL:       mapURL,
		WeatherScore: weatherScore,
	}

	err = c.Models.WithTx(ctx, func(tx data.Models) error {
		if err := tx.Detections.Insert(ctx, detection); err != nil {
			return err
		}
		if shouldAlert {
			return tx.Alerts.Insert(ctx, alert)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("record detection: %w", err)
	}
	if !shouldAlert {
		log.Printf("[Composer] detection only for %s heading %d: weather %.3f proto %v ptz %v",
			cand.Camera.ID, cand.Heading, weatherScore, isProto, cand.Camera.IsPTZ())
		return false, nil
	}

	msg := &notify.AlertMessage{
		EventID:      uuid.NewString(),
		Timestamp:    cand.Timestamp,
		CameraID:     cand.Camera.ID,
		AdjScore:     cand.Fire.AdjScore,
		AnnotatedURL: c.Blob.PublicURL(annotatedURL),
		CroppedURL:   c.Blob.PublicURL(croppedURL),
		Polygon:      cand.Polygon,
		SourcePolys:  sourcesToRows(cand.Sources),
		IsProto:      isProto,
		WeatherScore: weatherScore,
	}
	if mapURL != "" {
		msg.MapURL = c.Blob.PublicURL(mapURL)
	}
	if err := c.Publisher.Publish(msg); err != nil {
		// The alert row stays unpublished for a later republish pass.
		log.Printf("[Composer] publish failed for %s@%d: %v", cand.Camera.ID, cand.Timestamp, err)
		return true, nil
	}
	if err := c.Models.Alerts.MarkPublished(ctx, cand.Camera.ID, cand.Timestamp); err != nil {
		log.Printf("[Composer] mark published failed for %s@%d: %v", cand.Camera.ID, cand.Timestamp, err)
	}
	return true, nil
}

// composeVideo collects up to priorFrames frames before the trigger,
// the trigger itself, and at most one frame after, draws the evidence
// crop on each, and encodes the sequence.
func (c *Composer) composeVideo(ctx context.Context, cand Candidate, current image.Image, outPath, workDir string) error {
	cropRect := c.cropRect(cand, current)

	type frame struct {
		img   image.Image
		ts    int64
		color color.RGBA
	}
	var frames []frame

	before, err := c.Models.Archive.FramesBefore(ctx, cand.Camera.ID, cand.Heading, cand.Timestamp, priorFrames)
	if err != nil {
		return err
	}
	// Newest first from the store; play oldest first.
	for i := len(before) - 1; i >= 0; i-- {
		img, ok := c.loadAligned(cand, before[i].ImagePath, current)
		if !ok {
			continue
		}
		frames = append(frames, frame{img: img, ts: before[i].Timestamp, color: imgproc.BoxYellow})
	}

	frames = append(frames, frame{img: current, ts: cand.Timestamp, color: imgproc.BoxRed})

	after, err := c.Models.Archive.FrameAfter(ctx, cand.Camera.ID, cand.Heading, cand.Timestamp)
	if err != nil {
		return err
	}
	if after != nil {
		if img, ok := c.loadAligned(cand, after.ImagePath, current); ok {
			frames = append(frames, frame{img: img, ts: after.Timestamp, color: imgproc.BoxOrange})
		}
	}

	fireRect := image.Rect(cand.Fire.MinX, cand.Fire.MinY, cand.Fire.MaxX, cand.Fire.MaxY)
	var framePaths []string
	for i, f := range frames {
		crop := imgproc.ToRGBA(imgproc.Crop(f.img, cropRect))
		box := fireRect.Sub(cropRect.Min)
		imgproc.DrawRect(crop, box, f.color, 2)
		stamp := time.Unix(f.ts, 0).Format("2006-01-02 15:04:05")
		imgproc.Watermark(crop, stamp, image.Point{X: 8, Y: 18})
		imgproc.Watermark(crop, productLabel, image.Point{X: 8, Y: crop.Bounds().Dy() - 8})

		p := filepath.Join(workDir, fmt.Sprintf("seq_%03d.jpg", i))
		if err := imgproc.SaveJPEG(p, crop); err != nil {
			return err
		}
		framePaths = append(framePaths, p)
	}

	return EncodeVideo(ctx, c.FFmpegPath, framePaths, outPath)
}

// loadAligned loads a neighbor frame and, for PTZ cameras, registers it
// to the trigger frame. Frames that cannot be registered are dropped
// from the sequence rather than shown misaligned.
func (c *Composer) loadAligned(cand Candidate, path string, current image.Image) (image.Image, bool) {
	img, err := imgproc.LoadJPEG(path)
	if err != nil {
		log.Printf("[Composer] skip frame %s: %v", path, err)
		return nil, false
	}
	if !cand.Camera.IsPTZ() {
		return img, true
	}
	dx, dy, err := imgproc.AlignTranslation(img, current)
	if err != nil {
		if !errors.Is(err, imgproc.ErrNoAlignment) {
			log.Printf("[Composer] align %s: %v", path, err)
		}
		return nil, false
	}
	return imgproc.Translate(img, dx, dy), true
}

func (c *Composer) composeAnnotated(cand Candidate, current image.Image, outPath string) error {
	canvas := imgproc.ToRGBA(current)
	imgproc.DrawRect(canvas, image.Rect(cand.Fire.MinX, cand.Fire.MinY, cand.Fire.MaxX, cand.Fire.MaxY), imgproc.BoxRed, 3)
	stamp := time.Unix(cand.Timestamp, 0).Format("2006-01-02 15:04:05")
	imgproc.Watermark(canvas, stamp, image.Point{X: 8, Y: 18})
	imgproc.Watermark(canvas, productLabel, image.Point{X: 8, Y: canvas.Bounds().Dy() - 8})
	return imgproc.SaveJPEG(outPath, canvas)
}

func (c *Composer) cropRect(cand Candidate, img image.Image) image.Rectangle {
	b := img.Bounds()
	x0, x1 := imgproc.RangeFromCenter((cand.Fire.MinX+cand.Fire.MaxX)/2, cropWidth, b.Min.X, b.Max.X)
	y0, y1 := imgproc.RangeFromCenter((cand.Fire.MinY+cand.Fire.MaxY)/2, cropHeight, b.Min.Y, b.Max.Y)
	return image.Rect(x0, y0, x1, y1)
}

func sourcesToRows(sources []geom.Polygon) [][][2]float64 {
	out := make([][][2]float64, len(sources))
	for i, s := range sources {
		out[i] = [][2]float64(s)
	}
	return out
}
