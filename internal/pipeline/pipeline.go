package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/openfirewatch/firewatch/internal/blob"
	"github.com/openfirewatch/firewatch/internal/classifier"
	"github.com/openfirewatch/firewatch/internal/composer"
	"github.com/openfirewatch/firewatch/internal/data"
	"github.com/openfirewatch/firewatch/internal/geom"
	"github.com/openfirewatch/firewatch/internal/imagesource"
	"github.com/openfirewatch/firewatch/internal/imgproc"
)

// probablesPrefix is the blob prefix owned by the pipeline for
// candidate evidence images.
const probablesPrefix = "probables"

// probableDedupSeconds suppresses repeat probables for the same camera
// and heading within an hour.
const probableDedupSeconds = 3600

// Outcome says where in the state machine an image stopped.
type Outcome string

const (
	OutcomeDropped   Outcome = "dropped"
	OutcomeNoFire    Outcome = "no_fire"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeOffLand   Outcome = "off_land"
	OutcomeDetected  Outcome = "detected"
	OutcomeAlerted   Outcome = "alerted"
)

// Pipeline runs one image through classification, the historical
// filter, geometric qualification and, when everything holds,
// composition and publication.
type Pipeline struct {
	Models    data.Models
	Policy    classifier.Policy
	Composer  *composer.Composer
	Blob      *blob.Store
	LandMask  geom.Polygon
	ModelID   string
	Stateless bool
}

// Process consumes one fetched frame. The archive row is marked
// processed regardless of outcome so the frame is never replayed.
func (p *Pipeline) Process(ctx context.Context, camera *data.Camera, frame imagesource.Frame) (Outcome, error) {
	defer func() {
		if err := p.Models.Archive.MarkProcessed(ctx, frame.CameraID, frame.Heading, frame.Timestamp); err != nil {
			log.Printf("[Pipeline] mark processed %s@%d: %v", frame.CameraID, frame.Timestamp, err)
		}
	}()

	img, err := imgproc.LoadJPEG(frame.ImagePath)
	if err != nil {
		return OutcomeDropped, fmt.Errorf("load %s: %w", frame.ImagePath, err)
	}

	result, err := p.Policy.Detect(ctx, classifier.Request{
		CameraID:   camera.ID,
		Heading:    frame.Heading,
		Timestamp:  frame.Timestamp,
		Image:      img,
		ROI:        p.roi(camera, img),
		Stateless:  p.Stateless,
		FetchPrior: p.priorLoader(camera, frame),
	})
	if err != nil {
		return OutcomeDropped, fmt.Errorf("classify %s@%d: %w", frame.CameraID, frame.Timestamp, err)
	}
	if result.Fire == nil {
		return OutcomeNoFire, nil
	}
	fire := result.Fire

	dup, err := p.Models.Probables.RecentExists(ctx, camera.ID, frame.Heading, frame.Timestamp-probableDedupSeconds)
	if err != nil {
		return OutcomeDropped, err
	}
	if dup {
		log.Printf("[Pipeline] duplicate probable for %s heading %d, suppressed", camera.ID, frame.Heading)
		return OutcomeDuplicate, nil
	}

	if _, err := p.Blob.Copy(frame.ImagePath, probablesPrefix, frame.Timestamp); err != nil {
		log.Printf("[Pipeline] probable evidence upload failed for %s: %v", camera.ID, err)
	}
	probable := data.Probable{
		CameraID:  camera.ID,
		Heading:   frame.Heading,
		Timestamp: frame.Timestamp,
		MinX:      fire.MinX,
		MinY:      fire.MinY,
		MaxX:      fire.MaxX,
		MaxY:      fire.MaxY,
		Score:     fire.Score,
		AdjScore:  fire.AdjScore,
		HistAvg:   fire.HistAvg,
		HistMax:   fire.HistMax,
		HistN:     fire.HistN,
		ImagePath: frame.ImagePath,
		ModelID:   p.ModelID,
	}
	if err := p.Models.Probables.Insert(ctx, probable); err != nil {
		return OutcomeDropped, err
	}

	sector := geom.HeadingRange(float64(frame.Heading), frame.FieldOfView,
		fire.MinX, fire.MaxX, img.Bounds().Dx())

	views, err := p.Models.IgnoredViews.List(ctx)
	if err != nil {
		return OutcomeDropped, err
	}
	if v := geom.MatchIgnoredView(views, camera.ID, sector); v != nil {
		if err := p.Models.IgnoredViews.IncrementCount(ctx, v.CameraID, v.HeadingCenter); err != nil && !errors.Is(err, data.ErrRecordNotFound) {
			log.Printf("[Pipeline] ignore counter for %s: %v", camera.ID, err)
		}
		log.Printf("[Pipeline] %s heading %.1f width %.1f suppressed by ignored view %.1f/%.1f",
			camera.ID, sector.Heading, sector.Width, v.HeadingCenter, v.AngularWidth)
		return OutcomeIgnored, nil
	}

	tri := geom.ViewshedTriangle(camera.Latitude, camera.Longitude, sector)
	land := geom.IntersectLand(tri, p.LandMask)
	if land == nil {
		log.Printf("[Pipeline] %s heading %.1f viewshed entirely off land", camera.ID, sector.Heading)
		return OutcomeOffLand, nil
	}

	recent, err := p.Models.Detections.Recent(ctx, frame.Timestamp-geom.RecentWindowSeconds)
	if err != nil {
		return OutcomeDropped, err
	}
	inter := geom.IntersectRecentDetections(land, recent)

	alerted, err := p.Composer.Compose(ctx, composer.Candidate{
		Camera:    camera,
		Heading:   frame.Heading,
		FOV:       frame.FieldOfView,
		Timestamp: frame.Timestamp,
		ImagePath: frame.ImagePath,
		Fire:      *fire,
		Polygon:   inter.Polygon,
		Sources:   inter.SourcePolygons,
		ModelID:   p.ModelID,
		Stateless: p.Stateless,
	})
	if err != nil {
		return OutcomeDropped, fmt.Errorf("compose %s@%d: %w", camera.ID, frame.Timestamp, err)
	}
	if alerted {
		return OutcomeAlerted, nil
	}
	return OutcomeDetected, nil
}

// roi returns the camera's usable Y band, or a default interior band
// that trims the sky and foreground strips.
func (p *Pipeline) roi(camera *data.Camera, img image.Image) image.Rectangle {
	b := img.Bounds()
	minY, maxY := b.Min.Y+b.Dy()/10, b.Max.Y-b.Dy()/10
	if camera.UsableMinY != nil {
		minY = *camera.UsableMinY
	}
	if camera.UsableMaxY != nil {
		maxY = *camera.UsableMaxY
	}
	return image.Rect(b.Min.X, minY, b.Max.X, maxY)
}

// priorLoader lazily loads the most recent earlier frame for the same
// camera and heading, for difference-based policies.
func (p *Pipeline) priorLoader(camera *data.Camera, frame imagesource.Frame) func(context.Context) (image.Image, error) {
	return func(ctx context.Context) (image.Image, error) {
		rows, err := p.Models.Archive.FramesBefore(ctx, camera.ID, frame.Heading, frame.Timestamp, 1)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("no prior frame for %s heading %d", camera.ID, frame.Heading)
		}
		return imgproc.LoadJPEG(rows[0].ImagePath)
	}
}
