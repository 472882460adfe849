package imagesource

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/openfirewatch/firewatch/internal/data"
)

const (
	fetchRetries = 3
	retryBackoff = 5 * time.Second
	ptzBatchSpan = 5 * time.Minute
	defaultFOV   = 110.0
)

// Frame is one fetched image with its metadata, ready for the pipeline.
type Frame struct {
	CameraID    string
	Heading     int
	Timestamp   int64
	ImagePath   string
	FieldOfView float64
}

// Fetcher retrieves current images for cameras and indexes them in the
// short-term archive. The last-seen content hash per camera is process
// local; a lost dedupe across processes is harmless.
type Fetcher struct {
	Archive    data.ArchiveModel
	Dir        string
	HTTPClient *http.Client

	mu         sync.Mutex
	lastHashes map[string]string
}

func NewFetcher(archive data.ArchiveModel, dir string) *Fetcher {
	return &Fetcher{
		Archive:    archive,
		Dir:        dir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		lastHashes: make(map[string]string),
	}
}

// Fetch returns zero or more frames for the camera:
//   - fixed cameras: at most one fresh frame (none when the content hash
//     is unchanged or the fetch fails);
//   - PTZ cameras: the current frame is downloaded and archived like any
//     other (heading taken from per-image metadata), then the whole
//     unprocessed per-heading batch of the last five minutes is returned
//     in ascending time order.
func (f *Fetcher) Fetch(ctx context.Context, camera *data.Camera, now int64) ([]Frame, error) {
	if camera.IsPTZ() {
		if _, err := f.fetchLive(ctx, camera, now); err != nil {
			return nil, err
		}
		return f.fetchPTZBatch(ctx, camera, now)
	}
	frame, err := f.fetchLive(ctx, camera, now)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, nil
	}
	return []Frame{*frame}, nil
}

func (f *Fetcher) fetchLive(ctx context.Context, camera *data.Camera, now int64) (*Frame, error) {
	body, meta, err := f.download(ctx, camera.URL)
	if err != nil {
		log.Printf("[Fetcher] Error fetching image from %s: %v", camera.ID, err)
		// Contract violation: record a sentinel row so the camera is
		// not retried for roughly one cycle.
		sentinel := data.ArchiveImage{
			CameraID:  camera.ID,
			Heading:   data.SentinelHeading,
			Timestamp: now,
			Processed: true,
		}
		if dbErr := f.Archive.Insert(ctx, sentinel); dbErr != nil {
			log.Printf("[Fetcher] Error recording sentinel for %s: %v", camera.ID, dbErr)
		}
		return nil, nil
	}

	sum := md5.Sum(body)
	hash := hex.EncodeToString(sum[:])
	f.mu.Lock()
	unchanged := f.lastHashes[camera.ID] == hash
	f.lastHashes[camera.ID] = hash
	f.mu.Unlock()
	if unchanged {
		return nil, nil
	}

	ts := meta.timestamp
	if ts == 0 {
		ts = now
	}
	heading := 0
	if camera.Heading != nil {
		heading = int(*camera.Heading)
	}
	if meta.heading != nil {
		heading = *meta.heading
	}
	fov := defaultFOV
	if camera.FOV != nil {
		fov = *camera.FOV
	}
	if meta.fov != 0 {
		fov = meta.fov
	}

	imgPath := ImagePath(f.Dir, camera.ID, ts, 0, nil)
	if err := os.WriteFile(imgPath, body, 0o644); err != nil {
		return nil, fmt.Errorf("write image %s: %w", imgPath, err)
	}

	row := data.ArchiveImage{
		CameraID:    camera.ID,
		Heading:     heading,
		Timestamp:   ts,
		ImagePath:   imgPath,
		FieldOfView: fov,
		Processed:   false,
	}
	if err := f.Archive.Insert(ctx, row); err != nil {
		os.Remove(imgPath)
		return nil, err
	}
	return &Frame{
		CameraID:    camera.ID,
		Heading:     heading,
		Timestamp:   ts,
		ImagePath:   imgPath,
		FieldOfView: fov,
	}, nil
}

func (f *Fetcher) fetchPTZBatch(ctx context.Context, camera *data.Camera, now int64) ([]Frame, error) {
	rows, err := f.Archive.RecentUnprocessed(ctx, camera.ID, now-int64(ptzBatchSpan.Seconds()))
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, 0, len(rows))
	for _, r := range rows {
		frames = append(frames, Frame{
			CameraID:    r.CameraID,
			Heading:     r.Heading,
			Timestamp:   r.Timestamp,
			ImagePath:   r.ImagePath,
			FieldOfView: r.FieldOfView,
		})
	}
	return frames, nil
}

type imageMeta struct {
	heading   *int
	timestamp int64
	fov       float64
}

// download performs the HTTP fetch with bounded retries. Camera servers
// optionally report heading, capture time and field of view in headers.
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, imageMeta, error) {
	var lastErr error
	for attempt := 0; attempt < fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, imageMeta{}, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, imageMeta{}, err
		}
		resp, err := f.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		var meta imageMeta
		if h := resp.Header.Get("X-Heading"); h != "" {
			if v, err := strconv.Atoi(h); err == nil {
				meta.heading = &v
			}
		}
		if t := resp.Header.Get("X-Timestamp"); t != "" {
			if v, err := strconv.ParseInt(t, 10, 64); err == nil {
				meta.timestamp = v
			}
		}
		if fv := resp.Header.Get("X-FOV"); fv != "" {
			if v, err := strconv.ParseFloat(fv, 64); err == nil {
				meta.fov = v
			}
		}
		return body, meta, nil
	}
	return nil, imageMeta{}, fmt.Errorf("fetch %s: %w", url, lastErr)
}
