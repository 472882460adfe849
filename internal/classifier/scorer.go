package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/openfirewatch/firewatch/internal/metrics"
)

// Scorer produces a smoke score in [0, 1] for each requested tile of an
// image. Implementations may batch internally; callers treat it as one
// synchronous call.
type Scorer interface {
	ScoreTiles(ctx context.Context, img image.Image, tiles []image.Rectangle) ([]float64, error)
	ModelID() string
}

// HTTPScorer talks to the scorer service over HTTP+JSON.
type HTTPScorer struct {
	URL     string
	Model   string
	Client  *http.Client
	Retries int
}

func NewHTTPScorer(url, modelID string) *HTTPScorer {
	return &HTTPScorer{
		URL:     url,
		Model:   modelID,
		Client:  &http.Client{Timeout: 60 * time.Second},
		Retries: 3,
	}
}

func (s *HTTPScorer) ModelID() string { return s.Model }

type scoreRequest struct {
	ModelID string   `json:"model_id"`
	Image   string   `json:"image"` // base64 JPEG
	Tiles   [][4]int `json:"tiles"` // min_x, min_y, max_x, max_y
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

func (s *HTTPScorer) ScoreTiles(ctx context.Context, img image.Image, tiles []image.Rectangle) ([]float64, error) {
	if len(tiles) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { metrics.ScorerLatency.Observe(time.Since(start).Seconds()) }()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	req := scoreRequest{
		ModelID: s.Model,
		Image:   base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
	for _, t := range tiles {
		req.Tiles = append(req.Tiles, [4]int{t.Min.X, t.Min.Y, t.Max.X, t.Max.Y})
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < s.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
			}
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL+"/v1/score", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := s.Client.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("scorer status %d", resp.StatusCode)
			continue
		}
		var out scoreResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if len(out.Scores) != len(tiles) {
			return nil, fmt.Errorf("scorer returned %d scores for %d tiles", len(out.Scores), len(tiles))
		}
		return out.Scores, nil
	}
	return nil, fmt.Errorf("score tiles: %w", lastErr)
}
