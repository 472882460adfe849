package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openfirewatch/firewatch/internal/data"
)

// hotTTL bounds how long an observation stays in Redis. Fetch cycles
// for one candidate all land within a couple of minutes.
const hotTTL = 30 * time.Minute

// pair is the cached unit: conditions at the estimated fire location
// and at the camera itself.
type pair struct {
	Centroid Observation `json:"centroid"`
	Camera   Observation `json:"camera"`
}

// Service resolves weather for a detection candidate through a
// two-tier cache (Redis, then the weather table) in front of the
// external provider, and turns observations into a combined score.
type Service struct {
	Provider Provider
	Model    *Model
	Cache    data.WeatherCacheModel
	Redis    *redis.Client
	Source   string
}

func NewService(provider Provider, model *Model, cache data.WeatherCacheModel, rdb *redis.Client, source string) *Service {
	return &Service{Provider: provider, Model: model, Cache: cache, Redis: rdb, Source: source}
}

// Get returns observations at the centroid and at the camera for the
// given candidate, consulting the caches before the provider.
func (s *Service) Get(ctx context.Context, cameraID string, ts int64, centroidLat, centroidLon, camLat, camLon float64) (*Observation, *Observation, error) {
	key := fmt.Sprintf("weather:%s:%d", cameraID, ts)

	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var p pair
			if json.Unmarshal(raw, &p) == nil {
				return &p.Centroid, &p.Camera, nil
			}
		}
	}

	if raw, err := s.Cache.Get(ctx, cameraID, ts, s.Source); err == nil {
		var p pair
		if json.Unmarshal(raw, &p) == nil {
			s.warmRedis(ctx, key, raw)
			return &p.Centroid, &p.Camera, nil
		}
	} else if !errors.Is(err, data.ErrRecordNotFound) {
		log.Printf("[Weather] cache read failed for %s: %v", cameraID, err)
	}

	atCentroid, err := s.Provider.Current(ctx, centroidLat, centroidLon)
	if err != nil {
		return nil, nil, err
	}
	atCamera, err := s.Provider.Current(ctx, camLat, camLon)
	if err != nil {
		return nil, nil, err
	}

	raw, err := json.Marshal(pair{Centroid: *atCentroid, Camera: *atCamera})
	if err == nil {
		if err := s.Cache.Put(ctx, cameraID, ts, raw, s.Source); err != nil {
			log.Printf("[Weather] cache write failed for %s: %v", cameraID, err)
		}
		s.warmRedis(ctx, key, raw)
	}
	return atCentroid, atCamera, nil
}

func (s *Service) warmRedis(ctx context.Context, key string, raw []byte) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Set(ctx, key, raw, hotTTL).Err(); err != nil {
		log.Printf("[Weather] redis set failed: %v", err)
	}
}

// CombinedScore blends the image evidence with conditions at the fire
// centroid. Weather must never block an alert on its own failure, so
// any error short-circuits to 1.0 and the caller's threshold passes.
func (s *Service) CombinedScore(ctx context.Context, cameraID string, ts int64, centroidLat, centroidLon, camLat, camLon, imgScore float64, numSourcePolys int) float64 {
	atCentroid, _, err := s.Get(ctx, cameraID, ts, centroidLat, centroidLon, camLat, camLon)
	if err != nil {
		log.Printf("[Weather] lookup failed for %s, passing through: %v", cameraID, err)
		return 1.0
	}
	return s.Model.Predict(Features(imgScore, numSourcePolys, atCentroid))
}
