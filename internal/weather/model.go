package weather

import (
	"fmt"
	"math"
)

// FeatureCount is the fixed width of the model input vector.
const FeatureCount = 11

// Features builds the model input from the image score, the number of
// corroborating polygons, and the observation at the fire centroid.
// Each component is centered and scaled to roughly unit range.
func Features(imgScore float64, numSourcePolys int, obs *Observation) [FeatureCount]float64 {
	return [FeatureCount]float64{
		2 * (imgScore - 0.5),
		float64(numSourcePolys - 1),
		(obs.Temperature - 70) / 20,
		(obs.DewPoint - 50) / 20,
		(obs.Humidity - 50) / 50,
		5 * obs.Precip,
		(obs.WindSpeed - 6) / 6,
		(obs.WindDir - 180) / 180,
		(obs.Pressure - 1013) / 10,
		(obs.Visibility - 5) / 5,
		(obs.CloudCover - 50) / 50,
	}
}

// Model is a logistic regression over the fixed feature vector.
type Model struct {
	Weights [FeatureCount]float64
	Bias    float64
}

// NewModel validates the configured coefficient list.
func NewModel(weights []float64, bias float64) (*Model, error) {
	if len(weights) != FeatureCount {
		return nil, fmt.Errorf("weather model needs %d weights, got %d", FeatureCount, len(weights))
	}
	m := &Model{Bias: bias}
	copy(m.Weights[:], weights)
	return m, nil
}

// Predict returns the model probability in (0, 1).
func (m *Model) Predict(features [FeatureCount]float64) float64 {
	z := m.Bias
	for i, w := range m.Weights {
		z += w * features[i]
	}
	return 1 / (1 + math.Exp(-z))
}
