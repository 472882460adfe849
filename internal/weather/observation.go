package weather

// Observation is one point-in-time weather reading at a location.
// Units follow the provider: Fahrenheit, inches, mph, millibars, miles
// and percent.
type Observation struct {
	Temperature float64 `json:"temperature"`
	DewPoint    float64 `json:"dew_point"`
	Humidity    float64 `json:"humidity"`
	Precip      float64 `json:"precip"`
	WindSpeed   float64 `json:"wind_speed"`
	WindDir     float64 `json:"wind_dir"`
	Pressure    float64 `json:"pressure"`
	Visibility  float64 `json:"visibility"`
	CloudCover  float64 `json:"cloud_cover"`
}
