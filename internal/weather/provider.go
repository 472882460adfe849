package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Provider fetches current conditions for a coordinate.
type Provider interface {
	Current(ctx context.Context, lat, lon float64) (*Observation, error)
}

// HTTPProvider queries an external weather API over HTTP+JSON.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (p *HTTPProvider) Current(ctx context.Context, lat, lon float64) (*Observation, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.5f", lat))
	q.Set("lon", fmt.Sprintf("%.5f", lon))
	if p.APIKey != "" {
		q.Set("key", p.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.BaseURL+"/v1/current?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather status %d", resp.StatusCode)
	}
	var obs Observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return nil, fmt.Errorf("weather decode: %w", err)
	}
	return &obs, nil
}
