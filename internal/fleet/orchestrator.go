package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Orchestrator manages externally hosted worker groups.
type Orchestrator interface {
	GetGroup(ctx context.Context, name string) (int, error)
	Resize(ctx context.Context, name string, size int) error
}

// HTTPOrchestrator talks to the group orchestrator's REST API.
type HTTPOrchestrator struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPOrchestrator(baseURL string) *HTTPOrchestrator {
	return &HTTPOrchestrator{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *HTTPOrchestrator) GetGroup(ctx context.Context, name string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/groups/%s", o.BaseURL, name), nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get group %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("get group %s: status %d", name, resp.StatusCode)
	}
	var out struct {
		Size int `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("get group %s: %w", name, err)
	}
	return out.Size, nil
}

func (o *HTTPOrchestrator) Resize(ctx context.Context, name string, size int) error {
	body, err := json.Marshal(map[string]int{"size": size})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/v1/groups/%s", o.BaseURL, name), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.Client.Do(req)
	if err != nil {
		return fmt.Errorf("resize group %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("resize group %s: status %d", name, resp.StatusCode)
	}
	return nil
}
