package config

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Settings is the immutable configuration snapshot for a process.
// Construct once at startup with Load and pass by reference; hot
// reloads swap the pointer held by Manager.
type Settings struct {
	DB struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"db"`

	NATSURL      string `yaml:"nats_url"`
	AlertSubject string `yaml:"alert_subject"`
	RedisAddr    string `yaml:"redis_addr"`

	ScorerURL       string `yaml:"scorer_url"`
	ModelID         string `yaml:"model_id"`
	OrchestratorURL string `yaml:"orchestrator_url"`
	// VerifierModels lists the model IDs the multi policy confirms
	// candidates with.
	VerifierModels []string `yaml:"verifier_models"`

	WeatherURL       string  `yaml:"weather_url"`
	WeatherKey       string  `yaml:"weather_key"`
	WeatherThreshold float64 `yaml:"weather_threshold"`
	// Linear weather model: 11 weights plus bias (see weather.Features).
	WeatherWeights []float64 `yaml:"weather_weights"`
	WeatherBias    float64   `yaml:"weather_bias"`

	BlobRoot      string `yaml:"blob_root"`
	PublicURLBase string `yaml:"public_url_base"`

	ArchiveDir   string        `yaml:"archive_dir"`
	DetectStart  string        `yaml:"detect_start"` // wall clock "HH:MM"
	DetectEnd    string        `yaml:"detect_end"`
	DetectGroups []DetectGroup `yaml:"detect_groups"`
	ProdTypes    []string      `yaml:"prod_types"`

	// Land mask as a closed polygon of [lat, lon] pairs.
	LandMask [][2]float64 `yaml:"land_mask"`

	ListenAddr string `yaml:"listen_addr"`
}

type DetectGroup struct {
	Name   string `yaml:"name"`
	Target int    `yaml:"target"`
}

// Load reads the YAML settings file and applies environment overrides
// for deployment-specific values (DB credentials, endpoints).
func Load(path string) (*Settings, error) {
	var s Settings
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}
	applyEnv(&s)
	if s.DB.Host == "" {
		s.DB.Host = "localhost"
	}
	if s.DB.Port == 0 {
		s.DB.Port = 5432
	}
	if s.DB.SSLMode == "" {
		s.DB.SSLMode = "disable"
	}
	if s.AlertSubject == "" {
		s.AlertSubject = "firewatch.alerts"
	}
	if s.WeatherThreshold == 0 {
		s.WeatherThreshold = 0.25
	}
	if s.ListenAddr == "" {
		s.ListenAddr = ":9190"
	}
	return &s, nil
}

func applyEnv(s *Settings) {
	if v := os.Getenv("DB_HOST"); v != "" {
		s.DB.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			s.DB.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		s.DB.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		s.DB.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		s.DB.Name = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		s.DB.SSLMode = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		s.NATSURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		s.RedisAddr = v
	}
	if v := os.Getenv("SCORER_URL"); v != "" {
		s.ScorerURL = v
	}
	if v := os.Getenv("WEATHER_KEY"); v != "" {
		s.WeatherKey = v
	}
}

// DSN returns the postgres connection string.
func (s *Settings) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.DB.User, s.DB.Password, s.DB.Host, s.DB.Port, s.DB.Name, s.DB.SSLMode)
}

// Manager holds the current Settings and supports atomic replacement
// from the file watcher.
type Manager struct {
	path string
	cur  atomic.Pointer[Settings]
}

func NewManager(path string, s *Settings) *Manager {
	m := &Manager{path: path}
	m.cur.Store(s)
	return m
}

// Current returns the active settings snapshot.
func (m *Manager) Current() *Settings {
	return m.cur.Load()
}

// Reload re-reads the settings file and swaps the snapshot. Errors keep
// the previous snapshot in place.
func (m *Manager) Reload() error {
	s, err := Load(m.path)
	if err != nil {
		return err
	}
	m.cur.Store(s)
	return nil
}
