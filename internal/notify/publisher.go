package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// AlertMessage is the payload external consumers receive for a
// confirmed fire.
type AlertMessage struct {
	EventID      string         `json:"eventID"`
	Timestamp    int64          `json:"timestamp"`
	CameraID     string         `json:"cameraID"`
	AdjScore     float64        `json:"adjScore"`
	AnnotatedURL string         `json:"annotatedUrl"`
	CroppedURL   string         `json:"croppedUrl"`
	MapURL       string         `json:"mapUrl"`
	Polygon      [][2]float64   `json:"polygon"`
	SourcePolys  [][][2]float64 `json:"sourcePolygons,omitempty"`
	IsProto      bool           `json:"isProto"`
	WeatherScore float64        `json:"weatherScore"`
}

// Publisher pushes alert messages onto the notification bus.
type Publisher interface {
	Publish(msg *AlertMessage) error
}

// NATSPublisher publishes alerts to a NATS subject with bounded,
// linearly backed-off retries. Alerts are rare, so a failed publish is
// worth a few seconds of retrying before the caller falls back to the
// unpublished-alert republish path.
type NATSPublisher struct {
	conn       *nats.Conn
	subject    string
	maxRetries int
}

func NewNATSPublisher(conn *nats.Conn, subject string, maxRetries int) *NATSPublisher {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &NATSPublisher{
		conn:       conn,
		subject:    subject,
		maxRetries: maxRetries,
	}
}

func (p *NATSPublisher) Publish(msg *AlertMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err = p.conn.Publish(p.subject, payload)
		if err == nil {
			return nil
		}
		if attempt >= p.maxRetries {
			break
		}
		log.Printf("[Notify] publish attempt %d for %s@%d failed: %v",
			attempt+1, msg.CameraID, msg.Timestamp, err)
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	return fmt.Errorf("publish alert after %d retries: %w", p.maxRetries, err)
}
