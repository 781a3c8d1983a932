package events

import (
	"time"

	"github.com/raaihank/data-sentinel/internal/audit"
)

// Type classifies events pushed to websocket subscribers.
type Type string

const (
	// TypeScrubActivity carries the audit projection of one scrub run.
	TypeScrubActivity Type = "scrub_activity"
	// TypeSystemStatus carries periodic service health snapshots.
	TypeSystemStatus Type = "system_status"
	// TypeConnection announces subscriber churn.
	TypeConnection Type = "connection"
)

// Event is the envelope sent to clients.
type Event struct {
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ScrubActivity summarizes one scrub run. Entries carry no original
// values, so the feed is safe to expose to dashboards.
type ScrubActivity struct {
	RunID   string         `json:"run_id"`
	Dataset string         `json:"dataset,omitempty"`
	Actions map[string]int `json:"actions"`
	Entries []audit.Entry  `json:"entries"`
}

// SystemStatus is the periodic health snapshot.
type SystemStatus struct {
	Status              string `json:"status"`
	Uptime              string `json:"uptime"`
	ActivePolicy        string `json:"active_policy"`
	RegisteredDetectors int    `json:"registered_detectors"`
	ConnectedClients    int    `json:"connected_clients"`
}

// Connection announces a subscriber joining or leaving.
type Connection struct {
	Action   string `json:"action"`
	ClientID string `json:"client_id"`
}

// Subscription restricts which event types a client receives. Empty means
// everything.
type Subscription struct {
	Events []Type `json:"events"`
}

// clientMessage is what subscribers may send upstream.
type clientMessage struct {
	Type string       `json:"type"`
	Data Subscription `json:"data"`
}
