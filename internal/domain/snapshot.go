package domain

import "time"

// SnapshotVersion is bumped whenever the Snapshot layout changes; older
// snapshots are discarded on load.
const SnapshotVersion = 1

// Snapshot is the client state a browser session persists across reloads.
type Snapshot struct {
	Version    int       `json:"version"`
	Question   string    `json:"question"`
	Level      string    `json:"level"`
	ImageURLs  []string  `json:"image_urls"`
	Step       string    `json:"step"`
	Tab        string    `json:"tab"`
	RunID      string    `json:"run_id,omitempty"`
	Generating bool      `json:"generating"`
	SavedAt    time.Time `json:"saved_at"`
}

// Expired reports whether the snapshot is older than ttl at now.
func (s *Snapshot) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.SavedAt) > ttl
}

// Client steps and tabs a snapshot may record.
var (
	SnapshotSteps = []string{"intro", "form", "generating", "result"}
	SnapshotTabs  = []string{"generate", "library"}
)
