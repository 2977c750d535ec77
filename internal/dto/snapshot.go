package dto

import "time"

// SnapshotRequest is the client state saved for a browser session.
// @Description Client state persisted across reloads
type SnapshotRequest struct {
	Question   string   `json:"question"`
	Level      string   `json:"level"`
	ImageURLs  []string `json:"image_urls"`
	Step       string   `json:"step" enums:"intro,form,generating,result"`
	Tab        string   `json:"tab" enums:"generate,library"`
	RunID      string   `json:"run_id,omitempty"`
	Generating bool     `json:"generating"`
}

type SnapshotResponse struct {
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

// HealthResponse reports dependency reachability.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}
