package models

import "time"

// LibraryEntry maps the library_entries table.
type LibraryEntry struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	Question  string      `db:"question"`
	Level     string      `db:"level"`
	ImageURLs StringSlice `db:"image_urls"`
	RunID     string      `db:"run_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

// WorkflowRun maps the workflow_runs table.
type WorkflowRun struct {
	ID        string    `db:"id"`
	RunID     string    `db:"run_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
