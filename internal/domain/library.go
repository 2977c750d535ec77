package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrLibraryEntryNotFound is returned by repositories when no row matched.
var ErrLibraryEntryNotFound = errors.New("library entry not found")

// LibraryEntry is a persisted, user-visible record of one completed generation.
type LibraryEntry struct {
	ID        string
	Title     string
	Question  string
	Level     string
	ImageURLs []string
	RunID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLibraryEntry builds an entry for a completed run. An empty image list is
// rejected: a run without images is reported as succeeded_but_empty instead.
func NewLibraryEntry(title, question, level string, imageURLs []string, runID string) (*LibraryEntry, error) {
	entry := &LibraryEntry{
		Title:     title,
		Question:  question,
		Level:     level,
		ImageURLs: imageURLs,
		RunID:     runID,
	}
	if entry.Title == "" {
		entry.Title = TruncateRunes(question, TitleMaxRunes)
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (e *LibraryEntry) Validate() error {
	var errs ValidationErrors
	if len(e.ImageURLs) == 0 {
		errs = append(errs, NewMissingFieldError("image_urls"))
	}
	if strings.TrimSpace(e.RunID) == "" {
		errs = append(errs, NewMissingFieldError("run_id"))
	}
	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, NewMissingFieldError("title"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LibraryUpdate carries the editable subset of a LibraryEntry. Nil fields are left untouched.
type LibraryUpdate struct {
	Title    *string
	Question *string
	Level    *string
}

// LibraryRepository is the relational store of library entries.
type LibraryRepository interface {
	Create(ctx context.Context, entry *LibraryEntry) error
	// List returns every entry, newest first.
	List(ctx context.Context) ([]*LibraryEntry, error)
	// GetByID returns nil, nil when the entry does not exist.
	GetByID(ctx context.Context, id string) (*LibraryEntry, error)
	// GetByRunID returns nil, nil when no entry was created for the run.
	GetByRunID(ctx context.Context, runID string) (*LibraryEntry, error)
	// Update returns ErrLibraryEntryNotFound when nothing matched.
	Update(ctx context.Context, id string, update LibraryUpdate) (*LibraryEntry, error)
	// Delete returns ErrLibraryEntryNotFound when nothing matched.
	Delete(ctx context.Context, id string) error
}
