package dto

import "time"

// MangaResponse is one library entry.
// @Description Saved manga
type MangaResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Question      string    `json:"question"`
	Level         string    `json:"level"`
	ImageURLs     []string  `json:"image_urls"`
	WorkflowRunID string    `json:"workflow_run_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MangaListResponse lists the library newest first.
type MangaListResponse struct {
	Success bool            `json:"success"`
	Mangas  []MangaResponse `json:"mangas"`
	Count   int             `json:"count"`
}

type MangaDetailResponse struct {
	Success bool          `json:"success"`
	Manga   MangaResponse `json:"manga"`
}

// UpdateMangaRequest edits a library entry. Omitted fields are left unchanged.
// @Description Editable subset of a library entry
type UpdateMangaRequest struct {
	Title    *string `json:"title,omitempty"`
	Question *string `json:"question,omitempty"`
	Level    *string `json:"level,omitempty"`
}

// SuccessResponse acknowledges an operation without a payload.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
