package dto

import "dify-manga/internal/domain"

func ToMangaResponse(e *domain.LibraryEntry) MangaResponse {
	images := e.ImageURLs
	if images == nil {
		images = []string{}
	}
	return MangaResponse{
		ID:            e.ID,
		Title:         e.Title,
		Question:      e.Question,
		Level:         e.Level,
		ImageURLs:     images,
		WorkflowRunID: e.RunID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func ToMangaListResponse(entries []*domain.LibraryEntry) MangaListResponse {
	mangas := make([]MangaResponse, 0, len(entries))
	for _, e := range entries {
		mangas = append(mangas, ToMangaResponse(e))
	}
	return MangaListResponse{Success: true, Mangas: mangas, Count: len(mangas)}
}

func ToStatusResponse(r *domain.StatusResult) StatusResponse {
	return StatusResponse{
		Status:    string(r.Status),
		ImageURLs: r.ImageURLs,
		Message:   r.Message,
		LibraryID: r.LibraryID,
		Degraded:  r.Degraded,
	}
}

func (r SnapshotRequest) ToDomain() domain.Snapshot {
	return domain.Snapshot{
		Question:   r.Question,
		Level:      r.Level,
		ImageURLs:  r.ImageURLs,
		Step:       r.Step,
		Tab:        r.Tab,
		RunID:      r.RunID,
		Generating: r.Generating,
	}
}

func ToSnapshotResponse(s *domain.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Version:    s.Version,
		Question:   s.Question,
		Level:      s.Level,
		ImageURLs:  s.ImageURLs,
		Step:       s.Step,
		Tab:        s.Tab,
		RunID:      s.RunID,
		Generating: s.Generating,
		SavedAt:    s.SavedAt,
	}
}
