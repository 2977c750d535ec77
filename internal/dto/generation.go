package dto

// GenerationRequest is the body of the initiate and stream endpoints.
// @Description Question and reader level a manga is generated for
type GenerationRequest struct {
	UserQuestion string `json:"user_question" example:"光合成のしくみを教えて"`
	UserLevel    string `json:"user_level" example:"小学6年生"`
}

// InitiateResponse correlates a started run with later status checks.
// @Description Identifiers of a started workflow run
type InitiateResponse struct {
	WorkflowRunID string `json:"workflow_run_id"`
	TaskID        string `json:"task_id"`
	Message       string `json:"message,omitempty"`
	Degraded      bool   `json:"degraded"`
}

// StatusResponse is the outcome of one status check.
// @Description Status of a workflow run; imageUrls is only set on success
type StatusResponse struct {
	Status    string   `json:"status" enums:"pending,succeeded,succeeded_but_empty,failed,unreadable"`
	ImageURLs []string `json:"imageUrls,omitempty"`
	Message   string   `json:"message,omitempty"`
	LibraryID string   `json:"library_id,omitempty"`
	Degraded  bool     `json:"degraded,omitempty"`
}
