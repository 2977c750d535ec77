package domain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// GenerationRequest is one user submission. It is never mutated after creation.
type GenerationRequest struct {
	Question string
	Level    string
}

// NewGenerationRequest trims both fields.
func NewGenerationRequest(question, level string) GenerationRequest {
	return GenerationRequest{
		Question: strings.TrimSpace(question),
		Level:    strings.TrimSpace(level),
	}
}

// RunHandle correlates a submitted request with its eventual result.
type RunHandle struct {
	RunID  string
	TaskID string
}

// InitiationResult is what the initiator hands back to callers. Degraded is
// set when the remote service was unavailable and RunID is a local placeholder.
type InitiationResult struct {
	Handle   RunHandle
	Degraded bool
	Message  string
}

// RunStatus is the caller-facing status of a workflow run.
type RunStatus string

const (
	RunStatusPending           RunStatus = "pending"
	RunStatusSucceeded         RunStatus = "succeeded"
	RunStatusSucceededButEmpty RunStatus = "succeeded_but_empty"
	RunStatusFailed            RunStatus = "failed"
	RunStatusUnreadable        RunStatus = "unreadable"
)

// Terminal reports whether polling should stop at this status.
func (s RunStatus) Terminal() bool {
	return s != RunStatusPending
}

// StatusResult is the outcome of one status resolution.
type StatusResult struct {
	RunID     string
	Status    RunStatus
	ImageURLs []string
	Message   string
	Degraded  bool
	LibraryID string
}

// Remote run states as reported by Dify.
const (
	RemoteStatusRunning   = "running"
	RemoteStatusSucceeded = "succeeded"
	RemoteStatusFailed    = "failed"
	RemoteStatusStopped   = "stopped"
)

// WorkflowRunDetail is the remote view of a run. Outputs and Inputs are kept
// raw because the service returns them either as objects or as JSON strings.
type WorkflowRunDetail struct {
	ID      string
	Status  string
	Outputs json.RawMessage
	Inputs  json.RawMessage
}

// Workflow stream event names.
const (
	WorkflowEventStarted      = "workflow_started"
	WorkflowEventNodeFinished = "node_finished"
	WorkflowEventFinished     = "workflow_finished"
)

// WorkflowEvent is one decoded `data:` frame of the remote event stream.
type WorkflowEvent struct {
	Event         string            `json:"event"`
	TaskID        string            `json:"task_id"`
	WorkflowRunID string            `json:"workflow_run_id"`
	Data          WorkflowEventData `json:"data"`
}

type WorkflowEventData struct {
	ID       string          `json:"id"`
	NodeType string          `json:"node_type"`
	Status   string          `json:"status"`
	Outputs  json.RawMessage `json:"outputs"`
	Error    string          `json:"error"`
}

// WorkflowClient is the port to the remote generation service.
type WorkflowClient interface {
	// StartRun submits a run and returns as soon as the run id is known,
	// reading at most maxReads chunks of a streamed response.
	StartRun(ctx context.Context, req GenerationRequest, maxReads int) (*RunHandle, error)
	// GetRun queries the current state of a run once.
	GetRun(ctx context.Context, runID string) (*WorkflowRunDetail, error)
	// StreamRun submits a run and calls onEvent for every event until the
	// stream ends or onEvent returns an error (ErrStopStream ends it cleanly).
	StreamRun(ctx context.Context, req GenerationRequest, onEvent func(WorkflowEvent) error) error
}

// ErrStopStream lets an event callback end a stream without reporting failure.
var ErrStopStream = stopStreamError{}

type stopStreamError struct{}

func (stopStreamError) Error() string { return "stop stream" }

// ErrStorageDisabled is returned by image stores when mirroring is turned off.
var ErrStorageDisabled = errors.New("object storage is disabled")

// ImageStore copies a remote image into durable storage and returns its public URL.
type ImageStore interface {
	Mirror(ctx context.Context, sourceURL, key string) (string, error)
}

// WorkflowRunState tracks a run in the relational store.
type WorkflowRunState string

const (
	WorkflowRunProcessing WorkflowRunState = "processing"
	WorkflowRunCompleted  WorkflowRunState = "completed"
	WorkflowRunFailed     WorkflowRunState = "failed"
)

// WorkflowRunRepository records the lifecycle of real (non-degraded) runs.
type WorkflowRunRepository interface {
	Create(ctx context.Context, runID string) error
	UpdateStatus(ctx context.Context, runID string, state WorkflowRunState) error
}
