package dify

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"dify-manga/internal/config"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"

	"go.uber.org/zap"
)

const (
	dataPrefix     = "data: "
	readChunkSize  = 4096
	maxEventLength = 4 * 1024 * 1024
	maxErrorBody   = 2048
)

// Client talks to the Dify workflow API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	user       string
}

// NewClient creates a Dify client from configuration. The timeout bounds a
// whole request, streamed responses included.
func NewClient(cfg config.DifyConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		user:       cfg.User,
	}
}

var _ domain.WorkflowClient = (*Client)(nil)

type runRequest struct {
	Inputs       runInputs `json:"inputs"`
	ResponseMode string    `json:"response_mode"`
	User         string    `json:"user"`
}

type runInputs struct {
	UserQuestion string `json:"user_question"`
	UserLevel    string `json:"user_level"`
}

// openRun submits a streaming workflow run and returns the open response.
func (c *Client) openRun(ctx context.Context, req domain.GenerationRequest) (*http.Response, error) {
	payload, err := json.Marshal(runRequest{
		Inputs:       runInputs{UserQuestion: req.Question, UserLevel: req.Level},
		ResponseMode: "streaming",
		User:         c.user,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/workflows/run", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewRemoteServiceError("failed to reach workflow service", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewRemoteServiceError(
			fmt.Sprintf("workflow service returned status %d", resp.StatusCode),
			fmt.Errorf("body: %s", string(body)),
		).WithContext("status", resp.StatusCode)
	}
	return resp, nil
}

// StartRun submits a run and extracts its identifiers. A streamed body is read
// at most maxReads times; a plain JSON body is decoded as a whole.
func (c *Client) StartRun(ctx context.Context, req domain.GenerationRequest, maxReads int) (*domain.RunHandle, error) {
	resp, err := c.openRun(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if isJSON(resp.Header.Get("Content-Type")) {
		return decodeRunBody(resp.Body)
	}

	handle, err := scanStartedEvent(resp.Body, maxReads)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, domain.NewNoRunIDError()
	}
	return handle, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func decodeRunBody(r io.Reader) (*domain.RunHandle, error) {
	var body struct {
		WorkflowRunID string `json:"workflow_run_id"`
		ID            string `json:"id"`
		TaskID        string `json:"task_id"`
		Data          struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, domain.NewRemoteServiceError("failed to decode run response", err)
	}
	runID := firstNonEmpty(body.WorkflowRunID, body.ID, body.Data.ID)
	if runID == "" {
		return nil, domain.NewNoRunIDError()
	}
	return &domain.RunHandle{RunID: runID, TaskID: body.TaskID}, nil
}

// scanStartedEvent reads up to maxReads chunks and returns the handle carried
// by the first workflow_started frame, or nil when none arrived in time.
func scanStartedEvent(r io.Reader, maxReads int) (*domain.RunHandle, error) {
	var acc []byte
	buf := make([]byte, readChunkSize)
	for i := 0; i < maxReads; i++ {
		n, err := r.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if handle := findStartedEvent(acc); handle != nil {
				return handle, nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, domain.NewRemoteServiceError("failed to read workflow stream", err)
		}
	}
	return nil, nil
}

func findStartedEvent(acc []byte) *domain.RunHandle {
	for _, line := range strings.Split(string(acc), "\n") {
		event, ok := parseEventLine(line)
		if !ok || event.Event != domain.WorkflowEventStarted {
			continue
		}
		runID := firstNonEmpty(event.WorkflowRunID, event.Data.ID)
		if runID == "" {
			continue
		}
		return &domain.RunHandle{RunID: runID, TaskID: event.TaskID}
	}
	return nil
}

// parseEventLine decodes one `data: ` frame. Other lines and malformed JSON
// are reported as not ok.
func parseEventLine(line string) (domain.WorkflowEvent, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return domain.WorkflowEvent{}, false
	}
	var event domain.WorkflowEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &event); err != nil {
		return domain.WorkflowEvent{}, false
	}
	return event, true
}

// StreamRun submits a run and hands every decoded event to onEvent.
func (c *Client) StreamRun(ctx context.Context, req domain.GenerationRequest, onEvent func(domain.WorkflowEvent) error) error {
	resp, err := c.openRun(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, readChunkSize), maxEventLength)
	for scanner.Scan() {
		event, ok := parseEventLine(scanner.Text())
		if !ok {
			continue
		}
		if err := onEvent(event); err != nil {
			if errors.Is(err, domain.ErrStopStream) {
				return nil
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.NewRemoteServiceError("failed to read workflow stream", err)
	}
	return nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, runID string) (*domain.WorkflowRunDetail, error) {
	endpoint := fmt.Sprintf("%s/workflows/run/%s", c.baseURL, url.PathEscape(runID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewRemoteServiceError("failed to reach workflow service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Get().Warn("Workflow status request failed",
			zap.String("run_id", runID),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, domain.NewRemoteServiceError(
			fmt.Sprintf("workflow service returned status %d", resp.StatusCode), nil,
		).WithContext("status", resp.StatusCode)
	}

	var body runDetailBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewRemoteServiceError("failed to decode run status", err)
	}
	return body.detail(runID), nil
}

// runDetailBody accepts fields at the top level or nested under data.
type runDetailBody struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Outputs json.RawMessage `json:"outputs"`
	Inputs  json.RawMessage `json:"inputs"`
	Data    *struct {
		ID      string          `json:"id"`
		Status  string          `json:"status"`
		Outputs json.RawMessage `json:"outputs"`
		Inputs  json.RawMessage `json:"inputs"`
	} `json:"data"`
}

func (b runDetailBody) detail(runID string) *domain.WorkflowRunDetail {
	d := &domain.WorkflowRunDetail{
		ID:      firstNonEmpty(b.ID, runID),
		Status:  b.Status,
		Outputs: b.Outputs,
		Inputs:  b.Inputs,
	}
	if b.Data != nil {
		if d.Status == "" {
			d.Status = b.Data.Status
		}
		if absent(d.Outputs) {
			d.Outputs = b.Data.Outputs
		}
		if absent(d.Inputs) {
			d.Inputs = b.Data.Inputs
		}
		if b.ID == "" && b.Data.ID != "" {
			d.ID = b.Data.ID
		}
	}
	return d
}

// absent reports a missing, null or empty-string JSON value.
func absent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
