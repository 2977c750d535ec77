package dify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dify-manga/internal/config"
	"dify-manga/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.DifyConfig{
		APIKey:  "app-test",
		BaseURL: serverURL,
		User:    "test-user",
		Timeout: 5 * time.Second,
	})
}

var testRequest = domain.NewGenerationRequest("光合成のしくみを教えて", "小学6年生")

func TestClient_StartRun_StreamedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/workflows/run", r.URL.Path)
		assert.Equal(t, "Bearer app-test", r.Header.Get("Authorization"))

		var body runRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "streaming", body.ResponseMode)
		assert.Equal(t, "test-user", body.User)
		assert.Equal(t, "光合成のしくみを教えて", body.Inputs.UserQuestion)
		assert.Equal(t, "小学6年生", body.Inputs.UserLevel)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {not json}\n\n")
		flusher.Flush()
		fmt.Fprint(w, `data: {"event":"workflow_started","task_id":"task-1","workflow_run_id":"run-1","data":{"id":"run-1"}}`+"\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	handle, err := newTestClient(server.URL).StartRun(context.Background(), testRequest, 5)
	require.NoError(t, err)
	assert.Equal(t, &domain.RunHandle{RunID: "run-1", TaskID: "task-1"}, handle)
}

func TestClient_StartRun_JSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprint(w, `{"id":"run-json","task_id":"task-json"}`)
	}))
	defer server.Close()

	handle, err := newTestClient(server.URL).StartRun(context.Background(), testRequest, 5)
	require.NoError(t, err)
	assert.Equal(t, "run-json", handle.RunID)
	assert.Equal(t, "task-json", handle.TaskID)
}

func TestClient_StartRun_NoRunID(t *testing.T) {
	t.Run("stream without workflow_started", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, `data: {"event":"ping"}`+"\n\n")
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).StartRun(context.Background(), testRequest, 5)
		require.Error(t, err)
		assert.True(t, domain.HasCode(err, domain.CodeNoRunID))
	})

	t.Run("json without id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"task_id":"task-only"}`)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).StartRun(context.Background(), testRequest, 5)
		assert.True(t, domain.HasCode(err, domain.CodeNoRunID))
	})
}

func TestClient_StartRun_RemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"invalid_api_key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).StartRun(context.Background(), testRequest, 5)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeRemoteService))
}

func TestClient_StartRun_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	_, err := newTestClient(serverURL).StartRun(context.Background(), testRequest, 5)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeRemoteService))
}

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks []string
	reads  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.reads >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.reads])
	r.reads++
	return n, nil
}

func TestScanStartedEvent_BoundedReads(t *testing.T) {
	started := `data: {"event":"workflow_started","workflow_run_id":"run-late","task_id":"t"}` + "\n"

	t.Run("found within limit", func(t *testing.T) {
		r := &chunkReader{chunks: []string{"event: ping\n", "\n", started}}
		handle, err := scanStartedEvent(r, 5)
		require.NoError(t, err)
		require.NotNil(t, handle)
		assert.Equal(t, "run-late", handle.RunID)
		assert.Equal(t, 3, r.reads)
	})

	t.Run("gives up after limit", func(t *testing.T) {
		chunks := []string{"\n", "\n", "\n", "\n", "\n", started}
		r := &chunkReader{chunks: chunks}
		handle, err := scanStartedEvent(r, 5)
		require.NoError(t, err)
		assert.Nil(t, handle)
		assert.Equal(t, 5, r.reads)
	})

	t.Run("frame split across chunks", func(t *testing.T) {
		r := &chunkReader{chunks: []string{started[:20], started[20:]}}
		handle, err := scanStartedEvent(r, 5)
		require.NoError(t, err)
		require.NotNil(t, handle)
		assert.Equal(t, "run-late", handle.RunID)
	})

	t.Run("read error", func(t *testing.T) {
		_, err := scanStartedEvent(errReader{}, 5)
		assert.True(t, domain.HasCode(err, domain.CodeRemoteService))
	})
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestClient_StreamRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`data: {"event":"workflow_started","workflow_run_id":"run-s","task_id":"t"}`,
			`event: ping`,
			`data: {"event":"node_finished","data":{"outputs":{"files":[{"url":"https://upload.dify.ai/a.png"}]}}}`,
			`data: {"event":"workflow_finished","data":{"status":"succeeded","outputs":{"text":"[]"}}}`,
			`data: {"event":"never_reached"}`,
		}
		fmt.Fprint(w, strings.Join(lines, "\n\n")+"\n\n")
	}))
	defer server.Close()

	var events []string
	err := newTestClient(server.URL).StreamRun(context.Background(), testRequest, func(e domain.WorkflowEvent) error {
		events = append(events, e.Event)
		if e.Event == domain.WorkflowEventFinished {
			return domain.ErrStopStream
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"workflow_started", "node_finished", "workflow_finished"}, events)
}

func TestClient_StreamRun_CallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"event":"workflow_started","workflow_run_id":"run-s"}`+"\n\n")
	}))
	defer server.Close()

	clientGone := errors.New("client gone")
	err := newTestClient(server.URL).StreamRun(context.Background(), testRequest, func(domain.WorkflowEvent) error {
		return clientGone
	})
	assert.ErrorIs(t, err, clientGone)
}

func TestClient_GetRun(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  string
		wantOutputs string
		wantInputs  string
	}{
		{
			name:        "top level fields",
			body:        `{"id":"run-1","status":"succeeded","outputs":{"text":"[]"},"inputs":{"user_question":"q"}}`,
			wantStatus:  "succeeded",
			wantOutputs: `{"text":"[]"}`,
			wantInputs:  `{"user_question":"q"}`,
		},
		{
			name:        "nested under data with string outputs",
			body:        `{"data":{"id":"run-1","status":"running","outputs":"{\"text\":\"[]\"}","inputs":"{}"}}`,
			wantStatus:  "running",
			wantOutputs: `"{\"text\":\"[]\"}"`,
			wantInputs:  `"{}"`,
		},
		{
			name:        "null top level falls back to data",
			body:        `{"id":"run-1","status":"succeeded","outputs":null,"inputs":"","data":{"outputs":{"text":"[]"},"inputs":{"user_level":"l"}}}`,
			wantStatus:  "succeeded",
			wantOutputs: `{"text":"[]"}`,
			wantInputs:  `{"user_level":"l"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/workflows/run/run-1", r.URL.Path)
				assert.Equal(t, "Bearer app-test", r.Header.Get("Authorization"))
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			detail, err := newTestClient(server.URL).GetRun(context.Background(), "run-1")
			require.NoError(t, err)
			assert.Equal(t, "run-1", detail.ID)
			assert.Equal(t, tt.wantStatus, detail.Status)
			assert.JSONEq(t, tt.wantOutputs, string(detail.Outputs))
			assert.JSONEq(t, tt.wantInputs, string(detail.Inputs))
		})
	}
}

func TestClient_GetRun_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"not_found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeRemoteService))
}
