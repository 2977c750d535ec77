package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractImageURLs(t *testing.T) {
	tests := []struct {
		name    string
		outputs string
		want    []string
		wantErr error
	}{
		{
			name:    "text as json string",
			outputs: `{"text":"[{\"url\":\"https://upload.dify.ai/1.png\"},{\"url\":\"https://upload.dify.ai/2.png\"}]"}`,
			want:    []string{"https://upload.dify.ai/1.png", "https://upload.dify.ai/2.png"},
		},
		{
			name:    "whole outputs as json string",
			outputs: `"{\"text\":[{\"url\":\"a\"}]}"`,
			want:    []string{"a"},
		},
		{
			name:    "nested arrays flattened one level",
			outputs: `{"text":[[{"url":"a"},{"url":"b"}],{"url":"c"},[[{"url":"too-deep"}]]]}`,
			want:    []string{"a", "b", "c"},
		},
		{
			name:    "items without string url dropped",
			outputs: `{"text":[{"url":"a"},{"name":"x"},{"url":3},null,"plain"]}`,
			want:    []string{"a"},
		},
		{
			name:    "empty list is not an error",
			outputs: `{"text":"[]"}`,
			want:    []string{},
		},
		{
			name:    "outputs not json",
			outputs: `"{broken"`,
			wantErr: ErrOutputsMalformed,
		},
		{
			name:    "text missing",
			outputs: `{"answer":"x"}`,
			wantErr: ErrOutputTextMissing,
		},
		{
			name:    "text not an array",
			outputs: `{"text":"{\"url\":\"a\"}"}`,
			wantErr: ErrOutputTextInvalid,
		},
		{
			name:    "text string not json",
			outputs: `{"text":"hello"}`,
			wantErr: ErrOutputTextInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractImageURLs(json.RawMessage(tt.outputs))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), len(got))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestOutputTitle(t *testing.T) {
	assert.Equal(t, "タイトル", OutputTitle(json.RawMessage(`{"title":"タイトル","text":"[]"}`)))
	assert.Equal(t, "質問", OutputTitle(json.RawMessage(`{"question":"質問"}`)))
	assert.Equal(t, "最初の質問", OutputTitle(json.RawMessage(`{"text":"[{\"question\":\"最初の質問\",\"url\":\"a\"}]"}`)))
	assert.Equal(t, "", OutputTitle(json.RawMessage(`{"text":"[]"}`)))
	assert.Equal(t, "", OutputTitle(nil))

	long := strings.Repeat("光", 80)
	assert.Equal(t, TitleMaxRunes, len([]rune(OutputTitle(json.RawMessage(`{"title":"`+long+`"}`)))))
}

func TestRunInputs(t *testing.T) {
	q, l := RunInputs(json.RawMessage(`{"user_question":"光合成のしくみを教えて","user_level":"小学6年生"}`))
	assert.Equal(t, "光合成のしくみを教えて", q)
	assert.Equal(t, "小学6年生", l)

	q, l = RunInputs(json.RawMessage(`"{\"user_question\":\"q\"}"`))
	assert.Equal(t, "q", q)
	assert.Equal(t, UnknownLevel, l)

	q, l = RunInputs(nil)
	assert.Equal(t, UnknownQuestion, q)
	assert.Equal(t, UnknownLevel, l)
}

func TestWorkflowFiles(t *testing.T) {
	files := WorkflowFiles(json.RawMessage(`{"files":[{"url":"a"},{"url":""},{"type":"image"},{"url":"b"}]}`))
	assert.Equal(t, []string{"a", "b"}, files)
	assert.Empty(t, WorkflowFiles(json.RawMessage(`{"text":"x"}`)))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "光合", TruncateRunes("光合成", 2))
}
