package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// TitleMaxRunes bounds titles derived from questions or outputs.
const TitleMaxRunes = 50

const (
	UnknownQuestion = "質問不明"
	UnknownLevel    = "レベル不明"
)

var (
	ErrOutputsMalformed  = errors.New("workflow outputs are not valid JSON")
	ErrOutputTextMissing = errors.New("workflow outputs have no text field")
	ErrOutputTextInvalid = errors.New("workflow outputs text is not a JSON array")
)

// unwrapJSONString returns the JSON document carried by raw. The remote
// service sometimes encodes objects as JSON strings, sometimes inline.
func unwrapJSONString(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, err
	}
	inner := json.RawMessage(strings.TrimSpace(s))
	if !json.Valid(inner) {
		return nil, fmt.Errorf("embedded JSON string is not valid JSON")
	}
	return inner, nil
}

func isNullOrEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if isNullOrEmpty(raw) {
		return nil, nil
	}
	inner, err := unwrapJSONString(raw)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(inner, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// ExtractImageURLs normalises a run's outputs into an ordered list of image
// URLs. outputs.text must be an array (or a JSON string holding one); nested
// arrays are flattened one level and only objects with a string url are kept.
// An empty result is not an error.
func ExtractImageURLs(outputs json.RawMessage) ([]string, error) {
	obj, err := decodeObject(outputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputsMalformed, err)
	}
	text, ok := obj["text"]
	if !ok || isNullOrEmpty(text) {
		return nil, ErrOutputTextMissing
	}

	inner, err := unwrapJSONString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputTextInvalid, err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputTextInvalid, err)
	}

	flat := lo.FlatMap(items, func(item json.RawMessage, _ int) []json.RawMessage {
		var nested []json.RawMessage
		if err := json.Unmarshal(item, &nested); err == nil {
			return nested
		}
		return []json.RawMessage{item}
	})

	return lo.FilterMap(flat, func(item json.RawMessage, _ int) (string, bool) {
		var entry struct {
			URL *string `json:"url"`
		}
		if err := json.Unmarshal(item, &entry); err != nil || entry.URL == nil {
			return "", false
		}
		return *entry.URL, true
	}), nil
}

// OutputTitle looks for a human readable title in the outputs: a title or
// question field, or the question of the first element of text.
func OutputTitle(outputs json.RawMessage) string {
	obj, err := decodeObject(outputs)
	if err != nil || obj == nil {
		return ""
	}
	for _, key := range []string{"title", "question"} {
		var s string
		if err := json.Unmarshal(obj[key], &s); err == nil && strings.TrimSpace(s) != "" {
			return TruncateRunes(strings.TrimSpace(s), TitleMaxRunes)
		}
	}
	if text, ok := obj["text"]; ok {
		if inner, err := unwrapJSONString(text); err == nil {
			var items []struct {
				Question string `json:"question"`
			}
			if err := json.Unmarshal(inner, &items); err == nil && len(items) > 0 && items[0].Question != "" {
				return TruncateRunes(items[0].Question, TitleMaxRunes)
			}
		}
	}
	return ""
}

// RunInputs returns the question and level a run was started with.
func RunInputs(inputs json.RawMessage) (question, level string) {
	question, level = UnknownQuestion, UnknownLevel
	obj, err := decodeObject(inputs)
	if err != nil || obj == nil {
		return question, level
	}
	var s string
	if err := json.Unmarshal(obj["user_question"], &s); err == nil && strings.TrimSpace(s) != "" {
		question = s
	}
	s = ""
	if err := json.Unmarshal(obj["user_level"], &s); err == nil && strings.TrimSpace(s) != "" {
		level = s
	}
	return question, level
}

// WorkflowFiles returns the file URLs of a node_finished event's outputs.
func WorkflowFiles(outputs json.RawMessage) []string {
	obj, err := decodeObject(outputs)
	if err != nil || obj == nil {
		return nil
	}
	var files []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(obj["files"], &files); err != nil {
		return nil
	}
	return lo.FilterMap(files, func(f struct {
		URL string `json:"url"`
	}, _ int) (string, bool) {
		return f.URL, f.URL != ""
	})
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
