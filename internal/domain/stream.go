package domain

import (
	"encoding/json"
	"fmt"
)

// EventType is the fixed vocabulary relayed to streaming clients.
type EventType string

const (
	EventStart           EventType = "start"
	EventPlanning        EventType = "planning"
	EventPlanComplete    EventType = "plan_complete"
	EventPanelGenerating EventType = "panel_generating"
	EventPanelComplete   EventType = "panel_complete"
	EventPanelError      EventType = "panel_error"
	EventComplete        EventType = "complete"
	EventError           EventType = "error"
)

// StreamEvent is one progress notification. Data is JSON encoded as-is.
type StreamEvent struct {
	Type EventType
	Data interface{}
}

// EventSink receives events in order. An error means the client is gone.
type EventSink func(StreamEvent) error

type MessagePayload struct {
	Message  string `json:"message"`
	Degraded bool   `json:"degraded,omitempty"`
}

type Character struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type StoryArc struct {
	PhaseOverview string `json:"phase_overview"`
}

// Plan is the panel layout of a manga, produced by the remote planning phase.
type Plan struct {
	TotalPanels     int         `json:"total_panels"`
	StoryArc        *StoryArc   `json:"story_arc,omitempty"`
	MainCharacters  []Character `json:"main_characters,omitempty"`
	GeneratedImages []string    `json:"-"`
}

type PlanCompletePayload struct {
	TotalPanels int         `json:"total_panels"`
	StoryArc    *StoryArc   `json:"story_arc,omitempty"`
	Characters  []Character `json:"characters,omitempty"`
	Panels      []Panel     `json:"panels,omitempty"`
}

type PanelProgressPayload struct {
	PanelID  int    `json:"panel_id"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

type Panel struct {
	PanelID     int    `json:"panel_id"`
	ImageURL    string `json:"image_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type PanelErrorPayload struct {
	PanelID int    `json:"panel_id"`
	Error   string `json:"error"`
}

type CompletePayload struct {
	Message     string  `json:"message"`
	Panels      []Panel `json:"panels"`
	TotalPanels int     `json:"total_panels"`
	RunID       string  `json:"run_id,omitempty"`
	LibraryID   string  `json:"library_id,omitempty"`
	Degraded    bool    `json:"degraded,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// Placeholder plan values used when the planning phase produced nothing.
const (
	PlaceholderMinPanels = 20
	PlaceholderStoryArc  = "光合成についての教育漫画"
)

// PlaceholderPlan substitutes a deterministic plan so a stream can still
// complete when the planning phase returned no usable output.
func PlaceholderPlan(images []string) *Plan {
	total := PlaceholderMinPanels
	if len(images) > total {
		total = len(images)
	}
	return &Plan{
		TotalPanels: total,
		StoryArc:    &StoryArc{PhaseOverview: PlaceholderStoryArc},
		MainCharacters: []Character{
			{Name: "学び君", Role: "student"},
			{Name: "知識先生", Role: "teacher"},
		},
		GeneratedImages: images,
	}
}

// MockPanels is the fixed storyboard used when generation runs without Dify.
func MockPanels(question string) []Panel {
	return []Panel{
		{PanelID: 1, Title: "導入", Description: "「" + question + "」って何だろう？"},
		{PanelID: 2, Title: "基礎説明", Description: "基本的な概念を理解しよう"},
		{PanelID: 3, Title: "詳細解説", Description: "より詳しく見てみよう"},
		{PanelID: 4, Title: "応用例", Description: "実際の例で確認しよう"},
		{PanelID: 5, Title: "まとめ", Description: "理解できたかな？"},
	}
}

// ParsePlan reads the plan carried by a finished run's outputs.text. Empty or
// unparseable outputs yield the placeholder plan.
func ParsePlan(outputs json.RawMessage, images []string) *Plan {
	obj, err := decodeObject(outputs)
	if err != nil || obj == nil {
		return PlaceholderPlan(images)
	}
	text, ok := obj["text"]
	if !ok || isNullOrEmpty(text) {
		return PlaceholderPlan(images)
	}
	inner, err := unwrapJSONString(text)
	if err != nil || len(inner) == 0 || inner[0] != '{' {
		return PlaceholderPlan(images)
	}
	var plan Plan
	if err := json.Unmarshal(inner, &plan); err != nil {
		return PlaceholderPlan(images)
	}
	if plan.TotalPanels <= 0 {
		plan.TotalPanels = PlaceholderMinPanels
	}
	plan.GeneratedImages = images
	return &plan
}

// PanelCount is the number of panels a stream emits for plan.
func (p *Plan) PanelCount() int {
	n := len(p.GeneratedImages)
	if n < 1 {
		n = 1
	}
	if p.TotalPanels < n {
		return p.TotalPanels
	}
	return n
}

// StreamPanel describes panel i (1-based) of a streamed manga.
func StreamPanel(i int, question, level, imageURL string) Panel {
	return Panel{
		PanelID:     i,
		ImageURL:    imageURL,
		Title:       fmt.Sprintf("コマ %d", i),
		Description: fmt.Sprintf("%s についての説明 (%s向け) - コマ %d", question, level, i),
	}
}
