package service

import (
	"context"
	"errors"
	"testing"

	"dify-manga/internal/config"
	"dify-manga/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGenerationService struct {
	mock.Mock
}

func (m *MockGenerationService) Initiate(ctx context.Context, req domain.GenerationRequest) (*domain.InitiationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InitiationResult), args.Error(1)
}

func (m *MockGenerationService) ResolveStatus(ctx context.Context, runID string) (*domain.StatusResult, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatusResult), args.Error(1)
}

type scriptedStream struct {
	events []domain.StreamEvent
}

func (s *scriptedStream) Stream(_ context.Context, _ domain.GenerationRequest, sink domain.EventSink) error {
	for _, e := range s.events {
		if err := sink(e); err != nil {
			return err
		}
	}
	return nil
}

func newPolling(gen GenerationService, attempts int) *pollingStrategy {
	s := NewGenerationStrategy(ModePolling, gen, nil, config.GenerationConfig{PollMaxAttempts: attempts}).(*pollingStrategy)
	s.sleep = noSleep
	return s
}

func TestNewGenerationStrategy(t *testing.T) {
	assert.Equal(t, ModePolling, NewGenerationStrategy(ModePolling, nil, nil, config.GenerationConfig{}).Name())
	assert.Equal(t, ModeStreaming, NewGenerationStrategy(ModeStreaming, nil, nil, config.GenerationConfig{}).Name())
	assert.Equal(t, ModeStreaming, NewGenerationStrategy("", nil, nil, config.GenerationConfig{}).Name())
}

func TestPollingStrategy_Succeeds(t *testing.T) {
	gen := new(MockGenerationService)
	req := domain.NewGenerationRequest("q", "l")
	gen.On("Initiate", mock.Anything, req).Return(&domain.InitiationResult{Handle: domain.RunHandle{RunID: "run-1"}}, nil)
	gen.On("ResolveStatus", mock.Anything, "run-1").Return(&domain.StatusResult{RunID: "run-1", Status: domain.RunStatusPending}, nil).Once()
	gen.On("ResolveStatus", mock.Anything, "run-1").Return(nil, errors.New("transient")).Once()
	gen.On("ResolveStatus", mock.Anything, "run-1").Return(&domain.StatusResult{
		RunID: "run-1", Status: domain.RunStatusSucceeded, ImageURLs: []string{"a", "b"}, LibraryID: "lib-1",
	}, nil).Once()

	var messages []string
	outcome, err := newPolling(gen, 5).Generate(context.Background(), req, func(m string) { messages = append(messages, m) })

	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSucceeded, outcome.Status)
	assert.Equal(t, []string{"a", "b"}, outcome.ImageURLs)
	assert.Equal(t, "lib-1", outcome.LibraryID)
	assert.NotEmpty(t, messages)
	gen.AssertNumberOfCalls(t, "ResolveStatus", 3)
}

func TestPollingStrategy_SucceededButEmptyIsTerminal(t *testing.T) {
	gen := new(MockGenerationService)
	req := domain.NewGenerationRequest("q", "l")
	gen.On("Initiate", mock.Anything, req).Return(&domain.InitiationResult{Handle: domain.RunHandle{RunID: "run-1"}}, nil)
	gen.On("ResolveStatus", mock.Anything, "run-1").Return(&domain.StatusResult{RunID: "run-1", Status: domain.RunStatusSucceededButEmpty}, nil)

	outcome, err := newPolling(gen, 5).Generate(context.Background(), req, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSucceededButEmpty, outcome.Status)
	gen.AssertNumberOfCalls(t, "ResolveStatus", 1)
}

func TestPollingStrategy_Timeout(t *testing.T) {
	gen := new(MockGenerationService)
	req := domain.NewGenerationRequest("q", "l")
	gen.On("Initiate", mock.Anything, req).Return(&domain.InitiationResult{Handle: domain.RunHandle{RunID: "run-1"}}, nil)
	gen.On("ResolveStatus", mock.Anything, "run-1").Return(&domain.StatusResult{RunID: "run-1", Status: domain.RunStatusPending}, nil)

	outcome, err := newPolling(gen, 3).Generate(context.Background(), req, nil)

	assert.Nil(t, outcome)
	assert.True(t, domain.HasCode(err, domain.CodeTimeout))
	gen.AssertNumberOfCalls(t, "ResolveStatus", 3)
}

func TestPollingStrategy_Cancelled(t *testing.T) {
	gen := new(MockGenerationService)
	req := domain.NewGenerationRequest("q", "l")
	gen.On("Initiate", mock.Anything, req).Return(&domain.InitiationResult{Handle: domain.RunHandle{RunID: "run-1"}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPolling(gen, 3).Generate(ctx, req, nil)

	assert.ErrorIs(t, err, context.Canceled)
	gen.AssertNotCalled(t, "ResolveStatus", mock.Anything, mock.Anything)
}

func TestStreamingStrategy(t *testing.T) {
	stream := &scriptedStream{events: []domain.StreamEvent{
		{Type: domain.EventStart, Data: domain.MessagePayload{Message: msgStreamStart}},
		{Type: domain.EventComplete, Data: domain.CompletePayload{
			RunID:     "run-1",
			LibraryID: "lib-1",
			Panels:    []domain.Panel{{PanelID: 1, ImageURL: "a"}, {PanelID: 2, ImageURL: "b"}},
		}},
	}}
	strategy := NewGenerationStrategy(ModeStreaming, nil, stream, config.GenerationConfig{})

	outcome, err := strategy.Generate(context.Background(), domain.NewGenerationRequest("q", "l"), nil)

	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSucceeded, outcome.Status)
	assert.Equal(t, []string{"a", "b"}, outcome.ImageURLs)
	assert.Equal(t, "lib-1", outcome.LibraryID)
}

func TestStreamingStrategy_Error(t *testing.T) {
	stream := &scriptedStream{events: []domain.StreamEvent{
		{Type: domain.EventError, Data: domain.ErrorPayload{Error: msgPlanningFailed}},
	}}
	strategy := NewGenerationStrategy(ModeStreaming, nil, stream, config.GenerationConfig{})

	outcome, err := strategy.Generate(context.Background(), domain.NewGenerationRequest("q", "l"), nil)

	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, outcome.Status)
	assert.Equal(t, msgPlanningFailed, outcome.Message)
}
