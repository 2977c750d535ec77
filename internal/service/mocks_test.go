package service

import (
	"context"
	"time"

	"dify-manga/internal/config"
	"dify-manga/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockWorkflowClient ---
type MockWorkflowClient struct {
	mock.Mock
	// Events replayed to the StreamRun callback before returning StreamErr.
	Events    []domain.WorkflowEvent
	StreamErr error
}

func (m *MockWorkflowClient) StartRun(ctx context.Context, req domain.GenerationRequest, maxReads int) (*domain.RunHandle, error) {
	args := m.Called(ctx, req, maxReads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunHandle), args.Error(1)
}

func (m *MockWorkflowClient) GetRun(ctx context.Context, runID string) (*domain.WorkflowRunDetail, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowRunDetail), args.Error(1)
}

func (m *MockWorkflowClient) StreamRun(ctx context.Context, req domain.GenerationRequest, onEvent func(domain.WorkflowEvent) error) error {
	m.Called(ctx, req)
	for _, event := range m.Events {
		if err := onEvent(event); err != nil {
			if err == domain.ErrStopStream {
				return nil
			}
			return err
		}
	}
	return m.StreamErr
}

// --- MockLibraryRepository ---
type MockLibraryRepository struct {
	mock.Mock
}

func (m *MockLibraryRepository) Create(ctx context.Context, entry *domain.LibraryEntry) error {
	args := m.Called(ctx, entry)
	if args.Error(0) == nil && entry.ID == "" {
		entry.ID = "01HZZZZZZZZZZZZZZZZZZZZZZZ"
	}
	return args.Error(0)
}

func (m *MockLibraryRepository) List(ctx context.Context) ([]*domain.LibraryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LibraryEntry), args.Error(1)
}

func (m *MockLibraryRepository) GetByID(ctx context.Context, id string) (*domain.LibraryEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LibraryEntry), args.Error(1)
}

func (m *MockLibraryRepository) GetByRunID(ctx context.Context, runID string) (*domain.LibraryEntry, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LibraryEntry), args.Error(1)
}

func (m *MockLibraryRepository) Update(ctx context.Context, id string, update domain.LibraryUpdate) (*domain.LibraryEntry, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LibraryEntry), args.Error(1)
}

func (m *MockLibraryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- MockWorkflowRunRepository ---
type MockWorkflowRunRepository struct {
	mock.Mock
}

func (m *MockWorkflowRunRepository) Create(ctx context.Context, runID string) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

func (m *MockWorkflowRunRepository) UpdateStatus(ctx context.Context, runID string, state domain.WorkflowRunState) error {
	args := m.Called(ctx, runID, state)
	return args.Error(0)
}

// --- MockTransactionManager ---
// Runs fn directly unless an error is configured.
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// --- MockImageStore ---
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Mirror(ctx context.Context, sourceURL, key string) (string, error) {
	args := m.Called(ctx, sourceURL, key)
	return args.String(0), args.Error(1)
}

// --- ManualMockCache ---
type ManualMockCache struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value string, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func (m *ManualMockCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", domain.ErrCacheMiss
}

func (m *ManualMockCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	return nil
}

func (m *ManualMockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

func (m *ManualMockCache) Ping(ctx context.Context) error { return nil }

func testConfig(apiKey string) *config.Config {
	return &config.Config{
		Dify: config.DifyConfig{APIKey: apiKey, StreamReadAttempts: 5},
		Generation: config.GenerationConfig{
			Mode:             ModeStreaming,
			PollMaxAttempts:  3,
			PlaceholderImage: "/placeholder-manga.png",
		},
		Storage:  config.StorageConfig{Prefix: "mangas"},
		Snapshot: config.SnapshotConfig{TTL: 24 * time.Hour},
	}
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }
