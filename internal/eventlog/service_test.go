package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
)

// MockEventBus is a mock implementation of event.Bus
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, evt event.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(eventType event.Type, handler event.Handler) {
	m.Called(eventType, handler)
}

func TestService_Subscribe(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo)
	mockBus := new(MockEventBus)

	for _, et := range event.AllTypes {
		mockBus.On("Subscribe", et, mock.Anything).Return()
	}

	err := service.Subscribe(mockBus)
	assert.NoError(t, err)
	mockBus.AssertExpectations(t)
}

func TestService_HandleEvent(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo).(*service)
	ctx := context.Background()

	snapshot := domain.StreamerSnapshot{ChannelID: "123", Username: "alice", ChannelPoints: 540}
	evt := event.NewPointsEvent(event.PointsEarned, snapshot, 40, "WATCH")

	channelID := "123"
	mockRepo.On("LogEvent", ctx, "points.earned", &channelID,
		mock.MatchedBy(func(p map[string]interface{}) bool {
			return p["streamer"] == "alice" && p["delta"] == float64(40) && p["reason"] == "WATCH"
		}),
		mock.Anything,
	).Return(nil)

	err := svc.handleEvent(ctx, evt)
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_HandleEvent_WithoutChannel(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo).(*service)
	ctx := context.Background()

	evt := event.NewConnectionReconnectedEvent(2, 40, 3)
	mockRepo.On("LogEvent", ctx, "connection.reconnected", (*string)(nil), mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.handleEvent(ctx, evt))
	mockRepo.AssertExpectations(t)
}

func TestService_HandleEvent_RepositoryError(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo).(*service)
	ctx := context.Background()

	mockRepo.On("LogEvent", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	err := svc.handleEvent(ctx, event.NewBonusClaimedEvent("123", "alice", "claim-1"))
	assert.Error(t, err)
}

func TestService_HandleEvent_SkipsScalarPayload(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo).(*service)

	err := svc.handleEvent(context.Background(), event.Event{Type: event.BetPlaced, Payload: "not an object"})
	assert.NoError(t, err)
	mockRepo.AssertNotCalled(t, "LogEvent")
}

func TestService_Recent(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, DefaultQueryLimit},
		{"within bounds", 20, 20},
		{"clamped", 10000, MaxQueryLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			svc := NewService(mockRepo)
			ctx := context.Background()

			mockRepo.On("GetEvents", ctx, mock.MatchedBy(func(f EventFilter) bool {
				return f.Limit == tt.want
			})).Return([]Event{{ID: 1, EventType: "bet.placed"}}, nil)

			events, err := svc.Recent(ctx, EventFilter{Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, events, 1)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_CleanupOldEvents(t *testing.T) {
	mockRepo := new(MockRepository)
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	svc := &service{repo: mockRepo, now: func() time.Time { return now }}
	ctx := context.Background()

	mockRepo.On("CleanupOldEvents", ctx, now.Add(-48*time.Hour)).Return(int64(5), nil)

	count, err := svc.CleanupOldEvents(ctx, 48*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), count)
	mockRepo.AssertExpectations(t)
}
