package bootstrap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/sse"
)

type orderRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (o *orderRecorder) add(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, name)
}

type recordingStopper struct {
	name string
	rec  *orderRecorder
	err  error
}

func (s recordingStopper) Stop(context.Context) error {
	s.rec.add(s.name)
	return s.err
}

func (s recordingStopper) Shutdown(context.Context) error {
	s.rec.add(s.name)
	return s.err
}

type recordingHub struct {
	rec *orderRecorder
}

func (h recordingHub) Stop() { h.rec.add(ComponentStream) }

func TestGracefulShutdown_Order(t *testing.T) {
	rec := &orderRecorder{}
	storageClosed := false

	GracefulShutdown(context.Background(), ShutdownComponents{
		Stream:    recordingHub{rec},
		Server:    recordingStopper{ComponentServer, rec, nil},
		Scheduler: recordingStopper{ComponentScheduler, rec, assert.AnError},
		Miner:     recordingStopper{ComponentMiner, rec, nil},
		Publisher: recordingStopper{ComponentPublisher, rec, nil},
		Workers:   recordingStopper{ComponentWorkers, rec, nil},
		Storage:   &Storage{close: func() { storageClosed = true }},
	})

	assert.Equal(t, []string{
		ComponentStream, ComponentServer, ComponentScheduler, ComponentMiner, ComponentPublisher, ComponentWorkers,
	}, rec.calls, "an error must not stop the sequence")
	assert.True(t, storageClosed)
}

func TestGracefulShutdown_NilComponents(t *testing.T) {
	assert.NotPanics(t, func() {
		GracefulShutdown(context.Background(), ShutdownComponents{})
	})
}

func TestRegisterEventHandlers(t *testing.T) {
	bus := event.NewMemoryBus()
	repo := &eventlog.MockRepository{}
	repo.On("LogEvent", mock.Anything, "raid.joined", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, RegisterEventHandlers(EventHandlerDependencies{
		EventBus:        bus,
		EventLogService: eventlog.NewService(repo),
	}))

	evt := event.NewRaidJoinedEvent(domain.RaidPayload{ChannelID: "123", Streamer: "alice", TargetLogin: "bob"})
	require.NoError(t, bus.Publish(context.Background(), evt))
	repo.AssertExpectations(t)
}

func TestRegisterEventHandlers_Stream(t *testing.T) {
	bus := event.NewMemoryBus()
	hub := sse.NewHub(nil)
	hub.Start()
	defer hub.Stop()

	require.NoError(t, RegisterEventHandlers(EventHandlerDependencies{EventBus: bus, Stream: hub}))

	client := hub.Register(nil)
	require.NotNil(t, client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), event.NewConnectionReconnectedEvent(1, 2, 3)))
	select {
	case e := <-client.EventChannel:
		assert.Equal(t, string(event.ConnectionReconnected), e.Type)
	case <-time.After(time.Second):
		t.Fatal("stream did not receive the event")
	}
}

func TestRegisterEventHandlers_OptionalSubscribers(t *testing.T) {
	bus := event.NewMemoryBus()
	require.NoError(t, RegisterEventHandlers(EventHandlerDependencies{EventBus: bus}))
	assert.NoError(t, bus.Publish(context.Background(), event.NewConnectionReconnectedEvent(1, 2, 3)))
}
