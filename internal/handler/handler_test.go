package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/miner"
	"github.com/osse101/ChannelPointsMiner_Go/internal/pubsub"
)

var testStart = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type fakeSession struct {
	running     bool
	streamers   []domain.Streamer
	predictions []domain.PredictionEvent
	connections []pubsub.ConnectionInfo
	gains       []miner.StreamerGain
}

func (f *fakeSession) SessionID() string { return "session-1" }
func (f *fakeSession) StartedAt() time.Time { return testStart }
func (f *fakeSession) Running() bool { return f.running }
func (f *fakeSession) Streamers() []domain.Streamer { return f.streamers }
func (f *fakeSession) Predictions() []domain.PredictionEvent { return f.predictions }
func (f *fakeSession) Connections() []pubsub.ConnectionInfo { return f.connections }
func (f *fakeSession) Gains() []miner.StreamerGain { return f.gains }

func newFakeSession() *fakeSession {
	return &fakeSession{
		running: true,
		streamers: []domain.Streamer{
			{ChannelID: "123", Username: "alice", Online: true, ChannelPoints: 540},
			{ChannelID: "456", Username: "bob", ChannelPoints: 100},
		},
		predictions: []domain.PredictionEvent{
			{EventID: "e1", Streamer: "alice", Title: "Win?"},
			{EventID: "e2", Streamer: "bob", Title: "Lose?"},
		},
		connections: []pubsub.ConnectionInfo{
			{ID: 0, Alive: true, Topics: []domain.Topic{domain.NewTopic(domain.TopicChannelVideo, "123")}},
		},
		gains: []miner.StreamerGain{
			{Username: "alice", Start: 500, End: 540, Gained: 40},
			{Username: "bob", Start: 100, End: 100},
		},
	}
}

type MockEventReader struct {
	mock.Mock
}

func (m *MockEventReader) Recent(ctx context.Context, filter eventlog.EventFilter) ([]eventlog.Event, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]eventlog.Event), args.Error(1)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealthz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"status":"ok"}`+"\n", rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandleReadyz(t *testing.T) {
	t.Run("All checks pass", func(t *testing.T) {
		s := newFakeSession()
		h := HandleReadyz(map[string]CheckFunc{
			"session":  SessionCheck(s),
			"database": func(context.Context) error { return nil },
		})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode[HealthResponse](t, rec)
		assert.Equal(t, StatusOK, resp.Status)
		assert.Equal(t, map[string]string{"session": StatusOK, "database": StatusOK}, resp.Checks)
	})

	t.Run("Stopped session is unavailable", func(t *testing.T) {
		s := newFakeSession()
		s.running = false
		h := HandleReadyz(map[string]CheckFunc{
			"session":  SessionCheck(s),
			"database": func(context.Context) error { return assert.AnError },
		})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decode[HealthResponse](t, rec)
		assert.Equal(t, StatusUnavailable, resp.Status)
		assert.Equal(t, ErrSessionStopped.Error(), resp.Checks["session"])
		assert.Equal(t, assert.AnError.Error(), resp.Checks["database"])
	})
}

func TestHandleGetSession(t *testing.T) {
	now := func() time.Time { return testStart.Add(90*time.Minute + 500*time.Millisecond) }
	rec := httptest.NewRecorder()
	HandleGetSession(newFakeSession(), now).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SessionResponse](t, rec)
	assert.Equal(t, "session-1", resp.SessionID)
	assert.Equal(t, "1h30m0s", resp.Uptime)
	assert.True(t, resp.Running)
	assert.Equal(t, 2, resp.Streamers)
	assert.Equal(t, 1, resp.Online)
	assert.Equal(t, 2, resp.Predictions)
	assert.Equal(t, 40, resp.TotalGained)
}

func TestHandleGetConnections(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleGetConnections(newFakeSession()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/connections", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
		Data  []struct {
			ID     int      `json:"id"`
			Alive  bool     `json:"alive"`
			Topics []string `json:"topics"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.True(t, resp.Data[0].Alive)
	assert.Equal(t, []string{"video-playback-by-id.123"}, resp.Data[0].Topics)
}

func TestHandleGetStreamers(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleGetStreamers(newFakeSession()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/streamers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Count int               `json:"count"`
		Data  []domain.Streamer `json:"data"`
	}](t, rec)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "alice", resp.Data[0].Username)
}

func TestHandleGetStreamers_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleGetStreamers(&fakeSession{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/streamers", nil))

	assert.JSONEq(t, `{"count":0,"data":[]}`, rec.Body.String())
}

func TestHandleGetStreamer(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/streamers/{username}", HandleGetStreamer(newFakeSession()))

	t.Run("Found with gain", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/streamers/Alice", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[StreamerDetail](t, rec)
		assert.Equal(t, 540, resp.ChannelPoints)
		require.NotNil(t, resp.Gain)
		assert.Equal(t, 40, resp.Gain.Gained)
	})

	t.Run("Unknown streamer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/streamers/ghost", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), ErrMsgStreamerNotFound)
	})
}

func TestHandleGetPredictions(t *testing.T) {
	h := HandleGetPredictions(newFakeSession())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/predictions", nil))
	all := decode[struct {
		Count int                      `json:"count"`
		Data  []domain.PredictionEvent `json:"data"`
	}](t, rec)
	assert.Equal(t, 2, all.Count)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/predictions?streamer=BOB", nil))
	filtered := decode[struct {
		Count int                      `json:"count"`
		Data  []domain.PredictionEvent `json:"data"`
	}](t, rec)
	require.Equal(t, 1, filtered.Count)
	assert.Equal(t, "e2", filtered.Data[0].EventID)
}

func TestHandleGetEvents(t *testing.T) {
	t.Run("Passes filter to reader", func(t *testing.T) {
		reader := &MockEventReader{}
		since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		reader.On("Recent", mock.Anything, mock.MatchedBy(func(f eventlog.EventFilter) bool {
			return f.ChannelID != nil && *f.ChannelID == "123" &&
				f.EventType != nil && *f.EventType == "bet.placed" &&
				f.Since != nil && f.Since.Equal(since) &&
				f.Until == nil && f.Limit == 10
		})).Return([]eventlog.Event{{ID: 7, EventType: "bet.placed"}}, nil)

		rec := httptest.NewRecorder()
		url := "/api/v1/events?channel_id=123&type=bet.placed&since=2026-10-01T00:00:00Z&limit=10"
		HandleGetEvents(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"count":1,"data":[{"id":7,"event_type":"bet.placed","payload":null,"created_at":"0001-01-01T00:00:00Z"}]}`, rec.Body.String())
		reader.AssertExpectations(t)
	})

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"Unknown type", "type=item.sold", QueryType},
		{"Non numeric channel", "channel_id=abc", QueryChannelID},
		{"Limit too high", "limit=501", QueryLimit},
		{"Limit not a number", "limit=ten", QueryLimit},
		{"Bad since", "since=yesterday", QuerySince},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &MockEventReader{}
			rec := httptest.NewRecorder()
			HandleGetEvents(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, ErrMsgInvalidQuery, resp.Error)
			assert.Contains(t, resp.Fields, tt.field)
			reader.AssertNotCalled(t, "Recent", mock.Anything, mock.Anything)
		})
	}

	t.Run("Reader error", func(t *testing.T) {
		reader := &MockEventReader{}
		reader.On("Recent", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		rec := httptest.NewRecorder()
		HandleGetEvents(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("No reader configured", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleGetEvents(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})
}

func TestHandleVersion(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleVersion().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	resp := decode[VersionInfo](t, rec)
	assert.NotEmpty(t, resp.Version)
	assert.NotEmpty(t, resp.GoVersion)
}
