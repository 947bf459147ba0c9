package actuator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// fakeAgent greets, optionally challenges, and answers PlaceBet requests
// with answer(args).
type fakeAgent struct {
	t        *testing.T
	password string
	answer   func(args BetArgs) Response
}

func (a *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var greeting AuthChallenge
	if a.password != "" {
		greeting.Info.Authentication.Challenge = "chal"
		greeting.Info.Authentication.Salt = "salt"
	}
	if err := conn.WriteJSON(greeting); err != nil {
		return
	}
	if a.password != "" {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := Response{ID: req.ID, Status: StatusOK}
		if req.Authentication != GenerateAuthHash(a.password, "salt", "chal") {
			resp = Response{ID: req.ID, Status: StatusError, Error: "bad password"}
		}
		if err := conn.WriteJSON(resp); err != nil || resp.Status != StatusOK {
			return
		}
	}

	for {
		var raw struct {
			Request string          `json:"request"`
			ID      string          `json:"id"`
			Args    json.RawMessage `json:"args"`
		}
		if err := conn.ReadJSON(&raw); err != nil {
			return
		}
		var args BetArgs
		require.NoError(a.t, json.Unmarshal(raw.Args, &args))
		resp := a.answer(args)
		resp.ID = raw.ID
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func startAgent(t *testing.T, agent *fakeAgent) *Remote {
	t.Helper()
	agent.t = t
	srv := httptest.NewServer(agent)
	t.Cleanup(srv.Close)

	r := NewRemote("ws"+strings.TrimPrefix(srv.URL, "http"), agent.password)
	r.Start(context.Background())
	t.Cleanup(func() { _ = r.Close() })
	require.Eventually(t, r.IsConnected, 2*time.Second, 10*time.Millisecond)
	return r
}

func TestRemote_PlaceBet(t *testing.T) {
	r := startAgent(t, &fakeAgent{answer: func(args BetArgs) Response {
		switch args.EventID {
		case "late":
			return Response{Status: StatusError, Code: CodeWindowClosed, Error: "locked"}
		case "lost":
			return Response{Status: StatusError, Code: CodeSessionLost, Error: "browser crashed"}
		case "odd":
			return Response{Status: StatusError, Error: "button missing"}
		}
		return Response{Status: StatusOK}
	}})
	ctx := context.Background()

	assert.NoError(t, r.PlaceBet(ctx, "evt-1", "B", 50))
	assert.ErrorIs(t, r.PlaceBet(ctx, "late", "B", 50), domain.ErrWindowClosed)
	assert.ErrorIs(t, r.PlaceBet(ctx, "lost", "B", 50), domain.ErrActuatorLost)

	err := r.PlaceBet(ctx, "odd", "B", 50)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrActuatorLost)
	assert.Contains(t, err.Error(), "button missing")
}

func TestRemote_Authenticates(t *testing.T) {
	r := startAgent(t, &fakeAgent{password: "secret", answer: func(BetArgs) Response {
		return Response{Status: StatusOK}
	}})

	assert.NoError(t, r.PlaceBet(context.Background(), "evt-1", "A", 10))
}

func TestRemote_TimesOutWithContext(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	r := startAgent(t, &fakeAgent{answer: func(BetArgs) Response {
		<-block
		return Response{Status: StatusOK}
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.PlaceBet(ctx, "evt-1", "A", 10), context.DeadlineExceeded)
}

func TestRemote_ClosedIsLost(t *testing.T) {
	r := startAgent(t, &fakeAgent{answer: func(BetArgs) Response { return Response{Status: StatusOK} }})

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.PlaceBet(context.Background(), "evt-1", "A", 10), domain.ErrActuatorLost)
}

func TestRemote_DormantWakesAndReportsLoss(t *testing.T) {
	r := NewRemote("ws://127.0.0.1:1/unused", "")
	r.mu.Lock()
	r.dormant = true
	r.mu.Unlock()

	assert.ErrorIs(t, r.PlaceBet(context.Background(), "evt-1", "A", 10), domain.ErrActuatorLost)
	assert.ErrorIs(t, r.PlaceBet(context.Background(), "evt-2", "A", 10), domain.ErrActuatorLost)

	select {
	case <-r.wakeup:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected wakeup signal")
	}
	select {
	case <-r.wakeup:
		t.Error("wakeup must not queue more than one signal")
	default:
	}
}

func TestRemote_NotConnected(t *testing.T) {
	r := NewRemote("", "")
	assert.Equal(t, DefaultURL, r.url)
	assert.ErrorIs(t, r.PlaceBet(context.Background(), "evt-1", "A", 10), errNotConnected)
}
