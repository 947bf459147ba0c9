package twitch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// gqlServer answers GQL operations by name and records what it saw.
type gqlServer struct {
	t        *testing.T
	mu       sync.Mutex
	requests []gqlRequest
	handlers map[string]func(w http.ResponseWriter, req gqlRequest)
	spade    []string
	fail500  atomic.Int32
}

func newGQLServer(t *testing.T) (*gqlServer, *Client) {
	t.Helper()
	s := &gqlServer{t: t, handlers: make(map[string]func(http.ResponseWriter, gqlRequest))}
	mux := http.NewServeMux()
	mux.HandleFunc("/gql", s.serveGQL)
	mux.HandleFunc("/spade", s.serveSpade)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		Username:          "miner",
		AuthToken:         "token",
		GQLURL:            srv.URL + "/gql",
		SpadeURL:          srv.URL + "/spade",
		RequestsPerSecond: 1000,
	}, WithLookupJitter(func() time.Duration { return 0 }))
	return s, c
}

func (s *gqlServer) on(op string, fn func(w http.ResponseWriter, req gqlRequest)) {
	s.handlers[op] = fn
}

func (s *gqlServer) serveGQL(w http.ResponseWriter, r *http.Request) {
	if s.fail500.Load() > 0 {
		s.fail500.Add(-1)
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	assert.Equal(s.t, "OAuth token", r.Header.Get("Authorization"))
	assert.Equal(s.t, DefaultClientID, r.Header.Get("Client-Id"))

	var req gqlRequest
	require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	fn, ok := s.handlers[req.OperationName]
	if !ok {
		http.Error(w, "unknown operation", http.StatusBadRequest)
		return
	}
	fn(w, req)
}

func (s *gqlServer) serveSpade(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	form, err := url.ParseQuery(string(body))
	require.NoError(s.t, err)
	raw, err := base64.StdEncoding.DecodeString(form.Get("data"))
	require.NoError(s.t, err)
	s.mu.Lock()
	s.spade = append(s.spade, string(raw))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func reply(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"data":`+data+`}`)
}

func TestResolveChannelID(t *testing.T) {
	srv, c := newGQLServer(t)
	srv.on("GetIDFromLogin", func(w http.ResponseWriter, req gqlRequest) {
		if req.Variables["login"] == "alice" {
			reply(w, `{"user":{"id":"123","login":"alice"}}`)
			return
		}
		reply(w, `{"user":null}`)
	})

	id, err := c.ResolveChannelID(context.Background(), " Alice ")
	require.NoError(t, err)
	assert.Equal(t, "123", id)

	_, err = c.ResolveChannelID(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrStreamerNotFound)
}

func TestLoadChannelPoints(t *testing.T) {
	srv, c := newGQLServer(t)
	srv.on(OpChannelPointsContext, func(w http.ResponseWriter, req gqlRequest) {
		require.NotNil(t, req.Extensions)
		assert.Equal(t, HashChannelPointsContext, req.Extensions.PersistedQuery.SHA256Hash)
		reply(w, `{"community":{"channel":{"self":{"communityPoints":{"balance":1250}}}}}`)
	})

	balance, err := c.LoadChannelPoints(context.Background(), domain.NewStreamer("alice", "123"))
	require.NoError(t, err)
	assert.Equal(t, 1250, balance)
}

func TestRequestRetriesServerErrors(t *testing.T) {
	srv, c := newGQLServer(t)
	srv.fail500.Store(2)
	srv.on(OpJoinRaid, func(w http.ResponseWriter, _ gqlRequest) { reply(w, `{}`) })

	require.NoError(t, c.JoinRaid(context.Background(), "raid-1"))
	assert.Zero(t, srv.fail500.Load())
}

func TestUnauthorizedIsReported(t *testing.T) {
	srv, c := newGQLServer(t)
	srv.on(OpClaimCommunityPoints, func(w http.ResponseWriter, _ gqlRequest) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.ClaimBonus(context.Background(), "123", "claim-1")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestCheckOnlineAndPresence(t *testing.T) {
	srv, c := newGQLServer(t)
	srv.on("GetIDFromLogin", func(w http.ResponseWriter, _ gqlRequest) {
		reply(w, `{"user":{"id":"999","login":"miner"}}`)
	})
	srv.on("StreamStatus", func(w http.ResponseWriter, req gqlRequest) {
		if req.Variables["id"] == "123" {
			reply(w, `{"user":{"stream":{"id":"b-1"}}}`)
			return
		}
		reply(w, `{"user":{"stream":null}}`)
	})
	ctx := context.Background()
	alice := domain.NewStreamer("alice", "123")
	bob := domain.NewStreamer("bob", "456")

	online, err := c.CheckOnline(ctx, alice)
	require.NoError(t, err)
	assert.True(t, online)
	online, err = c.CheckOnline(ctx, bob)
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, c.SendPresence(ctx, *alice))
	assert.Error(t, c.SendPresence(ctx, *bob))

	srv.mu.Lock()
	spade := append([]string(nil), srv.spade...)
	srv.mu.Unlock()
	require.Len(t, spade, 1)
	var events []presenceEvent
	require.NoError(t, json.Unmarshal([]byte(spade[0]), &events))
	require.Len(t, events, 1)
	assert.Equal(t, EventMinuteWatched, events[0].Event)
	assert.Equal(t, "b-1", events[0].Properties.BroadcastID)
	assert.Equal(t, "999", events[0].Properties.UserID)
}

func TestBetActuator(t *testing.T) {
	srv, c := newGQLServer(t)
	srv.on(OpMakePrediction, func(w http.ResponseWriter, req gqlRequest) {
		input := req.Variables["input"].(map[string]interface{})
		if input["eventID"] == "late" {
			reply(w, `{"makePrediction":{"error":{"code":"EVENT_NOT_ACTIVE"}}}`)
			return
		}
		assert.Equal(t, float64(50), input["points"])
		assert.Len(t, input["transactionID"], 32)
		reply(w, `{"makePrediction":{"error":null}}`)
	})
	a := NewBetActuator(c)
	ctx := context.Background()

	require.NoError(t, a.PlaceBet(ctx, "evt-1", "B", 50))
	assert.ErrorIs(t, a.PlaceBet(ctx, "late", "B", 50), domain.ErrWindowClosed)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.PlaceBet(ctx, "evt-2", "B", 50), domain.ErrActuatorLost)
}

func TestBetActuator_RejectedTokenIsLoss(t *testing.T) {
	srv, c := newGQLServer(t)
	srv.on(OpMakePrediction, func(w http.ResponseWriter, _ gqlRequest) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := NewBetActuator(c).PlaceBet(context.Background(), "evt-1", "B", 50)
	assert.ErrorIs(t, err, domain.ErrActuatorLost)
}

func TestBetActuator_ServerErrorIsNotRetried(t *testing.T) {
	srv, c := newGQLServer(t)
	srv.fail500.Store(5)
	srv.on(OpMakePrediction, func(w http.ResponseWriter, _ gqlRequest) {
		reply(w, `{"makePrediction":{"error":null}}`)
	})

	err := NewBetActuator(c).PlaceBet(context.Background(), "evt-1", "B", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.NotContains(t, err.Error(), "max retries")
	assert.Equal(t, int32(4), srv.fail500.Load(), "exactly one POST")
}
