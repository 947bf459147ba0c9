package pubsub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// fakeServer is a minimal pub/sub endpoint. Each accepted websocket is a
// session; sessions are numbered from 0 in accept order.
type fakeServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions []*fakeSession
	accepted []time.Time

	// ignorePings, listenError and dropAfterListen are consulted per
	// session index
	ignorePings     func(n int) bool
	listenError     func(n int) string
	dropAfterListen func(n int) bool
}

type fakeSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu     sync.Mutex
	topics map[string]struct{}
	tokens []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		ignorePings:     func(int) bool { return false },
		listenError:     func(int) string { return "" },
		dropAfterListen: func(int) bool { return false },
	}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := fs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sess := &fakeSession{conn: conn, topics: make(map[string]struct{})}

	fs.mu.Lock()
	n := len(fs.sessions)
	fs.sessions = append(fs.sessions, sess)
	fs.accepted = append(fs.accepted, time.Now())
	ignorePings, listenError, dropAfterListen := fs.ignorePings, fs.listenError, fs.dropAfterListen
	fs.mu.Unlock()

	defer conn.Close()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		switch req.Type {
		case TypePing:
			if !ignorePings(n) {
				sess.send(Frame{Type: TypePong})
			}
		case TypeListen:
			sess.mu.Lock()
			for _, topic := range req.Data.Topics {
				sess.topics[topic] = struct{}{}
			}
			sess.tokens = append(sess.tokens, req.Data.AuthToken)
			sess.mu.Unlock()
			sess.send(Frame{Type: TypeResponse, Nonce: req.Nonce, Error: listenError(n)})
			if dropAfterListen(n) {
				return
			}
		}
	}
}

func (s *fakeSession) send(f Frame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteJSON(f)
}

func (s *fakeSession) topicSet() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

func (fs *fakeServer) sessionCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.sessions)
}

// gaps returns the time between consecutive session accepts.
func (fs *fakeServer) gaps() []time.Duration {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]time.Duration, 0, len(fs.accepted))
	for i := 1; i < len(fs.accepted); i++ {
		out = append(out, fs.accepted[i].Sub(fs.accepted[i-1]))
	}
	return out
}

func (fs *fakeServer) session(n int) *fakeSession {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.sessions[n]
}

func (fs *fakeServer) sendMessage(n int, topic domain.Topic, inner string) {
	fs.session(n).send(Frame{Type: TypeMessage, Data: &MessageData{Topic: topic.String(), Message: inner}})
}

type received struct {
	topic domain.Topic
	env   Envelope
}

type recorder struct {
	mu   sync.Mutex
	msgs []received
}

func (r *recorder) handle(_ context.Context, topic domain.Topic, env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, received{topic: topic, env: env})
}

func (r *recorder) all() []received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]received(nil), r.msgs...)
}

func testConfig(url string) Config {
	return Config{
		URL:          url,
		AuthToken:    "token",
		PingInterval: time.Hour,
		PongTimeout:  time.Second,
		Backoff:      Backoff{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond},
		MaxAttempts:  5,
	}
}

func endPool(t *testing.T, p *Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, p.End(ctx))
}

func topicNames(topics ...domain.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.String()
	}
	sort.Strings(out)
	return out
}

func TestPool_SubmitIsIdempotent(t *testing.T) {
	fs := newFakeServer(t)
	rec := &recorder{}
	p := NewPool(context.Background(), testConfig(fs.url()), rec.handle)
	defer endPool(t, p)

	require.NoError(t, p.Submit(accountPoints))
	require.NoError(t, p.Submit(accountPoints))
	require.NoError(t, p.Submit(channelVideo))

	assert.Len(t, p.Topics(), 2)
	assert.Eventually(t, func() bool {
		return fs.sessionCount() == 1 && len(fs.session(0).topicSet()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, p.Connections(), 1)
}

func TestPool_SubmitRejectsInvalidTopic(t *testing.T) {
	p := NewPool(context.Background(), testConfig("ws://127.0.0.1:1"), (&recorder{}).handle)
	defer endPool(t, p)

	err := p.Submit(domain.NewTopic("bogus", "1"))
	assert.ErrorIs(t, err, domain.ErrInvalidTopic)
	assert.Empty(t, p.Connections())
}

func TestPool_PacksTopicsByCapacity(t *testing.T) {
	fs := newFakeServer(t)
	cfg := testConfig(fs.url())
	cfg.MaxTopicsPerConnection = 2
	p := NewPool(context.Background(), cfg, (&recorder{}).handle)
	defer endPool(t, p)

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, p.Submit(domain.NewTopic(domain.TopicChannelVideo, id)))
	}

	conns := p.Connections()
	require.Len(t, conns, 3)
	assert.Len(t, conns[0].Topics, 2)
	assert.Len(t, conns[1].Topics, 2)
	assert.Len(t, conns[2].Topics, 1)
}

func TestPool_DeliversDecodedEnvelopes(t *testing.T) {
	fs := newFakeServer(t)
	rec := &recorder{}
	p := NewPool(context.Background(), testConfig(fs.url()), rec.handle)
	defer endPool(t, p)

	require.NoError(t, p.Submit(accountPoints))
	require.Eventually(t, func() bool {
		return fs.sessionCount() == 1 && len(fs.session(0).topicSet()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	fs.sendMessage(0, accountPoints, `{"type":"points-spent","data":{"balance":{"channel_id":"123","balance":5}}}`)
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)

	got := rec.all()[0]
	assert.Equal(t, accountPoints, got.topic)
	assert.Equal(t, PointsSpent{ChannelID: "123", Balance: 5}, got.env)
	assert.Equal(t, []string{"token"}, fs.session(0).tokens)
}

func TestPool_MalformedFramesAreDropped(t *testing.T) {
	fs := newFakeServer(t)
	rec := &recorder{}
	p := NewPool(context.Background(), testConfig(fs.url()), rec.handle)
	defer endPool(t, p)

	require.NoError(t, p.Submit(channelVideo))
	require.Eventually(t, func() bool {
		return fs.sessionCount() == 1 && len(fs.session(0).topicSet()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sess := fs.session(0)
	sess.writeMu.Lock()
	_ = sess.conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	sess.writeMu.Unlock()
	sess.send(Frame{Type: TypeMessage})
	sess.send(Frame{Type: TypeMessage, Data: &MessageData{Topic: "nonsense", Message: "{}"}})
	fs.sendMessage(0, channelVideo, `{"type":"stream-up"}`)

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StreamUp{}, rec.all()[0].env)
	assert.Equal(t, 1, fs.sessionCount(), "connection stays up")
}

func TestPool_PongTimeoutReconnectsWithSameTopics(t *testing.T) {
	fs := newFakeServer(t)
	fs.ignorePings = func(n int) bool { return n == 0 }

	cfg := testConfig(fs.url())
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PongTimeout = 30 * time.Millisecond

	var (
		mu         sync.Mutex
		reconnects []ReconnectInfo
	)
	p := NewPool(context.Background(), cfg, (&recorder{}).handle, WithReconnectHandler(func(info ReconnectInfo) {
		mu.Lock()
		reconnects = append(reconnects, info)
		mu.Unlock()
	}))
	defer endPool(t, p)

	topics := []domain.Topic{accountPoints, channelVideo, channelPredictions}
	for _, topic := range topics {
		require.NoError(t, p.Submit(topic))
	}

	require.Eventually(t, func() bool { return fs.sessionCount() >= 2 }, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(fs.session(1).topicSet()) == len(topics)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, topicNames(topics...), fs.session(0).topicSet())
	assert.Equal(t, fs.session(0).topicSet(), fs.session(1).topicSet())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reconnects) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.ElementsMatch(t, topics, reconnects[0].Topics)
	assert.Equal(t, 1, reconnects[0].Attempts)
	mu.Unlock()
}

func TestPool_ReconnectRequestedByServer(t *testing.T) {
	fs := newFakeServer(t)
	p := NewPool(context.Background(), testConfig(fs.url()), (&recorder{}).handle)
	defer endPool(t, p)

	require.NoError(t, p.Submit(channelRaid))
	require.NoError(t, p.Submit(channelVideo))
	require.Eventually(t, func() bool {
		return fs.sessionCount() == 1 && len(fs.session(0).topicSet()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	fs.session(0).send(Frame{Type: TypeReconnect})

	require.Eventually(t, func() bool {
		return fs.sessionCount() == 2 && len(fs.session(1).topicSet()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, topicNames(channelRaid, channelVideo), fs.session(1).topicSet())
}

func TestPool_BadAuthReconnects(t *testing.T) {
	fs := newFakeServer(t)
	fs.listenError = func(n int) string {
		if n == 0 {
			return ErrCodeBadAuth
		}
		return ""
	}
	p := NewPool(context.Background(), testConfig(fs.url()), (&recorder{}).handle)
	defer endPool(t, p)

	require.NoError(t, p.Submit(accountPoints))
	require.Eventually(t, func() bool {
		return fs.sessionCount() >= 2 && len(fs.session(1).topicSet()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPool_ExhaustedAfterMaxAttempts(t *testing.T) {
	fs := newFakeServer(t)
	url := fs.url()
	fs.srv.Close()

	cfg := testConfig(url)
	cfg.MaxAttempts = 2
	cfg.Backoff = Backoff{Base: time.Millisecond, Max: 2 * time.Millisecond}

	exhausted := make(chan []domain.Topic, 1)
	p := NewPool(context.Background(), cfg, (&recorder{}).handle, WithExhaustedHandler(func(topics []domain.Topic) {
		exhausted <- topics
	}))
	defer endPool(t, p)

	require.NoError(t, p.Submit(accountPoints))

	select {
	case topics := <-exhausted:
		assert.Equal(t, []domain.Topic{accountPoints}, topics)
	case <-time.After(3 * time.Second):
		t.Fatal("expected exhaustion callback")
	}

	conns := p.Connections()
	require.Len(t, conns, 1)
	assert.True(t, conns[0].Dead)
	assert.Equal(t, 3, conns[0].Attempts)
}

func TestPool_UnhealthySessionsBackOffUntilExhausted(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(fs *fakeServer)
		reconnects int // acknowledged sessions after the first are announced
	}{
		{"rejected auth", func(fs *fakeServer) {
			fs.listenError = func(int) string { return ErrCodeBadAuth }
		}, 0},
		{"dropped after listen", func(fs *fakeServer) {
			fs.dropAfterListen = func(int) bool { return true }
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeServer(t)
			tt.setup(fs)

			cfg := testConfig(fs.url())
			cfg.MaxAttempts = 3
			cfg.Backoff = Backoff{Base: 20 * time.Millisecond, Max: time.Second}

			var (
				mu         sync.Mutex
				reconnects int
			)
			exhausted := make(chan []domain.Topic, 1)
			p := NewPool(context.Background(), cfg, (&recorder{}).handle,
				WithExhaustedHandler(func(topics []domain.Topic) { exhausted <- topics }),
				WithReconnectHandler(func(ReconnectInfo) {
					mu.Lock()
					reconnects++
					mu.Unlock()
				}))
			defer endPool(t, p)

			require.NoError(t, p.Submit(accountPoints))

			select {
			case topics := <-exhausted:
				assert.Equal(t, []domain.Topic{accountPoints}, topics)
			case <-time.After(5 * time.Second):
				t.Fatalf("expected exhaustion, saw %d sessions", fs.sessionCount())
			}

			assert.Equal(t, cfg.MaxAttempts+1, fs.sessionCount())
			gaps := fs.gaps()
			require.Len(t, gaps, cfg.MaxAttempts)
			for i, gap := range gaps {
				assert.GreaterOrEqual(t, gap, cfg.Backoff.Duration(i+1), "delay before attempt %d", i+1)
			}

			conns := p.Connections()
			require.Len(t, conns, 1)
			assert.True(t, conns[0].Dead)
			assert.Equal(t, cfg.MaxAttempts+1, conns[0].Attempts)

			mu.Lock()
			assert.Equal(t, tt.reconnects, reconnects)
			mu.Unlock()
		})
	}
}

func TestPool_HealthySessionResetsBackoff(t *testing.T) {
	fs := newFakeServer(t)
	fs.listenError = func(n int) string {
		if n < 2 {
			return ErrCodeBadAuth
		}
		return ""
	}

	reconnects := make(chan ReconnectInfo, 4)
	rec := &recorder{}
	p := NewPool(context.Background(), testConfig(fs.url()), rec.handle,
		WithReconnectHandler(func(info ReconnectInfo) { reconnects <- info }))
	defer endPool(t, p)

	require.NoError(t, p.Submit(accountPoints))

	next := func() ReconnectInfo {
		t.Helper()
		select {
		case info := <-reconnects:
			return info
		case <-time.After(3 * time.Second):
			t.Fatal("expected reconnect")
			return ReconnectInfo{}
		}
	}

	assert.Equal(t, 2, next().Attempts, "two rejected sessions before the first success")

	fs.sendMessage(2, accountPoints, `{"type":"points-spent","data":{"balance":{"channel_id":"1","balance":1}}}`)
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)

	fs.session(2).send(Frame{Type: TypeReconnect})
	assert.Equal(t, 1, next().Attempts, "traffic marked the session healthy")
	assert.Equal(t, 4, fs.sessionCount())
}

func TestPool_EndStopsDeliveriesAndSubmits(t *testing.T) {
	fs := newFakeServer(t)
	rec := &recorder{}
	p := NewPool(context.Background(), testConfig(fs.url()), rec.handle)

	require.NoError(t, p.Submit(accountPoints))
	require.Eventually(t, func() bool {
		return fs.sessionCount() == 1 && len(fs.session(0).topicSet()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	endPool(t, p)
	endPool(t, p)

	assert.ErrorIs(t, p.Submit(channelVideo), domain.ErrPoolClosed)

	fs.sendMessage(0, accountPoints, `{"type":"points-spent","data":{"balance":{"channel_id":"1","balance":1}}}`)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.all())
}

func TestFrame_MessageDataRoundTrip(t *testing.T) {
	raw := `{"type":"MESSAGE","data":{"topic":"raid.1","message":"{\"type\":\"raid_update_v2\"}"}}`
	var f Frame
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	require.NotNil(t, f.Data)
	assert.Equal(t, "raid.1", f.Data.Topic)
	assert.Equal(t, `{"type":"raid_update_v2"}`, f.Data.Message)
}
