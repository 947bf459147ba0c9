package discord

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/worker"
)

type recordingSender struct {
	mu     sync.Mutex
	embeds []*discordgo.MessageEmbed
	chans  []string
	err    error
}

func (r *recordingSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chans = append(r.chans, channelID)
	r.embeds = append(r.embeds, embed)
	return &discordgo.Message{}, r.err
}

// inlineQueue runs jobs on the caller's goroutine.
type inlineQueue struct {
	errs []error
}

func (q *inlineQueue) Enqueue(job worker.Job) bool {
	q.errs = append(q.errs, job.Process(context.Background()))
	return true
}

type fullQueue struct{}

func (fullQueue) Enqueue(worker.Job) bool { return false }

var fixedNow = time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)

func newTestNotifier(sender Sender, q Queue) *Notifier {
	n := NewNotifier(sender, "chan-1", q)
	n.now = func() time.Time { return fixedNow }
	return n
}

func fieldValue(t *testing.T, e *discordgo.MessageEmbed, name string) string {
	t.Helper()
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("field %q missing", name)
	return ""
}

func TestNotifier_BetPlaced(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender, &inlineQueue{})

	pe := domain.PredictionEvent{
		EventID: "e1", Streamer: "alice", Title: "Win the round?",
		Outcomes: []domain.Outcome{{ID: "o1", Title: "Yes"}},
	}
	evt := event.NewBetEvent(pe, domain.StrategyHighOdds, domain.Decision{OutcomeID: "o1", Amount: 50}, "")
	require.NoError(t, n.HandleEvent(context.Background(), evt))

	require.Len(t, sender.embeds, 1)
	e := sender.embeds[0]
	assert.Equal(t, "chan-1", sender.chans[0])
	assert.Equal(t, TitleBetPlaced, e.Title)
	assert.Equal(t, "Win the round?", e.Description)
	assert.Equal(t, ColorBet, e.Color)
	assert.Equal(t, "Yes", fieldValue(t, e, FieldOutcome))
	assert.Equal(t, "50", fieldValue(t, e, FieldAmount))
	assert.Equal(t, "High Odds", fieldValue(t, e, FieldStrategy))
	assert.Equal(t, "2026-10-19T20:00:00Z", e.Timestamp)
}

func TestNotifier_BetFailed(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender, &inlineQueue{})

	pe := domain.PredictionEvent{EventID: "e1", Streamer: "alice", Title: "Win?"}
	evt := event.NewBetEvent(pe, domain.StrategySmart, domain.Decision{OutcomeID: "o1", Amount: 10}, "actuator timeout")
	require.NoError(t, n.HandleEvent(context.Background(), evt))

	require.Len(t, sender.embeds, 1)
	assert.Equal(t, TitleBetFailed, sender.embeds[0].Title)
	assert.Equal(t, ColorFailed, sender.embeds[0].Color)
	assert.Equal(t, "actuator timeout", fieldValue(t, sender.embeds[0], FieldReason))
}

func TestNotifier_PredictionResult(t *testing.T) {
	tests := []struct {
		result domain.ResultType
		color  int
		label  string
		gained string
		won    int
	}{
		{domain.ResultWin, ColorWin, "Win", "+60", 110},
		{domain.ResultLose, ColorLose, "Lose", "-50", 0},
		{domain.ResultRefund, ColorRefund, "Refund", "+0", 50},
	}
	for _, tt := range tests {
		t.Run(string(tt.result), func(t *testing.T) {
			sender := &recordingSender{}
			n := newTestNotifier(sender, &inlineQueue{})

			evt := event.Event{Type: event.PredictionResult, Payload: domain.PredictionResultPayload{
				Streamer: "alice", Title: "Win?", Result: tt.result, PointsWon: tt.won,
				Gained: map[domain.ResultType]int{domain.ResultWin: 60, domain.ResultLose: -50}[tt.result],
			}}
			require.NoError(t, n.HandleEvent(context.Background(), evt))

			require.Len(t, sender.embeds, 1)
			assert.Equal(t, tt.color, sender.embeds[0].Color)
			assert.Equal(t, tt.label, fieldValue(t, sender.embeds[0], FieldResult))
			assert.Equal(t, tt.gained, fieldValue(t, sender.embeds[0], FieldGained))
		})
	}
}

func TestNotifier_Raid(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender, &inlineQueue{})

	evt := event.NewRaidJoinedEvent(domain.RaidPayload{Streamer: "alice", TargetLogin: "bob", ViewerCount: 42})
	require.NoError(t, n.HandleEvent(context.Background(), evt))

	require.Len(t, sender.embeds, 1)
	assert.Equal(t, "**alice** raided **bob**", sender.embeds[0].Description)
	assert.Equal(t, "42", fieldValue(t, sender.embeds[0], FieldViewers))
}

func TestNotifier_IgnoresOtherEventsAndBadPayloads(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender, &inlineQueue{})
	ctx := context.Background()

	require.NoError(t, n.HandleEvent(ctx, event.NewStreamStatusEvent("1", "alice", true)))
	require.NoError(t, n.HandleEvent(ctx, event.Event{Type: event.RaidJoined, Payload: 12}))
	assert.Empty(t, sender.embeds)
}

func TestNotifier_SendErrorIsReportedToQueue(t *testing.T) {
	sender := &recordingSender{err: assert.AnError}
	q := &inlineQueue{}
	n := newTestNotifier(sender, q)

	evt := event.NewRaidJoinedEvent(domain.RaidPayload{Streamer: "alice", TargetLogin: "bob"})
	require.NoError(t, n.HandleEvent(context.Background(), evt))

	require.Len(t, q.errs, 1)
	assert.ErrorIs(t, q.errs[0], assert.AnError)
}

func TestNotifier_FullQueueDrops(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender, fullQueue{})

	evt := event.NewRaidJoinedEvent(domain.RaidPayload{Streamer: "alice", TargetLogin: "bob"})
	assert.NoError(t, n.HandleEvent(context.Background(), evt))
	assert.Empty(t, sender.embeds)
}

func TestNotifier_RegisterThroughWorkerPool(t *testing.T) {
	sender := &recordingSender{}
	pool := worker.NewPool(1, 4)
	pool.Start(context.Background())

	bus := event.NewMemoryBus()
	require.NoError(t, newTestNotifier(sender, pool).Register(bus))

	evt := event.NewRaidJoinedEvent(domain.RaidPayload{Streamer: "alice", TargetLogin: "bob"})
	require.NoError(t, bus.Publish(context.Background(), evt))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Stop(ctx))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.embeds, 1)
}
