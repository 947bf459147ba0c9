package domain

import (
	"fmt"
	"strings"
	"time"
)

// HistoryEntry records a single point gain or loss with the reason the
// platform reported for it.
type HistoryEntry struct {
	Delta  int       `json:"delta"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Streamer is the mutable per-channel state tracked for the session.
// ChannelID and Username never change after construction.
type Streamer struct {
	ChannelID     string         `json:"channel_id"`
	Username      string         `json:"username"`
	Online        bool           `json:"online"`
	OnlineAt      time.Time      `json:"online_at,omitempty"`
	OfflineAt     time.Time      `json:"offline_at,omitempty"`
	ChannelPoints int            `json:"channel_points"`
	History       []HistoryEntry `json:"history,omitempty"`

	// BetSettings is the effective configuration for this channel after
	// per-streamer overrides have been applied.
	BetSettings BetSettings `json:"-"`
}

// NewStreamer creates a streamer with normalized username.
func NewStreamer(username, channelID string) *Streamer {
	return &Streamer{
		ChannelID: channelID,
		Username:  NormalizeUsername(username),
	}
}

// NormalizeUsername lowercases and trims a configured channel name.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Snapshot captures the reporting baseline for the streamer.
func (s *Streamer) Snapshot() StreamerSnapshot {
	return StreamerSnapshot{
		ChannelID:     s.ChannelID,
		Username:      s.Username,
		ChannelPoints: s.ChannelPoints,
	}
}

// Clone returns a copy safe to hand out of the registry lock.
func (s *Streamer) Clone() Streamer {
	c := *s
	c.History = append([]HistoryEntry(nil), s.History...)
	return c
}

// HistorySummary groups history entries by reason, e.g. "WATCH(12 times, 120 gained)".
func (s *Streamer) HistorySummary() string {
	type agg struct {
		count int
		total int
	}
	var order []string
	byReason := make(map[string]*agg)
	for _, h := range s.History {
		a, ok := byReason[h.Reason]
		if !ok {
			a = &agg{}
			byReason[h.Reason] = a
			order = append(order, h.Reason)
		}
		a.count++
		a.total += h.Delta
	}

	parts := make([]string, 0, len(order))
	for _, reason := range order {
		a := byReason[reason]
		parts = append(parts, fmt.Sprintf("%s(%d times, %d gained)", reason, a.count, a.total))
	}
	return strings.Join(parts, "; ")
}

func (s *Streamer) String() string {
	return fmt.Sprintf("Streamer(username=%s, channel_id=%s, channel_points=%d)", s.Username, s.ChannelID, s.ChannelPoints)
}

// StreamerSnapshot is the immutable balance baseline captured at session start.
type StreamerSnapshot struct {
	ChannelID     string `json:"channel_id"`
	Username      string `json:"username"`
	ChannelPoints int    `json:"channel_points"`
}
