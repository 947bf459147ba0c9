package miner

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// StreamerGain is one line of the session report.
type StreamerGain struct {
	Username string `json:"username"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Gained   int    `json:"gained"`
	History  string `json:"history,omitempty"`
}

// Gains compares every streamer against its session-start snapshot,
// ordered by username.
func (m *Miner) Gains() []StreamerGain {
	m.mu.Lock()
	snapshots := m.snapshots
	m.mu.Unlock()

	streamers := m.registry.All()
	out := make([]StreamerGain, 0, len(streamers))
	for i := range streamers {
		s := &streamers[i]
		start := s.ChannelPoints
		if snap, ok := snapshots[s.ChannelID]; ok {
			start = snap.ChannelPoints
		}
		out = append(out, StreamerGain{
			Username: s.Username,
			Start:    start,
			End:      s.ChannelPoints,
			Gained:   s.ChannelPoints - start,
			History:  s.HistorySummary(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Report writes the end-of-session summary.
func (m *Miner) Report(w io.Writer) error {
	m.mu.Lock()
	end := m.endedAt
	m.mu.Unlock()
	if end.IsZero() {
		end = m.deps.Clock.Now()
	}

	r := &reportWriter{w: w}
	r.printf("Session %s ended after %s\n", m.sessionID, end.Sub(m.startedAt).Round(time.Second))
	if m.cfg.LogFile != "" {
		r.printf("Logs: %s\n", m.cfg.LogFile)
	}
	if m.cfg.MakePredictions {
		r.printf("Bet settings: %s\n", m.cfg.Bet)
	}

	events := m.engine.Events()
	if len(events) > 0 {
		r.printf("Predictions (%d):\n", len(events))
		for i := range events {
			r.printf("  %s\n", events[i].Recap())
		}
	}

	r.printf("Streamers:\n")
	total := 0
	for _, g := range m.Gains() {
		total += g.Gained
		r.printf("  %s: %d -> %d (%+d)", g.Username, g.Start, g.End, g.Gained)
		if g.History != "" {
			r.printf(" %s", g.History)
		}
		r.printf("\n")
	}
	r.printf("Total gained: %+d\n", total)
	return r.err
}

// reportWriter keeps the first write error.
type reportWriter struct {
	w   io.Writer
	err error
}

func (r *reportWriter) printf(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

