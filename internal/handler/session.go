package handler

import (
	"net/http"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/pubsub"
)

// SessionResponse summarizes the current mining session.
type SessionResponse struct {
	SessionID   string    `json:"session_id"`
	StartedAt   time.Time `json:"started_at"`
	Uptime      string    `json:"uptime"`
	Running     bool      `json:"running"`
	Streamers   int       `json:"streamers"`
	Online      int       `json:"online"`
	Predictions int       `json:"predictions"`
	TotalGained int       `json:"total_gained"`
}

// HandleGetSession reports session-level counters.
func HandleGetSession(s Session, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		streamers := s.Streamers()
		online := 0
		for i := range streamers {
			if streamers[i].Online {
				online++
			}
		}
		total := 0
		for _, g := range s.Gains() {
			total += g.Gained
		}

		respondJSON(w, http.StatusOK, SessionResponse{
			SessionID:   s.SessionID(),
			StartedAt:   s.StartedAt(),
			Uptime:      now().Sub(s.StartedAt()).Truncate(time.Second).String(),
			Running:     s.Running(),
			Streamers:   len(streamers),
			Online:      online,
			Predictions: len(s.Predictions()),
			TotalGained: total,
		})
	}
}

// HandleGetConnections lists the pub/sub connections and their topics.
func HandleGetConnections(s Session) http.HandlerFunc {
	type connectionView struct {
		pubsub.ConnectionInfo
		Topics []string `json:"topics"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conns := s.Connections()
		out := make([]connectionView, 0, len(conns))
		for _, c := range conns {
			topics := make([]string, 0, len(c.Topics))
			for _, t := range c.Topics {
				topics = append(topics, t.String())
			}
			out = append(out, connectionView{ConnectionInfo: c, Topics: topics})
		}
		respondList(w, out)
	}
}
