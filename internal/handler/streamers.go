package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/miner"
)

// StreamerDetail is a streamer with its session gain.
type StreamerDetail struct {
	domain.Streamer
	Gain *miner.StreamerGain `json:"gain,omitempty"`
}

// HandleGetStreamers lists tracked streamers ordered by username.
func HandleGetStreamers(s Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondList(w, s.Streamers())
	}
}

// HandleGetStreamer returns one streamer by login.
func HandleGetStreamer(s Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := domain.NormalizeUsername(chi.URLParam(r, URLParamUsername))

		for _, st := range s.Streamers() {
			if st.Username != username {
				continue
			}
			detail := StreamerDetail{Streamer: st}
			for _, g := range s.Gains() {
				if g.Username == username {
					g := g
					detail.Gain = &g
					break
				}
			}
			respondJSON(w, http.StatusOK, detail)
			return
		}
		respondError(w, http.StatusNotFound, ErrMsgStreamerNotFound)
	}
}
