package handler

import (
	"net/http"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// HandleGetPredictions lists tracked predictions in creation order,
// optionally narrowed to one streamer.
func HandleGetPredictions(s Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := s.Predictions()
		name := r.URL.Query().Get(QueryStreamer)
		if name == "" {
			respondList(w, events)
			return
		}

		name = domain.NormalizeUsername(name)
		out := make([]domain.PredictionEvent, 0, len(events))
		for _, e := range events {
			if e.Streamer == name {
				out = append(out, e)
			}
		}
		respondList(w, out)
	}
}
