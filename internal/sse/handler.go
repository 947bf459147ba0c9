package sse

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
)

// Handler streams hub events to one client until it disconnects or the hub
// stops. The optional types query parameter is a comma separated list of
// event types to receive.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, ErrMsgStreamingUnsupported, http.StatusInternalServerError)
			return
		}

		eventTypes, err := parseTypes(r.URL.Query().Get(QueryTypes))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		client := hub.Register(eventTypes)
		if client == nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		slog.Info(LogMsgClientConnected,
			"client_id", client.ID,
			"filters", eventTypes,
			"total_clients", hub.ClientCount())

		defer func() {
			hub.Unregister(client.ID)
			slog.Info(LogMsgClientDisconnected, "client_id", client.ID)
		}()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		write := func(e Event) bool {
			msg, err := FormatSSEMessage(e)
			if err != nil {
				slog.Error(LogMsgWriteError, "error", err)
				return true
			}
			if _, err := w.Write(msg); err != nil {
				slog.Warn(LogMsgWriteError, "client_id", client.ID, "error", err)
				return false
			}
			flusher.Flush()
			return true
		}

		hello := hub.newEvent(client.ID, EventTypeConnected, map[string]interface{}{
			"client_id": client.ID,
			"filters":   eventTypes,
		})
		if !write(hello) {
			return
		}

		ticker := hub.clock.NewTicker(KeepaliveInterval)
		defer ticker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-client.EventChannel:
				if !ok {
					return
				}
				if !write(e) {
					return
				}
			case <-ticker.Chan():
				if !write(hub.newEvent("", EventTypeKeepalive, nil)) {
					return
				}
			}
		}
	}
}

// parseTypes splits and checks the types filter. Empty means all types.
func parseTypes(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !slices.Contains(event.AllTypes, event.Type(part)) {
			return nil, errors.New(ErrMsgUnknownEventType + part)
		}
		out = append(out, part)
	}
	return out, nil
}
