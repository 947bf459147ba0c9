// Package streamer holds the session's mutable per-channel state.
package streamer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// Registry maps channel ids to streamer state. All reads return copies;
// mutation happens only through the methods below, under the registry lock.
//
// Lock order: a caller holding the registry lock (inside View) may take the
// prediction engine lock, never the reverse.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Streamer
	byName map[string]string
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*domain.Streamer),
		byName: make(map[string]string),
	}
}

// Add registers a streamer. Adding the same channel id twice is an error.
func (r *Registry) Add(s *domain.Streamer) error {
	if s == nil || s.ChannelID == "" {
		return fmt.Errorf("streamer: add: missing channel id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ChannelID]; ok {
		return fmt.Errorf("streamer: add %s: already registered", s.Username)
	}
	r.byID[s.ChannelID] = s
	r.byName[s.Username] = s.ChannelID
	r.order = append(r.order, s.ChannelID)
	return nil
}

// Get returns a copy of the streamer with the given channel id.
func (r *Registry) Get(channelID string) (domain.Streamer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[channelID]
	if !ok {
		return domain.Streamer{}, false
	}
	return s.Clone(), true
}

// ByUsername resolves a username to its channel id.
func (r *Registry) ByUsername(username string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[domain.NormalizeUsername(username)]
	return id, ok
}

// View runs fn with read access to the live streamer under the registry
// read lock. fn must not retain the pointer or mutate it.
func (r *Registry) View(channelID string, fn func(s *domain.Streamer)) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[channelID]
	if !ok {
		return false
	}
	fn(s)
	return true
}

// SetBalance stores an authoritative balance and returns the delta applied.
func (r *Registry) SetBalance(channelID string, balance int) (int, bool) {
	if balance < 0 {
		balance = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[channelID]
	if !ok {
		return 0, false
	}
	delta := balance - s.ChannelPoints
	s.ChannelPoints = balance
	return delta, true
}

// AppendHistory records a point change for the session report.
func (r *Registry) AppendHistory(channelID string, entry domain.HistoryEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[channelID]
	if !ok {
		return false
	}
	s.History = append(s.History, entry)
	return true
}

// SetOnline updates the online flag and reports whether it changed.
func (r *Registry) SetOnline(channelID string, online bool, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[channelID]
	if !ok || s.Online == online {
		return false
	}
	s.Online = online
	if online {
		s.OnlineAt = at
	} else {
		s.OfflineAt = at
	}
	return true
}

// Online returns copies of every streamer currently marked online.
func (r *Registry) Online() []domain.Streamer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Streamer, 0, len(r.order))
	for _, id := range r.order {
		if s := r.byID[id]; s.Online {
			out = append(out, s.Clone())
		}
	}
	return out
}

// All returns copies of every streamer in registration order.
func (r *Registry) All() []domain.Streamer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Streamer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

// Snapshots captures the reporting baseline of every streamer.
func (r *Registry) Snapshots() map[string]domain.StreamerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.StreamerSnapshot, len(r.byID))
	for id, s := range r.byID {
		out[id] = s.Snapshot()
	}
	return out
}

// ChannelIDs returns the registered channel ids sorted for stable output.
func (r *Registry) ChannelIDs() []string {
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered streamers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
