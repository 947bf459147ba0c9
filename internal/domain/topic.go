package domain

import (
	"fmt"
	"strings"
)

// TopicFamily identifies the kind of real-time subscription.
type TopicFamily string

// Topic families understood by the miner. The string values are the
// platform's wire names.
const (
	TopicAccountPoints      TopicFamily = "community-points-user-v1"
	TopicAccountPredictions TopicFamily = "predictions-user-v1"
	TopicChannelVideo       TopicFamily = "video-playback-by-id"
	TopicChannelRaid        TopicFamily = "raid"
	TopicChannelPredictions TopicFamily = "predictions-channel-v1"
)

// IsAccountScoped reports whether topics of this family are scoped to the
// logged-in account rather than a streamer.
func (f TopicFamily) IsAccountScoped() bool {
	return f == TopicAccountPoints || f == TopicAccountPredictions
}

// Valid reports whether f is one of the known families.
func (f TopicFamily) Valid() bool {
	switch f {
	case TopicAccountPoints, TopicAccountPredictions, TopicChannelVideo, TopicChannelRaid, TopicChannelPredictions:
		return true
	}
	return false
}

// Topic is a (family, scope) pair. It is a comparable value type so it can
// be used directly as a map key; two topics are the same subscription iff
// they are equal.
type Topic struct {
	Family  TopicFamily
	ScopeID string
}

// NewTopic builds a topic.
func NewTopic(family TopicFamily, scopeID string) Topic {
	return Topic{Family: family, ScopeID: scopeID}
}

// String returns the wire form "family.scope".
func (t Topic) String() string {
	return string(t.Family) + "." + t.ScopeID
}

// ParseTopic parses the wire form produced by String.
func ParseTopic(s string) (Topic, error) {
	idx := strings.LastIndex(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}
	t := Topic{Family: TopicFamily(s[:idx]), ScopeID: s[idx+1:]}
	if !t.Family.Valid() {
		return Topic{}, fmt.Errorf("%w: unknown family %q", ErrInvalidTopic, t.Family)
	}
	return t, nil
}
