package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// Envelope is a decoded MESSAGE payload. The set of implementations is
// closed: every payload decodes to exactly one of the types below, with
// Unrecognized covering anything unknown or malformed.
type Envelope interface {
	// Kind returns the platform's inner message type.
	Kind() string
	envelope()
}

// PointsEarned reports a gain on the account-points topic.
type PointsEarned struct {
	ChannelID string
	Balance   int
	Gained    int
	Reason    string
	At        time.Time
}

// PointsSpent reports a spend on the account-points topic.
type PointsSpent struct {
	ChannelID string
	Balance   int
	At        time.Time
}

// ClaimAvailable announces a bonus chest that can be claimed.
type ClaimAvailable struct {
	ChannelID string
	ClaimID   string
}

// StreamUp is published when a channel goes live.
type StreamUp struct {
	ServerTime float64
}

// StreamDown is published when a channel goes offline.
type StreamDown struct {
	ServerTime float64
}

// ViewCount is published periodically while a channel is live.
type ViewCount struct {
	Viewers int
}

// RaidUpdate announces an outgoing raid from a tracked channel.
type RaidUpdate struct {
	RaidID      string
	TargetID    string
	TargetLogin string
	ViewerCount int
}

// PredictionUpdate carries the full state of a channel prediction.
type PredictionUpdate struct {
	EventID          string
	ChannelID        string
	Title            string
	Status           domain.PredictionStatus
	Outcomes         []domain.Outcome
	CreatedAt        time.Time
	WindowSeconds    float64
	WinningOutcomeID string
}

// PredictionResult is the account-level result of a bet.
type PredictionResult struct {
	EventID   string
	ChannelID string
	OutcomeID string
	Points    int
	Type      domain.ResultType
	PointsWon int
}

// PredictionMade confirms a bet placed by the account.
type PredictionMade struct {
	EventID   string
	ChannelID string
	OutcomeID string
	Points    int
}

// Unrecognized is any payload that could not be decoded into a known kind.
type Unrecognized struct {
	Type   string
	Reason string
}

func (PointsEarned) Kind() string     { return MsgPointsEarned }
func (PointsSpent) Kind() string      { return MsgPointsSpent }
func (ClaimAvailable) Kind() string   { return MsgClaimAvailable }
func (StreamUp) Kind() string         { return MsgStreamUp }
func (StreamDown) Kind() string       { return MsgStreamDown }
func (ViewCount) Kind() string        { return MsgViewCount }
func (RaidUpdate) Kind() string       { return MsgRaidUpdate }
func (PredictionUpdate) Kind() string { return MsgEventUpdated }
func (PredictionResult) Kind() string { return MsgPredictionResult }
func (PredictionMade) Kind() string   { return MsgPredictionMade }
func (u Unrecognized) Kind() string   { return u.Type }

func (PointsEarned) envelope()     {}
func (PointsSpent) envelope()      {}
func (ClaimAvailable) envelope()   {}
func (StreamUp) envelope()         {}
func (StreamDown) envelope()       {}
func (ViewCount) envelope()        {}
func (RaidUpdate) envelope()       {}
func (PredictionUpdate) envelope() {}
func (PredictionResult) envelope() {}
func (PredictionMade) envelope()   {}
func (Unrecognized) envelope()     {}

type pointsBalance struct {
	ChannelID string `json:"channel_id"`
	Balance   *int   `json:"balance"`
}

type pointsMessage struct {
	Type string `json:"type"`
	Data struct {
		Timestamp string        `json:"timestamp"`
		ChannelID string        `json:"channel_id"`
		Balance   *pointsBalance `json:"balance"`
		PointGain struct {
			ChannelID   string `json:"channel_id"`
			TotalPoints int    `json:"total_points"`
			ReasonCode  string `json:"reason_code"`
		} `json:"point_gain"`
		Claim struct {
			ID        string `json:"id"`
			ChannelID string `json:"channel_id"`
		} `json:"claim"`
	} `json:"data"`
}

type videoMessage struct {
	Type       string  `json:"type"`
	ServerTime float64 `json:"server_time"`
	Viewers    int     `json:"viewers"`
}

type raidMessage struct {
	Type string `json:"type"`
	Raid struct {
		ID          string `json:"id"`
		TargetID    string `json:"target_id"`
		TargetLogin string `json:"target_login"`
		ViewerCount int    `json:"viewer_count"`
	} `json:"raid"`
}

type predictionEventMessage struct {
	Type string `json:"type"`
	Data struct {
		Event struct {
			ID                      string           `json:"id"`
			ChannelID               string           `json:"channel_id"`
			Title                   string           `json:"title"`
			Status                  string           `json:"status"`
			CreatedAt               string           `json:"created_at"`
			PredictionWindowSeconds float64          `json:"prediction_window_seconds"`
			WinningOutcomeID        *string          `json:"winning_outcome_id"`
			Outcomes                []outcomeMessage `json:"outcomes"`
		} `json:"event"`
	} `json:"data"`
}

type outcomeMessage struct {
	domain.Outcome
	TopPredictors []struct {
		Points int `json:"points"`
	} `json:"top_predictors"`
}

type predictionUserMessage struct {
	Type string `json:"type"`
	Data struct {
		Prediction struct {
			EventID   string `json:"event_id"`
			ChannelID string `json:"channel_id"`
			OutcomeID string `json:"outcome_id"`
			Points    int    `json:"points"`
			Result    *struct {
				Type      string `json:"type"`
				PointsWon *int   `json:"points_won"`
			} `json:"result"`
		} `json:"prediction"`
	} `json:"data"`
}

// Decode turns the inner message of a MESSAGE frame into an Envelope.
// It never fails: undecodable input becomes Unrecognized.
func Decode(topic domain.Topic, raw []byte) Envelope {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Unrecognized{Reason: fmt.Sprintf("invalid json: %v", err)}
	}

	var (
		env Envelope
		err error
	)
	switch topic.Family {
	case domain.TopicAccountPoints:
		env, err = decodePoints(head.Type, raw)
	case domain.TopicChannelVideo:
		env, err = decodeVideo(head.Type, raw)
	case domain.TopicChannelRaid:
		env, err = decodeRaid(head.Type, raw)
	case domain.TopicChannelPredictions:
		env, err = decodePredictionEvent(head.Type, raw)
	case domain.TopicAccountPredictions:
		env, err = decodePredictionUser(head.Type, raw)
	default:
		err = fmt.Errorf("unknown topic family %q", topic.Family)
	}
	if err != nil {
		return Unrecognized{Type: head.Type, Reason: err.Error()}
	}
	return env
}

// balance returns the authoritative balance. Balance updates without one
// are rejected rather than read as zero.
func (m pointsMessage) balance(kind string) (int, error) {
	if m.Data.Balance == nil || m.Data.Balance.Balance == nil {
		return 0, fmt.Errorf("%s: missing balance", kind)
	}
	return *m.Data.Balance.Balance, nil
}

func decodePoints(kind string, raw []byte) (Envelope, error) {
	var m pointsMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	at := parseTime(m.Data.Timestamp)
	switch kind {
	case MsgPointsEarned:
		balance, err := m.balance(kind)
		if err != nil {
			return nil, err
		}
		channelID := firstNonEmpty(m.Data.Balance.ChannelID, m.Data.PointGain.ChannelID, m.Data.ChannelID)
		if channelID == "" {
			return nil, fmt.Errorf("%s: missing channel id", kind)
		}
		return PointsEarned{
			ChannelID: channelID,
			Balance:   balance,
			Gained:    m.Data.PointGain.TotalPoints,
			Reason:    m.Data.PointGain.ReasonCode,
			At:        at,
		}, nil
	case MsgPointsSpent:
		balance, err := m.balance(kind)
		if err != nil {
			return nil, err
		}
		channelID := firstNonEmpty(m.Data.Balance.ChannelID, m.Data.ChannelID)
		if channelID == "" {
			return nil, fmt.Errorf("%s: missing channel id", kind)
		}
		return PointsSpent{ChannelID: channelID, Balance: balance, At: at}, nil
	case MsgClaimAvailable:
		if m.Data.Claim.ID == "" {
			return nil, fmt.Errorf("%s: missing claim id", kind)
		}
		return ClaimAvailable{
			ChannelID: firstNonEmpty(m.Data.Claim.ChannelID, m.Data.ChannelID),
			ClaimID:   m.Data.Claim.ID,
		}, nil
	}
	return nil, fmt.Errorf("unsupported message type %q", kind)
}

func decodeVideo(kind string, raw []byte) (Envelope, error) {
	var m videoMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	switch kind {
	case MsgStreamUp:
		return StreamUp{ServerTime: m.ServerTime}, nil
	case MsgStreamDown:
		return StreamDown{ServerTime: m.ServerTime}, nil
	case MsgViewCount:
		return ViewCount{Viewers: m.Viewers}, nil
	}
	return nil, fmt.Errorf("unsupported message type %q", kind)
}

func decodeRaid(kind string, raw []byte) (Envelope, error) {
	if kind != MsgRaidUpdate && kind != MsgRaidGo {
		return nil, fmt.Errorf("unsupported message type %q", kind)
	}
	var m raidMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m.Raid.ID == "" {
		return nil, fmt.Errorf("%s: missing raid id", kind)
	}
	return RaidUpdate{
		RaidID:      m.Raid.ID,
		TargetID:    m.Raid.TargetID,
		TargetLogin: m.Raid.TargetLogin,
		ViewerCount: m.Raid.ViewerCount,
	}, nil
}

func decodePredictionEvent(kind string, raw []byte) (Envelope, error) {
	if kind != MsgEventCreated && kind != MsgEventUpdated {
		return nil, fmt.Errorf("unsupported message type %q", kind)
	}
	var m predictionEventMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	ev := m.Data.Event
	if ev.ID == "" {
		return nil, fmt.Errorf("%s: missing event id", kind)
	}
	status, ok := domain.ParsePredictionStatus(ev.Status)
	if !ok {
		return nil, fmt.Errorf("%s: unknown status %q", kind, ev.Status)
	}
	u := PredictionUpdate{
		EventID:       ev.ID,
		ChannelID:     ev.ChannelID,
		Title:         ev.Title,
		Status:        status,
		Outcomes:      make([]domain.Outcome, 0, len(ev.Outcomes)),
		CreatedAt:     parseTime(ev.CreatedAt),
		WindowSeconds: ev.PredictionWindowSeconds,
	}
	for _, om := range ev.Outcomes {
		o := om.Outcome
		for _, tp := range om.TopPredictors {
			if tp.Points > o.TopPoints {
				o.TopPoints = tp.Points
			}
		}
		u.Outcomes = append(u.Outcomes, o)
	}
	if ev.WinningOutcomeID != nil {
		u.WinningOutcomeID = *ev.WinningOutcomeID
	}
	return u, nil
}

func decodePredictionUser(kind string, raw []byte) (Envelope, error) {
	var m predictionUserMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	p := m.Data.Prediction
	if p.EventID == "" {
		return nil, fmt.Errorf("%s: missing event id", kind)
	}
	switch kind {
	case MsgPredictionMade:
		return PredictionMade{EventID: p.EventID, ChannelID: p.ChannelID, OutcomeID: p.OutcomeID, Points: p.Points}, nil
	case MsgPredictionResult:
		if p.Result == nil {
			return nil, fmt.Errorf("%s: missing result", kind)
		}
		r := PredictionResult{
			EventID:   p.EventID,
			ChannelID: p.ChannelID,
			OutcomeID: p.OutcomeID,
			Points:    p.Points,
			Type:      domain.ResultType(p.Result.Type),
		}
		if p.Result.PointsWon != nil {
			r.PointsWon = *p.Result.PointsWon
		}
		switch r.Type {
		case domain.ResultWin, domain.ResultLose, domain.ResultRefund:
		default:
			return nil, fmt.Errorf("%s: unknown result type %q", kind, r.Type)
		}
		return r, nil
	}
	return nil, fmt.Errorf("unsupported message type %q", kind)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
