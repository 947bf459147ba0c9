package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PredictionStatus is the lifecycle state of a prediction window.
type PredictionStatus string

const (
	PredictionActive   PredictionStatus = "ACTIVE"
	PredictionLocked   PredictionStatus = "LOCKED"
	PredictionResolved PredictionStatus = "RESOLVED"
	PredictionCanceled PredictionStatus = "CANCELED"
)

// platform sends RESOLVE_PENDING between LOCKED and RESOLVED
const platformResolvePending = "RESOLVE_PENDING"

// ParsePredictionStatus maps a platform status string onto the lifecycle.
func ParsePredictionStatus(s string) (PredictionStatus, bool) {
	switch strings.ToUpper(s) {
	case string(PredictionActive):
		return PredictionActive, true
	case string(PredictionLocked), platformResolvePending:
		return PredictionLocked, true
	case string(PredictionResolved):
		return PredictionResolved, true
	case string(PredictionCanceled), "CANCELLED":
		return PredictionCanceled, true
	}
	return "", false
}

func (s PredictionStatus) rank() int {
	switch s {
	case PredictionActive:
		return 0
	case PredictionLocked:
		return 1
	case PredictionResolved, PredictionCanceled:
		return 2
	}
	return -1
}

// Terminal reports whether no further transitions are possible.
func (s PredictionStatus) Terminal() bool {
	return s.rank() == 2
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s PredictionStatus) CanAdvanceTo(next PredictionStatus) bool {
	return next.rank() > s.rank()
}

// Outcome is one of the choices offered by a prediction.
type Outcome struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Color       string `json:"color"`
	TotalPoints int    `json:"total_points"`
	TotalUsers  int    `json:"total_users"`
	TopPoints   int    `json:"top_points"` // largest single wager on this outcome
}

// Bet is the wager submitted for a prediction.
type Bet struct {
	OutcomeID string    `json:"outcome_id"`
	Amount    int       `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

// ResultType is the account-level outcome of a prediction we bet on.
type ResultType string

const (
	ResultWin    ResultType = "WIN"
	ResultLose   ResultType = "LOSE"
	ResultRefund ResultType = "REFUND"
)

// PredictionResult is recorded for reporting only.
type PredictionResult struct {
	Type             ResultType `json:"type"`
	WinningOutcomeID string     `json:"winning_outcome_id,omitempty"`
	PointsWon        int        `json:"points_won"`
	Gained           int        `json:"gained"`
}

// PredictionEvent tracks one prediction window on one channel.
type PredictionEvent struct {
	EventID       string            `json:"event_id"`
	ChannelID     string            `json:"channel_id"`
	Streamer      string            `json:"streamer"`
	Title         string            `json:"title"`
	Status        PredictionStatus  `json:"status"`
	Outcomes      []Outcome         `json:"outcomes"`
	CreatedAt     time.Time         `json:"created_at"`
	WindowSeconds float64           `json:"window_seconds"`
	ClosesAt      time.Time         `json:"closes_at"`
	PlacedBet     *Bet              `json:"placed_bet,omitempty"`
	BetAttempted  bool              `json:"bet_attempted"`
	BetFailure    string            `json:"bet_failure,omitempty"`
	Result        *PredictionResult `json:"result,omitempty"`
}

// Advance moves the event to next if that is a forward transition and
// reports whether the status changed.
func (e *PredictionEvent) Advance(next PredictionStatus) bool {
	if !e.Status.CanAdvanceTo(next) {
		return false
	}
	e.Status = next
	return true
}

// UpdateOutcomes refreshes pool sizes while the window is still open.
func (e *PredictionEvent) UpdateOutcomes(outcomes []Outcome) {
	if e.Status.Terminal() || len(outcomes) == 0 {
		return
	}
	e.Outcomes = append(e.Outcomes[:0:0], outcomes...)
}

// OutcomeByID returns the outcome with the given id.
func (e *PredictionEvent) OutcomeByID(id string) (Outcome, bool) {
	for _, o := range e.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// TotalPoints is the sum of all outcome pools.
func (e *PredictionEvent) TotalPoints() int {
	total := 0
	for _, o := range e.Outcomes {
		total += o.TotalPoints
	}
	return total
}

// TotalUsers is the sum of all outcome bettor counts.
func (e *PredictionEvent) TotalUsers() int {
	total := 0
	for _, o := range e.Outcomes {
		total += o.TotalUsers
	}
	return total
}

// Odds returns total pool / outcome pool, 0 when the outcome pool is empty.
func (e *PredictionEvent) Odds(o Outcome) float64 {
	if o.TotalPoints <= 0 {
		return 0
	}
	return float64(e.TotalPoints()) / float64(o.TotalPoints)
}

// PointsPercentage is the share of the total pool held by o.
func (e *PredictionEvent) PointsPercentage(o Outcome) float64 {
	total := e.TotalPoints()
	if total == 0 {
		return 0
	}
	return float64(o.TotalPoints) * 100 / float64(total)
}

// UsersPercentage is the share of bettors on o.
func (e *PredictionEvent) UsersPercentage(o Outcome) float64 {
	total := e.TotalUsers()
	if total == 0 {
		return 0
	}
	return float64(o.TotalUsers) * 100 / float64(total)
}

// Resolve records the winning outcome and computes the estimated payout of
// the placed bet. The account-level prediction result, when it arrives,
// overrides the estimate via ApplyResult.
func (e *PredictionEvent) Resolve(winningOutcomeID string) {
	if e.PlacedBet == nil {
		return
	}
	if e.Result != nil {
		e.Result.WinningOutcomeID = winningOutcomeID
		return
	}
	res := &PredictionResult{WinningOutcomeID: winningOutcomeID}
	if e.PlacedBet.OutcomeID == winningOutcomeID {
		o, _ := e.OutcomeByID(winningOutcomeID)
		res.Type = ResultWin
		res.PointsWon = int(math.Floor(float64(e.PlacedBet.Amount) * e.Odds(o)))
		res.Gained = res.PointsWon - e.PlacedBet.Amount
	} else {
		res.Type = ResultLose
		res.Gained = -e.PlacedBet.Amount
	}
	e.Result = res
}

// Cancel records a refund for a placed bet.
func (e *PredictionEvent) Cancel() {
	if e.PlacedBet == nil || e.Result != nil {
		return
	}
	e.Result = &PredictionResult{Type: ResultRefund, PointsWon: e.PlacedBet.Amount}
}

// ApplyResult records the authoritative account-level result.
func (e *PredictionEvent) ApplyResult(t ResultType, pointsWon int) {
	res := &PredictionResult{Type: t, PointsWon: pointsWon}
	if e.Result != nil {
		res.WinningOutcomeID = e.Result.WinningOutcomeID
	}
	if e.PlacedBet != nil {
		switch t {
		case ResultRefund:
			res.Gained = 0
		default:
			res.Gained = pointsWon - e.PlacedBet.Amount
		}
	}
	e.Result = res
}

// Clone returns a deep copy.
func (e *PredictionEvent) Clone() PredictionEvent {
	c := *e
	c.Outcomes = append([]Outcome(nil), e.Outcomes...)
	if e.PlacedBet != nil {
		b := *e.PlacedBet
		c.PlacedBet = &b
	}
	if e.Result != nil {
		r := *e.Result
		c.Result = &r
	}
	return c
}

// Recap renders a one-line summary for the session report.
func (e *PredictionEvent) Recap() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) on %s, status=%s", e.Title, e.EventID, e.Streamer, e.Status)
	switch {
	case e.PlacedBet != nil:
		title := e.PlacedBet.OutcomeID
		if o, ok := e.OutcomeByID(e.PlacedBet.OutcomeID); ok {
			title = o.Title
		}
		fmt.Fprintf(&b, ", bet %d on %q", e.PlacedBet.Amount, title)
	case e.BetFailure != "":
		fmt.Fprintf(&b, ", no bet placed (%s)", e.BetFailure)
	default:
		b.WriteString(", no bet placed")
	}
	if e.Result != nil {
		fmt.Fprintf(&b, ", result=%s won=%d gained=%+d", e.Result.Type, e.Result.PointsWon, e.Result.Gained)
	}
	return b.String()
}
