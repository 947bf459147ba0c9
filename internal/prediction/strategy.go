package prediction

import (
	"fmt"
	"math"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
)

// Strategy decides whether to bet on an open prediction. Implementations
// must be pure: the same event, balance and settings give the same answer.
type Strategy interface {
	Decide(e domain.PredictionEvent, balance int, s domain.BetSettings) (domain.Decision, bool)
}

// StrategyFunc adapts an outcome picker to a Strategy. The picker returns
// the index of the outcome to back, or -1 to abstain.
type StrategyFunc func(e domain.PredictionEvent, s domain.BetSettings) int

// Decide applies the picker and the shared stake rules.
func (f StrategyFunc) Decide(e domain.PredictionEvent, balance int, s domain.BetSettings) (domain.Decision, bool) {
	if len(e.Outcomes) < 2 || balance <= 0 {
		return domain.Decision{}, false
	}
	if s.MinimumBalance > 0 && balance < s.MinimumBalance {
		return domain.Decision{}, false
	}
	idx := f(e, s)
	if idx < 0 || idx >= len(e.Outcomes) {
		return domain.Decision{}, false
	}
	chosen := e.Outcomes[idx]
	if s.MinimumOutcomePercentage > 0 && e.UsersPercentage(chosen) < s.MinimumOutcomePercentage {
		return domain.Decision{}, false
	}
	amount := Stake(balance, s)
	if amount <= 0 {
		return domain.Decision{}, false
	}
	return domain.Decision{OutcomeID: chosen.ID, Amount: amount}, true
}

// Stake computes the wager for balance: FixedStake when set, otherwise
// Percentage of the balance, raised to MinPoints, capped at MaxPoints and
// never above the balance. It returns 0 when the result would fall below
// MinPoints.
func Stake(balance int, s domain.BetSettings) int {
	amount := s.FixedStake
	if amount <= 0 {
		amount = int(math.Floor(float64(balance) * float64(s.Percentage) / 100))
	}
	if amount < s.MinPoints {
		amount = s.MinPoints
	}
	if s.MaxPoints > 0 && amount > s.MaxPoints {
		amount = s.MaxPoints
	}
	if amount > balance {
		amount = balance
	}
	if amount <= 0 || amount < s.MinPoints {
		return 0
	}
	return amount
}

// argBest returns the index of the outcome with the best score. Ties keep
// the earliest outcome.
func argBest(outcomes []domain.Outcome, better func(a, b domain.Outcome) bool) int {
	best := -1
	for i, o := range outcomes {
		if best < 0 || better(o, outcomes[best]) {
			best = i
		}
	}
	return best
}

// MostVoted backs the outcome with the most bettors.
var MostVoted = StrategyFunc(func(e domain.PredictionEvent, _ domain.BetSettings) int {
	return argBest(e.Outcomes, func(a, b domain.Outcome) bool { return a.TotalUsers > b.TotalUsers })
})

// HighOdds backs the outcome with the smallest pool.
var HighOdds = StrategyFunc(func(e domain.PredictionEvent, _ domain.BetSettings) int {
	return argBest(e.Outcomes, func(a, b domain.Outcome) bool { return a.TotalPoints < b.TotalPoints })
})

// Percentage backs the outcome with the highest odds percentage, that is
// the smallest share of the pool among outcomes that have any points.
var Percentage = StrategyFunc(func(e domain.PredictionEvent, _ domain.BetSettings) int {
	return argBest(e.Outcomes, func(a, b domain.Outcome) bool {
		oa, ob := e.Odds(a), e.Odds(b)
		return oa > ob
	})
})

// SmartMoney follows the largest single wager, falling back to the largest
// pool when no top predictor data is available.
var SmartMoney = StrategyFunc(func(e domain.PredictionEvent, _ domain.BetSettings) int {
	haveTop := false
	for _, o := range e.Outcomes {
		if o.TopPoints > 0 {
			haveTop = true
			break
		}
	}
	if haveTop {
		return argBest(e.Outcomes, func(a, b domain.Outcome) bool { return a.TopPoints > b.TopPoints })
	}
	return argBest(e.Outcomes, func(a, b domain.Outcome) bool { return a.TotalPoints > b.TotalPoints })
})

// Smart backs the underdog when bettors are split within PercentageGap
// points, otherwise it follows the crowd.
var Smart = StrategyFunc(func(e domain.PredictionEvent, s domain.BetSettings) int {
	if len(e.Outcomes) < 2 {
		return -1
	}
	first := e.UsersPercentage(e.Outcomes[0])
	second := e.UsersPercentage(e.Outcomes[1])
	if math.Abs(first-second) < float64(s.PercentageGap) {
		return HighOdds(e, s)
	}
	return MostVoted(e, s)
})

// StrategyFor returns the implementation of a configured strategy name.
func StrategyFor(name domain.Strategy) (Strategy, error) {
	switch name {
	case domain.StrategyMostVoted:
		return MostVoted, nil
	case domain.StrategyHighOdds:
		return HighOdds, nil
	case domain.StrategyPercentage:
		return Percentage, nil
	case domain.StrategySmartMoney:
		return SmartMoney, nil
	case domain.StrategySmart:
		return Smart, nil
	}
	return nil, fmt.Errorf("unknown bet strategy %q", name)
}
