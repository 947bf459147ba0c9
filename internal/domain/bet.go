package domain

import "fmt"

// Strategy selects which outcome the betting engine backs.
type Strategy string

const (
	// StrategyMostVoted backs the outcome with the most bettors.
	StrategyMostVoted Strategy = "MOST_VOTED"
	// StrategyHighOdds backs the outcome with the smallest pool.
	StrategyHighOdds Strategy = "HIGH_ODDS"
	// StrategyPercentage backs the outcome with the highest odds percentage.
	StrategyPercentage Strategy = "PERCENTAGE"
	// StrategySmartMoney backs the outcome holding the largest single wager,
	// or the largest pool when no top predictor amounts are known.
	StrategySmartMoney Strategy = "SMART_MONEY"
	// StrategySmart uses HIGH_ODDS when the bettor split is close, else MOST_VOTED.
	StrategySmart Strategy = "SMART"
)

// Default bet settings, mirroring the platform's own limits where they exist.
const (
	DefaultPercentage    = 5
	DefaultPercentageGap = 20
	DefaultMaxPoints     = 50000
	DefaultMinPoints     = 10
)

// BetSettings is the immutable betting configuration.
type BetSettings struct {
	Strategy                 Strategy `yaml:"strategy" json:"strategy" validate:"required,oneof=MOST_VOTED HIGH_ODDS PERCENTAGE SMART_MONEY SMART"`
	Percentage               int      `yaml:"percentage" json:"percentage" validate:"gte=0,lte=100"`
	PercentageGap            int      `yaml:"percentage_gap" json:"percentage_gap" validate:"gte=0,lte=100"`
	MaxPoints                int      `yaml:"max_points" json:"max_points" validate:"gte=0"`
	MinPoints                int      `yaml:"min_points" json:"min_points" validate:"gte=0"`
	FixedStake               int      `yaml:"fixed_stake" json:"fixed_stake" validate:"gte=0"`
	MinimumBalance           int      `yaml:"minimum_balance" json:"minimum_balance" validate:"gte=0"`
	MinimumOutcomePercentage float64  `yaml:"minimum_outcome_percentage" json:"minimum_outcome_percentage" validate:"gte=0,lte=100"`
	Delay                    float64  `yaml:"delay" json:"delay" validate:"gte=0"`
}

// DefaultBetSettings returns the settings used when nothing is configured.
func DefaultBetSettings() BetSettings {
	return BetSettings{
		Strategy:      StrategySmart,
		Percentage:    DefaultPercentage,
		PercentageGap: DefaultPercentageGap,
		MaxPoints:     DefaultMaxPoints,
		MinPoints:     DefaultMinPoints,
	}
}

// BetOverride holds the per-streamer fields that replace the global value
// when set.
type BetOverride struct {
	Strategy                 *Strategy `yaml:"strategy" validate:"omitempty,oneof=MOST_VOTED HIGH_ODDS PERCENTAGE SMART_MONEY SMART"`
	Percentage               *int      `yaml:"percentage" validate:"omitempty,gte=0,lte=100"`
	PercentageGap            *int      `yaml:"percentage_gap" validate:"omitempty,gte=0,lte=100"`
	MaxPoints                *int      `yaml:"max_points" validate:"omitempty,gte=0"`
	MinPoints                *int      `yaml:"min_points" validate:"omitempty,gte=0"`
	FixedStake               *int      `yaml:"fixed_stake" validate:"omitempty,gte=0"`
	MinimumBalance           *int      `yaml:"minimum_balance" validate:"omitempty,gte=0"`
	MinimumOutcomePercentage *float64  `yaml:"minimum_outcome_percentage" validate:"omitempty,gte=0,lte=100"`
	Delay                    *float64  `yaml:"delay" validate:"omitempty,gte=0"`
}

// WithOverride returns a copy of s with the override applied.
func (s BetSettings) WithOverride(o BetOverride) BetSettings {
	if o.Strategy != nil {
		s.Strategy = *o.Strategy
	}
	if o.Percentage != nil {
		s.Percentage = *o.Percentage
	}
	if o.PercentageGap != nil {
		s.PercentageGap = *o.PercentageGap
	}
	if o.MaxPoints != nil {
		s.MaxPoints = *o.MaxPoints
	}
	if o.MinPoints != nil {
		s.MinPoints = *o.MinPoints
	}
	if o.FixedStake != nil {
		s.FixedStake = *o.FixedStake
	}
	if o.MinimumBalance != nil {
		s.MinimumBalance = *o.MinimumBalance
	}
	if o.MinimumOutcomePercentage != nil {
		s.MinimumOutcomePercentage = *o.MinimumOutcomePercentage
	}
	if o.Delay != nil {
		s.Delay = *o.Delay
	}
	return s
}

func (s BetSettings) String() string {
	return fmt.Sprintf("BetSettings(strategy=%s, percentage=%d, percentage_gap=%d, max_points=%d, min_points=%d, fixed_stake=%d, minimum_balance=%d, minimum_outcome_percentage=%.1f, delay=%.1f)",
		s.Strategy, s.Percentage, s.PercentageGap, s.MaxPoints, s.MinPoints, s.FixedStake, s.MinimumBalance, s.MinimumOutcomePercentage, s.Delay)
}

// Decision is the output of a betting strategy.
type Decision struct {
	OutcomeID string
	Amount    int
}
