package twitch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// BetActuator places bets through the MakePrediction operation.
type BetActuator struct {
	client *Client
	closed atomic.Bool
}

// NewBetActuator creates an actuator sharing the client's rate limiter.
func NewBetActuator(c *Client) *BetActuator {
	return &BetActuator{client: c}
}

// PlaceBet submits a bet. A rejected token or a closed actuator reports
// domain.ErrActuatorLost; a locked window reports domain.ErrWindowClosed.
func (a *BetActuator) PlaceBet(ctx context.Context, eventID, outcomeID string, amount int) error {
	if a.closed.Load() {
		return domain.ErrActuatorLost
	}

	var data struct {
		MakePrediction *struct {
			Error *struct {
				Code string `json:"code"`
			} `json:"error"`
		} `json:"makePrediction"`
	}
	req := persisted(OpMakePrediction, HashMakePrediction, map[string]interface{}{
		"input": map[string]interface{}{
			"eventID":       eventID,
			"outcomeID":     outcomeID,
			"points":        amount,
			"transactionID": strings.ReplaceAll(uuid.NewString(), "-", ""),
		},
	})
	if err := a.client.gqlOnce(ctx, req, &data); err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			return fmt.Errorf("%w: %v", domain.ErrActuatorLost, err)
		}
		return err
	}
	if data.MakePrediction != nil && data.MakePrediction.Error != nil {
		code := data.MakePrediction.Error.Code
		if isWindowClosed(code) {
			return fmt.Errorf("%s: %w", code, domain.ErrWindowClosed)
		}
		return fmt.Errorf("prediction rejected: %s", code)
	}
	logger.FromContext(ctx).Info(LogMsgPredictionMade, "event_id", eventID, "outcome_id", outcomeID, "amount", amount)
	return nil
}

// Close makes every later PlaceBet fail with domain.ErrActuatorLost.
func (a *BetActuator) Close() error {
	if a.closed.CompareAndSwap(false, true) {
		logger.FromContext(context.Background()).Info(LogMsgActuatorClosed)
	}
	return nil
}
