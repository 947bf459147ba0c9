package twitch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// API is the platform collaborator used by the session.
type API interface {
	ResolveChannelID(ctx context.Context, username string) (string, error)
	LoadChannelPoints(ctx context.Context, s *domain.Streamer) (int, error)
	CheckOnline(ctx context.Context, s *domain.Streamer) (bool, error)
	SendPresence(ctx context.Context, s domain.Streamer) error
	ClaimBonus(ctx context.Context, channelID, claimID string) error
	JoinRaid(ctx context.Context, raidID string) error
}

var _ API = (*Client)(nil)

// ResolveChannelID looks up the channel id for a login name, pausing a
// random 0.3-0.7s first. Unknown names return domain.ErrStreamerNotFound.
func (c *Client) ResolveChannelID(ctx context.Context, username string) (string, error) {
	select {
	case <-time.After(c.jitter()):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	var data struct {
		User *struct {
			ID    string `json:"id"`
			Login string `json:"login"`
		} `json:"user"`
	}
	req := gqlRequest{
		OperationName: "GetIDFromLogin",
		Query:         queryChannelID,
		Variables:     map[string]interface{}{"login": domain.NormalizeUsername(username)},
	}
	if err := c.gql(ctx, req, &data); err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", username, err)
	}
	if data.User == nil || data.User.ID == "" {
		return "", fmt.Errorf("%s: %w", username, domain.ErrStreamerNotFound)
	}
	logger.FromContext(ctx).Debug(LogMsgChannelResolved, "username", username, "channel_id", data.User.ID)
	return data.User.ID, nil
}

// LoadChannelPoints returns the account's balance on the streamer's channel.
func (c *Client) LoadChannelPoints(ctx context.Context, s *domain.Streamer) (int, error) {
	var data struct {
		Community *struct {
			Channel *struct {
				Self struct {
					CommunityPoints struct {
						Balance int `json:"balance"`
					} `json:"communityPoints"`
				} `json:"self"`
			} `json:"channel"`
		} `json:"community"`
	}
	req := persisted(OpChannelPointsContext, HashChannelPointsContext, map[string]interface{}{"channelLogin": s.Username})
	if err := c.gql(ctx, req, &data); err != nil {
		return 0, fmt.Errorf("failed to load channel points for %s: %w", s.Username, err)
	}
	if data.Community == nil || data.Community.Channel == nil {
		return 0, fmt.Errorf("%s: %w", s.Username, domain.ErrStreamerNotFound)
	}
	balance := data.Community.Channel.Self.CommunityPoints.Balance
	logger.FromContext(ctx).Debug(LogMsgBalanceLoaded, "streamer", s.Username, "balance", balance)
	return balance, nil
}

// CheckOnline reports whether the channel is live and remembers the
// broadcast id for presence calls.
func (c *Client) CheckOnline(ctx context.Context, s *domain.Streamer) (bool, error) {
	id, err := c.broadcastID(ctx, s.ChannelID)
	if err != nil {
		return false, err
	}
	return id != "", nil
}

func (c *Client) broadcastID(ctx context.Context, channelID string) (string, error) {
	var data struct {
		User *struct {
			Stream *struct {
				ID string `json:"id"`
			} `json:"stream"`
		} `json:"user"`
	}
	req := gqlRequest{
		OperationName: "StreamStatus",
		Query:         queryStreamStatus,
		Variables:     map[string]interface{}{"id": channelID},
	}
	if err := c.gql(ctx, req, &data); err != nil {
		return "", fmt.Errorf("failed to check stream %s: %w", channelID, err)
	}
	id := ""
	if data.User != nil && data.User.Stream != nil {
		id = data.User.Stream.ID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		delete(c.broadcasts, channelID)
	} else {
		c.broadcasts[channelID] = id
	}
	return id, nil
}

// accountID resolves and caches the account's own user id.
func (c *Client) accountID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.userID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}

	var data struct {
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	req := gqlRequest{
		OperationName: "GetIDFromLogin",
		Query:         queryChannelID,
		Variables:     map[string]interface{}{"login": domain.NormalizeUsername(c.cfg.Username)},
	}
	if err := c.gql(ctx, req, &data); err != nil {
		return "", fmt.Errorf("failed to resolve account: %w", err)
	}
	if data.User == nil || data.User.ID == "" {
		return "", fmt.Errorf("account %s: %w", c.cfg.Username, domain.ErrStreamerNotFound)
	}

	c.mu.Lock()
	c.userID = data.User.ID
	c.mu.Unlock()
	logger.FromContext(ctx).Info(LogMsgUserIDResolved, "user_id", data.User.ID)
	return data.User.ID, nil
}

// AccountID returns the authenticated account's user id.
func (c *Client) AccountID(ctx context.Context) (string, error) {
	return c.accountID(ctx)
}

type presenceEvent struct {
	Event      string `json:"event"`
	Properties struct {
		ChannelID   string `json:"channel_id"`
		BroadcastID string `json:"broadcast_id"`
		Player      string `json:"player"`
		UserID      string `json:"user_id"`
	} `json:"properties"`
}

// SendPresence posts one minute-watched event for a live channel.
func (c *Client) SendPresence(ctx context.Context, s domain.Streamer) error {
	userID, err := c.accountID(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	broadcast := c.broadcasts[s.ChannelID]
	c.mu.Unlock()
	if broadcast == "" {
		if broadcast, err = c.broadcastID(ctx, s.ChannelID); err != nil {
			return err
		}
		if broadcast == "" {
			logger.FromContext(ctx).Debug(LogMsgStreamOffline, "streamer", s.Username)
			return fmt.Errorf("%s: %w", s.Username, errOffline)
		}
	}

	ev := presenceEvent{Event: EventMinuteWatched}
	ev.Properties.ChannelID = s.ChannelID
	ev.Properties.BroadcastID = broadcast
	ev.Properties.Player = PresencePlayer
	ev.Properties.UserID = userID
	payload, err := json.Marshal([]presenceEvent{ev})
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}
	form := url.Values{"data": {base64.StdEncoding.EncodeToString(payload)}}

	resp, err := c.doRequest(ctx, c.cfg.SpadeURL, "application/x-www-form-urlencoded", []byte(form.Encode()), MaxRetries)
	if err != nil {
		return fmt.Errorf("failed to send presence for %s: %w", s.Username, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("presence for %s: API returned status %d", s.Username, resp.StatusCode)
	}
	logger.FromContext(ctx).Debug(LogMsgPresenceSent, "streamer", s.Username)
	return nil
}

// ClaimBonus claims an available channel bonus.
func (c *Client) ClaimBonus(ctx context.Context, channelID, claimID string) error {
	req := persisted(OpClaimCommunityPoints, HashClaimCommunityPoints, map[string]interface{}{
		"input": map[string]string{"channelID": channelID, "claimID": claimID},
	})
	if err := c.gql(ctx, req, nil); err != nil {
		return fmt.Errorf("failed to claim bonus %s: %w", claimID, err)
	}
	logger.FromContext(ctx).Info(LogMsgBonusClaimed, "channel_id", channelID, "claim_id", claimID)
	return nil
}

// JoinRaid follows an outgoing raid.
func (c *Client) JoinRaid(ctx context.Context, raidID string) error {
	req := persisted(OpJoinRaid, HashJoinRaid, map[string]interface{}{
		"input": map[string]string{"raidID": raidID},
	})
	if err := c.gql(ctx, req, nil); err != nil {
		return fmt.Errorf("failed to join raid %s: %w", raidID, err)
	}
	logger.FromContext(ctx).Info(LogMsgRaidJoined, "raid_id", raidID)
	return nil
}

// isWindowClosed maps MakePrediction error codes that mean the window is gone.
func isWindowClosed(code string) bool {
	return code == PredictionErrEventNotActive || code == PredictionErrEventLocked || strings.Contains(code, "LOCKED")
}
