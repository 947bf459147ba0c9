package twitch

import "time"

// Endpoints and client identity
const (
	DefaultGQLURL   = "https://gql.twitch.tv/gql"
	DefaultSpadeURL = "https://spade.twitch.tv/track"
	// DefaultClientID is the public web client id.
	DefaultClientID = "kimne78kx3ncx6brgo4mn6iupc6kot"
)

// Request pacing and retries
const (
	DefaultRequestsPerSecond = 5
	DefaultBurst             = 5
	DefaultRequestTimeout    = 10 * time.Second
	MaxRetries               = 3
	RetryBaseDelay           = 500 * time.Millisecond

	// Pause between channel lookups at startup.
	LookupJitterMin = 300 * time.Millisecond
	LookupJitterMax = 700 * time.Millisecond
)

// GQL operation names and persisted query hashes
const (
	OpChannelPointsContext = "ChannelPointsContext"
	OpClaimCommunityPoints = "ClaimCommunityPoints"
	OpJoinRaid             = "JoinRaid"
	OpMakePrediction       = "MakePrediction"

	HashChannelPointsContext = "9988086babc615a918a1e9a722ff41d98847acac822645209ac7379eecb27152"
	HashClaimCommunityPoints = "46aaeebe02c99afdf4fc97c7c0cba964124bf6b0af229395f1f6d1feed05b3d0"
	HashJoinRaid             = "c6a332a86d1087fbbb1a8623aa01bd1313d2386e7c63be60fdb2d1901f01a4ae"
	HashMakePrediction       = "b44682ecc88358817009f20e69d75081b1e58825bb40aa53d5dbadcc17c881d8"

	queryChannelID    = `query GetIDFromLogin($login: String!) { user(login: $login) { id login } }`
	queryStreamStatus = `query StreamStatus($id: ID!) { user(id: $id) { stream { id } } }`
)

// Presence event
const (
	EventMinuteWatched = "minute-watched"
	PresencePlayer     = "site"
)

// Prediction error codes returned by MakePrediction
const (
	PredictionErrEventNotActive  = "EVENT_NOT_ACTIVE"
	PredictionErrEventLocked     = "PREDICTION_EVENT_LOCKED"
	PredictionErrNotEnoughPoints = "NOT_ENOUGH_POINTS"
)

// Log messages
const (
	LogMsgRetrying        = "Retrying Twitch request"
	LogMsgRequestFailed   = "Twitch request failed"
	LogMsgServerError     = "Twitch server error, will retry"
	LogMsgChannelResolved = "Resolved channel id"
	LogMsgBalanceLoaded   = "Loaded channel points"
	LogMsgPresenceSent    = "Presence sent"
	LogMsgBonusClaimed    = "Bonus claimed"
	LogMsgRaidJoined      = "Raid joined"
	LogMsgPredictionMade  = "Prediction submitted"
	LogMsgActuatorClosed  = "Bet actuator closed"
	LogMsgStreamOffline   = "Stream offline, no broadcast id"
	LogMsgUserIDResolved  = "Resolved account user id"
)
