package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// Miner metric names
const (
	MetricNamePointsEarned     = "miner_points_earned_total"
	MetricNamePointsSpent      = "miner_points_spent_total"
	MetricNameChannelBalance   = "miner_channel_points"
	MetricNameBonusesClaimed   = "miner_bonuses_claimed_total"
	MetricNameStreamerOnline   = "miner_streamer_online"
	MetricNameRaidsJoined      = "miner_raids_joined_total"
	MetricNameBetsPlaced       = "miner_bets_placed_total"
	MetricNameBetsFailed       = "miner_bets_failed_total"
	MetricNameBetAmount        = "miner_bet_amount_points"
	MetricNamePredictionResult = "miner_prediction_results_total"
	MetricNamePredictionGained = "miner_prediction_gained_points_total"
	MetricNameReconnects       = "miner_pubsub_reconnects_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Event metric help text
const (
	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"
)

// Miner metric help text
const (
	HelpTextPointsEarned     = "Channel points earned per streamer and reason"
	HelpTextPointsSpent      = "Channel points spent per streamer"
	HelpTextChannelBalance   = "Last known channel points balance per streamer"
	HelpTextBonusesClaimed   = "Bonus chests claimed per streamer"
	HelpTextStreamerOnline   = "Whether a tracked streamer is live (1) or offline (0)"
	HelpTextRaidsJoined      = "Raids followed per source streamer"
	HelpTextBetsPlaced       = "Bets placed per streamer and strategy"
	HelpTextBetsFailed       = "Bets that could not be placed per streamer"
	HelpTextBetAmount        = "Distribution of placed bet amounts"
	HelpTextPredictionResult = "Settled predictions per result type"
	HelpTextPredictionGained = "Net points gained or lost on settled predictions"
	HelpTextReconnects       = "Pub/sub connections that re-listened after a drop"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelStatus   = "status"
	LabelType     = "type"
	LabelStreamer = "streamer"
	LabelReason   = "reason"
	LabelStrategy = "strategy"
	LabelResult   = "result"
)

// UnknownReason labels points events without a reason
const UnknownReason = "UNKNOWN"

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds, from 1ms to 10s.
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// BetAmountBuckets covers bets from the minimum stake up to the platform cap.
var BetAmountBuckets = []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000, 250000}

// ============================================================================
// Log Messages
// ============================================================================

// Debug log messages
const (
	LogMsgEventPayloadInvalid = "Event payload could not be decoded"
	LogMsgMetricsRecorded     = "Metrics recorded for event"
)
