package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

// Miner Metrics
var (
	PointsEarned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePointsEarned,
			Help: HelpTextPointsEarned,
		},
		[]string{LabelStreamer, LabelReason},
	)

	PointsSpent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePointsSpent,
			Help: HelpTextPointsSpent,
		},
		[]string{LabelStreamer},
	)

	ChannelBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameChannelBalance,
			Help: HelpTextChannelBalance,
		},
		[]string{LabelStreamer},
	)

	BonusesClaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameBonusesClaimed,
			Help: HelpTextBonusesClaimed,
		},
		[]string{LabelStreamer},
	)

	StreamerOnline = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameStreamerOnline,
			Help: HelpTextStreamerOnline,
		},
		[]string{LabelStreamer},
	)

	RaidsJoined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRaidsJoined,
			Help: HelpTextRaidsJoined,
		},
		[]string{LabelStreamer},
	)

	BetsPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameBetsPlaced,
			Help: HelpTextBetsPlaced,
		},
		[]string{LabelStreamer, LabelStrategy},
	)

	BetsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameBetsFailed,
			Help: HelpTextBetsFailed,
		},
		[]string{LabelStreamer},
	)

	BetAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameBetAmount,
			Help:    HelpTextBetAmount,
			Buckets: BetAmountBuckets,
		},
	)

	PredictionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePredictionResult,
			Help: HelpTextPredictionResult,
		},
		[]string{LabelResult},
	)

	// Counters cannot go down, so net prediction gain is a gauge.
	PredictionGained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNamePredictionGained,
			Help: HelpTextPredictionGained,
		},
	)

	Reconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameReconnects,
			Help: HelpTextReconnects,
		},
	)
)
