package o11y

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_challenge_decisions_total",
		Help: "Define auth challenge decisions by resulting state",
	}, []string{"state"})

	challengesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_challenge_created_total",
		Help: "Create auth challenge invocations by round kind (first, replay) and outcome",
	}, []string{"round", "outcome"})

	challengeVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_challenge_verifications_total",
		Help: "Verify auth challenge response invocations by result",
	}, []string{"result"})

	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_challenge_deliveries_total",
		Help: "One-time code deliveries by channel and outcome",
	}, []string{"channel", "outcome"})

	deliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "otp_challenge_delivery_duration_seconds",
		Help:    "Time taken by the delivery gateway to accept a one-time code",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})

	gatewayResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_challenge_gateway_responses_total",
		Help: "Delivery gateway responses by AWS service, operation and HTTP status (error when no response)",
	}, []string{"service", "operation", "status"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_challenge_cache_lookups_total",
		Help: "Cache lookups by cache and source (cache, origin)",
	}, []string{"cache", "source"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
