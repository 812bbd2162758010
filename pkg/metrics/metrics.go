package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pollbox", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pollbox", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	VotesAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pollbox", Name: "votes_accepted_total", Help: "Number of votes recorded."},
	)
	VotesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pollbox", Name: "votes_rejected_total", Help: "Number of rejected vote submissions by reason."},
		[]string{"reason"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(VotesAccepted)
	reg.MustRegister(VotesRejected)
}
