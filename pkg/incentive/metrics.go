package incentive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistryUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incentive_registry_updates_total",
			Help: "Total number of incentive records changed, by operation",
		},
		[]string{"operation"},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incentive_claims_total",
			Help: "Total number of claim attempts, by result",
		},
		[]string{"result"},
	)

	DepositsForwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "incentive_deposits_forwarded_total",
			Help: "Total number of validator deposits forwarded by committed claims",
		},
	)
)
