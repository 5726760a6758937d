package service

import (
	"errors"

	"plantaton/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rewardsCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantaton_credits_total",
			Help: "Balance credits by ledger type",
		},
		[]string{"type"},
	)
	harvestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plantaton_harvests_total",
			Help: "Completed harvests",
		},
	)
	withdrawalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantaton_withdrawals_total",
			Help: "Withdrawal requests and decisions by status",
		},
		[]string{"status"},
	)
	claimsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantaton_claims_rejected_total",
			Help: "Reward claims refused by a guard, by code",
		},
		[]string{"code"},
	)
)

func init() {
	prometheus.MustRegister(rewardsCredited, harvestsTotal, withdrawalsTotal, claimsRejected)
}

func rejectClaim(err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
		claimsRejected.WithLabelValues(ae.Code).Inc()
	}
}
