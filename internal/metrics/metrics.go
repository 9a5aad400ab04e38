// Package metrics exposes Prometheus counters for the star economy.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duet_tasks_created_total",
		Help: "Tasks created.",
	})
	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duet_tasks_completed_total",
		Help: "Tasks marked completed by their assignee.",
	})
	TasksEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duet_tasks_evaluated_total",
		Help: "Completed tasks rated by their creator.",
	})
	StarsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duet_stars_awarded_total",
		Help: "Stars credited through completion bonuses and ratings.",
	})
	RewardsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duet_rewards_redeemed_total",
		Help: "Rewards redeemed.",
	})
	StarsSpent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duet_stars_spent_total",
		Help: "Stars debited through redemptions.",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
