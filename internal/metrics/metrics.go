// Package metrics содержит счётчики запуска для /metrics и Pushgateway.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var AccountsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engage_accounts_processed_total",
	Help: "Number of accounts processed by outcome",
}, []string{"outcome"})

var RateLimits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engage_rate_limits_total",
	Help: "Number of rate limit signals by phase",
}, []string{"phase"})

var CooldownSeconds = promauto.NewCounter(prometheus.CounterOpts{
	Name: "engage_cooldown_seconds_total",
	Help: "Total seconds the worker stalled on rate limits",
})

var RepliesPosted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engage_replies_posted_total",
	Help: "Number of replies posted by text source",
}, []string{"source"})

var RepliesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engage_replies_skipped_total",
	Help: "Number of reply attempts skipped by reason",
}, []string{"reason"})

var TopicsRead = promauto.NewCounter(prometheus.CounterOpts{
	Name: "engage_topics_read_total",
	Help: "Number of topics read while browsing",
})

var Likes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "engage_likes_total",
	Help: "Number of likes given",
})

// Push отправляет все метрики процесса в Pushgateway под группой job_index.
func Push(url string, jobIndex int) error {
	err := push.New(url, "engage_run").
		Grouping("job_index", strconv.Itoa(jobIndex)).
		Gatherer(prometheus.DefaultGatherer).
		Push()
	if err != nil {
		return fmt.Errorf("pushgateway %s: %w", url, err)
	}
	return nil
}
