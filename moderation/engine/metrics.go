package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messageDecisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hush_message_decisions",
	Help: "Number of messages evaluated, by outcome",
}, []string{"outcome"})

var messageDecisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "hush_message_decision_duration_sec",
	Help: "Duration of message admission decisions",
})

var messageErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hush_message_errors",
	Help: "Number of message evaluations which failed with an error",
})

var autoMuteCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hush_auto_mutes",
	Help: "Number of temporary mutes installed automatically, by violation",
}, []string{"reason"})

var adminActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hush_admin_actions",
	Help: "Number of administrative mute actions",
}, []string{"action"})
