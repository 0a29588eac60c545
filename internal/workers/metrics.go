package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeApproved = "approved"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var (
	moderationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopublish_moderations_total",
			Help: "Moderation attempts by outcome",
		},
		[]string{"outcome"},
	)

	publishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autopublish_published_total",
			Help: "Posts published by the auto-publish worker",
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopublish_rejection_notifications_total",
			Help: "Rejection notifications by result",
		},
		[]string{"sent"},
	)

	tickErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autopublish_tick_errors_total",
			Help: "Ticks that failed at the top level",
		},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autopublish_tick_duration_seconds",
			Help:    "Duration of one moderation + publish sweep",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
	)
)
