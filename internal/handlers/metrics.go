package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	votesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "guestpulse",
		Name:      "votes_submitted_total",
		Help:      "Guest votes accepted across all structures",
	})
	issuesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "guestpulse",
		Name:      "issues_submitted_total",
		Help:      "Guest issue reports accepted across all structures",
	})
	issueEmailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "guestpulse",
		Name:      "issue_email_failures_total",
		Help:      "Issue alert deliveries that failed, per recipient",
	})
)
