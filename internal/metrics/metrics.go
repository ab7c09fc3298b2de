// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClockIns counts successful clock-in operations.
	ClockIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timetrack_clock_ins_total",
		Help: "Number of attendance records opened.",
	})

	// ClockOuts counts successful clock-out operations.
	ClockOuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timetrack_clock_outs_total",
		Help: "Number of attendance records completed.",
	})

	// AuthFailures counts rejected logins and registrations.
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timetrack_auth_failures_total",
		Help: "Number of failed login or registration attempts.",
	})
)
