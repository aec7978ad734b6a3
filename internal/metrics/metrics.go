package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tap outcomes used as the result label on TapsTotal.
const (
	TapRecorded      = "recorded"
	TapDuplicate     = "duplicate"
	TapUnknownCard   = "unknown_card"
	TapNoSession     = "no_session"
	TapInternalError = "error"
)

var (
	// TapsTotal counts tap attempts by outcome.
	TapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campustap_taps_total",
		Help: "Card taps processed, by outcome.",
	}, []string{"result"})

	// SessionsOpened counts sessions opened by lecturers.
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustap_sessions_opened_total",
		Help: "Attendance sessions opened.",
	})

	// SessionsClosed counts sessions closed by lecturers or admins.
	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustap_sessions_closed_total",
		Help: "Attendance sessions closed.",
	})
)
