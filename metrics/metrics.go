package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxoffice_reservations_total",
			Help: "Reservation attempts by result",
		},
		[]string{"result"},
	)

	releases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxoffice_reservation_releases_total",
			Help: "Released reservations by reason",
		},
		[]string{"reason"},
	)

	confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxoffice_payment_confirmations_total",
			Help: "Payment confirmations by outcome and result",
		},
		[]string{"outcome", "result"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxoffice_tickets_issued_total",
			Help: "Tickets issued",
		},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxoffice_check_ins_total",
			Help: "Gate scans by result",
		},
		[]string{"result"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boxoffice_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)
)

func ObserveReservation(result string) {
	reservations.WithLabelValues(result).Inc()
}

func ObserveRelease(reason string) {
	releases.WithLabelValues(reason).Inc()
}

func ObserveConfirmation(outcome, result string) {
	confirmations.WithLabelValues(outcome, result).Inc()
}

func ObserveTicketsIssued(n int) {
	ticketsIssued.Add(float64(n))
}

func ObserveCheckIn(result string) {
	checkIns.WithLabelValues(result).Inc()
}

func ObserveSweep(started time.Time) {
	sweepDuration.Observe(time.Since(started).Seconds())
}
