package miner

import "github.com/prometheus/client_golang/prometheus"

var (
	attemptsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vanityd",
		Subsystem: "miner",
		Name:      "attempts_total",
		Help:      "Total number of candidate identifiers tested.",
	})
	matchesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vanityd",
		Subsystem: "miner",
		Name:      "matches_total",
		Help:      "Total number of identifiers that satisfied their pattern.",
	})
)

func init() {
	prometheus.MustRegister(attemptsCounter, matchesCounter)
}
