package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-books-backend/internal/failure"
)

// bookOps counts book use-case invocations by operation and failure kind
// ("ok" on success). Label values are bounded by the fixed op and kind sets.
var bookOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "book_operations_total",
		Help: "Book service operations by outcome.",
	},
	[]string{"op", "outcome"},
)

func init() {
	prometheus.MustRegister(bookOps)
}

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = failure.Classify(err).Kind().String()
	}
	bookOps.WithLabelValues(op, outcome).Inc()
}
