// Package observability holds the Prometheus collectors shared across the service.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "exercise_tracker"

var (
	usersRegisteredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "users_registered_total",
		Help:      "Number of users successfully registered.",
	})
	exercisesAppendedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "log",
		Name:      "exercises_appended_total",
		Help:      "Number of exercises appended to user logs.",
	})
	logQueriesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "log",
		Name:      "log_queries_total",
		Help:      "Number of exercise log views rendered.",
	})
	storeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Number of record store failures, labeled by operation.",
	}, []string{"op"})
	exercisePersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_exercise_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the date carried by the most recently appended exercise.",
	})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code"})
)

func init() {
	prometheus.MustRegister(
		usersRegisteredCounter,
		exercisesAppendedCounter,
		logQueriesCounter,
		storeErrorCounter,
		exercisePersistGauge,
		httpDuration,
	)
}

// RecordUserRegistered counts a successful registration.
func RecordUserRegistered() {
	usersRegisteredCounter.Inc()
}

// RecordExerciseAppended counts an append and moves the persistence watermark.
func RecordExerciseAppended(date time.Time) {
	exercisesAppendedCounter.Inc()
	if date.IsZero() {
		return
	}
	exercisePersistGauge.Set(float64(date.Unix()))
}

// RecordLogQuery counts a rendered log view.
func RecordLogQuery() {
	logQueriesCounter.Inc()
}

// RecordStoreError counts a store failure for op.
func RecordStoreError(op string) {
	storeErrorCounter.WithLabelValues(op).Inc()
}

// ObserveHTTPRequest records the latency of one served request.
func ObserveHTTPRequest(route string, status int, elapsed time.Duration) {
	httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
