// Package metrics holds the prometheus collectors of the tariff engine.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/raterudder/tou/pkg/types"
)

var (
	PricingQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tou_pricing_queries_total",
			Help: "Total number of resolved pricing contexts per plan",
		},
		[]string{"plan"},
	)

	BillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tou_bills_total",
			Help: "Total number of computed bills per plan",
		},
		[]string{"plan"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tou_errors_total",
			Help: "Total number of domain errors per operation and kind",
		},
		[]string{"op", "kind"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tou_request_duration_seconds",
			Help:    "Request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	HolidayFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tou_holiday_fetches_total",
			Help: "Total number of holiday record fetches per source and result",
		},
		[]string{"source", "result"},
	)

	HolidayCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tou_holiday_cache_hits_total",
			Help: "Total number of holiday years served from the disk cache",
		},
	)

	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tou_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tou_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

// ErrorKind names the most specific domain error in err's tree.
func ErrorKind(err error) string {
	kinds := []struct {
		err  error
		name string
	}{
		{types.ErrSeasonNotFound, "season_not_found"},
		{types.ErrScheduleNotFound, "schedule_not_found"},
		{types.ErrSlotNotFound, "slot_not_found"},
		{types.ErrRateNotFound, "rate_not_found"},
		{types.ErrInvalidDeclaration, "invalid_declaration"},
		{types.ErrCalendar, "calendar"},
		{types.ErrInvalidUsage, "invalid_usage"},
		{types.ErrMissingRequiredInput, "missing_required_input"},
		{types.ErrInvalidBasicFeeInput, "invalid_basic_fee_input"},
		{types.ErrInvalidQuery, "invalid_query"},
		{types.ErrPlanNotFound, "plan_not_found"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// ObserveError counts err under op. A nil err is ignored.
func ObserveError(op string, err error) {
	if err == nil {
		return
	}
	ErrorsTotal.WithLabelValues(op, ErrorKind(err)).Inc()
}

// UpdateJobMetrics records the outcome of a scheduled job run.
func UpdateJobMetrics(job string, finishedAt time.Time, err error) {
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(finishedAt.Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
