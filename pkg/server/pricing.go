package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/raterudder/tou/pkg/metrics"
	"github.com/raterudder/tou/pkg/tariff"
	"github.com/raterudder/tou/pkg/types"
)

const defaultStep = time.Hour

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Version string           `json:"version"`
		Plans   []types.PlanInfo `json:"plans"`
	}{
		Version: s.catalog.Version(),
		Plans:   s.catalog.List(),
	})
}

func (s *Server) planFromQuery(r *http.Request) (*tariff.Plan, error) {
	id := r.URL.Query().Get("plan")
	if id == "" {
		return nil, fmt.Errorf("%w: plan is required", types.ErrInvalidQuery)
	}
	return s.catalog.Plan(id)
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planFromQuery(r)
	if err != nil {
		writeDomainError(w, r, "pricing", err)
		return
	}

	ts := time.Now()
	if v := r.URL.Query().Get("ts"); v != "" {
		ts, err = time.Parse(time.RFC3339, v)
		if err != nil {
			writeDomainError(w, r, "pricing", fmt.Errorf("%w: invalid ts: %v", types.ErrInvalidQuery, err))
			return
		}
	}

	pc, err := plan.PricingContext(ts)
	if err != nil {
		writeDomainError(w, r, "pricing", err)
		return
	}
	metrics.PricingQueriesTotal.WithLabelValues(plan.ID).Inc()
	writeJSON(w, pc)
}

func (s *Server) handlePricingRange(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planFromQuery(r)
	if err != nil {
		writeDomainError(w, r, "pricing_range", err)
		return
	}
	start, end, step, err := parseRange(r)
	if err != nil {
		writeDomainError(w, r, "pricing_range", err)
		return
	}

	intervals, err := plan.PricingRange(start, end, step)
	if err != nil {
		writeDomainError(w, r, "pricing_range", err)
		return
	}
	metrics.PricingQueriesTotal.WithLabelValues(plan.ID).Add(float64(len(intervals)))

	w.Header().Set("Cache-Control", rangeCacheControl(end, time.Now(), plan.Profile.Location()))

	if intervals == nil {
		intervals = []types.PricedInterval{}
	}
	writeJSON(w, intervals)
}

func parseRange(r *http.Request) (time.Time, time.Time, time.Duration, error) {
	q := r.URL.Query()
	startStr := q.Get("start")
	endStr := q.Get("end")
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("%w: start and end are required", types.ErrInvalidQuery)
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("%w: invalid start time: %v", types.ErrInvalidQuery, err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("%w: invalid end time: %v", types.ErrInvalidQuery, err)
	}

	step := defaultStep
	if v := q.Get("step"); v != "" {
		step, err = time.ParseDuration(v)
		if err != nil {
			return time.Time{}, time.Time{}, 0, fmt.Errorf("%w: invalid step: %v", types.ErrInvalidQuery, err)
		}
	}
	return start, end, step, nil
}

// rangeCacheControl caches a range for 24 hours if it ends before local
// midnight today in loc and for 1 minute otherwise. A nil loc is time.Local.
func rangeCacheControl(end, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if end.Before(today) {
		return "public, max-age=86400"
	}
	return "public, max-age=60"
}
