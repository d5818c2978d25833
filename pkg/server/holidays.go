package server

import (
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/types"
)

type holidayAnswer struct {
	Date      civil.Date `json:"date"`
	IsHoliday bool       `json:"isHoliday"`
}

func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query()["date"]
	if len(raw) == 0 {
		writeDomainError(w, r, "holidays", fmt.Errorf("%w: at least one date is required", types.ErrInvalidQuery))
		return
	}
	if len(raw) > s.maxDates {
		writeDomainError(w, r, "holidays", fmt.Errorf("%w: at most %d dates allowed", types.ErrInvalidQuery, s.maxDates))
		return
	}

	dates := make([]civil.Date, len(raw))
	for i, v := range raw {
		d, err := civil.ParseDate(v)
		if err != nil {
			writeDomainError(w, r, "holidays", fmt.Errorf("%w: invalid date %q", types.ErrInvalidQuery, v))
			return
		}
		dates[i] = d
	}

	holidays, err := calendar.IsHolidays(s.calendar, dates)
	if err != nil {
		writeDomainError(w, r, "holidays", err)
		return
	}

	out := make([]holidayAnswer, len(dates))
	for i, d := range dates {
		out[i] = holidayAnswer{Date: d, IsHoliday: holidays[i]}
	}
	writeJSON(w, out)
}
