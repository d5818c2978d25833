package holiday

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/log"
	"github.com/raterudder/tou/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const refreshJob = "holiday_refresh"

// Refresher periodically reloads the current and next year into a calendar
// so published changes reach running plans.
type Refresher struct {
	cal  *calendar.Data
	cron *cron.Cron
	now  func() time.Time
}

// NewRefresher schedules refreshes of cal on a standard cron spec.
func NewRefresher(cal *calendar.Data, spec string) (*Refresher, error) {
	r := &Refresher{
		cal:  cal,
		cron: cron.New(),
		now:  time.Now,
	}
	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_ = r.Refresh(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid holiday refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

// ConfiguredRefresher registers the refresh flag for cal.
func ConfiguredRefresher(cal *calendar.Data) *Refresher {
	spec := lflag.String("holiday-refresh-cron", "0 3 * * *", "Cron schedule for reloading holiday records")

	r := &Refresher{}

	lflag.Do(func() {
		nr, err := NewRefresher(cal, *spec)
		if err != nil {
			panic(err.Error())
		}
		*r = *nr
	})

	return r
}

// Refresh reloads the current year and, best effort, the next one which may
// not be published yet.
func (r *Refresher) Refresh(ctx context.Context) error {
	year := r.now().Year()
	err := r.cal.Reload(ctx, year)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to refresh holidays", slog.Int("year", year), slog.Any("error", err))
	} else if nerr := r.cal.Reload(ctx, year+1); nerr != nil {
		log.Ctx(ctx).InfoContext(ctx, "next year holidays unavailable", slog.Int("year", year+1), slog.Any("error", nerr))
	}
	metrics.UpdateJobMetrics(refreshJob, r.now(), err)
	return err
}

// Run refreshes once, then on schedule until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	_ = r.Refresh(ctx)
	r.cron.Start()
	<-ctx.Done()
	<-r.cron.Stop().Done()
}
