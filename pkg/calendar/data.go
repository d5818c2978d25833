package calendar

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/log"
	"github.com/raterudder/tou/pkg/types"
	"golang.org/x/sync/singleflight"
)

var errInvalidDate = errors.New("invalid date")

// Data is a calendar backed by holiday records from a HolidaySource. Records
// are loaded per year on first use and kept for the life of the calendar.
//
// A record for a date always wins. Without a record, Sunday is a holiday and
// every other day, Saturday included, is not.
type Data struct {
	src      HolidaySource
	restDays map[time.Weekday]struct{}
	timeout  time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	years map[int]map[civil.Date]types.HolidayRecord
}

var _ Calendar = (*Data)(nil)

// DataOption customizes a Data calendar.
type DataOption func(*Data)

// WithRestDays replaces the days of the week that are holidays when no record
// exists. The default is Sunday only.
func WithRestDays(days ...time.Weekday) DataOption {
	return func(c *Data) {
		c.restDays = make(map[time.Weekday]struct{}, len(days))
		for _, d := range days {
			c.restDays[d] = struct{}{}
		}
	}
}

// WithLoadTimeout bounds the lazy load triggered from IsHoliday.
func WithLoadTimeout(d time.Duration) DataOption {
	return func(c *Data) {
		c.timeout = d
	}
}

// NewData returns a calendar backed by src.
func NewData(src HolidaySource, opts ...DataOption) *Data {
	c := &Data{
		src:      src,
		restDays: map[time.Weekday]struct{}{time.Sunday: {}},
		timeout:  30 * time.Second,
		years:    make(map[int]map[civil.Date]types.HolidayRecord),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IsHoliday implements Calendar. The first query of a year loads that year's
// records from the source.
func (c *Data) IsHoliday(d civil.Date) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	records, err := c.year(ctx, d.Year)
	if err != nil {
		return false, err
	}
	if r, ok := records[d]; ok {
		return r.IsHoliday, nil
	}
	_, ok := c.restDays[Weekday(d)]
	return ok, nil
}

// Load warms the cache for the given years.
func (c *Data) Load(ctx context.Context, years ...int) error {
	for _, y := range years {
		if _, err := c.year(ctx, y); err != nil {
			return err
		}
	}
	return nil
}

// Reload fetches a year again and replaces the cached records once the fetch
// succeeds. Queries keep seeing the previous records until then. A
// ReloadingSource is asked to bypass its own cache.
func (c *Data) Reload(ctx context.Context, year int) error {
	_, err := c.fetch(ctx, year, true)
	return err
}

// Records returns the cached explicit records of a year, loading them if
// needed.
func (c *Data) Records(ctx context.Context, year int) ([]types.HolidayRecord, error) {
	records, err := c.year(ctx, year)
	if err != nil {
		return nil, err
	}
	out := make([]types.HolidayRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	return out, nil
}

func (c *Data) year(ctx context.Context, year int) (map[civil.Date]types.HolidayRecord, error) {
	c.mu.RLock()
	records, ok := c.years[year]
	c.mu.RUnlock()
	if ok {
		return records, nil
	}
	return c.fetch(ctx, year, false)
}

// fetch loads a year from the source. Concurrent callers for the same year
// share one read.
func (c *Data) fetch(ctx context.Context, year int, reload bool) (map[civil.Date]types.HolidayRecord, error) {
	key := strconv.Itoa(year)
	load := c.src.Records
	if rs, ok := c.src.(ReloadingSource); ok && reload {
		key = "reload:" + key
		load = rs.Reload
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		log.Ctx(ctx).DebugContext(ctx, "loading holiday records", slog.Int("year", year), slog.Bool("reload", reload))
		list, err := load(ctx, year)
		if err != nil {
			return nil, &types.CalendarError{Year: year, Err: err}
		}
		records := make(map[civil.Date]types.HolidayRecord, len(list))
		for _, r := range list {
			if !r.Date.IsValid() {
				return nil, &types.CalendarError{Value: r.Date.String(), Err: errInvalidDate}
			}
			records[r.Date] = r
		}

		c.mu.Lock()
		c.years[year] = records
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to load holiday records", slog.Int("year", year), slog.Bool("shared", shared), slog.Any("error", err))
		return nil, err
	}
	return v.(map[civil.Date]types.HolidayRecord), nil
}
