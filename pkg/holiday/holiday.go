// Package holiday provides the holiday record sources behind a data backed
// calendar.
package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/types"
)

// ParseRecords decodes a JSON list of {date, description, isHoliday} records.
// A malformed date or document is a CalendarError.
func ParseRecords(data []byte) ([]types.HolidayRecord, error) {
	var records []types.HolidayRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var ce *types.CalendarError
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, &types.CalendarError{Err: err}
	}
	return records, nil
}

// EncodeRecords is the inverse of ParseRecords.
func EncodeRecords(records []types.HolidayRecord) ([]byte, error) {
	if records == nil {
		records = []types.HolidayRecord{}
	}
	return json.Marshal(records)
}

// ForYear keeps the records of year, ordered by date.
func ForYear(records []types.HolidayRecord, year int) []types.HolidayRecord {
	out := make([]types.HolidayRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Year == year {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// StaticSource serves records held in memory.
type StaticSource struct {
	records []types.HolidayRecord
}

var _ calendar.HolidaySource = (*StaticSource)(nil)

// NewStaticSource returns a source over records of any year.
func NewStaticSource(records ...types.HolidayRecord) *StaticSource {
	return &StaticSource{records: append([]types.HolidayRecord(nil), records...)}
}

// Records implements calendar.HolidaySource.
func (s *StaticSource) Records(ctx context.Context, year int) ([]types.HolidayRecord, error) {
	return ForYear(s.records, year), nil
}
