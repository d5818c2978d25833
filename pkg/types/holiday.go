package types

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// HolidayDateLayout is the wire format of a HolidayRecord date.
const HolidayDateLayout = "20060102"

// HolidayRecord is one entry of the holiday oracle.
type HolidayRecord struct {
	Date        civil.Date
	Description string
	IsHoliday   bool
}

type holidayRecordJSON struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	IsHoliday   bool   `json:"isHoliday"`
}

// ParseHolidayDate parses a YYYYMMDD date.
func ParseHolidayDate(s string) (civil.Date, error) {
	t, err := time.Parse(HolidayDateLayout, s)
	if err != nil {
		return civil.Date{}, &CalendarError{Value: s, Err: err}
	}
	return civil.DateOf(t), nil
}

// FormatHolidayDate formats a date as YYYYMMDD.
func FormatHolidayDate(d civil.Date) string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes the record in the oracle's wire format.
func (r HolidayRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(holidayRecordJSON{
		Date:        FormatHolidayDate(r.Date),
		Description: r.Description,
		IsHoliday:   r.IsHoliday,
	})
}

// UnmarshalJSON decodes the oracle's wire format. A malformed date is a
// CalendarError.
func (r *HolidayRecord) UnmarshalJSON(b []byte) error {
	var raw holidayRecordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return &CalendarError{Value: string(b), Err: err}
	}
	d, err := ParseHolidayDate(raw.Date)
	if err != nil {
		return err
	}
	r.Date = d
	r.Description = raw.Description
	r.IsHoliday = raw.IsHoliday
	return nil
}
