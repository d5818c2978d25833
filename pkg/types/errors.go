package types

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// Every domain error wraps ErrTOU. Tariff resolution failures additionally
// wrap ErrTariff and exactly one of its more specific sentinels so callers
// can tell them apart with errors.Is.
var (
	ErrTOU = errors.New("tou")

	ErrCalendar = fmt.Errorf("%w: calendar", ErrTOU)

	ErrTariff             = fmt.Errorf("%w: tariff", ErrTOU)
	ErrSeasonNotFound     = fmt.Errorf("%w: season not found", ErrTariff)
	ErrScheduleNotFound   = fmt.Errorf("%w: schedule not found", ErrTariff)
	ErrSlotNotFound       = fmt.Errorf("%w: time slot not found", ErrTariff)
	ErrRateNotFound       = fmt.Errorf("%w: rate not found", ErrTariff)
	ErrInvalidDeclaration = fmt.Errorf("%w: invalid declaration", ErrTariff)

	ErrInvalidUsage         = fmt.Errorf("%w: invalid usage input", ErrTOU)
	ErrMissingRequiredInput = fmt.Errorf("%w: missing required input", ErrTOU)
	ErrInvalidBasicFeeInput = fmt.Errorf("%w: invalid basic fee input", ErrTOU)
	ErrInvalidQuery         = fmt.Errorf("%w: invalid query", ErrTOU)
	ErrPlanNotFound         = fmt.Errorf("%w: plan not found", ErrTOU)
)

// CalendarError reports a malformed holiday record or a failed holiday load.
type CalendarError struct {
	// Value is the offending raw value, if any.
	Value string
	Year  int
	Err   error
}

func (e *CalendarError) Error() string {
	switch {
	case e.Value != "":
		return fmt.Sprintf("%s: invalid value %q: %v", ErrCalendar, e.Value, e.Err)
	case e.Year != 0:
		return fmt.Sprintf("%s: failed to load %d: %v", ErrCalendar, e.Year, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrCalendar, e.Err)
}

func (e *CalendarError) Unwrap() []error {
	return []error{ErrCalendar, e.Err}
}

// SeasonNotFoundError is returned when no declared season range covers a date.
type SeasonNotFoundError struct {
	Date        civil.Date
	HighVoltage bool
}

func (e *SeasonNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s (highVoltage=%t)", ErrSeasonNotFound, e.Date, e.HighVoltage)
}

func (e *SeasonNotFoundError) Unwrap() error { return ErrSeasonNotFound }

// ScheduleNotFoundError is returned when a profile has no schedule for a
// (season, day type) pair.
type ScheduleNotFoundError struct {
	Season  string
	DayType string
}

func (e *ScheduleNotFoundError) Error() string {
	return fmt.Sprintf("%s: season=%s dayType=%s", ErrScheduleNotFound, e.Season, e.DayType)
}

func (e *ScheduleNotFoundError) Unwrap() error { return ErrScheduleNotFound }

// SlotNotFoundError is returned when a schedule has a gap at a time of day.
type SlotNotFoundError struct {
	Season  string
	DayType string
	Time    TimeOfDay
}

func (e *SlotNotFoundError) Error() string {
	return fmt.Sprintf("%s: season=%s dayType=%s time=%s", ErrSlotNotFound, e.Season, e.DayType, e.Time)
}

func (e *SlotNotFoundError) Unwrap() error { return ErrSlotNotFound }

// RateNotFoundError is returned when a rate table has no cost for a resolved
// (season, period).
type RateNotFoundError struct {
	Season string
	Period string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("%s: season=%s period=%s", ErrRateNotFound, e.Season, e.Period)
}

func (e *RateNotFoundError) Unwrap() error { return ErrRateNotFound }

// MissingRequiredInputError names a plan-required input the caller omitted.
type MissingRequiredInputError struct {
	Field string
}

func (e *MissingRequiredInputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredInput, e.Field)
}

func (e *MissingRequiredInputError) Unwrap() error { return ErrMissingRequiredInput }

// InvalidBasicFeeInputError reports an unknown or invalid basic fee input.
type InvalidBasicFeeInputError struct {
	Key    string
	Reason string
}

func (e *InvalidBasicFeeInputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidBasicFeeInput, e.Key, e.Reason)
}

func (e *InvalidBasicFeeInputError) Unwrap() error { return ErrInvalidBasicFeeInput }

// InvalidDeclarationError reports a malformed plan, schedule or season table.
type InvalidDeclarationError struct {
	Where  string
	Reason string
}

func (e *InvalidDeclarationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidDeclaration, e.Where, e.Reason)
}

func (e *InvalidDeclarationError) Unwrap() error { return ErrInvalidDeclaration }

// IsTariffError returns true if the error is a tariff table resolution failure.
func IsTariffError(err error) bool {
	return errors.Is(err, ErrTariff)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidUsage) ||
		errors.Is(err, ErrMissingRequiredInput) ||
		errors.Is(err, ErrInvalidBasicFeeInput) ||
		errors.Is(err, ErrInvalidQuery)
}
