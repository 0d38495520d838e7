package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/tasklist/internal/apperror"
)

// DateLayout is the only accepted date format, both on input and on output.
const DateLayout = time.DateOnly // "2006-01-02"

// Date is a calendar date with no time-of-day or zone.
//
// It is stored as midnight UTC so that two Dates parsed from the same string
// always compare equal, whatever the server's local zone is.
//
// Date implements json.Marshaler/Unmarshaler, sql.Scanner and driver.Valuer,
// so it round-trips through JSON bodies, SQLite TEXT columns and MySQL DATE
// columns as "YYYY-MM-DD".
type Date struct {
	t time.Time
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a strict YYYY-MM-DD string.
//
// time.Parse already rejects single-digit months/days and impossible dates
// such as 2024-13-40 or 2023-02-29. The returned error wraps
// apperror.ErrInvalidDate.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, apperror.InvalidDate("date", s)
	}
	return Date{t: t}, nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperror.InvalidDate("date", string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as its YYYY-MM-DD text. Both SQLite (TEXT column)
// and MySQL (DATE column) accept this form.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan accepts the representations drivers hand back for a date column:
// text (SQLite, MySQL without parseTime) or time.Time (MySQL with parseTime).
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("model: cannot scan %T into Date", src)
	}
}

func (d *Date) scanText(s string) error {
	// Some drivers append a time part to DATE values ("2024-12-25 00:00:00").
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("model: scanning stored date: %w", err)
	}
	*d = parsed
	return nil
}
