package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DateTimeLayout is the wire format: local time, no UTC offset.
	DateTimeLayout = "2006-01-02 15:04"
	DayLayout      = "2006-01-02"
	MonthLayout    = "2006-01"
)

var parseLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	DayLayout,
}

var shortMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// Date is a transaction timestamp in local time. Grouping by calendar month
// always uses the local calendar.
type Date struct {
	time.Time
}

// NewDate builds a local Date.
func NewDate(year, month, day, hour, minute int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local)}
}

// ParseDate accepts the wire layout plus the shapes servers tend to echo back
// (date only, ISO with a T separator, RFC3339).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Date{Time: t.In(time.Local)}, nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// CombineDateAndClock joins a picked calendar day with the clock of now, the
// way the entry form stamps a submission.
func CombineDateAndClock(day string, now time.Time) (Date, error) {
	d, err := time.ParseInLocation(DayLayout, strings.TrimSpace(day), time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, day)
	}
	now = now.In(time.Local)
	return NewDate(d.Year(), int(d.Month()), d.Day(), now.Hour(), now.Minute()), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the wire layout. A zero date renders empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateTimeLayout)
}

// MonthKey returns the YYYY-MM bucket key.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

// DayKey returns the YYYY-MM-DD calendar day.
func (d Date) DayKey() string {
	return d.Format(DayLayout)
}

// InMonthOf reports whether d falls in the local calendar month of t.
func (d Date) InMonthOf(t time.Time) bool {
	t = t.In(time.Local)
	return d.Year() == t.Year() && d.Month() == t.Month()
}

// DisplayDate renders e.g. "1 Mei 24".
func (d Date) DisplayDate() string {
	return fmt.Sprintf("%d %s %02d", d.Day(), ShortMonthName(d.Month()), d.Year()%100)
}

// DisplayTime renders the clock as "08:00".
func (d Date) DisplayTime() string {
	return d.Format("15:04")
}

// ShortMonthName returns the Indonesian short month label.
func ShortMonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return shortMonths[m-1]
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
