// Package timeutil renders reservation times for display.
// Values are formatted in the location they carry; convert with In first.
package timeutil

import (
	"fmt"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	dateTimeLayout = dateLayout + " " + timeLayout
)

// FormatDate renders t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatTime renders t as HH:MM
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// FormatDateTime renders t as YYYY-MM-DD HH:MM
func FormatDateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}

// TimeFromNow describes how far t lies ahead of now in the largest whole
// unit: days, hours or minutes. A nil now uses time.Now.
func TimeFromNow(t time.Time, now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	d := t.Sub(now())
	if d < 0 {
		return "already passed"
	}
	switch {
	case d >= 24*time.Hour:
		return in(int(d/(24*time.Hour)), "day")
	case d >= time.Hour:
		return in(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return in(int(d/time.Minute), "minute")
	}
	return "starting soon"
}

func in(n int, unit string) string {
	if n == 1 {
		return "in 1 " + unit
	}
	return fmt.Sprintf("in %d %ss", n, unit)
}
