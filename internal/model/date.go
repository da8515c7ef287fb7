package model

import (
	"strings"
	"time"
)

// DateFormat is the layout new movements are stored with.
const DateFormat = "02/01/2006"

// TimestampFormat is used for fecha_guardado, fecha_cierre and similar fields.
const TimestampFormat = "02/01/2006 15:04:05"

// Single-digit fields parse zero-padded input too.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
	"2006/1/2",
}

// ParseDate accepts dd/mm/yyyy and yyyy-mm-dd with either '-' or '/'
// separators. A trailing time component is ignored.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t in the storage layout.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// PrevMonth returns the month before (month, year), wrapping January to
// December of the previous year.
func PrevMonth(month, year int) (int, int) {
	if month <= 1 {
		return 12, year - 1
	}
	return month - 1, year
}

// FirstOfMonth renders the first day of (month, year) in the storage layout.
func FirstOfMonth(month, year int) string {
	return FormatDate(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
}
