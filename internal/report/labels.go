package report

import (
	"fmt"
	"time"
)

// DayLabel renders the header for a day bucket. The key must be a DayKey;
// now anchors the "Today"/"Yesterday" shortcuts.
func DayLabel(key, now time.Time) string {
	today := DayKey(now)
	switch {
	case key.Equal(today):
		return "Today"
	case key.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	if key.Year() == now.Year() {
		return key.Format("Monday, January 2")
	}
	return key.Format("Monday, January 2, 2006")
}

// WeekLabel renders the header for a week bucket. The key must be a
// WeekKey (a Monday).
func WeekLabel(key, now time.Time) string {
	thisWeek := WeekKey(now)
	switch {
	case key.Equal(thisWeek):
		return "This week"
	case key.Equal(thisWeek.AddDate(0, 0, -7)):
		return "Last week"
	}
	end := key.AddDate(0, 0, 6)
	if key.Year() == now.Year() && end.Year() == now.Year() {
		return fmt.Sprintf("Week %s to %s", key.Format("Jan 2"), end.Format("Jan 2"))
	}
	return fmt.Sprintf("Week %s to %s", key.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
}
