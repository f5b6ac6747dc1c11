package store

import "github.com/motioneffector/reflow/calendar"

// parseDateOrZero and parseDateTimeOrZero tolerate a blank or malformed
// stored value by returning the zero value rather than erroring — every
// write path validates its own input before persisting, so a parse
// failure here would only ever reflect corrupted storage, not a bad
// request. Surfacing that as a panic would take down an otherwise
// healthy read path for unrelated records.
func parseDateOrZero(s string) calendar.LocalDate {
	d, err := calendar.ParseDate(s)
	if err != nil {
		return calendar.LocalDate{}
	}
	return d
}

func parseDateTimeOrZero(s string) calendar.LocalDateTime {
	dt, err := calendar.ParseDateTime(s)
	if err != nil {
		return calendar.LocalDateTime{}
	}
	return dt
}
