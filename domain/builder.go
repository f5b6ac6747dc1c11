// Package domain implements the per-instance candidate-slot builder of
// component C7: every datetime an instance could be placed at, before
// constraint propagation narrows it further.
package domain

import (
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/model"
)

// slotGranularityMinutes is the fixed grid every candidate slot aligns to.
const slotGranularityMinutes = 5

// defaultWindow is used when an instance has no explicit TimeWindow.
var defaultWindow = model.TimeWindow{
	Start: calendar.LocalTime{Hour: 0, Minute: 0},
	End:   calendar.LocalTime{Hour: 23, Minute: 55},
}

// Build computes I's domain: the sorted, duplicate-free set of candidate
// LocalDateTime values it may be assigned to. An all-day instance has no
// domain (nil) — it is excluded from reflow entirely.
func Build(i model.Instance) []calendar.LocalDateTime {
	if i.AllDay {
		return nil
	}
	if i.Fixed {
		return []calendar.LocalDateTime{i.IdealTime}
	}

	window := defaultWindow
	if i.TimeWindow != nil {
		window = *i.TimeWindow
	}

	var slots []calendar.LocalDateTime
	baseDate := i.IdealTime.Date
	for k := -i.DaysBefore; k <= i.DaysAfter; k++ {
		day := calendar.AddDays(baseDate, k)
		slots = append(slots, daySlots(day, window, i.DurationMinutes)...)
	}

	sort.Slice(slots, func(a, b int) bool { return slots[a].Before(slots[b]) })
	return dedupe(slots)
}

func daySlots(day calendar.LocalDate, window model.TimeWindow, durationMinutes int) []calendar.LocalDateTime {
	start := roundUpToGrid(window.Start.Minutes())
	end := window.End.Minutes()

	var out []calendar.LocalDateTime
	for m := start; m <= end; m += slotGranularityMinutes {
		if m+durationMinutes-1 > end {
			continue
		}
		out = append(out, calendar.LocalDateTime{Date: day, Time: calendar.TimeFromMinutes(m)})
	}
	return out
}

func roundUpToGrid(minutes int) int {
	if rem := minutes % slotGranularityMinutes; rem != 0 {
		return minutes + (slotGranularityMinutes - rem)
	}
	return minutes
}

func dedupe(slots []calendar.LocalDateTime) []calendar.LocalDateTime {
	out := slots[:0:0]
	for i, s := range slots {
		if i == 0 || s.Compare(slots[i-1]) != 0 {
			out = append(out, s)
		}
	}
	return out
}

// Restrict intersects domain with the closed interval [lower, upper],
// used to apply a chain's valid window (component C5/C9).
func Restrict(domain []calendar.LocalDateTime, lower, upper calendar.LocalDateTime) []calendar.LocalDateTime {
	out := domain[:0:0]
	for _, s := range domain {
		if !s.Before(lower) && !s.After(upper) {
			out = append(out, s)
		}
	}
	return out
}
