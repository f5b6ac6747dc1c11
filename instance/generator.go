// Package instance implements the instance generator of component C6:
// turning a series definition into concrete dated occurrences by
// combining pattern expansion, condition evaluation, exceptions, and
// adaptive duration.
package instance

import (
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/chain"
	"github.com/motioneffector/reflow/completion"
	"github.com/motioneffector/reflow/cycling"
	"github.com/motioneffector/reflow/model"
	"github.com/motioneffector/reflow/pattern"
)

// farFuture bounds open-ended pattern expansion; no series in practice
// needs instances past this date within a single reflow window.
var farFuture = calendar.LocalDate{Year: 9999, Month: 12, Day: 31}

// Exceptions indexes a series' InstanceException list by instanceDate.
type Exceptions map[calendar.LocalDate]model.InstanceException

// Generate materializes every instance of series s falling within
// [windowStart, windowEnd] (inclusive), per spec.md §4.6. graph supplies
// the series' inbound link, if any, so chain fields can be populated.
func Generate(s model.Series, exceptions Exceptions, store completion.Store, graph *chain.Graph, windowStart, windowEnd calendar.LocalDate) ([]model.Instance, error) {
	numbering, err := numberedDates(s, windowEnd)
	if err != nil {
		return nil, err
	}

	var out []model.Instance
	for _, nd := range numbering {
		if nd.date.Before(windowStart) || nd.date.After(windowEnd) {
			continue
		}
		if !evaluateCondition(s.Condition, store, s, nd.date) {
			continue
		}

		exc, hasExc := exceptions[nd.date]
		if hasExc && exc.Cancelled {
			continue
		}

		idealTime := calendar.LocalDateTime{Date: nd.date, Time: s.Time}
		if hasExc && exc.RescheduledTo != nil {
			idealTime = *exc.RescheduledTo
		}

		durationMinutes, err := resolveDuration(s, store, nd.date)
		if err != nil {
			return nil, err
		}
		if hasExc && exc.DurationMinutes != nil {
			durationMinutes = *exc.DurationMinutes
		}

		inst := model.Instance{
			SeriesId:        s.Id,
			InstanceDate:    nd.date,
			InstanceNumber:  nd.number,
			IdealTime:       idealTime,
			DurationMinutes: durationMinutes,
			Fixed:           s.Fixed,
			AllDay:          s.AllDay,
			TimeWindow:      s.TimeWindow,
			DaysBefore:      s.DaysBefore,
			DaysAfter:       s.DaysAfter,
		}

		if graph != nil {
			if l, ok := graph.ParentLink(s.Id); ok {
				parent := l.ParentSeriesId
				distance, early, late := l.TargetDistance, l.EarlyWobble, l.LateWobble
				inst.ParentSeriesId = &parent
				inst.ChainDistance = &distance
				inst.EarlyWobble = &early
				inst.LateWobble = &late
			}
		}

		if s.Cycling != nil {
			item, err := cycling.Resolve(*s.Cycling, nd.number)
			if err != nil {
				return nil, err
			}
			inst.CycleItem = item
		}

		out = append(out, inst)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].InstanceDate.Before(out[j].InstanceDate)
	})
	return out, nil
}

type numberedDate struct {
	date   calendar.LocalDate
	number int
}

// numberedDates expands s's full pattern from its start through at least
// windowEnd so that instanceNumber reflects absolute sequence position,
// independent of any later window slicing (spec.md §4.4).
func numberedDates(s model.Series, windowEnd calendar.LocalDate) ([]numberedDate, error) {
	upper := calendar.AddDays(windowEnd, 1)
	if s.EndDate != nil {
		endExclusive := calendar.AddDays(*s.EndDate, 1)
		if endExclusive.Before(upper) {
			upper = endExclusive
		}
	}
	if upper.Before(s.StartDate) {
		upper = s.StartDate
	}

	opts := pattern.Options{}
	if s.Count != nil {
		opts.Count = s.Count
	}

	dates, err := pattern.Expand(s.Pattern, pattern.Range{Start: s.StartDate, End: upper}, s.StartDate, opts)
	if err != nil {
		return nil, err
	}

	out := make([]numberedDate, len(dates))
	for i, d := range dates {
		out[i] = numberedDate{date: d, number: i}
	}
	return out, nil
}

func resolveDuration(s model.Series, store completion.Store, asOf calendar.LocalDate) (int, error) {
	if s.Adaptive == nil {
		return s.DurationMinutes, nil
	}
	durations, err := completion.GetDurationsForAdaptive(store, s.Id, s.Adaptive.Mode, asOf)
	if err != nil {
		return 0, err
	}
	return completion.CalculateAdaptiveDuration(*s.Adaptive, durations)
}

// evaluateCondition recursively evaluates c against asOf, using store for
// completion-history-backed predicates. A nil condition is always true.
func evaluateCondition(c model.Condition, store completion.Store, s model.Series, asOf calendar.LocalDate) bool {
	if c == nil {
		return true
	}
	switch cond := c.(type) {
	case model.Always:
		return true
	case model.And:
		for _, sub := range cond.Conditions {
			if !evaluateCondition(sub, store, s, asOf) {
				return false
			}
		}
		return true
	case model.Or:
		for _, sub := range cond.Conditions {
			if evaluateCondition(sub, store, s, asOf) {
				return true
			}
		}
		return len(cond.Conditions) == 0
	case model.Not:
		return !evaluateCondition(cond.Condition, store, s, asOf)
	case model.MinDaysSinceLastCompletion:
		days := completion.DaysSinceLastCompletion(store, cond.Target, asOf)
		return days == nil || *days >= cond.Days
	case model.MaxCompletionsInWindow:
		return completion.CountInWindow(store, cond.Target, cond.WindowDays, asOf) < cond.Max
	default:
		return true
	}
}
