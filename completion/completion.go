// Package completion implements the completion-history queries of
// component C3: windowed counts, days-since, and adaptive-duration
// calculation. It operates over a caller-supplied snapshot of completions
// and series rather than owning storage itself, matching the pure-core /
// adapter split of spec.md §5.
package completion

import (
	"math"
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

// Store is the read-only view the core needs over completion history and
// series tags. Implementations backed by a real adapter prefetch this
// before a reflow call; tests can use an in-memory slice-backed stub.
type Store interface {
	// CompletionsFor returns every completion for the given series, in no
	// particular order.
	CompletionsFor(seriesId model.SeriesId) []model.Completion
	// SeriesWithTag returns the ids of every series currently carrying tag.
	SeriesWithTag(tag string) []model.SeriesId
}

// ResolveTarget expands a Target into the concrete set of series ids it
// refers to.
func ResolveTarget(store Store, target model.Target) []model.SeriesId {
	if target.IsTag() {
		return store.SeriesWithTag(target.Tag)
	}
	return []model.SeriesId{target.SeriesId}
}

func completionsForTarget(store Store, target model.Target) []model.Completion {
	var all []model.Completion
	for _, id := range ResolveTarget(store, target) {
		all = append(all, store.CompletionsFor(id)...)
	}
	return all
}

// windowStart computes the inclusive lower bound of [asOf-windowDays+1, asOf].
func windowStart(asOf calendar.LocalDate, windowDays int) calendar.LocalDate {
	return calendar.AddDays(asOf, -(windowDays - 1))
}

// CountInWindow returns the number of completions of target's resolved
// series whose instanceDate falls in [asOf-windowDays+1, asOf].
func CountInWindow(store Store, target model.Target, windowDays int, asOf calendar.LocalDate) int {
	start := windowStart(asOf, windowDays)
	count := 0
	for _, c := range completionsForTarget(store, target) {
		if !c.InstanceDate.Before(start) && !c.InstanceDate.After(asOf) {
			count++
		}
	}
	return count
}

// DaysSinceLastCompletion returns asOf minus the most recent completion
// date at or before asOf across target's resolved series, or nil if there
// is no such completion.
func DaysSinceLastCompletion(store Store, target model.Target, asOf calendar.LocalDate) *int {
	var latest *calendar.LocalDate
	for _, c := range completionsForTarget(store, target) {
		if c.InstanceDate.After(asOf) {
			continue
		}
		if latest == nil || c.InstanceDate.After(*latest) {
			d := c.InstanceDate
			latest = &d
		}
	}
	if latest == nil {
		return nil
	}
	days := calendar.DaysBetween(*latest, asOf)
	return &days
}

// GetDurationsForAdaptive returns the durations (in minutes) selected by
// mode for seriesId, most-recent instanceDate first.
func GetDurationsForAdaptive(store Store, seriesId model.SeriesId, mode model.AdaptiveMode, asOf calendar.LocalDate) ([]int, error) {
	all := store.CompletionsFor(seriesId)
	sort.Slice(all, func(i, j int) bool {
		return all[j].InstanceDate.Before(all[i].InstanceDate)
	})

	switch {
	case mode.LastN != nil:
		n := *mode.LastN
		if n > len(all) {
			n = len(all)
		}
		durations := make([]int, 0, n)
		for _, c := range all[:n] {
			durations = append(durations, c.DurationMinutes())
		}
		return durations, nil

	case mode.WindowDays != nil:
		start := windowStart(asOf, *mode.WindowDays)
		var durations []int
		for _, c := range all {
			if !c.InstanceDate.Before(start) && !c.InstanceDate.After(asOf) {
				durations = append(durations, c.DurationMinutes())
			}
		}
		return durations, nil

	default:
		return nil, errs.Validation("adaptive mode: exactly one of lastN/windowDays must be set")
	}
}

// CalculateAdaptiveDuration implements the mean/multiplier/clamp pipeline
// of spec.md §4.3. cfg is validated eagerly regardless of whether any
// durations were sampled.
func CalculateAdaptiveDuration(cfg model.AdaptiveDurationConfig, durations []int) (int, error) {
	if cfg.Fallback < 1 {
		return 0, errs.Validation("adaptive duration: fallback must be >= 1, got %d", cfg.Fallback)
	}
	if cfg.Multiplier <= 0 {
		return 0, errs.Validation("adaptive duration: multiplier must be > 0, got %v", cfg.Multiplier)
	}
	if cfg.Minimum != nil && cfg.Maximum != nil && *cfg.Minimum > *cfg.Maximum {
		return 0, errs.Validation("adaptive duration: minimum %d > maximum %d", *cfg.Minimum, *cfg.Maximum)
	}

	if len(durations) == 0 {
		return max1(cfg.Fallback), nil
	}

	sum := 0
	for _, d := range durations {
		sum += d
	}
	mean := roundHalfUp(float64(sum) / float64(len(durations)))
	result := int(math.Round(float64(mean) * cfg.Multiplier))

	if cfg.Minimum != nil && result < *cfg.Minimum {
		result = *cfg.Minimum
	}
	if cfg.Maximum != nil && result > *cfg.Maximum {
		result = *cfg.Maximum
	}
	return max1(result), nil
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
