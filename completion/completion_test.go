package completion

import (
	"testing"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/model"
)

type stubStore struct {
	bySeries map[model.SeriesId][]model.Completion
	byTag    map[string][]model.SeriesId
}

func (s stubStore) CompletionsFor(id model.SeriesId) []model.Completion { return s.bySeries[id] }
func (s stubStore) SeriesWithTag(tag string) []model.SeriesId           { return s.byTag[tag] }

func mkCompletion(seriesId model.SeriesId, date string, durationMinutes int) model.Completion {
	d, _ := calendar.ParseDate(date)
	start := calendar.LocalDateTime{Date: d, Time: calendar.LocalTime{Hour: 9}}
	end := calendar.AddMinutes(start, durationMinutes)
	return model.Completion{SeriesId: seriesId, InstanceDate: d, StartTime: start, EndTime: end}
}

func TestAdaptiveDurationScenario(t *testing.T) {
	// spec.md §8 scenario 3.
	store := stubStore{bySeries: map[model.SeriesId][]model.Completion{
		"S": {
			mkCompletion("S", "2024-01-15", 30),
			mkCompletion("S", "2024-01-16", 60),
			mkCompletion("S", "2024-01-17", 90),
		},
	}}
	asOf, _ := calendar.ParseDate("2024-01-20")
	n := 3
	durations, err := GetDurationsForAdaptive(store, "S", model.AdaptiveMode{LastN: &n}, asOf)
	if err != nil {
		t.Fatalf("GetDurationsForAdaptive error: %v", err)
	}

	got, err := CalculateAdaptiveDuration(model.AdaptiveDurationConfig{Fallback: 30, Multiplier: 1.0}, durations)
	if err != nil {
		t.Fatalf("CalculateAdaptiveDuration error: %v", err)
	}
	if got != 60 {
		t.Errorf("duration = %d, want 60", got)
	}

	min, max := 75, 100
	got, err = CalculateAdaptiveDuration(model.AdaptiveDurationConfig{Fallback: 30, Multiplier: 1.0, Minimum: &min, Maximum: &max}, durations)
	if err != nil {
		t.Fatalf("CalculateAdaptiveDuration error: %v", err)
	}
	if got != 75 {
		t.Errorf("clamped duration = %d, want 75", got)
	}

	got, err = CalculateAdaptiveDuration(model.AdaptiveDurationConfig{Fallback: 30, Multiplier: 1.25}, durations)
	if err != nil {
		t.Fatalf("CalculateAdaptiveDuration error: %v", err)
	}
	if got != 75 {
		t.Errorf("multiplied duration = %d, want 75", got)
	}
}

func TestDaysSinceLastCompletionScenario(t *testing.T) {
	// spec.md §8 scenario 4.
	store := stubStore{bySeries: map[model.SeriesId][]model.Completion{
		"S": {
			mkCompletion("S", "2024-01-10", 30),
			mkCompletion("S", "2024-01-17", 30),
		},
	}}
	asOf, _ := calendar.ParseDate("2024-01-20")
	got := DaysSinceLastCompletion(store, model.Target{SeriesId: "S"}, asOf)
	if got == nil || *got != 3 {
		t.Fatalf("DaysSinceLastCompletion = %v, want 3", got)
	}
}

func TestDaysSinceLastCompletionNoHistory(t *testing.T) {
	store := stubStore{bySeries: map[model.SeriesId][]model.Completion{}}
	asOf, _ := calendar.ParseDate("2024-01-20")
	if got := DaysSinceLastCompletion(store, model.Target{SeriesId: "S"}, asOf); got != nil {
		t.Errorf("expected nil, got %v", *got)
	}
}

func TestCountInWindow(t *testing.T) {
	store := stubStore{bySeries: map[model.SeriesId][]model.Completion{
		"S": {
			mkCompletion("S", "2024-01-10", 30),
			mkCompletion("S", "2024-01-15", 30),
			mkCompletion("S", "2024-01-20", 30),
		},
	}}
	asOf, _ := calendar.ParseDate("2024-01-20")
	if got := CountInWindow(store, model.Target{SeriesId: "S"}, 7, asOf); got != 2 {
		t.Errorf("CountInWindow = %d, want 2", got)
	}
}

func TestCalculateAdaptiveDurationNoHistoryUsesFallback(t *testing.T) {
	got, err := CalculateAdaptiveDuration(model.AdaptiveDurationConfig{Fallback: 45, Multiplier: 1.0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 45 {
		t.Errorf("duration = %d, want 45", got)
	}
}

func TestCalculateAdaptiveDurationRejectsInvalidConfig(t *testing.T) {
	if _, err := CalculateAdaptiveDuration(model.AdaptiveDurationConfig{Fallback: 0, Multiplier: 1.0}, nil); err == nil {
		t.Error("expected error for non-positive fallback")
	}
	if _, err := CalculateAdaptiveDuration(model.AdaptiveDurationConfig{Fallback: 1, Multiplier: 0}, nil); err == nil {
		t.Error("expected error for non-positive multiplier")
	}
	min, max := 10, 5
	if _, err := CalculateAdaptiveDuration(model.AdaptiveDurationConfig{Fallback: 1, Multiplier: 1, Minimum: &min, Maximum: &max}, nil); err == nil {
		t.Error("expected error for minimum > maximum")
	}
}

func TestTargetResolutionByTag(t *testing.T) {
	store := stubStore{
		bySeries: map[model.SeriesId][]model.Completion{
			"A": {mkCompletion("A", "2024-01-01", 10)},
			"B": {mkCompletion("B", "2024-01-02", 20)},
		},
		byTag: map[string][]model.SeriesId{"gym": {"A", "B"}},
	}
	asOf, _ := calendar.ParseDate("2024-01-10")
	if got := CountInWindow(store, model.Target{Tag: "gym"}, 30, asOf); got != 2 {
		t.Errorf("CountInWindow by tag = %d, want 2", got)
	}
}
