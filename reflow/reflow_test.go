package reflow

import (
	"testing"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/model"
	"github.com/motioneffector/reflow/pattern"
)

type emptyStore struct{}

func (emptyStore) CompletionsFor(model.SeriesId) []model.Completion { return nil }
func (emptyStore) SeriesWithTag(string) []model.SeriesId            { return nil }

func fixedSeries(id model.SeriesId, start calendar.LocalDate, ideal calendar.LocalTime, durationMinutes int) model.Series {
	return model.Series{
		Id:              id,
		Pattern:         pattern.Daily{},
		StartDate:       start,
		Time:            ideal,
		DurationMinutes: durationMinutes,
		Fixed:           true,
		Count:           intp(1),
	}
}

func intp(v int) *int { return &v }

func TestReflowInfeasibleOverlapScenario(t *testing.T) {
	// spec.md §8 scenario 5: two fixed series both at 09:00 for 60 min.
	d, _ := calendar.ParseDate("2025-01-15")
	ideal := calendar.LocalTime{Hour: 9}
	series := []model.Series{
		fixedSeries("A", d, ideal, 60),
		fixedSeries("B", d, ideal, 60),
	}
	constraints := []model.RelationalConstraint{
		{Kind: model.ConstraintNoOverlap, Subject: model.Target{SeriesId: "A"}, Reference: model.Target{SeriesId: "B"}},
	}

	out := Reflow(Input{
		Series:          series,
		Constraints:     constraints,
		CompletionStore: emptyStore{},
		Today:           d,
		WindowStart:     d,
		WindowEnd:       d,
	})

	if len(out.Conflicts) != 1 {
		t.Fatalf("len(Conflicts) = %d, want 1: %+v", len(out.Conflicts), out.Conflicts)
	}
	if len(out.Assignments) != 2 {
		t.Fatalf("len(Assignments) = %d, want 2", len(out.Assignments))
	}
	for _, a := range out.Assignments {
		if a.Time.String() != "2025-01-15T09:00:00" {
			t.Errorf("assignment %s = %s, want 2025-01-15T09:00:00 (fixed instances never move)", a.SeriesId, a.Time.String())
		}
	}
}

func TestReflowDeterministic(t *testing.T) {
	d, _ := calendar.ParseDate("2025-01-15")
	ideal := calendar.LocalTime{Hour: 9}
	series := []model.Series{fixedSeries("A", d, ideal, 60)}
	input := Input{Series: series, CompletionStore: emptyStore{}, Today: d, WindowStart: d, WindowEnd: d}

	first := Reflow(input)
	second := Reflow(input)
	if len(first.Assignments) != len(second.Assignments) {
		t.Fatalf("nondeterministic assignment count: %d vs %d", len(first.Assignments), len(second.Assignments))
	}
	for i := range first.Assignments {
		if first.Assignments[i] != second.Assignments[i] {
			t.Errorf("nondeterministic assignment at %d: %+v vs %+v", i, first.Assignments[i], second.Assignments[i])
		}
	}
}

func TestReflowFixedInstanceNeverMoves(t *testing.T) {
	d, _ := calendar.ParseDate("2025-01-15")
	ideal := calendar.LocalTime{Hour: 14, Minute: 30}
	series := []model.Series{fixedSeries("A", d, ideal, 45)}
	out := Reflow(Input{Series: series, CompletionStore: emptyStore{}, Today: d, WindowStart: d, WindowEnd: d})
	if len(out.Assignments) != 1 || out.Assignments[0].Time.String() != "2025-01-15T14:30:00" {
		t.Fatalf("assignments = %+v, want fixed 14:30", out.Assignments)
	}
	if len(out.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", out.Conflicts)
	}
}
