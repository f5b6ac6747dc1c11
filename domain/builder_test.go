package domain

import (
	"testing"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/model"
)

func TestBuildAllDayHasNoDomain(t *testing.T) {
	i := model.Instance{AllDay: true}
	if got := Build(i); got != nil {
		t.Errorf("Build(allDay) = %v, want nil", got)
	}
}

func TestBuildFixedIsSingleSlot(t *testing.T) {
	ideal, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	i := model.Instance{Fixed: true, IdealTime: ideal, DurationMinutes: 60}
	got := Build(i)
	if len(got) != 1 || got[0] != ideal {
		t.Errorf("Build(fixed) = %v, want [%v]", got, ideal)
	}
}

func TestBuildRespectsTimeWindowAndDuration(t *testing.T) {
	ideal, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	window := model.TimeWindow{Start: calendar.LocalTime{Hour: 9}, End: calendar.LocalTime{Hour: 9, Minute: 20}}
	i := model.Instance{IdealTime: ideal, DurationMinutes: 15, TimeWindow: &window}
	got := Build(i)
	// Slots at :00, :05 fit (end <= 9:20); :10 -> ends 9:25, excluded.
	want := []string{"2025-01-15T09:00:00", "2025-01-15T09:05:00"}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d: %v", len(got), len(want), got)
	}
	for idx, w := range want {
		if got[idx].String() != w {
			t.Errorf("got[%d] = %s, want %s", idx, got[idx].String(), w)
		}
	}
}

func TestBuildDaysBeforeAfterExpandsDaySet(t *testing.T) {
	ideal, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	window := model.TimeWindow{Start: calendar.LocalTime{Hour: 9}, End: calendar.LocalTime{Hour: 9}}
	i := model.Instance{IdealTime: ideal, DurationMinutes: 5, DaysBefore: 1, DaysAfter: 1, TimeWindow: &window}
	got := Build(i)
	want := []string{"2025-01-14T09:00:00", "2025-01-15T09:00:00", "2025-01-16T09:00:00"}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d: %v", len(got), len(want), got)
	}
	for idx, w := range want {
		if got[idx].String() != w {
			t.Errorf("got[%d] = %s, want %s", idx, got[idx].String(), w)
		}
	}
}

func TestRestrictIntersectsWindow(t *testing.T) {
	a, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	b, _ := calendar.ParseDateTime("2025-01-15T10:00:00")
	c, _ := calendar.ParseDateTime("2025-01-15T10:30:00")
	d, _ := calendar.ParseDateTime("2025-01-15T11:00:00")
	lower, _ := calendar.ParseDateTime("2025-01-15T10:00:00")
	upper, _ := calendar.ParseDateTime("2025-01-15T10:30:00")
	got := Restrict([]calendar.LocalDateTime{a, b, c, d}, lower, upper)
	if len(got) != 2 || got[0] != b || got[1] != c {
		t.Errorf("Restrict = %v, want [%v %v]", got, b, c)
	}
}
