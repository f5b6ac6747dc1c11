package conflict

import (
	"testing"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/constraint"
	"github.com/motioneffector/reflow/model"
)

func TestReportOverlapScenario(t *testing.T) {
	// spec.md §8 scenario 5.
	d := calendar.LocalDate{Year: 2025, Month: 1, Day: 15}
	ideal, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	aKey := model.VarKey{SeriesId: "A", InstanceDate: d}
	bKey := model.VarKey{SeriesId: "B", InstanceDate: d}

	instances := map[model.VarKey]model.Instance{
		aKey: {SeriesId: "A", InstanceDate: d, Fixed: true, IdealTime: ideal, DurationMinutes: 60},
		bKey: {SeriesId: "B", InstanceDate: d, Fixed: true, IdealTime: ideal, DurationMinutes: 60},
	}
	binaries := []constraint.Binary{{Kind: model.ConstraintNoOverlap, A: aKey, B: bKey}}

	assignment, conflicts := Report(instances, nil, binaries, nil)

	if assignment[aKey] != ideal || assignment[bKey] != ideal {
		t.Fatalf("expected both fixed instances placed at ideal time, got %v / %v", assignment[aKey], assignment[bKey])
	}
	if len(conflicts) != 1 {
		t.Fatalf("len(conflicts) = %d, want 1", len(conflicts))
	}
	if conflicts[0].Kind != KindOverlap || conflicts[0].Severity != SeverityWarning {
		t.Errorf("conflict = %+v, want overlap/warning", conflicts[0])
	}
}

func TestReportNoValidSlotWhenDomainEmpty(t *testing.T) {
	d := calendar.LocalDate{Year: 2025, Month: 1, Day: 15}
	ideal, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	key := model.VarKey{SeriesId: "A", InstanceDate: d}
	instances := map[model.VarKey]model.Instance{
		key: {SeriesId: "A", InstanceDate: d, IdealTime: ideal, DurationMinutes: 30},
	}
	assignment, conflicts := Report(instances, map[model.VarKey][]calendar.LocalDateTime{key: nil}, nil, nil)
	if assignment[key] != ideal {
		t.Errorf("expected fallback placement at ideal time, got %v", assignment[key])
	}
	if len(conflicts) != 1 || conflicts[0].Kind != KindNoValidSlot {
		t.Fatalf("conflicts = %+v, want one noValidSlot", conflicts)
	}
}
