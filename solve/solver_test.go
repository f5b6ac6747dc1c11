package solve

import (
	"testing"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/chain"
	"github.com/motioneffector/reflow/constraint"
	"github.com/motioneffector/reflow/model"
	"github.com/motioneffector/reflow/propagate"
)

func dt(t *testing.T, s string) calendar.LocalDateTime {
	t.Helper()
	v, err := calendar.ParseDateTime(s)
	if err != nil {
		t.Fatalf("ParseDateTime(%q): %v", s, err)
	}
	return v
}

// Spec scenario 2: parent A fixed at 2025-01-15T09:00 for 60 min; child B
// linked targetDistance=0 earlyWobble=0 lateWobble=30, with a domain of
// {09:00, 10:00, 10:30, 11:00} before propagation. After propagation only
// {10:00, 10:30} survive, and the solver picks 10:00 (nearer B's ideal of
// 10:00, tie-broken lexicographically thereafter).
func TestSolveChainPropagationScenario(t *testing.T) {
	parentKey := model.VarKey{SeriesId: "A", InstanceDate: mustDate(t, "2025-01-15")}
	childKey := model.VarKey{SeriesId: "B", InstanceDate: mustDate(t, "2025-01-15")}

	earlyWobble, lateWobble, chainDistance := 0, 30, 0

	instances := map[model.VarKey]model.Instance{
		parentKey: {
			SeriesId:        "A",
			InstanceDate:    mustDate(t, "2025-01-15"),
			IdealTime:       dt(t, "2025-01-15T09:00:00"),
			DurationMinutes: 60,
			Fixed:           true,
		},
		childKey: {
			SeriesId:        "B",
			InstanceDate:    mustDate(t, "2025-01-15"),
			IdealTime:       dt(t, "2025-01-15T10:00:00"),
			DurationMinutes: 30,
			ParentSeriesId:  seriesIdPtr("A"),
			ChainDistance:   &chainDistance,
			EarlyWobble:     &earlyWobble,
			LateWobble:      &lateWobble,
		},
	}

	domains := propagate.Domains{
		parentKey: {dt(t, "2025-01-15T09:00:00")},
		childKey: {
			dt(t, "2025-01-15T09:00:00"),
			dt(t, "2025-01-15T10:00:00"),
			dt(t, "2025-01-15T10:30:00"),
			dt(t, "2025-01-15T11:00:00"),
		},
	}

	binaries := []constraint.Binary{{Kind: "chain", A: parentKey, B: childKey}}

	links := []model.Link{{
		Id: "L1", ParentSeriesId: "A", ChildSeriesId: "B",
		TargetDistance: 0, EarlyWobble: 0, LateWobble: 30,
	}}
	graph := chain.Build([]model.SeriesId{"A", "B"}, links)

	assignment, ok := Solve(domains, instances, binaries, graph, nil)
	if !ok {
		t.Fatal("expected a solution")
	}
	if got := assignment[parentKey]; got.String() != "2025-01-15T09:00:00" {
		t.Errorf("parent placed at %s, want 2025-01-15T09:00:00", got)
	}
	if got := assignment[childKey]; got.String() != "2025-01-15T10:00:00" {
		t.Errorf("child placed at %s, want 2025-01-15T10:00:00", got)
	}
}

// Spec scenario 5: two fixed series with identical placement are
// infeasible under noOverlap; Solve must report no solution so the
// caller falls through to the conflict reporter.
func TestSolveInfeasibleOverlapReturnsNoSolution(t *testing.T) {
	keyA := model.VarKey{SeriesId: "A", InstanceDate: mustDate(t, "2025-01-15")}
	keyB := model.VarKey{SeriesId: "B", InstanceDate: mustDate(t, "2025-01-15")}

	instances := map[model.VarKey]model.Instance{
		keyA: {SeriesId: "A", InstanceDate: mustDate(t, "2025-01-15"), IdealTime: dt(t, "2025-01-15T09:00:00"), DurationMinutes: 60, Fixed: true},
		keyB: {SeriesId: "B", InstanceDate: mustDate(t, "2025-01-15"), IdealTime: dt(t, "2025-01-15T09:00:00"), DurationMinutes: 60, Fixed: true},
	}
	domains := propagate.Domains{
		keyA: {dt(t, "2025-01-15T09:00:00")},
		keyB: {dt(t, "2025-01-15T09:00:00")},
	}
	binaries := []constraint.Binary{{Kind: model.ConstraintNoOverlap, A: keyA, B: keyB}}

	_, ok := Solve(domains, instances, binaries, nil, nil)
	if ok {
		t.Fatal("expected no solution for two overlapping fixed instances")
	}
}

// Fixed instances are never branched on or moved, regardless of workload
// or other flexible instances competing for the same slot.
func TestSolveNeverMovesFixedInstances(t *testing.T) {
	fixedKey := model.VarKey{SeriesId: "A", InstanceDate: mustDate(t, "2025-01-15")}
	flexKey := model.VarKey{SeriesId: "B", InstanceDate: mustDate(t, "2025-01-15")}

	instances := map[model.VarKey]model.Instance{
		fixedKey: {SeriesId: "A", InstanceDate: mustDate(t, "2025-01-15"), IdealTime: dt(t, "2025-01-15T09:00:00"), DurationMinutes: 30, Fixed: true},
		flexKey:  {SeriesId: "B", InstanceDate: mustDate(t, "2025-01-15"), IdealTime: dt(t, "2025-01-15T09:00:00"), DurationMinutes: 30},
	}
	domains := propagate.Domains{
		fixedKey: {dt(t, "2025-01-15T09:00:00")},
		flexKey:  {dt(t, "2025-01-15T09:00:00"), dt(t, "2025-01-15T09:30:00")},
	}
	binaries := []constraint.Binary{{Kind: model.ConstraintNoOverlap, A: fixedKey, B: flexKey}}

	assignment, ok := Solve(domains, instances, binaries, nil, nil)
	if !ok {
		t.Fatal("expected a solution")
	}
	if got := assignment[fixedKey]; got.String() != "2025-01-15T09:00:00" {
		t.Errorf("fixed instance moved to %s", got)
	}
	if got := assignment[flexKey]; got.String() != "2025-01-15T09:30:00" {
		t.Errorf("flexible instance placed at %s, want 2025-01-15T09:30:00", got)
	}
}

func mustDate(t *testing.T, s string) calendar.LocalDate {
	t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func seriesIdPtr(id model.SeriesId) *model.SeriesId { return &id }
