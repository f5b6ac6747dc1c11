package constraint

import (
	"testing"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/model"
)

type stubResolver struct{ byTag map[string][]model.SeriesId }

func (s stubResolver) SeriesWithTag(tag string) []model.SeriesId { return s.byTag[tag] }

func TestResolvePairsExpandsTagsAndExcludesSelfPairs(t *testing.T) {
	resolver := stubResolver{byTag: map[string][]model.SeriesId{"gym": {"A", "B"}}}
	constraints := []model.RelationalConstraint{
		{Kind: model.ConstraintNoOverlap, Subject: model.Target{Tag: "gym"}, Reference: model.Target{Tag: "gym"}},
	}
	pairs := ResolvePairs(constraints, resolver)
	for _, p := range pairs {
		if p.Subject == p.Reference {
			t.Errorf("self-pair leaked through: %+v", p)
		}
	}
	if len(pairs) != 2 {
		t.Fatalf("len(pairs) = %d, want 2 (A,B) and (B,A)", len(pairs))
	}
}

func TestSatisfiesNoOverlapAllowsAdjacency(t *testing.T) {
	a, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	b, _ := calendar.ParseDateTime("2025-01-15T10:00:00")
	if !Satisfies(model.ConstraintNoOverlap, a, 60, b, 30, 0) {
		t.Error("expected adjacency (end(A)==start(B)) to satisfy noOverlap")
	}
}

func TestSatisfiesNoOverlapRejectsOverlap(t *testing.T) {
	a, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	b, _ := calendar.ParseDateTime("2025-01-15T09:30:00")
	if Satisfies(model.ConstraintNoOverlap, a, 60, b, 30, 0) {
		t.Error("expected overlapping intervals to violate noOverlap")
	}
}

func TestSatisfiesMustBeWithin(t *testing.T) {
	a, _ := calendar.ParseDateTime("2025-01-15T09:00:00")
	b, _ := calendar.ParseDateTime("2025-01-15T09:10:00")
	if !Satisfies(model.ConstraintMustBeWithin, a, 0, b, 0, 15) {
		t.Error("expected 10-minute gap to satisfy mustBeWithin(15)")
	}
	if Satisfies(model.ConstraintMustBeWithin, a, 0, b, 0, 5) {
		t.Error("expected 10-minute gap to violate mustBeWithin(5)")
	}
}

func TestBuildBinariesPairsSameDateInstances(t *testing.T) {
	d, _ := calendar.ParseDate("2025-01-15")
	instances := []model.Instance{
		{SeriesId: "A", InstanceDate: d},
		{SeriesId: "B", InstanceDate: d},
	}
	pairs := []SeriesPair{{Kind: model.ConstraintNoOverlap, Subject: "A", Reference: "B"}}
	binaries := BuildBinaries(pairs, instances)
	if len(binaries) != 1 {
		t.Fatalf("len(binaries) = %d, want 1", len(binaries))
	}
}

func TestBuildBinariesIncludesChainConstraint(t *testing.T) {
	d, _ := calendar.ParseDate("2025-01-15")
	parentId := model.SeriesId("P")
	instances := []model.Instance{
		{SeriesId: "P", InstanceDate: d},
		{SeriesId: "C", InstanceDate: d, ParentSeriesId: &parentId},
	}
	binaries := BuildBinaries(nil, instances)
	if len(binaries) != 1 || binaries[0].Kind != "chain" {
		t.Fatalf("expected one chain binary, got %+v", binaries)
	}
}
