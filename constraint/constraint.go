// Package constraint implements the constraint store of component C8:
// relational constraints resolved from tags to concrete series pairs, and
// their expansion into per-date binary constraints over generated
// instances.
package constraint

import (
	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/model"
)

// TagResolver expands a tag to the series currently carrying it. Kept
// minimal and separate from completion.Store so this package does not
// depend on the completion-history machinery.
type TagResolver interface {
	SeriesWithTag(tag string) []model.SeriesId
}

// SeriesPair is a RelationalConstraint resolved from tags to a concrete
// ordered pair of series, frozen before reflow runs (spec.md §4.8).
type SeriesPair struct {
	Kind          model.RelationalConstraintKind
	Subject       model.SeriesId
	Reference     model.SeriesId
	WithinMinutes int
}

// ResolvePairs expands every RelationalConstraint's Subject/Reference
// targets into the cross product of concrete series pairs, at
// registration time, per spec.md §4.8.
func ResolvePairs(constraints []model.RelationalConstraint, resolver TagResolver) []SeriesPair {
	var out []SeriesPair
	for _, c := range constraints {
		subjects := resolve(c.Subject, resolver)
		references := resolve(c.Reference, resolver)
		for _, s := range subjects {
			for _, r := range references {
				if s == r {
					continue
				}
				out = append(out, SeriesPair{Kind: c.Kind, Subject: s, Reference: r, WithinMinutes: c.WithinMinutes})
			}
		}
	}
	return out
}

func resolve(t model.Target, resolver TagResolver) []model.SeriesId {
	if t.IsTag() {
		return resolver.SeriesWithTag(t.Tag)
	}
	return []model.SeriesId{t.SeriesId}
}

// Binary is one concrete binary constraint between two generated
// instances, ready for propagation and solving.
type Binary struct {
	Kind          model.RelationalConstraintKind
	A, B          model.VarKey
	WithinMinutes int
}

// BuildBinaries expands resolved series pairs and the chain graph into
// the concrete per-date binary constraints active for this reflow call.
// Two instances pair under a relational constraint when they share the
// same instanceDate; a chain constraint pairs a child with its parent on
// the child's instanceDate.
func BuildBinaries(pairs []SeriesPair, instances []model.Instance) []Binary {
	byDate := make(map[calendar.LocalDate]map[model.SeriesId]model.Instance)
	for _, inst := range instances {
		if inst.AllDay {
			continue
		}
		if byDate[inst.InstanceDate] == nil {
			byDate[inst.InstanceDate] = make(map[model.SeriesId]model.Instance)
		}
		byDate[inst.InstanceDate][inst.SeriesId] = inst
	}

	var out []Binary
	for _, bySeries := range byDate {
		for _, p := range pairs {
			a, okA := bySeries[p.Subject]
			b, okB := bySeries[p.Reference]
			if !okA || !okB {
				continue
			}
			out = append(out, Binary{Kind: p.Kind, A: a.Key(), B: b.Key(), WithinMinutes: p.WithinMinutes})
		}
	}

	for _, inst := range instances {
		if inst.AllDay || inst.ParentSeriesId == nil {
			continue
		}
		parent, ok := byDate[inst.InstanceDate][*inst.ParentSeriesId]
		if !ok {
			continue
		}
		out = append(out, Binary{Kind: "chain", A: parent.Key(), B: inst.Key()})
	}
	return out
}

// Satisfies reports whether placing A at aStart (duration aDuration) and B
// at bStart (duration bDuration) satisfies kind, per spec.md §4.8's
// satisfaction table.
func Satisfies(kind model.RelationalConstraintKind, aStart calendar.LocalDateTime, aDuration int, bStart calendar.LocalDateTime, bDuration int, withinMinutes int) bool {
	switch kind {
	case model.ConstraintNoOverlap:
		endA := calendar.AddMinutes(aStart, aDuration)
		endB := calendar.AddMinutes(bStart, bDuration)
		return !endA.After(bStart) || !endB.After(aStart)
	case model.ConstraintMustBeBefore:
		return aStart.Before(bStart)
	case model.ConstraintMustBeAfter:
		return aStart.After(bStart)
	case model.ConstraintMustBeWithin:
		diff := calendar.MinutesBetween(bStart, aStart)
		if diff < 0 {
			diff = -diff
		}
		return diff <= withinMinutes
	default:
		return true
	}
}
