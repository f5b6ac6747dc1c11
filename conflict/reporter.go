// Package conflict implements the best-effort placement and structured
// conflict classification of component C11, invoked when the backtracking
// solver finds no fully consistent assignment.
package conflict

import (
	"fmt"
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/chain"
	"github.com/motioneffector/reflow/constraint"
	"github.com/motioneffector/reflow/model"
)

// Severity classifies how serious a reported conflict is.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Kind identifies the shape of a conflict.
type Kind string

const (
	KindOverlap              Kind = "overlap"
	KindChainCannotFit        Kind = "chainCannotFit"
	KindConstraintViolation  Kind = "constraintViolation"
	KindNoValidSlot          Kind = "noValidSlot"
)

// Conflict is one structured entry in the reflow output's conflicts list.
type Conflict struct {
	Kind        Kind
	Severity    Severity
	InstanceIds []model.VarKey
	Message     string
}

// Report places every instance (fixed instances unconditionally at their
// ideal time, flexible instances at the closest available slot in their
// unpruned domain) and classifies every constraint violation that results.
// completedEnds supplies a chain parent's actual completion end, when it
// has one, so a completed parent's real end time (not its best-effort
// placement in this pass) grounds the child's target window.
func Report(
	instances map[model.VarKey]model.Instance,
	unprunedDomains map[model.VarKey][]calendar.LocalDateTime,
	binaries []constraint.Binary,
	completedEnds chain.CompletedEnds,
) (map[model.VarKey]calendar.LocalDateTime, []Conflict) {
	assignment := make(map[model.VarKey]calendar.LocalDateTime, len(instances))
	var conflicts []Conflict

	var ordered []model.VarKey
	for key := range instances {
		ordered = append(ordered, key)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].SeriesId != ordered[j].SeriesId {
			return ordered[i].SeriesId < ordered[j].SeriesId
		}
		return ordered[i].InstanceDate.Before(ordered[j].InstanceDate)
	})

	for _, key := range ordered {
		inst := instances[key]
		if inst.Fixed {
			assignment[key] = inst.IdealTime
			continue
		}
		domain := unprunedDomains[key]
		if len(domain) == 0 {
			assignment[key] = inst.IdealTime
			conflicts = append(conflicts, Conflict{
				Kind:        KindNoValidSlot,
				Severity:    SeverityWarning,
				InstanceIds: []model.VarKey{key},
				Message:     fmt.Sprintf("%s on %s had no valid slot; placed at ideal time", key.SeriesId, key.InstanceDate),
			})
			continue
		}
		assignment[key] = closestToIdeal(domain, inst.IdealTime)
	}

	for _, b := range binaries {
		a, okA := assignment[b.A]
		c, okB := assignment[b.B]
		if !okA || !okB {
			continue
		}
		instA, instB := instances[b.A], instances[b.B]

		if b.Kind == "chain" {
			if instB.ChainDistance == nil || instB.EarlyWobble == nil || instB.LateWobble == nil {
				continue
			}
			link := model.Link{TargetDistance: *instB.ChainDistance, EarlyWobble: *instB.EarlyWobble, LateWobble: *instB.LateWobble}
			parentEnd := chain.ParentEnd(completedEnds.Lookup(b.A), a, instA.DurationMinutes)
			_, lo, hi := chain.TargetWindow(link, parentEnd)
			if c.Before(lo) || c.After(hi) {
				conflicts = append(conflicts, Conflict{
					Kind:        KindChainCannotFit,
					Severity:    SeverityError,
					InstanceIds: []model.VarKey{b.A, b.B},
					Message:     fmt.Sprintf("%s has no valid window under parent %s's placement", b.B.SeriesId, b.A.SeriesId),
				})
			}
			continue
		}

		if b.Kind == model.ConstraintNoOverlap {
			if !constraint.Satisfies(b.Kind, a, instA.DurationMinutes, c, instB.DurationMinutes, b.WithinMinutes) {
				conflicts = append(conflicts, Conflict{
					Kind:        KindOverlap,
					Severity:    SeverityWarning,
					InstanceIds: []model.VarKey{b.A, b.B},
					Message:     fmt.Sprintf("%s and %s occupy intersecting intervals on %s", b.A.SeriesId, b.B.SeriesId, b.A.InstanceDate),
				})
			}
			continue
		}

		if !constraint.Satisfies(b.Kind, a, instA.DurationMinutes, c, instB.DurationMinutes, b.WithinMinutes) {
			conflicts = append(conflicts, Conflict{
				Kind:        KindConstraintViolation,
				Severity:    SeverityError,
				InstanceIds: []model.VarKey{b.A, b.B},
				Message:     fmt.Sprintf("%s violates %s constraint against %s", b.A.SeriesId, b.Kind, b.B.SeriesId),
			})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Kind != conflicts[j].Kind {
			return conflicts[i].Kind < conflicts[j].Kind
		}
		return firstId(conflicts[i]) < firstId(conflicts[j])
	})
	return assignment, conflicts
}

func firstId(c Conflict) string {
	if len(c.InstanceIds) == 0 {
		return ""
	}
	return string(c.InstanceIds[0].SeriesId)
}

func closestToIdeal(domain []calendar.LocalDateTime, ideal calendar.LocalDateTime) calendar.LocalDateTime {
	best := domain[0]
	bestDist := absMinutes(calendar.MinutesBetween(ideal, best))
	for _, v := range domain[1:] {
		d := absMinutes(calendar.MinutesBetween(ideal, v))
		if d < bestDist || (d == bestDist && v.String() < best.String()) {
			best, bestDist = v, d
		}
	}
	return best
}

func absMinutes(m int) int {
	if m < 0 {
		return -m
	}
	return m
}
