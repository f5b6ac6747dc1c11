// Package propagate implements the arc-consistency pruning of component
// C9: repeatedly removing domain values that cannot satisfy some binary
// constraint until a fixpoint is reached.
package propagate

import (
	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/chain"
	"github.com/motioneffector/reflow/constraint"
	"github.com/motioneffector/reflow/model"
)

// Domains maps each variable to its current candidate slot list.
type Domains map[model.VarKey][]calendar.LocalDateTime

// Clone returns a deep copy of d, for the solver's backtracking trail.
func (d Domains) Clone() Domains {
	out := make(Domains, len(d))
	for k, v := range d {
		cp := make([]calendar.LocalDateTime, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// arc revises dom(from) using dom(to): a value survives in dom(from) only
// if some value in dom(to) satisfies the constraint with it.
type arc struct {
	from, to model.VarKey
	kind     model.RelationalConstraintKind
	within   int
	chain    bool
}

// Propagate runs arc consistency to a fixpoint over domains given the
// active binary constraints and the instance metadata (durations, chain
// wobble) needed to evaluate them. completedEnds supplies each chain
// parent's actual completion end, when it has one, so a completed
// parent's real end time (not its candidate scheduled slots) bounds its
// child's domain. Returns the pruned domains and false if any domain
// became empty (no solution under current assumptions).
func Propagate(domains Domains, binaries []constraint.Binary, instances map[model.VarKey]model.Instance, completedEnds chain.CompletedEnds) (Domains, bool) {
	domains = domains.Clone()

	var arcs []arc
	arcsByTo := make(map[model.VarKey][]arc)
	addArc := func(a arc) {
		arcs = append(arcs, a)
		arcsByTo[a.to] = append(arcsByTo[a.to], a)
	}

	for _, b := range binaries {
		if b.Kind == "chain" {
			// b.A is the parent, b.B the child: prune dom(child) using dom(parent).
			addArc(arc{from: b.B, to: b.A, chain: true})
			continue
		}
		addArc(arc{from: b.A, to: b.B, kind: b.Kind, within: b.WithinMinutes})
		addArc(arc{from: b.B, to: b.A, kind: reverseKind(b.Kind), within: b.WithinMinutes})
	}

	queue := append([]arc(nil), arcs...)
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]

		changed := revise(domains, a, instances, completedEnds)
		if !changed {
			continue
		}
		if len(domains[a.from]) == 0 {
			return domains, false
		}
		queue = append(queue, arcsByTo[a.from]...)
	}

	for _, d := range domains {
		if len(d) == 0 {
			return domains, false
		}
	}
	return domains, true
}

func revise(domains Domains, a arc, instances map[model.VarKey]model.Instance, completedEnds chain.CompletedEnds) bool {
	if a.chain {
		return reviseChain(domains, a, instances, completedEnds)
	}

	fromDomain := domains[a.from]
	toDomain := domains[a.to]
	if len(fromDomain) == 0 || len(toDomain) == 0 {
		return false
	}

	fromInst := instances[a.from]
	toInst := instances[a.to]

	kept := fromDomain[:0:0]
	for _, v := range fromDomain {
		ok := false
		for _, w := range toDomain {
			if constraint.Satisfies(a.kind, v, fromInst.DurationMinutes, w, toInst.DurationMinutes, a.within) {
				ok = true
				break
			}
		}
		if ok {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(fromDomain) {
		return false
	}
	domains[a.from] = kept
	return true
}

// reviseChain prunes the child's domain (a.from) to the valid window for
// the link. When the parent already has a completion on its date, that
// completion's actual end fixes the window outright (spec.md §4.5); only
// otherwise does the window follow from the union of the parent's (a.to)
// remaining candidate domain values.
func reviseChain(domains Domains, a arc, instances map[model.VarKey]model.Instance, completedEnds chain.CompletedEnds) bool {
	parent := instances[a.to]
	child := instances[a.from]
	if child.ChainDistance == nil || child.EarlyWobble == nil || child.LateWobble == nil {
		return false
	}
	link := model.Link{TargetDistance: *child.ChainDistance, EarlyWobble: *child.EarlyWobble, LateWobble: *child.LateWobble}

	childDomain := domains[a.from]
	if len(childDomain) == 0 {
		return false
	}

	var kept []calendar.LocalDateTime
	if actualEnd := completedEnds.Lookup(a.to); actualEnd != nil {
		_, lo, hi := chain.TargetWindow(link, chain.ParentEnd(actualEnd, calendar.LocalDateTime{}, 0))
		kept = childDomain[:0:0]
		for _, w := range childDomain {
			if !w.Before(lo) && !w.After(hi) {
				kept = append(kept, w)
			}
		}
	} else {
		parentDomain := domains[a.to]
		if len(parentDomain) == 0 {
			return false
		}
		kept = childDomain[:0:0]
		for _, w := range childDomain {
			if inAnyWindow(w, parentDomain, parent.DurationMinutes, link) {
				kept = append(kept, w)
			}
		}
	}
	if len(kept) == len(childDomain) {
		return false
	}
	domains[a.from] = kept
	return true
}

func inAnyWindow(w calendar.LocalDateTime, parentValues []calendar.LocalDateTime, parentDuration int, link model.Link) bool {
	for _, v := range parentValues {
		parentEnd := chain.ParentEnd(nil, v, parentDuration)
		_, lo, hi := chain.TargetWindow(link, parentEnd)
		if !w.Before(lo) && !w.After(hi) {
			return true
		}
	}
	return false
}

func reverseKind(k model.RelationalConstraintKind) model.RelationalConstraintKind {
	switch k {
	case model.ConstraintMustBeBefore:
		return model.ConstraintMustBeAfter
	case model.ConstraintMustBeAfter:
		return model.ConstraintMustBeBefore
	default:
		return k
	}
}
