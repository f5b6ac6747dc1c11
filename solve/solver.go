// Package solve implements the backtracking search of component C10:
// MRV variable ordering with a chain-aware tiebreak, LCV value ordering,
// and propagation-on-assign to prune the remaining search tree.
package solve

import (
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/chain"
	"github.com/motioneffector/reflow/constraint"
	"github.com/motioneffector/reflow/model"
	"github.com/motioneffector/reflow/propagate"
)

// Assignment maps each variable to its placed datetime.
type Assignment map[model.VarKey]calendar.LocalDateTime

// Solve searches for a placement satisfying every constraint, per
// spec.md §4.10. completedEnds supplies each chain parent's actual
// completion end, when it has one, so propagation sees the real end time
// rather than a scheduled-only one. Returns
// (assignment, true) on success, or (nil, false) if the root call
// exhausts its search tree.
func Solve(domains propagate.Domains, instances map[model.VarKey]model.Instance, binaries []constraint.Binary, graph *chain.Graph, completedEnds chain.CompletedEnds) (Assignment, bool) {
	seriesOrder := make(map[model.SeriesId]int)
	if graph != nil {
		for i, id := range graph.TopologicalOrder() {
			seriesOrder[id] = i
		}
	}

	assignment := make(Assignment)
	var flexible []model.VarKey
	for key, inst := range instances {
		if inst.Fixed {
			assignment[key] = inst.IdealTime
			continue
		}
		flexible = append(flexible, key)
	}

	pruned, ok := propagate.Propagate(domains, binaries, instances, completedEnds)
	if !ok {
		return nil, false
	}

	result, solved := backtrack(assignment, flexible, pruned, instances, binaries, seriesOrder, completedEnds)
	if !solved {
		return nil, false
	}
	return result, true
}

func backtrack(
	assignment Assignment,
	remaining []model.VarKey,
	domains propagate.Domains,
	instances map[model.VarKey]model.Instance,
	binaries []constraint.Binary,
	seriesOrder map[model.SeriesId]int,
	completedEnds chain.CompletedEnds,
) (Assignment, bool) {
	if len(remaining) == 0 {
		final := make(Assignment, len(assignment))
		for k, v := range assignment {
			final[k] = v
		}
		return final, true
	}

	idx, key := selectVariable(remaining, domains, seriesOrder)
	rest := make([]model.VarKey, 0, len(remaining)-1)
	rest = append(rest, remaining[:idx]...)
	rest = append(rest, remaining[idx+1:]...)

	inst := instances[key]
	values := append([]calendar.LocalDateTime(nil), domains[key]...)
	sort.Slice(values, func(i, j int) bool {
		return lessByValueOrder(values[i], values[j], inst, assignment, instances)
	})

	for _, v := range values {
		assignment[key] = v
		trial := domains.Clone()
		trial[key] = []calendar.LocalDateTime{v}

		prunedTrial, ok := propagate.Propagate(trial, binaries, instances, completedEnds)
		if ok {
			if result, solved := backtrack(assignment, rest, prunedTrial, instances, binaries, seriesOrder, completedEnds); solved {
				return result, true
			}
		}
		delete(assignment, key)
	}
	return nil, false
}

// selectVariable applies MRV with the spec's chain-aware tiebreak: among
// the smallest-domain candidates, chain roots precede descendants
// (topological order), then lexicographic seriesId, then instanceDate.
func selectVariable(remaining []model.VarKey, domains propagate.Domains, seriesOrder map[model.SeriesId]int) (int, model.VarKey) {
	best := 0
	for i := 1; i < len(remaining); i++ {
		if lessByVariableOrder(remaining[i], remaining[best], domains, seriesOrder) {
			best = i
		}
	}
	return best, remaining[best]
}

func lessByVariableOrder(a, b model.VarKey, domains propagate.Domains, seriesOrder map[model.SeriesId]int) bool {
	la, lb := len(domains[a]), len(domains[b])
	if la != lb {
		return la < lb
	}
	oa, okA := seriesOrder[a.SeriesId]
	ob, okB := seriesOrder[b.SeriesId]
	if okA && okB && oa != ob {
		return oa < ob
	}
	if a.SeriesId != b.SeriesId {
		return a.SeriesId < b.SeriesId
	}
	return a.InstanceDate.Before(b.InstanceDate)
}

func lessByValueOrder(a, b calendar.LocalDateTime, inst model.Instance, assignment Assignment, instances map[model.VarKey]model.Instance) bool {
	da := absMinutes(calendar.MinutesBetween(inst.IdealTime, a))
	db := absMinutes(calendar.MinutesBetween(inst.IdealTime, b))
	if da != db {
		return da < db
	}
	wa := workloadScore(a.Date, assignment, instances)
	wb := workloadScore(b.Date, assignment, instances)
	if wa != wb {
		return wa < wb
	}
	return a.String() < b.String()
}

func absMinutes(m int) int {
	if m < 0 {
		return -m
	}
	return m
}

// workloadScore sums the durations of already-assigned non-all-day
// instances scheduled on date, used as the secondary value-ordering key.
func workloadScore(date calendar.LocalDate, assignment Assignment, instances map[model.VarKey]model.Instance) int {
	total := 0
	for key, slot := range assignment {
		if slot.Date != date {
			continue
		}
		if inst, ok := instances[key]; ok && !inst.AllDay {
			total += inst.DurationMinutes
		}
	}
	return total
}
