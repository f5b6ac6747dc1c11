// Package reflow is the pure top-level orchestrator tying components
// C6-C11 together: generate instances, build domains, propagate, search,
// and fall back to best-effort conflict reporting when no full solution
// exists. Reflow performs no I/O; every input it needs is supplied by the
// caller as an in-memory snapshot (spec.md §5).
package reflow

import (
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/chain"
	"github.com/motioneffector/reflow/completion"
	"github.com/motioneffector/reflow/conflict"
	"github.com/motioneffector/reflow/constraint"
	"github.com/motioneffector/reflow/domain"
	"github.com/motioneffector/reflow/instance"
	"github.com/motioneffector/reflow/model"
	"github.com/motioneffector/reflow/propagate"
	"github.com/motioneffector/reflow/solve"
)

// Input is the full snapshot reflow needs. The external command surface's
// exchange shape (spec.md §6) omits Exceptions and CompletionStore because
// those are adapter-side state the caller prefetches into this snapshot
// before invoking reflow, per §5's "caller-provided snapshot" model.
type Input struct {
	Series          []model.Series
	Exceptions      map[model.SeriesId]instance.Exceptions
	Constraints     []model.RelationalConstraint
	Chains          []model.Link
	CompletionStore completion.Store
	Today           calendar.LocalDate
	WindowStart     calendar.LocalDate
	WindowEnd       calendar.LocalDate
}

// Assignment is one placed instance in the output.
type Assignment struct {
	SeriesId     model.SeriesId
	InstanceDate calendar.LocalDate
	Time         calendar.LocalDateTime
}

// Output is reflow's result: either a full assignment with no conflicts,
// or a best-effort placement accompanied by a non-empty conflict list.
type Output struct {
	Assignments []Assignment
	Conflicts   []conflict.Conflict
}

type seriesTagResolver struct {
	byTag map[string][]model.SeriesId
}

func (r seriesTagResolver) SeriesWithTag(tag string) []model.SeriesId { return r.byTag[tag] }

func buildTagResolver(series []model.Series) seriesTagResolver {
	byTag := make(map[string][]model.SeriesId)
	for _, s := range series {
		for _, tag := range s.Tags {
			byTag[tag] = append(byTag[tag], s.Id)
		}
	}
	return seriesTagResolver{byTag: byTag}
}

// Reflow computes a schedule assignment for input.WindowStart..WindowEnd,
// per spec.md §4 and §6. Deterministic: bitwise-identical inputs produce
// bitwise-identical outputs.
func Reflow(input Input) Output {
	seriesIds := make([]model.SeriesId, 0, len(input.Series))
	for _, s := range input.Series {
		seriesIds = append(seriesIds, s.Id)
	}
	graph := chain.Build(seriesIds, input.Chains)

	var allInstances []model.Instance
	for _, s := range sortedSeries(input.Series) {
		instances, err := instance.Generate(s, input.Exceptions[s.Id], input.CompletionStore, graph, input.WindowStart, input.WindowEnd)
		if err != nil {
			// Construction-time errors are rejected before reflow is ever
			// invoked (spec.md §7). A series whose generation fails here is
			// skipped: it contributes no instances, no assignments and no
			// conflict, and the error is not reported in Output.
			continue
		}
		allInstances = append(allInstances, instances...)
	}

	var allDay []model.Instance
	var scheduled []model.Instance
	for _, inst := range allInstances {
		if inst.AllDay {
			allDay = append(allDay, inst)
		} else {
			scheduled = append(scheduled, inst)
		}
	}

	instancesByKey := make(map[model.VarKey]model.Instance, len(scheduled))
	domains := make(propagate.Domains, len(scheduled))
	for _, inst := range scheduled {
		instancesByKey[inst.Key()] = inst
		domains[inst.Key()] = domain.Build(inst)
	}

	resolver := buildTagResolver(input.Series)
	pairs := constraint.ResolvePairs(input.Constraints, resolver)
	binaries := constraint.BuildBinaries(pairs, scheduled)
	completedEnds := buildCompletedEnds(scheduled, input.CompletionStore)

	var assignments []Assignment
	var conflicts []conflict.Conflict

	if len(scheduled) > 0 {
		if result, solved := solve.Solve(domains, instancesByKey, binaries, graph, completedEnds); solved {
			for key, t := range result {
				assignments = append(assignments, Assignment{SeriesId: key.SeriesId, InstanceDate: key.InstanceDate, Time: t})
			}
		} else {
			placement, reportedConflicts := conflict.Report(instancesByKey, domains, binaries, completedEnds)
			for key, t := range placement {
				assignments = append(assignments, Assignment{SeriesId: key.SeriesId, InstanceDate: key.InstanceDate, Time: t})
			}
			conflicts = reportedConflicts
		}
	}

	for _, inst := range allDay {
		assignments = append(assignments, Assignment{
			SeriesId:     inst.SeriesId,
			InstanceDate: inst.InstanceDate,
			Time:         calendar.LocalDateTime{Date: inst.InstanceDate, Time: calendar.LocalTime{Hour: 0, Minute: 0}},
		})
	}

	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].InstanceDate != assignments[j].InstanceDate {
			return assignments[i].InstanceDate.Before(assignments[j].InstanceDate)
		}
		return assignments[i].SeriesId < assignments[j].SeriesId
	})

	return Output{Assignments: assignments, Conflicts: conflicts}
}

// buildCompletedEnds scans each scheduled instance's series for a
// completion on that instance's own date, so a completed chain parent's
// real end time (not its candidate scheduled slot) can bound its
// child's window (spec.md §4.5).
func buildCompletedEnds(scheduled []model.Instance, store completion.Store) chain.CompletedEnds {
	if store == nil {
		return nil
	}
	ends := make(chain.CompletedEnds)
	cache := make(map[model.SeriesId][]model.Completion)
	for _, inst := range scheduled {
		completions, ok := cache[inst.SeriesId]
		if !ok {
			completions = store.CompletionsFor(inst.SeriesId)
			cache[inst.SeriesId] = completions
		}
		for _, c := range completions {
			if c.InstanceDate == inst.InstanceDate {
				ends[inst.Key()] = c.EndTime
				break
			}
		}
	}
	return ends
}

func sortedSeries(series []model.Series) []model.Series {
	out := append([]model.Series(nil), series...)
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}
