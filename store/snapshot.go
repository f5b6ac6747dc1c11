package store

import (
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/instance"
	"github.com/motioneffector/reflow/model"
	"github.com/motioneffector/reflow/reflow"
)

// BuildReflowInput assembles the in-memory snapshot reflow.Reflow needs,
// per spec.md §5's "caller-provided snapshot" model: the adapter reads
// every series, exception, constraint, and link once up front, then hands
// the pure core a plain struct it can run against with no further I/O.
func (a *Adapter) BuildReflowInput(today, windowStart, windowEnd calendar.LocalDate) (reflow.Input, error) {
	series, err := a.ListSeries()
	if err != nil {
		return reflow.Input{}, err
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Id < series[j].Id })

	exceptions := make(map[model.SeriesId]instance.Exceptions, len(series))
	for _, s := range series {
		exc, err := a.ExceptionsFor(s.Id)
		if err != nil {
			return reflow.Input{}, err
		}
		exceptions[s.Id] = instance.Exceptions(exc)
	}

	constraints, err := a.ListConstraints()
	if err != nil {
		return reflow.Input{}, err
	}
	links, err := a.ListLinks()
	if err != nil {
		return reflow.Input{}, err
	}

	store, err := a.buildCompletionStore(series)
	if err != nil {
		return reflow.Input{}, err
	}

	return reflow.Input{
		Series:          series,
		Exceptions:      exceptions,
		Constraints:     constraints,
		Chains:          links,
		CompletionStore: store,
		Today:           today,
		WindowStart:     windowStart,
		WindowEnd:       windowEnd,
	}, nil
}

// prefetchedCompletionStore implements completion.Store over data read
// once by BuildReflowInput, so the solver's repeated condition/adaptive-
// duration lookups during a single reflow run never touch the database.
type prefetchedCompletionStore struct {
	completions map[model.SeriesId][]model.Completion
	byTag       map[string][]model.SeriesId
}

func (s prefetchedCompletionStore) CompletionsFor(seriesId model.SeriesId) []model.Completion {
	return s.completions[seriesId]
}

func (s prefetchedCompletionStore) SeriesWithTag(tag string) []model.SeriesId {
	return s.byTag[tag]
}

func (a *Adapter) buildCompletionStore(series []model.Series) (prefetchedCompletionStore, error) {
	completions := make(map[model.SeriesId][]model.Completion, len(series))
	byTag := make(map[string][]model.SeriesId)
	for _, s := range series {
		c, err := a.fetchCompletionsFor(s.Id)
		if err != nil {
			return prefetchedCompletionStore{}, err
		}
		completions[s.Id] = c
		for _, tag := range s.Tags {
			byTag[tag] = append(byTag[tag], s.Id)
		}
	}
	return prefetchedCompletionStore{completions: completions, byTag: byTag}, nil
}
