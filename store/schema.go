// Package store is the PocketBase-backed persistence adapter referenced
// throughout spec.md §5-§7 as "the adapter": the single mutable store
// behind the pure core engine. It owns the collections listed in §6's
// "Persisted state layout", translates PocketBase records into the plain
// structs the core consumes, and wraps every write path in a transaction
// so locked-series rejection and cascade rules happen atomically.
//
// The core packages (calendar, pattern, completion, cycling, chain,
// instance, domain, constraint, propagate, solve, conflict, reflow) never
// import this package or PocketBase; store depends on them, never the
// reverse, preserving the purity boundary spec.md §5 requires.
package store

import (
	"github.com/pocketbase/pocketbase/core"
)

// Collection names, matching spec.md §6's independently addressable
// tables.
const (
	CollSeries             = "series"
	CollCompletions        = "completions"
	CollInstanceExceptions = "instance_exceptions"
	CollLinks              = "links"
	CollConstraints        = "constraints"
	CollCyclingState       = "cycling_state"
	CollReflowRuns         = "reflow_runs"
)

// EnsureCollections idempotently creates every collection the adapter
// needs, with the secondary indexes spec.md §6 calls for: (seriesId) on
// completions/exceptions, (childSeriesId) unique and (parentSeriesId)
// non-unique on links, (tag) on series. Safe to call on every boot, the
// way the teacher's migratecmd auto-applies pending migrations on serve.
func EnsureCollections(app core.App) error {
	builders := []func(core.App) error{
		ensureSeriesCollection,
		ensureCompletionsCollection,
		ensureExceptionsCollection,
		ensureLinksCollection,
		ensureConstraintsCollection,
		ensureCyclingStateCollection,
		ensureReflowRunsCollection,
	}
	for _, build := range builders {
		if err := build(app); err != nil {
			return err
		}
	}
	return nil
}

func ensureIfMissing(app core.App, name string, build func() *core.Collection) error {
	if _, err := app.FindCollectionByNameOrId(name); err == nil {
		return nil
	}
	return app.Save(build())
}

func ensureSeriesCollection(app core.App) error {
	return ensureIfMissing(app, CollSeries, func() *core.Collection {
		c := core.NewBaseCollection(CollSeries)
		c.Fields.Add(
			&core.TextField{Name: "seriesId", Required: true},
			&core.TextField{Name: "title", Required: true},
			&core.JSONField{Name: "tags"},
			&core.JSONField{Name: "pattern", Required: true},
			&core.TextField{Name: "startDate", Required: true},
			&core.TextField{Name: "endDate"},
			&core.NumberField{Name: "count"},
			&core.BoolField{Name: "allDay"},
			&core.TextField{Name: "time"},
			&core.NumberField{Name: "durationMinutes"},
			&core.JSONField{Name: "adaptive"},
			&core.BoolField{Name: "fixed"},
			&core.JSONField{Name: "timeWindow"},
			&core.NumberField{Name: "daysBefore"},
			&core.NumberField{Name: "daysAfter"},
			&core.JSONField{Name: "condition"},
			&core.JSONField{Name: "cycling"},
			&core.BoolField{Name: "locked"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		c.AddIndex("idx_series_seriesId", true, "seriesId", "")
		c.AddIndex("idx_series_tags", false, "tags", "")
		return c
	})
}

func ensureCompletionsCollection(app core.App) error {
	return ensureIfMissing(app, CollCompletions, func() *core.Collection {
		c := core.NewBaseCollection(CollCompletions)
		c.Fields.Add(
			&core.TextField{Name: "completionId", Required: true},
			&core.TextField{Name: "seriesId", Required: true},
			&core.TextField{Name: "instanceDate", Required: true},
			&core.TextField{Name: "startTime", Required: true},
			&core.TextField{Name: "endTime", Required: true},
			&core.NumberField{Name: "durationMinutes", Required: true},
			&core.TextField{Name: "createdAt", Required: true},
		)
		c.AddIndex("idx_completions_completionId", true, "completionId", "")
		c.AddIndex("idx_completions_seriesId", false, "seriesId", "")
		c.AddIndex("idx_completions_series_date", true, "seriesId, instanceDate", "")
		return c
	})
}

func ensureExceptionsCollection(app core.App) error {
	return ensureIfMissing(app, CollInstanceExceptions, func() *core.Collection {
		c := core.NewBaseCollection(CollInstanceExceptions)
		c.Fields.Add(
			&core.TextField{Name: "seriesId", Required: true},
			&core.TextField{Name: "instanceDate", Required: true},
			&core.BoolField{Name: "cancelled"},
			&core.TextField{Name: "rescheduledTo"},
			&core.NumberField{Name: "durationMinutes"},
		)
		c.AddIndex("idx_exceptions_seriesId", false, "seriesId", "")
		c.AddIndex("idx_exceptions_series_date", true, "seriesId, instanceDate", "")
		return c
	})
}

func ensureLinksCollection(app core.App) error {
	return ensureIfMissing(app, CollLinks, func() *core.Collection {
		c := core.NewBaseCollection(CollLinks)
		c.Fields.Add(
			&core.TextField{Name: "linkId", Required: true},
			&core.TextField{Name: "parentSeriesId", Required: true},
			&core.TextField{Name: "childSeriesId", Required: true},
			&core.NumberField{Name: "targetDistance"},
			&core.NumberField{Name: "earlyWobble"},
			&core.NumberField{Name: "lateWobble"},
		)
		c.AddIndex("idx_links_linkId", true, "linkId", "")
		c.AddIndex("idx_links_childSeriesId", true, "childSeriesId", "")
		c.AddIndex("idx_links_parentSeriesId", false, "parentSeriesId", "")
		return c
	})
}

func ensureConstraintsCollection(app core.App) error {
	return ensureIfMissing(app, CollConstraints, func() *core.Collection {
		c := core.NewBaseCollection(CollConstraints)
		c.Fields.Add(
			&core.TextField{Name: "constraintId", Required: true},
			&core.TextField{Name: "kind", Required: true},
			&core.JSONField{Name: "subject", Required: true},
			&core.JSONField{Name: "reference", Required: true},
			&core.NumberField{Name: "withinMinutes"},
		)
		c.AddIndex("idx_constraints_constraintId", true, "constraintId", "")
		return c
	})
}

func ensureCyclingStateCollection(app core.App) error {
	return ensureIfMissing(app, CollCyclingState, func() *core.Collection {
		c := core.NewBaseCollection(CollCyclingState)
		c.Fields.Add(
			&core.TextField{Name: "seriesId", Required: true},
			&core.JSONField{Name: "items", Required: true},
			&core.TextField{Name: "mode", Required: true},
			&core.BoolField{Name: "gapLeap"},
			&core.NumberField{Name: "currentIndex"},
		)
		c.AddIndex("idx_cycling_seriesId", true, "seriesId", "")
		return c
	})
}

// ensureReflowRunsCollection creates the read-model cache the scheduler
// writes to after each periodic reflow call, adapted from the teacher's
// own solver_runs collection (see sync/scheduler.go's pruneOldSolverRuns)
// — same "append a run record, prune by age" shape, now holding reflow
// assignments/conflicts instead of CampMinder sync stats.
func ensureReflowRunsCollection(app core.App) error {
	return ensureIfMissing(app, CollReflowRuns, func() *core.Collection {
		c := core.NewBaseCollection(CollReflowRuns)
		c.Fields.Add(
			&core.TextField{Name: "windowStart", Required: true},
			&core.TextField{Name: "windowEnd", Required: true},
			&core.NumberField{Name: "assignmentCount"},
			&core.NumberField{Name: "conflictCount"},
			&core.JSONField{Name: "assignments"},
			&core.JSONField{Name: "conflicts"},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		return c
	})
}
