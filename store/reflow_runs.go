package store

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/reflow"
)

// maxReflowRuns bounds the reflow_runs read-model cache, mirroring the
// teacher's own cap on retained solver_runs rows.
const maxReflowRuns = 200

// PersistReflowRun appends a record of a completed reflow so the last N
// runs are inspectable without recomputation, then prunes anything past
// maxReflowRuns. Grounded directly on the teacher's
// pruneOldSolverRuns/recordSolverRun pair in sync/scheduler.go.
func (a *Adapter) PersistReflowRun(windowStart, windowEnd calendar.LocalDate, out reflow.Output) error {
	assignments, err := json.Marshal(out.Assignments)
	if err != nil {
		return err
	}
	conflicts, err := json.Marshal(out.Conflicts)
	if err != nil {
		return err
	}

	err = a.App.RunInTransaction(func(txApp core.App) error {
		collection, err := txApp.FindCollectionByNameOrId(CollReflowRuns)
		if err != nil {
			return err
		}
		record := core.NewRecord(collection)
		record.Set("windowStart", windowStart.String())
		record.Set("windowEnd", windowEnd.String())
		record.Set("assignmentCount", len(out.Assignments))
		record.Set("conflictCount", len(out.Conflicts))
		setJSONRaw(record, "assignments", assignments)
		setJSONRaw(record, "conflicts", conflicts)
		return txApp.Save(record)
	})
	if err != nil {
		return err
	}
	return a.pruneOldReflowRuns()
}

func (a *Adapter) pruneOldReflowRuns() error {
	records, err := a.App.FindRecordsByFilter(CollReflowRuns, "", "-created", 0, 0, nil)
	if err != nil {
		return err
	}
	if len(records) <= maxReflowRuns {
		return nil
	}
	stale := records[maxReflowRuns:]
	return a.App.RunInTransaction(func(txApp core.App) error {
		for _, record := range stale {
			if err := txApp.Delete(record); err != nil {
				return err
			}
		}
		return nil
	})
}
