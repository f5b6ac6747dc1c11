package store

import (
	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

// LogCompletion records a completed instance, rejecting a duplicate for
// the same series/date (spec.md §7 DuplicateCompletionError).
func (a *Adapter) LogCompletion(c model.Completion) (model.Completion, error) {
	existing, err := a.App.FindRecordsByFilter(
		CollCompletions, "seriesId = {:sid} && instanceDate = {:date}", "", 1, 0,
		map[string]any{"sid": string(c.SeriesId), "date": c.InstanceDate.String()},
	)
	if err != nil {
		return model.Completion{}, err
	}
	if len(existing) > 0 {
		return model.Completion{}, errs.DuplicateCompletion("series %q already has a completion on %v", c.SeriesId, c.InstanceDate)
	}
	if c.EndTime.Before(c.StartTime) && c.EndTime != c.StartTime {
		return model.Completion{}, errs.InvalidTimeRange("completion endTime precedes startTime")
	}

	c.Id = model.NewCompletionId()
	err = a.App.RunInTransaction(func(txApp core.App) error {
		collection, err := txApp.FindCollectionByNameOrId(CollCompletions)
		if err != nil {
			return err
		}
		record := core.NewRecord(collection)
		applyCompletionRecord(record, c)
		return txApp.Save(record)
	})
	if err != nil {
		return model.Completion{}, err
	}
	return c, nil
}

// DeleteCompletion removes a logged completion by id.
func (a *Adapter) DeleteCompletion(id model.CompletionId) error {
	return a.App.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindFirstRecordByFilter(CollCompletions, "completionId = {:id}", map[string]any{"id": string(id)})
		if err != nil {
			return errs.NotFound("completion %q not found", id)
		}
		return txApp.Delete(record)
	})
}

// fetchCompletionsFor returns every completion logged for seriesId. Used by
// the snapshot builder to prefetch completion.Store's data once per reflow
// run rather than querying per lookup.
func (a *Adapter) fetchCompletionsFor(seriesId model.SeriesId) ([]model.Completion, error) {
	records, err := a.App.FindRecordsByFilter(
		CollCompletions, "seriesId = {:sid}", "-instanceDate", 0, 0,
		map[string]any{"sid": string(seriesId)},
	)
	if err != nil {
		return nil, err
	}
	out := make([]model.Completion, 0, len(records))
	for _, record := range records {
		out = append(out, completionFromRecord(record))
	}
	return out, nil
}

// fetchSeriesWithTag returns the ids of every series carrying tag, scanning
// the whole series collection. The snapshot builder does not call it; it
// derives its tag index from the series it has already loaded.
func (a *Adapter) fetchSeriesWithTag(tag string) ([]model.SeriesId, error) {
	records, err := a.App.FindAllRecords(CollSeries)
	if err != nil {
		return nil, err
	}
	var out []model.SeriesId
	for _, record := range records {
		tags, err := getJSON[[]string](record, "tags")
		if err != nil {
			continue
		}
		for _, t := range tags {
			if t == tag {
				out = append(out, model.SeriesId(record.GetString("seriesId")))
				break
			}
		}
	}
	return out, nil
}

func (a *Adapter) findExceptionRecord(txApp core.App, seriesId model.SeriesId, date calendar.LocalDate) (*core.Record, error) {
	return txApp.FindFirstRecordByFilter(
		CollInstanceExceptions, "seriesId = {:sid} && instanceDate = {:date}",
		map[string]any{"sid": string(seriesId), "date": date.String()},
	)
}

func (a *Adapter) upsertException(seriesId model.SeriesId, date calendar.LocalDate, mutate func(*model.InstanceException)) error {
	return a.App.RunInTransaction(func(txApp core.App) error {
		record, err := a.findExceptionRecord(txApp, seriesId, date)
		var exc model.InstanceException
		if err != nil {
			collection, cerr := txApp.FindCollectionByNameOrId(CollInstanceExceptions)
			if cerr != nil {
				return cerr
			}
			record = core.NewRecord(collection)
			exc = model.InstanceException{SeriesId: seriesId, InstanceDate: date}
		} else {
			exc = exceptionFromRecord(record)
		}
		mutate(&exc)
		applyExceptionRecord(record, exc)
		return txApp.Save(record)
	})
}

// CancelInstance marks the occurrence on date as cancelled, overriding any
// prior reschedule (spec.md §3's InstanceException is a single slot per
// series/date — the last write wins).
func (a *Adapter) CancelInstance(seriesId model.SeriesId, date calendar.LocalDate) error {
	if err := a.requireUnlocked(seriesId); err != nil {
		return err
	}
	return a.upsertException(seriesId, date, func(exc *model.InstanceException) {
		exc.Cancelled = true
		exc.RescheduledTo = nil
	})
}

// RestoreInstance clears a cancellation, rejecting a non-cancelled
// instance (spec.md §7 RestoreNotCancelledError).
func (a *Adapter) RestoreInstance(seriesId model.SeriesId, date calendar.LocalDate) error {
	if err := a.requireUnlocked(seriesId); err != nil {
		return err
	}
	var notCancelled bool
	err := a.App.RunInTransaction(func(txApp core.App) error {
		record, err := a.findExceptionRecord(txApp, seriesId, date)
		if err != nil {
			notCancelled = true
			return nil
		}
		exc := exceptionFromRecord(record)
		if !exc.Cancelled {
			notCancelled = true
			return nil
		}
		exc.Cancelled = false
		applyExceptionRecord(record, exc)
		return txApp.Save(record)
	})
	if err != nil {
		return err
	}
	if notCancelled {
		return errs.RestoreNotCancelled("instance on %v is not cancelled", date)
	}
	return nil
}

// RescheduleInstance moves a single occurrence to a new datetime, with an
// optional duration override. Rejects a cancelled instance (spec.md §7
// RescheduleCancelledError): cancel and reschedule are mutually exclusive
// states for one occurrence.
func (a *Adapter) RescheduleInstance(seriesId model.SeriesId, date calendar.LocalDate, to calendar.LocalDateTime, durationMinutes *int) error {
	if err := a.requireUnlocked(seriesId); err != nil {
		return err
	}
	var cancelled bool
	err := a.upsertExceptionChecked(seriesId, date, func(exc *model.InstanceException) bool {
		if exc.Cancelled {
			cancelled = true
			return false
		}
		exc.RescheduledTo = &to
		exc.DurationMinutes = durationMinutes
		return true
	})
	if err != nil {
		return err
	}
	if cancelled {
		return errs.RescheduleCancelled("instance on %v is cancelled", date)
	}
	return nil
}

func (a *Adapter) upsertExceptionChecked(seriesId model.SeriesId, date calendar.LocalDate, mutate func(*model.InstanceException) bool) error {
	return a.App.RunInTransaction(func(txApp core.App) error {
		record, err := a.findExceptionRecord(txApp, seriesId, date)
		var exc model.InstanceException
		if err != nil {
			collection, cerr := txApp.FindCollectionByNameOrId(CollInstanceExceptions)
			if cerr != nil {
				return cerr
			}
			record = core.NewRecord(collection)
			exc = model.InstanceException{SeriesId: seriesId, InstanceDate: date}
		} else {
			exc = exceptionFromRecord(record)
		}
		if !mutate(&exc) {
			return nil
		}
		applyExceptionRecord(record, exc)
		return txApp.Save(record)
	})
}

func (a *Adapter) requireUnlocked(seriesId model.SeriesId) error {
	s, err := a.GetSeries(seriesId)
	if err != nil {
		return err
	}
	if s.Locked {
		return errs.Locked("series %q is locked", seriesId)
	}
	return nil
}

// ExceptionsFor returns every exception recorded against seriesId, keyed
// by instance date, for the snapshot builder.
func (a *Adapter) ExceptionsFor(seriesId model.SeriesId) (map[calendar.LocalDate]model.InstanceException, error) {
	records, err := a.App.FindRecordsByFilter(
		CollInstanceExceptions, "seriesId = {:sid}", "", 0, 0,
		map[string]any{"sid": string(seriesId)},
	)
	if err != nil {
		return nil, err
	}
	out := make(map[calendar.LocalDate]model.InstanceException, len(records))
	for _, record := range records {
		exc := exceptionFromRecord(record)
		out[exc.InstanceDate] = exc
	}
	return out, nil
}
