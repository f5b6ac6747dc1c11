package store

import (
	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

// Adapter is the PocketBase-backed implementation of spec.md §5's "the
// adapter": the sole mutable store the command surface writes through.
// Every write method below wraps its record mutation in app.RunInTransaction
// so a partial failure rolls back atomically, matching the teacher's own
// BaseSyncService convention of grouping related record.Save calls behind
// one error return.
type Adapter struct {
	App core.App
}

// New wraps app as an Adapter.
func New(app core.App) *Adapter {
	return &Adapter{App: app}
}

func (a *Adapter) findSeriesRecord(id model.SeriesId) (*core.Record, error) {
	record, err := a.App.FindFirstRecordByFilter(CollSeries, "seriesId = {:id}", map[string]any{"id": string(id)})
	if err != nil {
		return nil, errs.NotFound("series %q not found", id)
	}
	return record, nil
}

// GetSeries returns the decoded series for id.
func (a *Adapter) GetSeries(id model.SeriesId) (model.Series, error) {
	record, err := a.findSeriesRecord(id)
	if err != nil {
		return model.Series{}, err
	}
	sr, err := seriesRecordFromRecord(record)
	if err != nil {
		return model.Series{}, err
	}
	return sr.toModel()
}

// ListSeries returns every series in the store, in no particular order;
// callers that need determinism (reflow's snapshot) sort it themselves.
func (a *Adapter) ListSeries() ([]model.Series, error) {
	records, err := a.App.FindAllRecords(CollSeries)
	if err != nil {
		return nil, err
	}
	out := make([]model.Series, 0, len(records))
	for _, record := range records {
		sr, err := seriesRecordFromRecord(record)
		if err != nil {
			return nil, err
		}
		s, err := sr.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CreateSeries validates and persists a new series, assigning it a fresh
// SeriesId.
func (a *Adapter) CreateSeries(s model.Series) (model.Series, error) {
	if err := validateSeries(s); err != nil {
		return model.Series{}, err
	}
	s.Id = model.NewSeriesId()

	var saved model.Series
	err := a.App.RunInTransaction(func(txApp core.App) error {
		collection, err := txApp.FindCollectionByNameOrId(CollSeries)
		if err != nil {
			return err
		}
		record := core.NewRecord(collection)
		sr, err := seriesToRecord(s)
		if err != nil {
			return err
		}
		applySeriesRecord(record, sr)
		if err := txApp.Save(record); err != nil {
			return err
		}
		saved = s
		return nil
	})
	if err != nil {
		return model.Series{}, err
	}
	return saved, nil
}

// UpdateSeries replaces every mutable field of an existing, unlocked
// series. Locked series reject the write before any record is touched,
// per spec.md §5's "Locked series reject any write... before touching
// the adapter."
func (a *Adapter) UpdateSeries(s model.Series) (model.Series, error) {
	if err := validateSeries(s); err != nil {
		return model.Series{}, err
	}
	existing, err := a.GetSeries(s.Id)
	if err != nil {
		return model.Series{}, err
	}
	if existing.Locked {
		return model.Series{}, errs.Locked("series %q is locked", s.Id)
	}

	err = a.App.RunInTransaction(func(txApp core.App) error {
		record, err := a.findSeriesRecordTx(txApp, s.Id)
		if err != nil {
			return err
		}
		sr, err := seriesToRecord(s)
		if err != nil {
			return err
		}
		applySeriesRecord(record, sr)
		return txApp.Save(record)
	})
	if err != nil {
		return model.Series{}, err
	}
	return s, nil
}

func (a *Adapter) findSeriesRecordTx(txApp core.App, id model.SeriesId) (*core.Record, error) {
	record, err := txApp.FindFirstRecordByFilter(CollSeries, "seriesId = {:id}", map[string]any{"id": string(id)})
	if err != nil {
		return nil, errs.NotFound("series %q not found", id)
	}
	return record, nil
}

// DeleteSeries removes a series and cascades its owned completions,
// exceptions, and cycling state (spec.md §3 ownership). Refuses while any
// link still targets this series as a parent (LinkedChildrenExistError);
// an inbound link on this series as a child is removed silently, matching
// "deleting a child removes the inbound link."
func (a *Adapter) DeleteSeries(id model.SeriesId) error {
	children, err := a.App.FindRecordsByFilter(CollLinks, "parentSeriesId = {:id}", "", 1, 0, map[string]any{"id": string(id)})
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return errs.LinkedChildrenExist("series %q still has linked children", id)
	}

	return a.App.RunInTransaction(func(txApp core.App) error {
		record, err := a.findSeriesRecordTx(txApp, id)
		if err != nil {
			return err
		}
		if err := txApp.Delete(record); err != nil {
			return err
		}
		if err := deleteAllMatching(txApp, CollCompletions, "seriesId = {:id}", id); err != nil {
			return err
		}
		if err := deleteAllMatching(txApp, CollInstanceExceptions, "seriesId = {:id}", id); err != nil {
			return err
		}
		if err := deleteAllMatching(txApp, CollCyclingState, "seriesId = {:id}", id); err != nil {
			return err
		}
		return deleteAllMatching(txApp, CollLinks, "childSeriesId = {:id}", id)
	})
}

func deleteAllMatching(app core.App, collection, filter string, id model.SeriesId) error {
	records, err := app.FindRecordsByFilter(collection, filter, "", 0, 0, map[string]any{"id": string(id)})
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := app.Delete(record); err != nil {
			return err
		}
	}
	return nil
}

// LockSeries sets the locked flag, refusing further mutation until
// unlocked.
func (a *Adapter) LockSeries(id model.SeriesId) error {
	return a.setLocked(id, true)
}

// UnlockSeries clears the locked flag.
func (a *Adapter) UnlockSeries(id model.SeriesId) error {
	return a.setLocked(id, false)
}

func (a *Adapter) setLocked(id model.SeriesId, locked bool) error {
	return a.App.RunInTransaction(func(txApp core.App) error {
		record, err := a.findSeriesRecordTx(txApp, id)
		if err != nil {
			return err
		}
		record.Set("locked", locked)
		return txApp.Save(record)
	})
}

func validateSeries(s model.Series) error {
	if s.Title == "" {
		return errs.Validation("series: title is required")
	}
	if s.EndDate != nil && s.StartDate.After(*s.EndDate) {
		return errs.Validation("series: startDate %v is after endDate %v", s.StartDate, *s.EndDate)
	}
	if !s.AllDay && s.Adaptive == nil && s.DurationMinutes < 1 {
		return errs.Validation("series: durationMinutes must be >= 1")
	}
	if s.DaysBefore < 0 || s.DaysAfter < 0 {
		return errs.Validation("series: daysBefore/daysAfter must be >= 0")
	}
	if s.Cycling != nil && len(s.Cycling.Items) == 0 {
		return errs.Validation("series: cycling.items must not be empty")
	}
	if s.Count != nil && *s.Count < 1 {
		return errs.Validation("series: count must be >= 1 when set")
	}
	return nil
}
