package store

import (
	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/cycling"
	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

func (a *Adapter) findCyclingRecord(txApp core.App, seriesId model.SeriesId) (*core.Record, error) {
	return txApp.FindFirstRecordByFilter(CollCyclingState, "seriesId = {:sid}", map[string]any{"sid": string(seriesId)})
}

// GetCyclingState returns the persisted cycling state for a series, if
// any has been written (a series can also carry its initial state
// inline via model.Series.Cycling; this is the adapter's own mutable
// copy, advanced by AdvanceCycling).
func (a *Adapter) GetCyclingState(seriesId model.SeriesId) (*model.CyclingState, error) {
	record, err := a.findCyclingRecord(a.App, seriesId)
	if err != nil {
		return nil, nil
	}
	state, err := cyclingFromRecord(record)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (a *Adapter) putCyclingState(seriesId model.SeriesId, state model.CyclingState) error {
	return a.App.RunInTransaction(func(txApp core.App) error {
		record, err := a.findCyclingRecord(txApp, seriesId)
		if err != nil {
			collection, cerr := txApp.FindCollectionByNameOrId(CollCyclingState)
			if cerr != nil {
				return cerr
			}
			record = core.NewRecord(collection)
		}
		applyCyclingRecord(record, seriesId, state)
		return txApp.Save(record)
	})
}

// AdvanceCycling moves a series' cycling pointer forward one step
// (component C4's Advance), persisting the result.
func (a *Adapter) AdvanceCycling(seriesId model.SeriesId) (model.CyclingState, error) {
	s, err := a.GetSeries(seriesId)
	if err != nil {
		return model.CyclingState{}, err
	}
	if s.Cycling == nil {
		return model.CyclingState{}, errs.Validation("series %q has no cycling configuration", seriesId)
	}
	current := s.Cycling
	if stored, err := a.GetCyclingState(seriesId); err != nil {
		return model.CyclingState{}, err
	} else if stored != nil {
		current = stored
	}
	next, err := cycling.Advance(*current)
	if err != nil {
		return model.CyclingState{}, err
	}
	if err := a.putCyclingState(seriesId, next); err != nil {
		return model.CyclingState{}, err
	}
	return next, nil
}

// ResetCycling rewinds a series' cycling pointer to its start (component
// C4's Reset), persisting the result.
func (a *Adapter) ResetCycling(seriesId model.SeriesId) (model.CyclingState, error) {
	s, err := a.GetSeries(seriesId)
	if err != nil {
		return model.CyclingState{}, err
	}
	if s.Cycling == nil {
		return model.CyclingState{}, errs.Validation("series %q has no cycling configuration", seriesId)
	}
	next := cycling.Reset(*s.Cycling)
	if err := a.putCyclingState(seriesId, next); err != nil {
		return model.CyclingState{}, err
	}
	return next, nil
}
