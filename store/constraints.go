package store

import (
	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

// ListConstraints returns every relational constraint in the store.
func (a *Adapter) ListConstraints() ([]model.RelationalConstraint, error) {
	records, err := a.App.FindAllRecords(CollConstraints)
	if err != nil {
		return nil, err
	}
	out := make([]model.RelationalConstraint, 0, len(records))
	for _, record := range records {
		c, err := constraintFromRecord(record)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// CreateConstraint persists a new relational constraint, returning its
// generated id.
func (a *Adapter) CreateConstraint(c model.RelationalConstraint) (string, error) {
	if err := validateConstraint(c); err != nil {
		return "", err
	}
	id := model.NewSeriesId() // constraintId shares the same uuid scheme as series/link ids
	err := a.App.RunInTransaction(func(txApp core.App) error {
		collection, err := txApp.FindCollectionByNameOrId(CollConstraints)
		if err != nil {
			return err
		}
		record := core.NewRecord(collection)
		applyConstraintRecord(record, string(id), c)
		return txApp.Save(record)
	})
	if err != nil {
		return "", err
	}
	return string(id), nil
}

// DeleteConstraint removes a constraint by id.
func (a *Adapter) DeleteConstraint(id string) error {
	return a.App.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindFirstRecordByFilter(CollConstraints, "constraintId = {:id}", map[string]any{"id": id})
		if err != nil {
			return errs.NotFound("constraint %q not found", id)
		}
		return txApp.Delete(record)
	})
}

func validateConstraint(c model.RelationalConstraint) error {
	if c.Subject.SeriesId == "" && c.Subject.Tag == "" {
		return errs.Validation("constraint: subject target must set seriesId or tag")
	}
	if c.Reference.SeriesId == "" && c.Reference.Tag == "" {
		return errs.Validation("constraint: reference target must set seriesId or tag")
	}
	switch c.Kind {
	case model.ConstraintNoOverlap, model.ConstraintMustBeBefore, model.ConstraintMustBeAfter, model.ConstraintMustBeWithin:
	default:
		return errs.Validation("constraint: unrecognized kind %q", c.Kind)
	}
	if c.Kind == model.ConstraintMustBeWithin && c.WithinMinutes <= 0 {
		return errs.Validation("constraint: withinMinutes must be > 0 for a within constraint")
	}
	return nil
}
