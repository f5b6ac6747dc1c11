package store

import (
	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/chain"
	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

// ListLinks returns every link in the store, for building chain.Graph.
func (a *Adapter) ListLinks() ([]model.Link, error) {
	records, err := a.App.FindAllRecords(CollLinks)
	if err != nil {
		return nil, err
	}
	out := make([]model.Link, 0, len(records))
	for _, record := range records {
		out = append(out, linkFromRecord(record))
	}
	return out, nil
}

// LinkSeries creates a new parent/child link after validating it against
// the existing graph (self-link, duplicate child, cycle, depth), matching
// chain.Graph.ValidateNewLink's contract in spec.md §4.5.
func (a *Adapter) LinkSeries(l model.Link) (model.Link, error) {
	existing, err := a.ListLinks()
	if err != nil {
		return model.Link{}, err
	}
	seriesIds, err := a.seriesIdList()
	if err != nil {
		return model.Link{}, err
	}
	graph := chain.Build(seriesIds, existing)
	if err := graph.ValidateNewLink(l.ParentSeriesId, l.ChildSeriesId); err != nil {
		return model.Link{}, err
	}

	l.Id = model.NewLinkId()
	err = a.App.RunInTransaction(func(txApp core.App) error {
		collection, err := txApp.FindCollectionByNameOrId(CollLinks)
		if err != nil {
			return err
		}
		record := core.NewRecord(collection)
		applyLinkRecord(record, l)
		return txApp.Save(record)
	})
	if err != nil {
		return model.Link{}, err
	}
	return l, nil
}

// UnlinkSeries removes the link with id, if any. Returns errs.NoLink when
// absent, per spec.md §7.
func (a *Adapter) UnlinkSeries(id model.LinkId) error {
	return a.App.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindFirstRecordByFilter(CollLinks, "linkId = {:id}", map[string]any{"id": string(id)})
		if err != nil {
			return errs.NoLink("link %q not found", id)
		}
		return txApp.Delete(record)
	})
}

// UpdateLink rewrites the wobble/distance parameters of an existing link
// without touching the parent/child pair (changing those is a new link).
func (a *Adapter) UpdateLink(l model.Link) (model.Link, error) {
	err := a.App.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindFirstRecordByFilter(CollLinks, "linkId = {:id}", map[string]any{"id": string(l.Id)})
		if err != nil {
			return errs.NoLink("link %q not found", l.Id)
		}
		existing := linkFromRecord(record)
		l.ParentSeriesId = existing.ParentSeriesId
		l.ChildSeriesId = existing.ChildSeriesId
		applyLinkRecord(record, l)
		return txApp.Save(record)
	})
	if err != nil {
		return model.Link{}, err
	}
	return l, nil
}

func (a *Adapter) seriesIdList() ([]model.SeriesId, error) {
	records, err := a.App.FindAllRecords(CollSeries)
	if err != nil {
		return nil, err
	}
	out := make([]model.SeriesId, 0, len(records))
	for _, record := range records {
		out = append(out, model.SeriesId(record.GetString("seriesId")))
	}
	return out, nil
}

// BuildChainGraph assembles the current link graph over every known
// series, for use as reflow.Input.Chains.
func (a *Adapter) BuildChainGraph() (*chain.Graph, error) {
	links, err := a.ListLinks()
	if err != nil {
		return nil, err
	}
	seriesIds, err := a.seriesIdList()
	if err != nil {
		return nil, err
	}
	return chain.Build(seriesIds, links), nil
}
