package api

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

func (s *Server) handleCreateSeries(e *core.RequestEvent) error {
	var req seriesDTO
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	series, err := req.toModel()
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	created, err := s.Adapter.CreateSeries(series)
	if err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusCreated, seriesFromModel(created))
}

func (s *Server) handleGetSeries(e *core.RequestEvent) error {
	id := model.SeriesId(e.Request.PathValue("id"))
	series, err := s.Adapter.GetSeries(id)
	if err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, seriesFromModel(series))
}

func (s *Server) handleUpdateSeries(e *core.RequestEvent) error {
	id := model.SeriesId(e.Request.PathValue("id"))
	var req seriesDTO
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	series, err := req.toModel()
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	series.Id = id
	updated, err := s.Adapter.UpdateSeries(series)
	if err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, seriesFromModel(updated))
}

func (s *Server) handleDeleteSeries(e *core.RequestEvent) error {
	id := model.SeriesId(e.Request.PathValue("id"))
	if err := s.Adapter.DeleteSeries(id); err != nil {
		return respondErr(e, err)
	}
	return e.NoContent(http.StatusNoContent)
}

func (s *Server) handleLockSeries(e *core.RequestEvent) error {
	id := model.SeriesId(e.Request.PathValue("id"))
	if err := s.Adapter.LockSeries(id); err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"seriesId": id, "locked": true})
}

func (s *Server) handleUnlockSeries(e *core.RequestEvent) error {
	id := model.SeriesId(e.Request.PathValue("id"))
	if err := s.Adapter.UnlockSeries(id); err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"seriesId": id, "locked": false})
}

func (s *Server) handleAdvanceCycling(e *core.RequestEvent) error {
	id := model.SeriesId(e.Request.PathValue("id"))
	state, err := s.Adapter.AdvanceCycling(id)
	if err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, newCyclingStateDTO(state))
}

func (s *Server) handleResetCycling(e *core.RequestEvent) error {
	id := model.SeriesId(e.Request.PathValue("id"))
	state, err := s.Adapter.ResetCycling(id)
	if err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, newCyclingStateDTO(state))
}

// respondErr maps the engine's typed error taxonomy onto HTTP status
// codes, matching spec.md §7's per-kind error semantics.
func respondErr(e *core.RequestEvent, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errs.Is(err, errs.KindValidation),
		errs.Is(err, errs.KindInvalidTimeRange),
		errs.Is(err, errs.KindInvalidPattern),
		errs.Is(err, errs.KindInvalidRange):
		status = http.StatusBadRequest
	case errs.Is(err, errs.KindNotFound):
		status = http.StatusNotFound
	case errs.Is(err, errs.KindDuplicateCompletion),
		errs.Is(err, errs.KindAlreadyLinked),
		errs.Is(err, errs.KindLinkedChildrenExist),
		errs.Is(err, errs.KindLocked),
		errs.Is(err, errs.KindRestoreNotCancelled),
		errs.Is(err, errs.KindRescheduleCancelled):
		status = http.StatusConflict
	case errs.Is(err, errs.KindSelfLink),
		errs.Is(err, errs.KindCycleDetected),
		errs.Is(err, errs.KindChainDepthExceeded),
		errs.Is(err, errs.KindNoLink):
		status = http.StatusUnprocessableEntity
	}
	return jsonError(e, status, err)
}
