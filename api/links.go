package api

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/model"
)

func (s *Server) handleLinkSeries(e *core.RequestEvent) error {
	var req linkDTO
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	link, err := s.Adapter.LinkSeries(req.toModel())
	if err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusCreated, linkFromModel(link))
}

func (s *Server) handleUnlinkSeries(e *core.RequestEvent) error {
	id := model.LinkId(e.Request.PathValue("id"))
	if err := s.Adapter.UnlinkSeries(id); err != nil {
		return respondErr(e, err)
	}
	return e.NoContent(http.StatusNoContent)
}

func (s *Server) handleUpdateLink(e *core.RequestEvent) error {
	id := model.LinkId(e.Request.PathValue("id"))
	var req linkDTO
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	link := req.toModel()
	link.Id = id
	updated, err := s.Adapter.UpdateLink(link)
	if err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, linkFromModel(updated))
}
