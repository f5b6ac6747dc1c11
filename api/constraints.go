package api

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"
)

func (s *Server) handleCreateConstraint(e *core.RequestEvent) error {
	var req constraintDTO
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	id, err := s.Adapter.CreateConstraint(req.toModel())
	if err != nil {
		return respondErr(e, err)
	}
	req.Id = id
	return e.JSON(http.StatusCreated, req)
}

func (s *Server) handleDeleteConstraint(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if err := s.Adapter.DeleteConstraint(id); err != nil {
		return respondErr(e, err)
	}
	return e.NoContent(http.StatusNoContent)
}
