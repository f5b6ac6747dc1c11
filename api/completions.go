package api

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/model"
)

func (s *Server) handleLogCompletion(e *core.RequestEvent) error {
	var req completionDTO
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	c, err := req.toModel()
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	logged, err := s.Adapter.LogCompletion(c)
	if err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusCreated, completionFromModel(logged))
}

func (s *Server) handleDeleteCompletion(e *core.RequestEvent) error {
	id := model.CompletionId(e.Request.PathValue("id"))
	if err := s.Adapter.DeleteCompletion(id); err != nil {
		return respondErr(e, err)
	}
	return e.NoContent(http.StatusNoContent)
}
