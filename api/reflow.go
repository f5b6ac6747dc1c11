package api

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/reflow"
)

type runReflowRequest struct {
	Today       string `json:"today"`
	WindowStart string `json:"windowStart"`
	WindowEnd   string `json:"windowEnd"`
	Persist     bool   `json:"persist,omitempty"`
}

// handleRunReflow triggers an on-demand reflow over the requested window,
// throttled by the server's rate limiter since a full backtracking search
// over a wide window is the single most expensive operation this API
// exposes.
func (s *Server) handleRunReflow(e *core.RequestEvent) error {
	if err := s.rateLimitWait(e); err != nil {
		return err
	}

	var req runReflowRequest
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	today, err := calendar.ParseDate(req.Today)
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	windowStart, err := calendar.ParseDate(req.WindowStart)
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	windowEnd, err := calendar.ParseDate(req.WindowEnd)
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}

	input, err := s.Adapter.BuildReflowInput(today, windowStart, windowEnd)
	if err != nil {
		return respondErr(e, err)
	}
	out := reflow.Reflow(input)

	if req.Persist {
		if err := s.Adapter.PersistReflowRun(windowStart, windowEnd, out); err != nil {
			return respondErr(e, err)
		}
	}

	return e.JSON(http.StatusOK, reflowOutputFromModel(out))
}
