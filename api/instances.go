package api

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/model"
)

type instanceRefDTO struct {
	SeriesId     string `json:"seriesId"`
	InstanceDate string `json:"instanceDate"`
}

func (d instanceRefDTO) parse() (model.SeriesId, calendar.LocalDate, error) {
	date, err := calendar.ParseDate(d.InstanceDate)
	if err != nil {
		return "", calendar.LocalDate{}, err
	}
	return model.SeriesId(d.SeriesId), date, nil
}

func (s *Server) handleCancelInstance(e *core.RequestEvent) error {
	var req instanceRefDTO
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	seriesId, date, err := req.parse()
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	if err := s.Adapter.CancelInstance(seriesId, date); err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"seriesId": seriesId, "instanceDate": date.String(), "cancelled": true})
}

func (s *Server) handleRestoreInstance(e *core.RequestEvent) error {
	var req instanceRefDTO
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	seriesId, date, err := req.parse()
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	if err := s.Adapter.RestoreInstance(seriesId, date); err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"seriesId": seriesId, "instanceDate": date.String(), "cancelled": false})
}

type rescheduleRequest struct {
	SeriesId        string `json:"seriesId"`
	InstanceDate    string `json:"instanceDate"`
	To              string `json:"to"`
	DurationMinutes *int   `json:"durationMinutes,omitempty"`
}

func (s *Server) handleRescheduleInstance(e *core.RequestEvent) error {
	var req rescheduleRequest
	if err := decodeJSON(e, &req); err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	date, err := calendar.ParseDate(req.InstanceDate)
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	to, err := calendar.ParseDateTime(req.To)
	if err != nil {
		return jsonError(e, http.StatusBadRequest, err)
	}
	seriesId := model.SeriesId(req.SeriesId)
	if err := s.Adapter.RescheduleInstance(seriesId, date, to, req.DurationMinutes); err != nil {
		return respondErr(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"seriesId": seriesId, "instanceDate": date.String(), "rescheduledTo": to.String()})
}
