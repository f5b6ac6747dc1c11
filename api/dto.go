package api

import (
	"encoding/json"
	"fmt"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/model"
	"github.com/motioneffector/reflow/pattern"
	"github.com/motioneffector/reflow/reflow"
)

// seriesDTO is the wire shape accepted/returned by the series endpoints,
// matching spec.md §6's exchange conventions: pattern as a tagged-union
// object, dates/times as their canonical string forms.
type seriesDTO struct {
	Id              string          `json:"id,omitempty"`
	Title           string          `json:"title"`
	Tags            []string        `json:"tags,omitempty"`
	Pattern         json.RawMessage `json:"pattern"`
	StartDate       string          `json:"startDate"`
	EndDate         string          `json:"endDate,omitempty"`
	Count           *int            `json:"count,omitempty"`
	AllDay          bool            `json:"allDay,omitempty"`
	Time            string          `json:"time,omitempty"`
	DurationMinutes int             `json:"durationMinutes,omitempty"`
	Fixed           bool            `json:"fixed,omitempty"`
	DaysBefore      int             `json:"daysBefore,omitempty"`
	DaysAfter       int             `json:"daysAfter,omitempty"`
	Locked          bool            `json:"locked,omitempty"`
}

func (d seriesDTO) toModel() (model.Series, error) {
	startDate, err := calendar.ParseDate(d.StartDate)
	if err != nil {
		return model.Series{}, fmt.Errorf("startDate: %w", err)
	}
	p, err := pattern.FromJSON(d.Pattern, startDate)
	if err != nil {
		return model.Series{}, fmt.Errorf("pattern: %w", err)
	}
	var endDate *calendar.LocalDate
	if d.EndDate != "" {
		ed, err := calendar.ParseDate(d.EndDate)
		if err != nil {
			return model.Series{}, fmt.Errorf("endDate: %w", err)
		}
		endDate = &ed
	}
	var timeOfDay calendar.LocalTime
	if d.Time != "" {
		timeOfDay, err = calendar.ParseTime(d.Time)
		if err != nil {
			return model.Series{}, fmt.Errorf("time: %w", err)
		}
	}
	return model.Series{
		Id:              model.SeriesId(d.Id),
		Title:           d.Title,
		Tags:            d.Tags,
		Pattern:         p,
		StartDate:       startDate,
		EndDate:         endDate,
		Count:           d.Count,
		AllDay:          d.AllDay,
		Time:            timeOfDay,
		DurationMinutes: d.DurationMinutes,
		Fixed:           d.Fixed,
		DaysBefore:      d.DaysBefore,
		DaysAfter:       d.DaysAfter,
		Locked:          d.Locked,
	}, nil
}

func seriesFromModel(s model.Series) seriesDTO {
	patternJSON, _ := pattern.ToJSON(s.Pattern)
	endDate := ""
	if s.EndDate != nil {
		endDate = s.EndDate.String()
	}
	timeOfDay := ""
	if !s.AllDay {
		timeOfDay = s.Time.String()
	}
	return seriesDTO{
		Id:              string(s.Id),
		Title:           s.Title,
		Tags:            s.Tags,
		Pattern:         patternJSON,
		StartDate:       s.StartDate.String(),
		EndDate:         endDate,
		Count:           s.Count,
		AllDay:          s.AllDay,
		Time:            timeOfDay,
		DurationMinutes: s.DurationMinutes,
		Fixed:           s.Fixed,
		DaysBefore:      s.DaysBefore,
		DaysAfter:       s.DaysAfter,
		Locked:          s.Locked,
	}
}

type cyclingStateDTO struct {
	Items        []string `json:"items"`
	Mode         string   `json:"mode"`
	GapLeap      bool     `json:"gapLeap"`
	CurrentIndex int      `json:"currentIndex"`
}

func newCyclingStateDTO(c model.CyclingState) cyclingStateDTO {
	return cyclingStateDTO{Items: c.Items, Mode: string(c.Mode), GapLeap: c.GapLeap, CurrentIndex: c.CurrentIndex}
}

type completionDTO struct {
	Id              string `json:"id,omitempty"`
	SeriesId        string `json:"seriesId"`
	InstanceDate    string `json:"instanceDate"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

func (d completionDTO) toModel() (model.Completion, error) {
	date, err := calendar.ParseDate(d.InstanceDate)
	if err != nil {
		return model.Completion{}, fmt.Errorf("instanceDate: %w", err)
	}
	start, err := calendar.ParseDateTime(d.StartTime)
	if err != nil {
		return model.Completion{}, fmt.Errorf("startTime: %w", err)
	}
	end, err := calendar.ParseDateTime(d.EndTime)
	if err != nil {
		return model.Completion{}, fmt.Errorf("endTime: %w", err)
	}
	return model.Completion{
		SeriesId:     model.SeriesId(d.SeriesId),
		InstanceDate: date,
		StartTime:    start,
		EndTime:      end,
	}, nil
}

func completionFromModel(c model.Completion) completionDTO {
	return completionDTO{
		Id:              string(c.Id),
		SeriesId:        string(c.SeriesId),
		InstanceDate:    c.InstanceDate.String(),
		StartTime:       c.StartTime.String(),
		EndTime:         c.EndTime.String(),
		DurationMinutes: c.DurationMinutes(),
		CreatedAt:       c.CreatedAt.String(),
	}
}

type linkDTO struct {
	Id             string `json:"id,omitempty"`
	ParentSeriesId string `json:"parentSeriesId"`
	ChildSeriesId  string `json:"childSeriesId"`
	TargetDistance int    `json:"targetDistance"`
	EarlyWobble    int    `json:"earlyWobble"`
	LateWobble     int    `json:"lateWobble"`
}

func (d linkDTO) toModel() model.Link {
	return model.Link{
		Id:             model.LinkId(d.Id),
		ParentSeriesId: model.SeriesId(d.ParentSeriesId),
		ChildSeriesId:  model.SeriesId(d.ChildSeriesId),
		TargetDistance: d.TargetDistance,
		EarlyWobble:    d.EarlyWobble,
		LateWobble:     d.LateWobble,
	}
}

func linkFromModel(l model.Link) linkDTO {
	return linkDTO{
		Id:             string(l.Id),
		ParentSeriesId: string(l.ParentSeriesId),
		ChildSeriesId:  string(l.ChildSeriesId),
		TargetDistance: l.TargetDistance,
		EarlyWobble:    l.EarlyWobble,
		LateWobble:     l.LateWobble,
	}
}

type targetDTO struct {
	SeriesId string `json:"seriesId,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

func (d targetDTO) toModel() model.Target {
	return model.Target{SeriesId: model.SeriesId(d.SeriesId), Tag: d.Tag}
}

type constraintDTO struct {
	Id            string    `json:"id,omitempty"`
	Kind          string    `json:"kind"`
	Subject       targetDTO `json:"subject"`
	Reference     targetDTO `json:"reference"`
	WithinMinutes int       `json:"withinMinutes,omitempty"`
}

func (d constraintDTO) toModel() model.RelationalConstraint {
	return model.RelationalConstraint{
		Kind:          model.RelationalConstraintKind(d.Kind),
		Subject:       d.Subject.toModel(),
		Reference:     d.Reference.toModel(),
		WithinMinutes: d.WithinMinutes,
	}
}

type assignmentDTO struct {
	SeriesId     string `json:"seriesId"`
	InstanceDate string `json:"instanceDate"`
	Time         string `json:"time"`
}

type conflictDTO struct {
	Kind        string   `json:"kind"`
	Severity    string   `json:"severity"`
	InstanceIds []string `json:"instanceIds,omitempty"`
	Message     string   `json:"message"`
}

type reflowOutputDTO struct {
	Assignments []assignmentDTO `json:"assignments"`
	Conflicts   []conflictDTO   `json:"conflicts"`
}

func reflowOutputFromModel(out reflow.Output) reflowOutputDTO {
	dto := reflowOutputDTO{
		Assignments: make([]assignmentDTO, 0, len(out.Assignments)),
		Conflicts:   make([]conflictDTO, 0, len(out.Conflicts)),
	}
	for _, a := range out.Assignments {
		dto.Assignments = append(dto.Assignments, assignmentDTO{
			SeriesId:     string(a.SeriesId),
			InstanceDate: a.InstanceDate.String(),
			Time:         a.Time.String(),
		})
	}
	for _, c := range out.Conflicts {
		ids := make([]string, 0, len(c.InstanceIds))
		for _, id := range c.InstanceIds {
			ids = append(ids, fmt.Sprintf("%s/%s", id.SeriesId, id.InstanceDate.String()))
		}
		dto.Conflicts = append(dto.Conflicts, conflictDTO{
			Kind:        string(c.Kind),
			Severity:    string(c.Severity),
			InstanceIds: ids,
			Message:     c.Message,
		})
	}
	return dto
}
