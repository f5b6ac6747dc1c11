package store

import (
	"encoding/json"
	"fmt"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
	"github.com/motioneffector/reflow/pattern"
)

// targetJSON is the wire shape for model.Target: exactly one of
// seriesId/tag is set, matching the GLOSSARY's "Target (of a query)"
// definition.
type targetJSON struct {
	SeriesId string `json:"seriesId,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

func encodeTarget(t model.Target) targetJSON {
	return targetJSON{SeriesId: string(t.SeriesId), Tag: t.Tag}
}

func decodeTarget(j targetJSON) model.Target {
	return model.Target{SeriesId: model.SeriesId(j.SeriesId), Tag: j.Tag}
}

type timeWindowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func encodeTimeWindow(w *model.TimeWindow) *timeWindowJSON {
	if w == nil {
		return nil
	}
	return &timeWindowJSON{Start: w.Start.String(), End: w.End.String()}
}

func decodeTimeWindow(j *timeWindowJSON) (*model.TimeWindow, error) {
	if j == nil {
		return nil, nil
	}
	start, err := calendar.ParseTime(j.Start)
	if err != nil {
		return nil, errs.Validation("timeWindow.start: %v", err)
	}
	end, err := calendar.ParseTime(j.End)
	if err != nil {
		return nil, errs.Validation("timeWindow.end: %v", err)
	}
	return &model.TimeWindow{Start: start, End: end}, nil
}

type adaptiveJSON struct {
	Mode struct {
		LastN      *int `json:"lastN,omitempty"`
		WindowDays *int `json:"windowDays,omitempty"`
	} `json:"mode"`
	Fallback   int      `json:"fallback"`
	Multiplier float64  `json:"multiplier"`
	Minimum    *int     `json:"minimum,omitempty"`
	Maximum    *int     `json:"maximum,omitempty"`
}

func encodeAdaptive(a *model.AdaptiveDurationConfig) *adaptiveJSON {
	if a == nil {
		return nil
	}
	j := &adaptiveJSON{Fallback: a.Fallback, Multiplier: a.Multiplier, Minimum: a.Minimum, Maximum: a.Maximum}
	j.Mode.LastN = a.Mode.LastN
	j.Mode.WindowDays = a.Mode.WindowDays
	return j
}

func decodeAdaptive(j *adaptiveJSON) *model.AdaptiveDurationConfig {
	if j == nil {
		return nil
	}
	return &model.AdaptiveDurationConfig{
		Mode:       model.AdaptiveMode{LastN: j.Mode.LastN, WindowDays: j.Mode.WindowDays},
		Fallback:   j.Fallback,
		Multiplier: j.Multiplier,
		Minimum:    j.Minimum,
		Maximum:    j.Maximum,
	}
}

type cyclingJSON struct {
	Items        []string `json:"items"`
	Mode         string   `json:"mode"`
	GapLeap      bool     `json:"gapLeap"`
	CurrentIndex int      `json:"currentIndex"`
}

func encodeCycling(c *model.CyclingState) *cyclingJSON {
	if c == nil {
		return nil
	}
	return &cyclingJSON{Items: c.Items, Mode: string(c.Mode), GapLeap: c.GapLeap, CurrentIndex: c.CurrentIndex}
}

func decodeCycling(j *cyclingJSON) *model.CyclingState {
	if j == nil {
		return nil
	}
	return &model.CyclingState{Items: j.Items, Mode: model.CyclingMode(j.Mode), GapLeap: j.GapLeap, CurrentIndex: j.CurrentIndex}
}

// conditionJSON is the wire shape for model.Condition. Not part of
// spec.md §6's explicit exchange shapes (those cover calendar/pattern/
// reflow only) but the adapter still needs a serialization for it to
// round-trip through a JSON-typed PocketBase field; it follows the same
// tagged-record convention pattern.FromJSON uses.
type conditionJSON struct {
	Type       string          `json:"type"`
	Conditions []conditionJSON `json:"conditions,omitempty"`
	Condition  *conditionJSON  `json:"condition,omitempty"`
	Target     *targetJSON     `json:"target,omitempty"`
	Days       int             `json:"days,omitempty"`
	WindowDays int             `json:"windowDays,omitempty"`
	Max        int             `json:"max,omitempty"`
}

func encodeCondition(c model.Condition) *conditionJSON {
	if c == nil {
		return nil
	}
	switch v := c.(type) {
	case model.Always:
		return &conditionJSON{Type: "always"}
	case model.And:
		out := make([]conditionJSON, 0, len(v.Conditions))
		for _, inner := range v.Conditions {
			out = append(out, *encodeCondition(inner))
		}
		return &conditionJSON{Type: "and", Conditions: out}
	case model.Or:
		out := make([]conditionJSON, 0, len(v.Conditions))
		for _, inner := range v.Conditions {
			out = append(out, *encodeCondition(inner))
		}
		return &conditionJSON{Type: "or", Conditions: out}
	case model.Not:
		inner := encodeCondition(v.Condition)
		return &conditionJSON{Type: "not", Condition: inner}
	case model.MinDaysSinceLastCompletion:
		target := encodeTarget(v.Target)
		return &conditionJSON{Type: "minDaysSinceLastCompletion", Target: &target, Days: v.Days}
	case model.MaxCompletionsInWindow:
		target := encodeTarget(v.Target)
		return &conditionJSON{Type: "maxCompletionsInWindow", Target: &target, WindowDays: v.WindowDays, Max: v.Max}
	default:
		return &conditionJSON{Type: "always"}
	}
}

func decodeCondition(j *conditionJSON) (model.Condition, error) {
	if j == nil {
		return nil, nil
	}
	switch j.Type {
	case "", "always":
		return model.Always{}, nil
	case "and":
		conds := make([]model.Condition, 0, len(j.Conditions))
		for i := range j.Conditions {
			c, err := decodeCondition(&j.Conditions[i])
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		return model.And{Conditions: conds}, nil
	case "or":
		conds := make([]model.Condition, 0, len(j.Conditions))
		for i := range j.Conditions {
			c, err := decodeCondition(&j.Conditions[i])
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		return model.Or{Conditions: conds}, nil
	case "not":
		inner, err := decodeCondition(j.Condition)
		if err != nil {
			return nil, err
		}
		return model.Not{Condition: inner}, nil
	case "minDaysSinceLastCompletion":
		if j.Target == nil {
			return nil, errs.Validation("minDaysSinceLastCompletion: target is required")
		}
		return model.MinDaysSinceLastCompletion{Target: decodeTarget(*j.Target), Days: j.Days}, nil
	case "maxCompletionsInWindow":
		if j.Target == nil {
			return nil, errs.Validation("maxCompletionsInWindow: target is required")
		}
		return model.MaxCompletionsInWindow{Target: decodeTarget(*j.Target), WindowDays: j.WindowDays, Max: j.Max}, nil
	default:
		return nil, errs.Validation("condition: unrecognized type %q", j.Type)
	}
}

// seriesRecord is the full set of fields this adapter stores for a
// series, independent of how PocketBase's core.Record happens to box
// them (record.Get returns `any`, so every read goes through this typed
// shape instead of scattering type assertions across the package).
type seriesRecord struct {
	SeriesId        string
	Title           string
	Tags            []string
	Pattern         json.RawMessage
	StartDate       string
	EndDate         string
	Count           *int
	AllDay          bool
	Time            string
	DurationMinutes int
	Adaptive        *adaptiveJSON
	Fixed           bool
	TimeWindow      *timeWindowJSON
	DaysBefore      int
	DaysAfter       int
	Condition       *conditionJSON
	Cycling         *cyclingJSON
	Locked          bool
}

// toModel translates a seriesRecord into the pure model.Series the core
// consumes.
func (r seriesRecord) toModel() (model.Series, error) {
	p, err := pattern.FromJSON(r.Pattern, calendar.LocalDate{})
	if err != nil {
		return model.Series{}, fmt.Errorf("series %s: %w", r.SeriesId, err)
	}
	startDate, err := calendar.ParseDate(r.StartDate)
	if err != nil {
		return model.Series{}, fmt.Errorf("series %s: startDate: %w", r.SeriesId, err)
	}
	// Decode again with the parsed startDate as seriesStart. FromJSON does
	// not read it; weekly/everyNWeeks weekday defaults resolve from the
	// series start at expansion time.
	p, err = pattern.FromJSON(r.Pattern, startDate)
	if err != nil {
		return model.Series{}, fmt.Errorf("series %s: %w", r.SeriesId, err)
	}

	var endDate *calendar.LocalDate
	if r.EndDate != "" {
		d, err := calendar.ParseDate(r.EndDate)
		if err != nil {
			return model.Series{}, fmt.Errorf("series %s: endDate: %w", r.SeriesId, err)
		}
		endDate = &d
	}

	var timeOfDay calendar.LocalTime
	if r.Time != "" {
		timeOfDay, err = calendar.ParseTime(r.Time)
		if err != nil {
			return model.Series{}, fmt.Errorf("series %s: time: %w", r.SeriesId, err)
		}
	}

	timeWindow, err := decodeTimeWindow(r.TimeWindow)
	if err != nil {
		return model.Series{}, fmt.Errorf("series %s: %w", r.SeriesId, err)
	}
	condition, err := decodeCondition(r.Condition)
	if err != nil {
		return model.Series{}, fmt.Errorf("series %s: %w", r.SeriesId, err)
	}

	return model.Series{
		Id:              model.SeriesId(r.SeriesId),
		Title:           r.Title,
		Tags:            r.Tags,
		Pattern:         p,
		StartDate:       startDate,
		EndDate:         endDate,
		Count:           r.Count,
		AllDay:          r.AllDay,
		Time:            timeOfDay,
		DurationMinutes: r.DurationMinutes,
		Adaptive:        decodeAdaptive(r.Adaptive),
		Fixed:           r.Fixed,
		TimeWindow:      timeWindow,
		DaysBefore:      r.DaysBefore,
		DaysAfter:       r.DaysAfter,
		Condition:       condition,
		Cycling:         decodeCycling(r.Cycling),
		Locked:          r.Locked,
	}, nil
}

func seriesToRecord(s model.Series) (seriesRecord, error) {
	patternJSON, err := pattern.ToJSON(s.Pattern)
	if err != nil {
		return seriesRecord{}, fmt.Errorf("series %s: encoding pattern: %w", s.Id, err)
	}
	endDate := ""
	if s.EndDate != nil {
		endDate = s.EndDate.String()
	}
	timeOfDay := ""
	if !s.AllDay {
		timeOfDay = s.Time.String()
	}
	return seriesRecord{
		SeriesId:        string(s.Id),
		Title:           s.Title,
		Tags:            s.Tags,
		Pattern:         patternJSON,
		StartDate:       s.StartDate.String(),
		EndDate:         endDate,
		Count:           s.Count,
		AllDay:          s.AllDay,
		Time:            timeOfDay,
		DurationMinutes: s.DurationMinutes,
		Adaptive:        encodeAdaptive(s.Adaptive),
		Fixed:           s.Fixed,
		TimeWindow:      encodeTimeWindow(s.TimeWindow),
		DaysBefore:      s.DaysBefore,
		DaysAfter:       s.DaysAfter,
		Condition:       encodeCondition(s.Condition),
		Cycling:         encodeCycling(s.Cycling),
		Locked:          s.Locked,
	}, nil
}
