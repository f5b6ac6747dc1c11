package store

import (
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"github.com/motioneffector/reflow/model"
)

// getJSON reads a JSONField into a typed value via PocketBase's own JSON
// unmarshal helper, so every JSON-boxed column in this adapter goes
// through one code path instead of repeating type assertions on
// record.Get's `any` return.
func getJSON[T any](record *core.Record, field string) (T, error) {
	var out T
	err := record.UnmarshalJSONField(field, &out)
	return out, err
}

func setJSON(record *core.Record, field string, v any) {
	record.Set(field, v)
}

// getJSONRaw returns a JSONField's stored bytes unparsed, for the
// "pattern" column, whose content the caller (pattern.FromJSON) decodes
// itself into the recurrence algebra's tagged union.
func getJSONRaw(record *core.Record, field string) []byte {
	raw, _ := record.Get(field).(types.JSONRaw)
	return []byte(raw)
}

// setJSONRaw stores pre-encoded JSON bytes verbatim. Passing a plain
// []byte to Set would be remarshaled (base64-encoded) by the field's
// default JSON handling; wrapping it in types.JSONRaw tells PocketBase
// the bytes are already valid JSON.
func setJSONRaw(record *core.Record, field string, raw []byte) {
	record.Set(field, types.JSONRaw(raw))
}

func intOrZero(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func seriesRecordFromRecord(record *core.Record) (seriesRecord, error) {
	tags, err := getJSON[[]string](record, "tags")
	if err != nil {
		return seriesRecord{}, err
	}
	patternRaw := getJSONRaw(record, "pattern")
	adaptive, _ := getJSON[*adaptiveJSON](record, "adaptive")
	timeWindow, _ := getJSON[*timeWindowJSON](record, "timeWindow")
	condition, _ := getJSON[*conditionJSON](record, "condition")
	cycling, _ := getJSON[*cyclingJSON](record, "cycling")

	var count *int
	if record.Get("count") != nil {
		if n := record.GetInt("count"); n != 0 {
			count = &n
		}
	}

	return seriesRecord{
		SeriesId:        record.GetString("seriesId"),
		Title:           record.GetString("title"),
		Tags:            tags,
		Pattern:         patternRaw,
		StartDate:       record.GetString("startDate"),
		EndDate:         record.GetString("endDate"),
		Count:           count,
		AllDay:          record.GetBool("allDay"),
		Time:            record.GetString("time"),
		DurationMinutes: record.GetInt("durationMinutes"),
		Adaptive:        adaptive,
		Fixed:           record.GetBool("fixed"),
		TimeWindow:      timeWindow,
		DaysBefore:      record.GetInt("daysBefore"),
		DaysAfter:       record.GetInt("daysAfter"),
		Condition:       condition,
		Cycling:         cycling,
		Locked:          record.GetBool("locked"),
	}, nil
}

func applySeriesRecord(record *core.Record, r seriesRecord) {
	record.Set("seriesId", r.SeriesId)
	record.Set("title", r.Title)
	setJSON(record, "tags", r.Tags)
	setJSONRaw(record, "pattern", r.Pattern)
	record.Set("startDate", r.StartDate)
	record.Set("endDate", r.EndDate)
	record.Set("count", intOrZero(r.Count))
	record.Set("allDay", r.AllDay)
	record.Set("time", r.Time)
	record.Set("durationMinutes", r.DurationMinutes)
	setJSON(record, "adaptive", r.Adaptive)
	record.Set("fixed", r.Fixed)
	setJSON(record, "timeWindow", r.TimeWindow)
	record.Set("daysBefore", r.DaysBefore)
	record.Set("daysAfter", r.DaysAfter)
	setJSON(record, "condition", r.Condition)
	setJSON(record, "cycling", r.Cycling)
	record.Set("locked", r.Locked)
}

func completionFromRecord(record *core.Record) model.Completion {
	return model.Completion{
		Id:           model.CompletionId(record.GetString("completionId")),
		SeriesId:     model.SeriesId(record.GetString("seriesId")),
		InstanceDate: parseDateOrZero(record.GetString("instanceDate")),
		StartTime:    parseDateTimeOrZero(record.GetString("startTime")),
		EndTime:      parseDateTimeOrZero(record.GetString("endTime")),
		CreatedAt:    parseDateTimeOrZero(record.GetString("createdAt")),
	}
}

func applyCompletionRecord(record *core.Record, c model.Completion) {
	record.Set("completionId", string(c.Id))
	record.Set("seriesId", string(c.SeriesId))
	record.Set("instanceDate", c.InstanceDate.String())
	record.Set("startTime", c.StartTime.String())
	record.Set("endTime", c.EndTime.String())
	record.Set("durationMinutes", c.DurationMinutes())
	record.Set("createdAt", c.CreatedAt.String())
}

func exceptionFromRecord(record *core.Record) model.InstanceException {
	var duration *int
	if n := record.GetInt("durationMinutes"); n != 0 {
		duration = &n
	}
	exc := model.InstanceException{
		SeriesId:        model.SeriesId(record.GetString("seriesId")),
		InstanceDate:    parseDateOrZero(record.GetString("instanceDate")),
		Cancelled:       record.GetBool("cancelled"),
		DurationMinutes: duration,
	}
	if s := record.GetString("rescheduledTo"); s != "" {
		dt := parseDateTimeOrZero(s)
		exc.RescheduledTo = &dt
	}
	return exc
}

func applyExceptionRecord(record *core.Record, exc model.InstanceException) {
	record.Set("seriesId", string(exc.SeriesId))
	record.Set("instanceDate", exc.InstanceDate.String())
	record.Set("cancelled", exc.Cancelled)
	if exc.RescheduledTo != nil {
		record.Set("rescheduledTo", exc.RescheduledTo.String())
	} else {
		record.Set("rescheduledTo", "")
	}
	record.Set("durationMinutes", intOrZero(exc.DurationMinutes))
}

func linkFromRecord(record *core.Record) model.Link {
	return model.Link{
		Id:             model.LinkId(record.GetString("linkId")),
		ParentSeriesId: model.SeriesId(record.GetString("parentSeriesId")),
		ChildSeriesId:  model.SeriesId(record.GetString("childSeriesId")),
		TargetDistance: record.GetInt("targetDistance"),
		EarlyWobble:    record.GetInt("earlyWobble"),
		LateWobble:     record.GetInt("lateWobble"),
	}
}

func applyLinkRecord(record *core.Record, l model.Link) {
	record.Set("linkId", string(l.Id))
	record.Set("parentSeriesId", string(l.ParentSeriesId))
	record.Set("childSeriesId", string(l.ChildSeriesId))
	record.Set("targetDistance", l.TargetDistance)
	record.Set("earlyWobble", l.EarlyWobble)
	record.Set("lateWobble", l.LateWobble)
}

func constraintFromRecord(record *core.Record) (model.RelationalConstraint, error) {
	subject, err := getJSON[targetJSON](record, "subject")
	if err != nil {
		return model.RelationalConstraint{}, err
	}
	reference, err := getJSON[targetJSON](record, "reference")
	if err != nil {
		return model.RelationalConstraint{}, err
	}
	return model.RelationalConstraint{
		Kind:          model.RelationalConstraintKind(record.GetString("kind")),
		Subject:       decodeTarget(subject),
		Reference:     decodeTarget(reference),
		WithinMinutes: record.GetInt("withinMinutes"),
	}, nil
}

func applyConstraintRecord(record *core.Record, id string, c model.RelationalConstraint) {
	record.Set("constraintId", id)
	record.Set("kind", string(c.Kind))
	setJSON(record, "subject", encodeTarget(c.Subject))
	setJSON(record, "reference", encodeTarget(c.Reference))
	record.Set("withinMinutes", c.WithinMinutes)
}

func cyclingFromRecord(record *core.Record) (model.CyclingState, error) {
	items, err := getJSON[[]string](record, "items")
	if err != nil {
		return model.CyclingState{}, err
	}
	return model.CyclingState{
		Items:        items,
		Mode:         model.CyclingMode(record.GetString("mode")),
		GapLeap:      record.GetBool("gapLeap"),
		CurrentIndex: record.GetInt("currentIndex"),
	}, nil
}

func applyCyclingRecord(record *core.Record, seriesId model.SeriesId, c model.CyclingState) {
	record.Set("seriesId", string(seriesId))
	setJSON(record, "items", c.Items)
	record.Set("mode", string(c.Mode))
	record.Set("gapLeap", c.GapLeap)
	record.Set("currentIndex", c.CurrentIndex)
}
