package pattern

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/errs"
)

// exchange is the wire shape accepted by FromJSON, per spec.md §6. Every
// pattern type is folded into one struct rather than a Go union so
// encoding/json can unmarshal the whole tagged record in one pass; unused
// fields for a given Type are simply left zero.
//
// The spec documents two accepted spellings for several fields (the
// Open Questions section settles the ambiguity): "dayOfWeek"/"daysOfWeek"
// and "day"/"dayOfMonth". Both are unmarshalled here; ToJSON always emits
// the plural/"day" spelling as canonical.
type exchange struct {
	Type string `json:"type"`

	N int `json:"n,omitempty"`

	Weekday  json.RawMessage `json:"weekday,omitempty"`
	DayOfWeek  json.RawMessage `json:"dayOfWeek,omitempty"`
	DaysOfWeek json.RawMessage `json:"daysOfWeek,omitempty"`

	Day        *int `json:"day,omitempty"`
	DayOfMonth *int `json:"dayOfMonth,omitempty"`

	Month int `json:"month,omitempty"`

	Days       json.RawMessage `json:"days,omitempty"`

	Patterns   []exchange `json:"patterns,omitempty"`
	Base       *exchange  `json:"base,omitempty"`
	Exceptions []exchange `json:"exceptions,omitempty"`
}

// FromJSON decodes a tagged pattern-exchange record (spec.md §6) into a
// Pattern, validating every numeric domain along the way. seriesStart is
// passed down through Union/Except trees but not read while decoding: a
// "weekly" or "everyNWeeks" record without a weekday resolves it from the
// series start at expansion time. Most callers pass the owning series'
// StartDate.
func FromJSON(raw []byte, seriesStart calendar.LocalDate) (Pattern, error) {
	var x exchange
	if err := json.Unmarshal(raw, &x); err != nil {
		return nil, errs.InvalidPattern("pattern: malformed exchange record: %v", err)
	}
	return fromExchange(x, seriesStart)
}

func fromExchange(x exchange, seriesStart calendar.LocalDate) (Pattern, error) {
	switch strings.ToLower(x.Type) {
	case "daily":
		return Daily{}, nil

	case "everyndays":
		return NewEveryNDays(x.N)

	case "weekly":
		wd, err := decodeOptionalWeekday(x.Weekday, x.DayOfWeek, x.DaysOfWeek)
		if err != nil {
			return nil, err
		}
		if wd == nil {
			return Weekly{}, nil
		}
		// An explicit weekday override on "weekly" is equivalent to a
		// single-week cadence anchored on that day (spec.md §6 exchange
		// note); the core algebra only knows Weekly as "seriesStart's
		// weekday", so normalize here.
		return NewEveryNWeeks(1, wd)

	case "everynweeks":
		wd, err := decodeOptionalWeekday(x.Weekday, x.DayOfWeek, x.DaysOfWeek)
		if err != nil {
			return nil, err
		}
		return NewEveryNWeeks(x.N, wd)

	case "monthly":
		day, err := requireDay(x)
		if err != nil {
			return nil, err
		}
		return NewMonthly(day)

	case "lastdayofmonth":
		return LastDayOfMonth{}, nil

	case "yearly":
		day, err := requireDay(x)
		if err != nil {
			return nil, err
		}
		if x.Month == 0 {
			return nil, errs.InvalidPattern("yearly: month is required")
		}
		return NewYearly(x.Month, day)

	case "weekdays":
		days, err := decodeWeekdayList(x.Days, x.DaysOfWeek)
		if err != nil {
			return nil, err
		}
		return NewWeekdays(days)

	case "weekdaysonly":
		return WeekdaysOnly{}, nil

	case "weekendsonly":
		return WeekendsOnly{}, nil

	case "nthweekdayofmonth":
		wd, err := decodeRequiredWeekday(x.Weekday, x.DayOfWeek, x.DaysOfWeek)
		if err != nil {
			return nil, err
		}
		return NewNthWeekdayOfMonth(x.N, wd)

	case "lastweekdayofmonth":
		wd, err := decodeRequiredWeekday(x.Weekday, x.DayOfWeek, x.DaysOfWeek)
		if err != nil {
			return nil, err
		}
		return LastWeekdayOfMonth{Weekday: wd}, nil

	case "nthtolastweekdayofmonth":
		wd, err := decodeRequiredWeekday(x.Weekday, x.DayOfWeek, x.DaysOfWeek)
		if err != nil {
			return nil, err
		}
		return NewNthToLastWeekdayOfMonth(x.N, wd)

	case "union":
		patterns := make([]Pattern, 0, len(x.Patterns))
		for _, px := range x.Patterns {
			p, err := fromExchange(px, seriesStart)
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, p)
		}
		return Union{Patterns: patterns}, nil

	case "except":
		if x.Base == nil {
			return nil, errs.InvalidPattern("except: base is required")
		}
		base, err := fromExchange(*x.Base, seriesStart)
		if err != nil {
			return nil, err
		}
		exceptions := make([]Pattern, 0, len(x.Exceptions))
		for _, ex := range x.Exceptions {
			p, err := fromExchange(ex, seriesStart)
			if err != nil {
				return nil, err
			}
			exceptions = append(exceptions, p)
		}
		return Except{Base: base, Exceptions: exceptions}, nil

	default:
		return nil, errs.InvalidPattern("pattern: unrecognized type %q", x.Type)
	}
}

func requireDay(x exchange) (int, error) {
	if x.Day != nil {
		return *x.Day, nil
	}
	if x.DayOfMonth != nil {
		return *x.DayOfMonth, nil
	}
	return 0, errs.InvalidPattern("%s: day (or legacy dayOfMonth) is required", strings.ToLower(x.Type))
}

// decodeOptionalWeekday returns nil when none of the three accepted
// fields is present, letting the caller fall back to seriesStart's
// weekday.
func decodeOptionalWeekday(weekday, dayOfWeek, daysOfWeek json.RawMessage) (*calendar.Weekday, error) {
	raw := firstNonEmpty(weekday, dayOfWeek, daysOfWeek)
	if raw == nil {
		return nil, nil
	}
	w, err := decodeWeekdayValue(raw)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func decodeRequiredWeekday(weekday, dayOfWeek, daysOfWeek json.RawMessage) (calendar.Weekday, error) {
	raw := firstNonEmpty(weekday, dayOfWeek, daysOfWeek)
	if raw == nil {
		return 0, errs.InvalidPattern("weekday (or legacy dayOfWeek/daysOfWeek) is required")
	}
	return decodeWeekdayValue(raw)
}

func firstNonEmpty(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if len(c) > 0 {
			return c
		}
	}
	return nil
}

// decodeWeekdayList accepts either "days" (an array, the canonical field
// for the weekdays pattern) or the legacy "daysOfWeek" array.
func decodeWeekdayList(days, daysOfWeek json.RawMessage) ([]calendar.Weekday, error) {
	raw := firstNonEmpty(days, daysOfWeek)
	if raw == nil {
		return nil, errs.InvalidPattern("weekdays: days (or legacy daysOfWeek) is required")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errs.InvalidPattern("weekdays: days must be an array: %v", err)
	}
	out := make([]calendar.Weekday, 0, len(items))
	for _, item := range items {
		w, err := decodeWeekdayValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

var weekdayByName = map[string]calendar.Weekday{
	"sun": calendar.Sunday, "sunday": calendar.Sunday,
	"mon": calendar.Monday, "monday": calendar.Monday,
	"tue": calendar.Tuesday, "tues": calendar.Tuesday, "tuesday": calendar.Tuesday,
	"wed": calendar.Wednesday, "wednesday": calendar.Wednesday,
	"thu": calendar.Thursday, "thur": calendar.Thursday, "thurs": calendar.Thursday, "thursday": calendar.Thursday,
	"fri": calendar.Friday, "friday": calendar.Friday,
	"sat": calendar.Saturday, "saturday": calendar.Saturday,
}

// decodeWeekdayValue accepts a JSON number (0=sun..6=sat, 7 wraps to 0)
// or a case-insensitive English name, full or 3-letter (spec.md §6).
func decodeWeekdayValue(raw json.RawMessage) (calendar.Weekday, error) {
	trimmed := strings.TrimSpace(string(raw))
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n == 7 {
			n = 0
		}
		if n < 0 || n > 6 {
			return 0, errs.InvalidPattern("weekday: numeric value must be 0..7, got %d", n)
		}
		return calendar.Weekday(n), nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return 0, errs.InvalidPattern("weekday: must be an integer 0..6 or a weekday name, got %s", trimmed)
	}
	w, ok := weekdayByName[strings.ToLower(name)]
	if !ok {
		return 0, errs.InvalidPattern("weekday: unrecognized name %q", name)
	}
	return w, nil
}

// ToJSON encodes p into its canonical exchange record: plural/"day"
// field spellings, numeric weekdays.
func ToJSON(p Pattern) ([]byte, error) {
	return json.Marshal(toExchange(p))
}

func toExchange(p Pattern) exchange {
	switch v := p.(type) {
	case Daily:
		return exchange{Type: "daily"}
	case EveryNDays:
		return exchange{Type: "everyNDays", N: v.N}
	case Weekly:
		return exchange{Type: "weekly"}
	case EveryNWeeks:
		x := exchange{Type: "everyNWeeks", N: v.N}
		if v.Weekday != nil {
			x.DaysOfWeek = weekdayJSON(*v.Weekday)
		}
		return x
	case Monthly:
		day := v.Day
		return exchange{Type: "monthly", Day: &day}
	case LastDayOfMonth:
		return exchange{Type: "lastDayOfMonth"}
	case Yearly:
		day := v.Day
		return exchange{Type: "yearly", Month: v.Month, Day: &day}
	case Weekdays:
		return exchange{Type: "weekdays", Days: weekdayListJSON(v.Days)}
	case WeekdaysOnly:
		return exchange{Type: "weekdaysOnly"}
	case WeekendsOnly:
		return exchange{Type: "weekendsOnly"}
	case NthWeekdayOfMonth:
		return exchange{Type: "nthWeekdayOfMonth", N: v.N, DaysOfWeek: weekdayJSON(v.Weekday)}
	case LastWeekdayOfMonth:
		return exchange{Type: "lastWeekdayOfMonth", DaysOfWeek: weekdayJSON(v.Weekday)}
	case NthToLastWeekdayOfMonth:
		return exchange{Type: "nthToLastWeekdayOfMonth", N: v.N, DaysOfWeek: weekdayJSON(v.Weekday)}
	case Union:
		patterns := make([]exchange, 0, len(v.Patterns))
		for _, inner := range v.Patterns {
			patterns = append(patterns, toExchange(inner))
		}
		return exchange{Type: "union", Patterns: patterns}
	case Except:
		base := toExchange(v.Base)
		exceptions := make([]exchange, 0, len(v.Exceptions))
		for _, inner := range v.Exceptions {
			exceptions = append(exceptions, toExchange(inner))
		}
		return exchange{Type: "except", Base: &base, Exceptions: exceptions}
	default:
		return exchange{Type: "unknown"}
	}
}

func weekdayJSON(w calendar.Weekday) json.RawMessage {
	b, _ := json.Marshal(int(w))
	return b
}

func weekdayListJSON(days []calendar.Weekday) json.RawMessage {
	ints := make([]int, len(days))
	for i, d := range days {
		ints[i] = int(d)
	}
	b, _ := json.Marshal(ints)
	return b
}
