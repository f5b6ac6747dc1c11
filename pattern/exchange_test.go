package pattern

import (
	"testing"

	"github.com/motioneffector/reflow/calendar"
)

func TestFromJSONDaily(t *testing.T) {
	p, err := FromJSON([]byte(`{"type":"daily"}`), mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if _, ok := p.(Daily); !ok {
		t.Errorf("got %T, want Daily", p)
	}
}

func TestFromJSONMonthlyAcceptsLegacyDayOfMonth(t *testing.T) {
	p, err := FromJSON([]byte(`{"type":"monthly","dayOfMonth":15}`), mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	m, ok := p.(Monthly)
	if !ok {
		t.Fatalf("got %T, want Monthly", p)
	}
	if m.Day != 15 {
		t.Errorf("Day = %d, want 15", m.Day)
	}
}

func TestFromJSONWeekdaysAcceptsLegacyDaysOfWeek(t *testing.T) {
	p, err := FromJSON([]byte(`{"type":"weekdays","daysOfWeek":["mon","Wed",5]}`), mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	w, ok := p.(Weekdays)
	if !ok {
		t.Fatalf("got %T, want Weekdays", p)
	}
	want := []calendar.Weekday{calendar.Monday, calendar.Wednesday, calendar.Friday}
	if len(w.Days) != len(want) {
		t.Fatalf("got %v, want %v", w.Days, want)
	}
	for i := range want {
		if w.Days[i] != want[i] {
			t.Errorf("Days[%d] = %v, want %v", i, w.Days[i], want[i])
		}
	}
}

func TestFromJSONWeekdayNumericWrap(t *testing.T) {
	p, err := FromJSON([]byte(`{"type":"lastWeekdayOfMonth","weekday":7}`), mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	last, ok := p.(LastWeekdayOfMonth)
	if !ok {
		t.Fatalf("got %T, want LastWeekdayOfMonth", p)
	}
	if last.Weekday != calendar.Sunday {
		t.Errorf("Weekday = %v, want Sunday (7 wraps to 0)", last.Weekday)
	}
}

func TestFromJSONRejectsOutOfRangeWeekday(t *testing.T) {
	if _, err := FromJSON([]byte(`{"type":"lastWeekdayOfMonth","weekday":9}`), mustDate(t, "2024-01-01")); err == nil {
		t.Error("expected InvalidPatternError for weekday 9")
	}
}

func TestFromJSONRejectsUnrecognizedType(t *testing.T) {
	if _, err := FromJSON([]byte(`{"type":"bogus"}`), mustDate(t, "2024-01-01")); err == nil {
		t.Error("expected InvalidPatternError for unrecognized type")
	}
}

func TestFromJSONUnionAndExcept(t *testing.T) {
	raw := []byte(`{
		"type": "except",
		"base": {"type": "daily"},
		"exceptions": [
			{"type": "union", "patterns": [{"type": "weekendsOnly"}]}
		]
	}`)
	p, err := FromJSON(raw, mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	except, ok := p.(Except)
	if !ok {
		t.Fatalf("got %T, want Except", p)
	}
	if _, ok := except.Base.(Daily); !ok {
		t.Errorf("base = %T, want Daily", except.Base)
	}
	if len(except.Exceptions) != 1 {
		t.Fatalf("got %d exceptions, want 1", len(except.Exceptions))
	}
	if _, ok := except.Exceptions[0].(Union); !ok {
		t.Errorf("exceptions[0] = %T, want Union", except.Exceptions[0])
	}
}

func TestToJSONRoundTrip(t *testing.T) {
	original := NthWeekdayOfMonth{N: 2, Weekday: calendar.Tuesday}
	raw, err := ToJSON(original)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := FromJSON(raw, mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	back, ok := got.(NthWeekdayOfMonth)
	if !ok {
		t.Fatalf("got %T, want NthWeekdayOfMonth", got)
	}
	if back != original {
		t.Errorf("round trip = %+v, want %+v", back, original)
	}
}

func TestFromJSONWeeklyWithExplicitWeekdayBecomesEveryNWeeks(t *testing.T) {
	p, err := FromJSON([]byte(`{"type":"weekly","dayOfWeek":"friday"}`), mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	w, ok := p.(EveryNWeeks)
	if !ok {
		t.Fatalf("got %T, want EveryNWeeks", p)
	}
	if w.N != 1 || w.Weekday == nil || *w.Weekday != calendar.Friday {
		t.Errorf("got %+v, want N=1 Weekday=Friday", w)
	}
}
