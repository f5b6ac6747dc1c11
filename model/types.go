package model

import (
	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/pattern"
)

// Target selects the series a query, constraint, or cycling update applies
// to: either one specific series, or every series carrying a tag.
type Target struct {
	SeriesId SeriesId
	Tag      string
}

// IsTag reports whether the target resolves by tag rather than by id.
func (t Target) IsTag() bool { return t.SeriesId == "" && t.Tag != "" }

// CyclingMode selects how cycling.Resolve chooses an item.
type CyclingMode string

const (
	CyclingSequential CyclingMode = "sequential"
	CyclingRandom     CyclingMode = "random"
)

// CyclingState is the rotation bookkeeping attached to a series whose
// instances cycle through a fixed item list (component C4).
type CyclingState struct {
	Items        []string
	Mode         CyclingMode
	GapLeap      bool // if true, the cursor only advances on completion
	CurrentIndex int  // meaningful only when GapLeap is set
}

// TimeWindow bounds the time-of-day a series' instances may be placed in.
// A nil *TimeWindow selects the domain builder's default of 00:00-23:55;
// the zero value is the window 00:00-00:00.
type TimeWindow struct {
	Start calendar.LocalTime
	End   calendar.LocalTime
}

// AdaptiveMode selects how getDurationsForAdaptive samples history.
type AdaptiveMode struct {
	LastN      *int // most recent n completions by instanceDate
	WindowDays *int // all completions in [asOf-windowDays+1, asOf]
}

// AdaptiveDurationConfig replaces a fixed DurationMinutes with a value
// recomputed from recent completion history (component C3).
type AdaptiveDurationConfig struct {
	Mode       AdaptiveMode
	Fallback   int // used when no durations are available; must be >= 1
	Multiplier float64
	Minimum    *int
	Maximum    *int
}

// Condition is a tagged union of boolean predicates gating whether a
// series emits an instance on a given date (component C6 step 1). Feeds
// off completion history exactly like adaptive duration does.
type Condition interface {
	isCondition()
}

type Always struct{}

type And struct{ Conditions []Condition }

type Or struct{ Conditions []Condition }

type Not struct{ Condition Condition }

// MinDaysSinceLastCompletion is satisfied when daysSinceLastCompletion
// is unknown (no history) or >= Days.
type MinDaysSinceLastCompletion struct {
	Target Target
	Days   int
}

// MaxCompletionsInWindow is satisfied when countInWindow < Max.
type MaxCompletionsInWindow struct {
	Target     Target
	WindowDays int
	Max        int
}

func (Always) isCondition()                     {}
func (And) isCondition()                        {}
func (Or) isCondition()                         {}
func (Not) isCondition()                        {}
func (MinDaysSinceLastCompletion) isCondition() {}
func (MaxCompletionsInWindow) isCondition()     {}

// Series is the top-level recurring-activity definition (spec.md §3).
type Series struct {
	Id      SeriesId
	Title   string
	Tags    []string
	Pattern pattern.Pattern

	StartDate calendar.LocalDate
	EndDate   *calendar.LocalDate // nil = open-ended
	Count     *int                // upper bound on generated instances

	AllDay bool
	Time   calendar.LocalTime // ideal time-of-day; ignored when AllDay

	DurationMinutes int // used when Adaptive is nil
	Adaptive        *AdaptiveDurationConfig

	Fixed      bool // reflow may not move this series' instances
	TimeWindow *TimeWindow
	DaysBefore int // non-negative wiggle: instance may shift this many days earlier
	DaysAfter  int // non-negative wiggle: instance may shift this many days later

	Condition Condition // nil means Always

	Cycling *CyclingState
	Locked  bool
}

// InstanceException overrides or removes a single generated instance by
// date. Exactly one of the three kinds applies at a time: Cancelled,
// RescheduledTo set, or neither (a plain per-date field override).
type InstanceException struct {
	SeriesId        SeriesId
	InstanceDate    calendar.LocalDate
	Cancelled       bool
	RescheduledTo   *calendar.LocalDateTime
	DurationMinutes *int
}

// Completion is an immutable record that an instance occurred.
type Completion struct {
	Id           CompletionId
	SeriesId     SeriesId
	InstanceDate calendar.LocalDate
	StartTime    calendar.LocalDateTime
	EndTime      calendar.LocalDateTime
	CreatedAt    calendar.LocalDateTime // UTC instant, assigned server-side
}

// DurationMinutes returns the wall-clock length of the completion.
func (c Completion) DurationMinutes() int {
	return calendar.MinutesBetween(c.StartTime, c.EndTime)
}

// Link is a directed edge in the chain graph: the child's placement is
// derived from the parent's completion (or scheduled end), offset by
// TargetDistance and bounded by the wobble window.
type Link struct {
	Id             LinkId
	ParentSeriesId SeriesId
	ChildSeriesId  SeriesId
	TargetDistance int // minutes after parent end the child should ideally start
	EarlyWobble    int // minutes the child may be pulled earlier than target
	LateWobble     int // minutes the child may be pushed later than target
}

// RelationalConstraintKind identifies a constraint shape (component C8).
type RelationalConstraintKind string

const (
	ConstraintNoOverlap    RelationalConstraintKind = "noOverlap"
	ConstraintMustBeBefore RelationalConstraintKind = "mustBeBefore"
	ConstraintMustBeAfter  RelationalConstraintKind = "mustBeAfter"
	ConstraintMustBeWithin RelationalConstraintKind = "mustBeWithin"
)

// RelationalConstraint binds two targets (resolved to concrete series at
// registration time) under a relation the solver must satisfy.
type RelationalConstraint struct {
	Kind          RelationalConstraintKind
	Subject       Target
	Reference     Target
	WithinMinutes int // present iff Kind == ConstraintMustBeWithin
}

// Instance is a single occurrence of a series on a specific date, after
// pattern expansion, exception application, and adaptive-duration
// resolution but before placement by the solver.
type Instance struct {
	SeriesId       SeriesId
	InstanceDate   calendar.LocalDate
	InstanceNumber int // 0-based position in the series' ascending date list

	IdealTime       calendar.LocalDateTime
	DurationMinutes int
	Fixed           bool
	AllDay          bool
	TimeWindow      *TimeWindow
	DaysBefore      int
	DaysAfter       int

	ParentSeriesId *SeriesId
	ChainDistance  *int // TargetDistance carried down from the Link, if any
	EarlyWobble    *int
	LateWobble     *int

	CycleItem string
}

// EndTime returns the instance's nominal scheduled end given its current
// IdealTime and DurationMinutes.
func (i Instance) EndTime() calendar.LocalDateTime {
	return calendar.AddMinutes(i.IdealTime, i.DurationMinutes)
}

// VarKey identifies a single instance as a solver variable: one series on
// one date. Generated instances are unique per (seriesId, instanceDate).
type VarKey struct {
	SeriesId     SeriesId
	InstanceDate calendar.LocalDate
}

// Key returns i's variable identity.
func (i Instance) Key() VarKey {
	return VarKey{SeriesId: i.SeriesId, InstanceDate: i.InstanceDate}
}
