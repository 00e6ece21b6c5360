package timetable

import (
	"github.com/volatiletech/null/v8"
)

// TimeSlot is a fixed daily teaching interval identified by a dense,
// 1-based period number unique within the school.
type TimeSlot struct {
	ID           string       `json:"id"`
	PeriodNumber int          `json:"periodNumber"`
	Label        string       `json:"label"` // display form, e.g. "08:00 - 08:45"
	Start        ClockMinutes `json:"startTime"`
	End          ClockMinutes `json:"endTime"`
	Color        null.String  `json:"color,omitempty"`
}

// Contains reports whether minute m falls within the slot.
// The boundary minute belongs to the slot that is starting: [Start, End).
func (ts TimeSlot) Contains(m ClockMinutes) bool {
	return ts.Start <= m && m < ts.End
}

// BreakType classifies a recurring non-teaching interval.
type BreakType string

const (
	BreakShort     BreakType = "short-break"
	BreakLong      BreakType = "long-break"
	BreakLunch     BreakType = "lunch"
	BreakAfternoon BreakType = "afternoon-break"
	BreakGames     BreakType = "games"
	BreakAssembly  BreakType = "assembly"
	BreakRecess    BreakType = "recess"
	BreakSnack     BreakType = "snack"
)

var AllBreakTypes = []BreakType{
	BreakShort, BreakLong, BreakLunch, BreakAfternoon,
	BreakGames, BreakAssembly, BreakRecess, BreakSnack,
}

func (bt BreakType) Valid() bool {
	for _, t := range AllBreakTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// Break is a schedule-wide non-teaching interval: declared once per day and
// applying to every grade scheduled that day.
type Break struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        BreakType   `json:"type"`
	Day         Weekday     `json:"dayOfWeek"`
	AfterPeriod int         `json:"afterPeriod"` // period number it follows
	Duration    int         `json:"durationMinutes"`
	Icon        null.String `json:"icon,omitempty"`
	Color       null.String `json:"color,omitempty"`
}

// Subject is read-only reference data in this subsystem.
type Subject struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Code       null.String `json:"code,omitempty"`
	Color      null.String `json:"color,omitempty"`
	Department null.String `json:"department,omitempty"`
}

// Teacher is the flattened reference shape; full HR data lives outside scope.
type Teacher struct {
	ID          string      `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Name        string      `json:"name"` // display name
	Email       null.String `json:"email,omitempty"`
	Subjects    []string    `json:"subjects"`    // subject names qualified for
	GradeLevels []string    `json:"gradeLevels"` // grade-level names assignable to
	Color       null.String `json:"color,omitempty"`
}

// Grade is a cohort.
type Grade struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Level  int         `json:"level"` // numeric level, sort order
	Abbrev null.String `json:"abbrev,omitempty"`
}

// Entry is the scheduled fact: on day Day, in the period of TimeSlotID,
// grade GradeID has subject SubjectID taught by TeacherID, optionally in Room.
type Entry struct {
	ID           string      `json:"id"`
	GradeID      string      `json:"gradeId"`
	SubjectID    string      `json:"subjectId"`
	TeacherID    string      `json:"teacherId"`
	TimeSlotID   string      `json:"timeSlotId"`
	Day          Weekday     `json:"dayOfWeek"`
	Room         null.String `json:"roomNumber,omitempty"`
	DoublePeriod bool        `json:"doublePeriod,omitempty"`
	Notes        null.String `json:"notes,omitempty"`
}

// slotKey identifies the (grade, day, slot) triple at most one Entry may occupy.
type slotKey struct {
	gradeID    string
	day        Weekday
	timeSlotID string
}

func (e Entry) key() slotKey {
	return slotKey{gradeID: e.GradeID, day: e.Day, timeSlotID: e.TimeSlotID}
}

// CollectionState tracks how a reference collection got to its current
// content, so consumers can render "empty" and "not supported here"
// differently even though both hold zero items.
type CollectionState int

const (
	StateUnloaded CollectionState = iota
	StateUnsupported
	StateLoaded
)

func (s CollectionState) String() string {
	switch s {
	case StateUnsupported:
		return "unsupported"
	case StateLoaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// Collection names used for state tracking and diagnostics.
type Collection string

const (
	ColTeachers  Collection = "teachers"
	ColGrades    Collection = "grades"
	ColSubjects  Collection = "subjects"
	ColTimeSlots Collection = "timeSlots"
	ColBreaks    Collection = "breaks"
	ColEntries   Collection = "entries"
)

// Input DTOs

type NewTimeSlot struct {
	PeriodNumber int         `json:"periodNumber" validate:"required,min=1"`
	Label        string      `json:"label"`
	StartTime    string      `json:"startTime" validate:"required,hhmm"`
	EndTime      string      `json:"endTime" validate:"required,hhmm"`
	Color        null.String `json:"color"`
}

type UpdateTimeSlot struct {
	PeriodNumber *int        `json:"periodNumber" validate:"omitempty,min=1"`
	Label        *string     `json:"label"`
	StartTime    *string     `json:"startTime" validate:"omitempty,hhmm"`
	EndTime      *string     `json:"endTime" validate:"omitempty,hhmm"`
	Color        null.String `json:"color"`
}

type NewBreak struct {
	Name        string      `json:"name" validate:"required"`
	Type        BreakType   `json:"type" validate:"required,breaktype"`
	Day         Weekday     `json:"dayOfWeek" validate:"required,schoolday"`
	AfterPeriod int         `json:"afterPeriod" validate:"required,min=1"`
	Duration    int         `json:"durationMinutes" validate:"required,min=1"`
	Icon        null.String `json:"icon"`
	Color       null.String `json:"color"`
}

type UpdateBreak struct {
	Name        *string     `json:"name"`
	Type        *BreakType  `json:"type" validate:"omitempty,breaktype"`
	Day         *Weekday    `json:"dayOfWeek" validate:"omitempty,schoolday"`
	AfterPeriod *int        `json:"afterPeriod" validate:"omitempty,min=1"`
	Duration    *int        `json:"durationMinutes" validate:"omitempty,min=1"`
	Icon        null.String `json:"icon"`
	Color       null.String `json:"color"`
}

type NewEntry struct {
	GradeID      string      `json:"gradeId" validate:"required"`
	SubjectID    string      `json:"subjectId" validate:"required"`
	TeacherID    string      `json:"teacherId" validate:"required"`
	TimeSlotID   string      `json:"timeSlotId" validate:"required"`
	Day          Weekday     `json:"dayOfWeek" validate:"required,schoolday"`
	Room         null.String `json:"roomNumber"`
	DoublePeriod bool        `json:"doublePeriod"`
	Notes        null.String `json:"notes"`
}

type UpdateEntry struct {
	GradeID      *string     `json:"gradeId"`
	SubjectID    *string     `json:"subjectId"`
	TeacherID    *string     `json:"teacherId"`
	TimeSlotID   *string     `json:"timeSlotId"`
	Day          *Weekday    `json:"dayOfWeek" validate:"omitempty,schoolday"`
	Room         null.String `json:"roomNumber"`
	DoublePeriod *bool       `json:"doublePeriod"`
	Notes        null.String `json:"notes"`
}
