package timetable

import "sort"

// Placeholder names substituted when an entry's foreign key cannot resolve.
// A dangling reference is evidence of a data problem that should stay visible
// in the UI, so entries degrade instead of being dropped.
const (
	UnknownSubjectName = "Unknown Subject"
	UnknownTeacherName = "Unknown Teacher"
	UnknownGradeName   = "Unknown Grade"
	UnknownPeriodLabel = "Unknown Period"
)

// EnrichedEntry is an Entry with its foreign keys resolved into full objects
// for display. Missing lists the collections whose resolution failed and a
// placeholder was substituted.
type EnrichedEntry struct {
	Entry
	Subject Subject      `json:"subject"`
	Teacher Teacher      `json:"teacher"`
	Grade   Grade        `json:"grade"`
	Slot    TimeSlot     `json:"timeSlot"`
	Missing []Collection `json:"missing,omitempty"`
}

func (ee EnrichedEntry) Degraded() bool { return len(ee.Missing) > 0 }

// EnrichEntry resolves each foreign key against its collection, substituting
// a clearly-marked placeholder for any that fail.
func (s *Store) EnrichEntry(e Entry) EnrichedEntry {
	ee := EnrichedEntry{Entry: e}

	if sub, ok := s.Subject(e.SubjectID); ok {
		ee.Subject = sub
	} else {
		ee.Subject = Subject{ID: e.SubjectID, Name: UnknownSubjectName}
		ee.Missing = append(ee.Missing, ColSubjects)
	}
	if t, ok := s.Teacher(e.TeacherID); ok {
		ee.Teacher = t
	} else {
		ee.Teacher = Teacher{ID: e.TeacherID, Name: UnknownTeacherName}
		ee.Missing = append(ee.Missing, ColTeachers)
	}
	if g, ok := s.Grade(e.GradeID); ok {
		ee.Grade = g
	} else {
		ee.Grade = Grade{ID: e.GradeID, Name: UnknownGradeName}
		ee.Missing = append(ee.Missing, ColGrades)
	}
	if ts, ok := s.TimeSlot(e.TimeSlotID); ok {
		ee.Slot = ts
	} else {
		ee.Slot = TimeSlot{ID: e.TimeSlotID, Label: UnknownPeriodLabel}
		ee.Missing = append(ee.Missing, ColTimeSlots)
	}
	return ee
}

// EnrichEntries enriches every entry; entries with dangling references are
// kept, marked degraded.
func (s *Store) EnrichEntries(entries []Entry) []EnrichedEntry {
	enriched := make([]EnrichedEntry, 0, len(entries))
	for _, e := range entries {
		enriched = append(enriched, s.EnrichEntry(e))
	}
	return enriched
}

// Conflict detection. Double-booking is a desired-absent property, not a hard
// invariant: it is flagged on demand, never rejected at write time, because a
// human may need to record an inconsistent state mid-edit.

type ConflictKind string

const (
	TeacherConflict ConflictKind = "teacher"
	RoomConflict    ConflictKind = "room"
)

// Conflict is a group of entries double-booking a teacher or a room within
// the same (day, slot).
type Conflict struct {
	Kind       ConflictKind `json:"kind"`
	Day        Weekday      `json:"dayOfWeek"`
	TimeSlotID string       `json:"timeSlotId"`
	Key        string       `json:"key"` // the conflicting teacher id or room number
	Entries    []Entry      `json:"entries"`
}

type conflictKey struct {
	day        Weekday
	timeSlotID string
	key        string
}

// DetectConflicts groups entries by (day, slot, teacher) and by
// (day, slot, room); any group with more than one member is a conflict.
// Entries with no room set cannot room-conflict.
func DetectConflicts(entries []Entry) []Conflict {
	byTeacher := make(map[conflictKey][]Entry)
	byRoom := make(map[conflictKey][]Entry)

	for _, e := range entries {
		if e.TeacherID != "" {
			k := conflictKey{e.Day, e.TimeSlotID, e.TeacherID}
			byTeacher[k] = append(byTeacher[k], e)
		}
		if e.Room.Valid && e.Room.String != "" {
			k := conflictKey{e.Day, e.TimeSlotID, e.Room.String}
			byRoom[k] = append(byRoom[k], e)
		}
	}

	var conflicts []Conflict
	conflicts = append(conflicts, collectConflicts(TeacherConflict, byTeacher)...)
	conflicts = append(conflicts, collectConflicts(RoomConflict, byRoom)...)
	sort.Slice(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.TimeSlotID != b.TimeSlotID {
			return a.TimeSlotID < b.TimeSlotID
		}
		return a.Key < b.Key
	})
	return conflicts
}

func collectConflicts(kind ConflictKind, groups map[conflictKey][]Entry) []Conflict {
	var conflicts []Conflict
	for k, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		conflicts = append(conflicts, Conflict{
			Kind:       kind,
			Day:        k.day,
			TimeSlotID: k.timeSlotID,
			Key:        k.key,
			Entries:    group,
		})
	}
	return conflicts
}
