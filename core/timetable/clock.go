package timetable

import "time"

// Period-time engine: maps a wall-clock moment to the active period and the
// next scheduled lesson without any server round trip. All queries are
// answered from the store's last-known-good snapshot.

// LessonRef scopes lesson queries to the caller's context: a grade dashboard
// sets GradeID, a teacher dashboard sets TeacherID. Exactly one should be set.
type LessonRef struct {
	GradeID   string
	TeacherID string
}

func (ref LessonRef) matches(e Entry) bool {
	if ref.GradeID != "" {
		return e.GradeID == ref.GradeID
	}
	if ref.TeacherID != "" {
		return e.TeacherID == ref.TeacherID
	}
	return false
}

// CurrentLesson is the answer to "what is happening right now": the active
// period and, when one exists, the entry scheduled in it. A nil Entry during
// an active period is a free period, which is distinct from being outside
// school hours (no CurrentLesson at all).
type CurrentLesson struct {
	Slot  TimeSlot
	Entry *Entry // nil: free period
}

// UpcomingLesson is the next scheduled lesson for a LessonRef, possibly
// rolled over onto the next school day.
type UpcomingLesson struct {
	Entry        Entry
	Slot         TimeSlot
	Day          Weekday
	NextDay      bool // rolled over past the end of today's schedule
	MinutesUntil int  // may be momentarily negative at the transition boundary
}

// ClampedMinutesUntil never reports a negative countdown; at the exact
// transition boundary the raw value can briefly dip below zero.
func (u UpcomingLesson) ClampedMinutesUntil() int {
	if u.MinutesUntil < 0 {
		return 0
	}
	return u.MinutesUntil
}

// currentSlot scans slots (sorted by period number) for the one containing
// minute m. Slots are invariant-guaranteed non-overlapping so at most one
// matches; the boundary minute belongs to the slot that is starting.
func currentSlot(slots []TimeSlot, m ClockMinutes) (TimeSlot, bool) {
	for _, ts := range slots {
		if ts.Contains(m) {
			return ts, true
		}
	}
	return TimeSlot{}, false
}

// CurrentPeriod returns the time slot containing now's wall-clock minute.
// ok is false outside school hours, on weekends, and when no slots are
// configured at all.
func (s *Store) CurrentPeriod(now time.Time) (TimeSlot, bool) {
	if _, ok := SchoolDayOf(now); !ok {
		return TimeSlot{}, false
	}
	return currentSlot(s.TimeSlots(), ClockOf(now))
}

// CurrentLesson resolves the active period and the ref's entry in it.
// ok is false outside school hours; an ok result with a nil Entry is a free
// period.
func (s *Store) CurrentLesson(ref LessonRef, now time.Time) (CurrentLesson, bool) {
	day, ok := SchoolDayOf(now)
	if !ok {
		return CurrentLesson{}, false
	}
	slot, ok := currentSlot(s.TimeSlots(), ClockOf(now))
	if !ok {
		return CurrentLesson{}, false
	}

	cur := CurrentLesson{Slot: slot}
	for _, e := range s.entriesOn(day, ref) {
		if e.TimeSlotID == slot.ID {
			entry := e
			cur.Entry = &entry
			break
		}
	}
	return cur, true
}

// NextLesson finds the next scheduled lesson for ref: first among the periods
// remaining today, then on the next school day (Friday rolls over to Monday).
// Returns nil when neither holds a matching entry, and on weekends.
func (s *Store) NextLesson(ref LessonRef, now time.Time) *UpcomingLesson {
	day, ok := SchoolDayOf(now)
	if !ok {
		return nil
	}

	slots := s.TimeSlots()
	if len(slots) == 0 {
		return nil
	}
	nowMin := ClockOf(now)

	// remaining periods today, in period-number order
	for _, slot := range slots {
		if slot.Start <= nowMin {
			continue
		}
		if e, ok := s.entryInSlot(day, slot.ID, ref); ok {
			return &UpcomingLesson{
				Entry:        e,
				Slot:         slot,
				Day:          day,
				MinutesUntil: int(slot.Start - nowMin),
			}
		}
	}

	// roll over into the next school day
	next := day.NextSchoolDay()
	for _, slot := range slots {
		if e, ok := s.entryInSlot(next, slot.ID, ref); ok {
			return &UpcomingLesson{
				Entry:        e,
				Slot:         slot,
				Day:          next,
				NextDay:      true,
				MinutesUntil: daysUntil(day, next)*minutesPerDay + int(slot.Start-nowMin),
			}
		}
	}
	return nil
}

// RemainingMinutes reports the minutes left in the current period, clamped to
// a minimum of 0. Outside school hours it is 0.
func (s *Store) RemainingMinutes(now time.Time) int {
	slot, ok := s.CurrentPeriod(now)
	if !ok {
		return 0
	}
	if left := int(slot.End - ClockOf(now)); left > 0 {
		return left
	}
	return 0
}

// ElapsedMinutes reports the minutes spent in the current period, clamped to
// a minimum of 0. Outside school hours it is 0.
func (s *Store) ElapsedMinutes(now time.Time) int {
	slot, ok := s.CurrentPeriod(now)
	if !ok {
		return 0
	}
	if spent := int(ClockOf(now) - slot.Start); spent > 0 {
		return spent
	}
	return 0
}

// entriesOn returns ref's entries on the given day.
func (s *Store) entriesOn(day Weekday, ref LessonRef) []Entry {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.queryEntries(func(e Entry) bool { return e.Day == day && ref.matches(e) })
}

func (s *Store) entryInSlot(day Weekday, timeSlotID string, ref LessonRef) (Entry, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, e := range s.entries {
		if e.Day == day && e.TimeSlotID == timeSlotID && ref.matches(*e) {
			return *e, true
		}
	}
	return Entry{}, false
}
