package timetable

import (
	"testing"
	"time"
)

// 2021-03-01 is a Monday; 2021-03-05 a Friday; 2021-03-06 a Saturday.
func at(day, hour, min int) time.Time {
	return time.Date(2021, 3, day, hour, min, 0, 0, time.UTC)
}

func TestCurrentPeriod(t *testing.T) {
	s := newTestStore()

	tests := []struct {
		name   string
		now    time.Time
		wantID string
		wantOk bool
	}{
		{name: "before school", now: at(1, 7, 0)},
		{name: "inside P1", now: at(1, 8, 20), wantID: "ts1", wantOk: true},
		{name: "last minute of P1", now: at(1, 8, 44), wantID: "ts1", wantOk: true},
		// the boundary minute belongs to the slot that is starting
		{name: "boundary minute", now: at(1, 8, 45), wantID: "ts2", wantOk: true},
		{name: "gap between P2 and P3", now: at(1, 9, 45)},
		{name: "inside P3", now: at(1, 10, 15), wantID: "ts3", wantOk: true},
		{name: "after school", now: at(1, 16, 0)},
		{name: "saturday", now: at(6, 8, 20)},
		{name: "sunday", now: at(7, 8, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, ok := s.CurrentPeriod(tt.now)
			if ok != tt.wantOk {
				t.Fatalf("CurrentPeriod() ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && slot.ID != tt.wantID {
				t.Errorf("CurrentPeriod() = %s, want %s", slot.ID, tt.wantID)
			}
		})
	}
}

func TestCurrentPeriodNoSlotsConfigured(t *testing.T) {
	s := NewStore()
	if _, ok := s.CurrentPeriod(at(1, 8, 20)); ok {
		t.Error("CurrentPeriod() = ok with no slots configured")
	}
}

func TestCurrentLessonDistinguishesFreePeriodFromOutsideHours(t *testing.T) {
	s := newTestStore()
	s.UpsertEntry(entryFixture("e1", "g1", "sub1", "t1", "ts1", Monday))
	ref := LessonRef{GradeID: "g1"}

	// scheduled lesson
	cur, ok := s.CurrentLesson(ref, at(1, 8, 20))
	if !ok {
		t.Fatal("CurrentLesson() not ok during P1")
	}
	if cur.Entry == nil || cur.Entry.ID != "e1" {
		t.Errorf("CurrentLesson().Entry = %+v, want e1", cur.Entry)
	}

	// free period: P2 has no entry for g1, but school is in session
	cur, ok = s.CurrentLesson(ref, at(1, 9, 0))
	if !ok {
		t.Fatal("CurrentLesson() not ok during a free period")
	}
	if cur.Entry != nil {
		t.Errorf("CurrentLesson().Entry = %+v during free period, want nil", cur.Entry)
	}
	if cur.Slot.ID != "ts2" {
		t.Errorf("CurrentLesson().Slot = %s, want ts2", cur.Slot.ID)
	}

	// outside school hours: no CurrentLesson at all
	if _, ok = s.CurrentLesson(ref, at(1, 17, 0)); ok {
		t.Error("CurrentLesson() ok outside school hours")
	}
	// weekend short-circuit
	if _, ok = s.CurrentLesson(ref, at(6, 8, 20)); ok {
		t.Error("CurrentLesson() ok on a Saturday")
	}
}

func TestCurrentLessonForTeacher(t *testing.T) {
	s := newTestStore()
	s.UpsertEntry(entryFixture("e1", "g1", "sub1", "t1", "ts1", Monday))

	cur, ok := s.CurrentLesson(LessonRef{TeacherID: "t1"}, at(1, 8, 20))
	if !ok || cur.Entry == nil || cur.Entry.ID != "e1" {
		t.Errorf("CurrentLesson(teacher) = %+v ok=%v, want e1", cur.Entry, ok)
	}
	if cur, _ = s.CurrentLesson(LessonRef{TeacherID: "t2"}, at(1, 8, 20)); cur.Entry != nil {
		t.Errorf("CurrentLesson(other teacher).Entry = %+v, want nil", cur.Entry)
	}
}

func TestNextLessonToday(t *testing.T) {
	s := newTestStore()
	s.UpsertEntry(entryFixture("e1", "g1", "sub1", "t1", "ts1", Monday))
	s.UpsertEntry(entryFixture("e3", "g1", "sub2", "t2", "ts3", Monday))
	ref := LessonRef{GradeID: "g1"}

	// during P1, the next lesson is P3 (P2 is free)
	next := s.NextLesson(ref, at(1, 8, 20))
	if next == nil {
		t.Fatal("NextLesson() = nil")
	}
	if next.Entry.ID != "e3" || next.NextDay {
		t.Errorf("NextLesson() = %s nextDay=%v, want e3 today", next.Entry.ID, next.NextDay)
	}
	// 08:20 -> 10:00
	if next.MinutesUntil != 100 {
		t.Errorf("MinutesUntil = %d, want 100", next.MinutesUntil)
	}
}

func TestNextLessonRollover(t *testing.T) {
	s := newTestStore()
	ref := LessonRef{GradeID: "g1"}

	// Friday 16:00, nothing on Monday: no next lesson
	if next := s.NextLesson(ref, at(5, 16, 0)); next != nil {
		t.Errorf("NextLesson() = %+v, want nil with an empty week ahead", next)
	}

	// add Monday/P1 Math: Friday 16:00 rolls over to it
	s.UpsertEntry(entryFixture("mon1", "g1", "sub1", "t1", "ts1", Monday))
	next := s.NextLesson(ref, at(5, 16, 0))
	if next == nil {
		t.Fatal("NextLesson() = nil, want Monday rollover")
	}
	if !next.NextDay || next.Day != Monday || next.Entry.ID != "mon1" {
		t.Errorf("NextLesson() = %+v, want mon1 on Monday via rollover", next)
	}
	// Friday 16:00 -> Monday 08:00 = 3 days * 1440 - 480 minutes
	if want := 3*minutesPerDay - 480; next.MinutesUntil != want {
		t.Errorf("MinutesUntil = %d, want %d", next.MinutesUntil, want)
	}
}

func TestNextLessonWeekend(t *testing.T) {
	s := newTestStore()
	s.UpsertEntry(entryFixture("mon1", "g1", "sub1", "t1", "ts1", Monday))

	if next := s.NextLesson(LessonRef{GradeID: "g1"}, at(6, 10, 0)); next != nil {
		t.Errorf("NextLesson(saturday) = %+v, want nil", next)
	}
	if next := s.NextLesson(LessonRef{GradeID: "g1"}, at(7, 10, 0)); next != nil {
		t.Errorf("NextLesson(sunday) = %+v, want nil", next)
	}
}

func TestNextLessonNoSlots(t *testing.T) {
	s := NewStore()
	if next := s.NextLesson(LessonRef{GradeID: "g1"}, at(1, 8, 0)); next != nil {
		t.Errorf("NextLesson() = %+v with no slots, want nil", next)
	}
}

func TestClampedMinutesUntil(t *testing.T) {
	u := UpcomingLesson{MinutesUntil: -1}
	if got := u.ClampedMinutesUntil(); got != 0 {
		t.Errorf("ClampedMinutesUntil() = %d, want 0", got)
	}
	u.MinutesUntil = 42
	if got := u.ClampedMinutesUntil(); got != 42 {
		t.Errorf("ClampedMinutesUntil() = %d, want 42", got)
	}
}

func TestRemainingAndElapsedMinutes(t *testing.T) {
	s := newTestStore()

	tests := []struct {
		name          string
		now           time.Time
		wantRemaining int
		wantElapsed   int
	}{
		{name: "start of P1", now: at(1, 8, 0), wantRemaining: 45, wantElapsed: 0},
		{name: "mid P1", now: at(1, 8, 20), wantRemaining: 25, wantElapsed: 20},
		{name: "last minute of P1", now: at(1, 8, 44), wantRemaining: 1, wantElapsed: 44},
		{name: "outside hours", now: at(1, 7, 0), wantRemaining: 0, wantElapsed: 0},
		{name: "weekend", now: at(6, 8, 20), wantRemaining: 0, wantElapsed: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.RemainingMinutes(tt.now); got != tt.wantRemaining {
				t.Errorf("RemainingMinutes() = %d, want %d", got, tt.wantRemaining)
			}
			if got := s.ElapsedMinutes(tt.now); got != tt.wantElapsed {
				t.Errorf("ElapsedMinutes() = %d, want %d", got, tt.wantElapsed)
			}
		})
	}
}
