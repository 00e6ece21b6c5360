package timetable

import "github.com/volatiletech/null/v8"

// shared fixtures

func slotFixtures() []TimeSlot {
	return []TimeSlot{
		{ID: "ts1", PeriodNumber: 1, Label: "08:00 - 08:45", Start: MustParseClock("08:00"), End: MustParseClock("08:45")},
		{ID: "ts2", PeriodNumber: 2, Label: "08:45 - 09:30", Start: MustParseClock("08:45"), End: MustParseClock("09:30")},
		{ID: "ts3", PeriodNumber: 3, Label: "10:00 - 10:45", Start: MustParseClock("10:00"), End: MustParseClock("10:45")},
	}
}

func entryFixture(id, gradeID, subjectID, teacherID, slotID string, day Weekday) Entry {
	return Entry{
		ID:         id,
		GradeID:    gradeID,
		SubjectID:  subjectID,
		TeacherID:  teacherID,
		TimeSlotID: slotID,
		Day:        day,
	}
}

func roomEntry(id, gradeID, teacherID, slotID, room string, day Weekday) Entry {
	e := entryFixture(id, gradeID, "sub1", teacherID, slotID, day)
	e.Room = null.StringFrom(room)
	return e
}

func newTestStore() *Store {
	s := NewStore()
	s.SetTimeSlots(slotFixtures())
	s.SetSubjects([]Subject{
		{ID: "sub1", Name: "Mathematics"},
		{ID: "sub2", Name: "English"},
	})
	s.SetTeachers([]Teacher{
		{ID: "t1", Name: "Alice Banda", Subjects: []string{"Mathematics"}},
		{ID: "t2", Name: "John Kasongo", Subjects: []string{"English"}},
	})
	s.SetGrades([]Grade{
		{ID: "g1", Name: "Grade 1", Level: 1},
		{ID: "g2", Name: "Grade 2", Level: 2},
	})
	return s
}
