package timetable

// Week-grid assembly: lessons interleaved with the schedule-wide breaks, the
// shape the UI renders directly.

type RowKind string

const (
	LessonRow RowKind = "lesson"
	BreakRow  RowKind = "break"
)

// ScheduleRow is one row of a day's grid: either a period (with its enriched
// entry, nil for a free period) or a break following the previous period.
type ScheduleRow struct {
	Kind  RowKind        `json:"kind"`
	Slot  *TimeSlot      `json:"timeSlot,omitempty"`
	Entry *EnrichedEntry `json:"entry,omitempty"`
	Break *Break         `json:"break,omitempty"`
}

type DaySchedule struct {
	Day  Weekday       `json:"dayOfWeek"`
	Rows []ScheduleRow `json:"rows"`
}

// WeekSchedule assembles the Monday-Friday grid for one grade: every
// configured period in order, each holding the grade's entry when one exists,
// with the day's breaks inserted after the periods they follow.
func (s *Store) WeekSchedule(gradeID string) []DaySchedule {
	slots := s.TimeSlots()
	entries := s.EnrichEntries(s.EntriesForGrade(gradeID))

	entryAt := make(map[slotKey]*EnrichedEntry, len(entries))
	for i := range entries {
		entryAt[entries[i].key()] = &entries[i]
	}

	week := make([]DaySchedule, 0, 5)
	for day := Monday; day <= Friday; day++ {
		breaks := s.BreaksForDay(day)

		rows := make([]ScheduleRow, 0, len(slots)+len(breaks))
		for i := range slots {
			slot := slots[i]
			rows = append(rows, ScheduleRow{
				Kind:  LessonRow,
				Slot:  &slot,
				Entry: entryAt[slotKey{gradeID, day, slot.ID}],
			})
			for j := range breaks {
				if breaks[j].AfterPeriod == slot.PeriodNumber {
					rows = append(rows, ScheduleRow{Kind: BreakRow, Break: &breaks[j]})
				}
			}
		}
		week = append(week, DaySchedule{Day: day, Rows: rows})
	}
	return week
}
