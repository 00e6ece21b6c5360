package timetable

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// Store is the normalized in-memory schedule aggregate: six collections kept
// consistent under foreign-key changes. All mutation goes through named
// methods so the invariants stay enforceable at the boundary; the underlying
// collections are never handed out, only copies.
type Store struct {
	mutex sync.RWMutex

	teachers  map[string]*Teacher
	grades    map[string]*Grade
	subjects  map[string]*Subject
	timeSlots map[string]*TimeSlot
	breaks    map[string]*Break
	entries   map[string]*Entry

	states      map[Collection]CollectionState
	lastUpdated time.Time

	nowFunc func() time.Time // mockable
}

func NewStore() *Store {
	return &Store{
		teachers:  make(map[string]*Teacher),
		grades:    make(map[string]*Grade),
		subjects:  make(map[string]*Subject),
		timeSlots: make(map[string]*TimeSlot),
		breaks:    make(map[string]*Break),
		entries:   make(map[string]*Entry),
		states:    make(map[Collection]CollectionState),
		nowFunc:   time.Now,
	}
}

// touch must be called with the write lock held.
func (s *Store) touch() {
	s.lastUpdated = s.nowFunc().UTC()
}

// LastUpdated is bumped by every mutating operation; consumers use it to
// detect staleness without deep comparison.
func (s *Store) LastUpdated() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastUpdated
}

func (s *Store) State(col Collection) CollectionState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.states[col]
}

// Entries

// AddEntry assigns a locally-unique identifier and appends to the entries
// collection. The (grade, day, slot) uniqueness invariant is enforced here:
// the store never silently overwrites, it is on the caller to resolve the
// existing entry first.
func (s *Store) AddEntry(ne NewEntry) (Entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e := Entry{
		ID:           "local-" + uuid.New().String(),
		GradeID:      ne.GradeID,
		SubjectID:    ne.SubjectID,
		TeacherID:    ne.TeacherID,
		TimeSlotID:   ne.TimeSlotID,
		Day:          ne.Day,
		Room:         ne.Room,
		DoublePeriod: ne.DoublePeriod,
		Notes:        ne.Notes,
	}
	if s.entryAt(e.key()) != nil {
		return Entry{}, ErrDuplicateEntry
	}
	s.entries[e.ID] = &e
	s.touch()
	return e, nil
}

// UpsertEntry installs an entry carrying an authoritative (remote-assigned)
// identifier, replacing any previous occupant of its (grade, day, slot).
func (s *Store) UpsertEntry(e Entry) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if prev := s.entryAt(e.key()); prev != nil && prev.ID != e.ID {
		delete(s.entries, prev.ID)
	}
	cp := e
	s.entries[e.ID] = &cp
	s.touch()
}

// UpdateEntry merges the set fields of ue into the stored entry; referential
// keys only change when explicitly included. Moving an entry onto an occupied
// (grade, day, slot) is rejected.
func (s *Store) UpdateEntry(id string, ue UpdateEntry) (Entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}

	merged := *e
	if ue.GradeID != nil {
		merged.GradeID = *ue.GradeID
	}
	if ue.SubjectID != nil {
		merged.SubjectID = *ue.SubjectID
	}
	if ue.TeacherID != nil {
		merged.TeacherID = *ue.TeacherID
	}
	if ue.TimeSlotID != nil {
		merged.TimeSlotID = *ue.TimeSlotID
	}
	if ue.Day != nil {
		merged.Day = *ue.Day
	}
	if ue.Room.Valid {
		merged.Room = ue.Room
	}
	if ue.DoublePeriod != nil {
		merged.DoublePeriod = *ue.DoublePeriod
	}
	if ue.Notes.Valid {
		merged.Notes = ue.Notes
	}

	if merged.key() != e.key() {
		if occ := s.entryAt(merged.key()); occ != nil && occ.ID != id {
			return Entry{}, ErrDuplicateEntry
		}
	}
	*e = merged
	s.touch()
	return merged, nil
}

// DeleteEntry removes by identifier; deleting an absent id is a no-op.
func (s *Store) DeleteEntry(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.entries[id]; !ok {
		return
	}
	delete(s.entries, id)
	s.touch()
}

// entryAt must be called with (at least) the read lock held.
func (s *Store) entryAt(key slotKey) *Entry {
	for _, e := range s.entries {
		if e.key() == key {
			return e
		}
	}
	return nil
}

// EntryAt returns the entry occupying the (grade, day, slot) triple, if any.
func (s *Store) EntryAt(gradeID string, day Weekday, timeSlotID string) (Entry, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if e := s.entryAt(slotKey{gradeID, day, timeSlotID}); e != nil {
		return *e, true
	}
	return Entry{}, false
}

func (s *Store) Entries() []Entry {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.queryEntries(func(Entry) bool { return true })
}

func (s *Store) EntriesForGrade(gradeID string) []Entry {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.queryEntries(func(e Entry) bool { return e.GradeID == gradeID })
}

func (s *Store) EntriesForTeacher(teacherID string) []Entry {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.queryEntries(func(e Entry) bool { return e.TeacherID == teacherID })
}

// queryEntries must be called with (at least) the read lock held.
// Results are ordered by (day, period, grade) for deterministic output.
func (s *Store) queryEntries(match func(Entry) bool) []Entry {
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if match(*e) {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		pa, pb := s.periodOf(a.TimeSlotID), s.periodOf(b.TimeSlotID)
		if pa != pb {
			return pa < pb
		}
		return a.GradeID < b.GradeID
	})
	return entries
}

// periodOf must be called with (at least) the read lock held.
func (s *Store) periodOf(timeSlotID string) int {
	if ts, ok := s.timeSlots[timeSlotID]; ok {
		return ts.PeriodNumber
	}
	return 0
}

// MergeEntriesForGrade replaces one grade's entries with the given set,
// leaving every other grade's entries untouched. This is the install step of
// the scoped entry load.
func (s *Store) MergeEntriesForGrade(gradeID string, entries []Entry) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, e := range s.entries {
		if e.GradeID == gradeID {
			delete(s.entries, id)
		}
	}
	for _, e := range entries {
		if e.GradeID != gradeID { // scoped: never touch another grade's rows
			continue
		}
		cp := e
		s.entries[e.ID] = &cp
	}
	s.states[ColEntries] = StateLoaded
	s.touch()
}

// Time slots

func (s *Store) TimeSlots() []TimeSlot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.sortedSlots()
}

// sortedSlots must be called with (at least) the read lock held.
func (s *Store) sortedSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, len(s.timeSlots))
	for _, ts := range s.timeSlots {
		slots = append(slots, *ts)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].PeriodNumber < slots[j].PeriodNumber })
	return slots
}

func (s *Store) TimeSlot(id string) (TimeSlot, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if ts, ok := s.timeSlots[id]; ok {
		return *ts, true
	}
	return TimeSlot{}, false
}

func (s *Store) SetTimeSlots(slots []TimeSlot) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeSlots = make(map[string]*TimeSlot, len(slots))
	for _, ts := range slots {
		cp := ts
		s.timeSlots[ts.ID] = &cp
	}
	s.states[ColTimeSlots] = StateLoaded
	s.touch()
}

func (s *Store) UpdateTimeSlot(id string, uts UpdateTimeSlot) (TimeSlot, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ts, ok := s.timeSlots[id]
	if !ok {
		return TimeSlot{}, ErrNotFound
	}

	// merge into a copy so a failed parse or an inverted range leaves the
	// stored slot untouched
	merged := *ts
	if uts.PeriodNumber != nil {
		merged.PeriodNumber = *uts.PeriodNumber
	}
	if uts.Label != nil {
		merged.Label = *uts.Label
	}
	if uts.StartTime != nil {
		start, err := ParseClock(*uts.StartTime)
		if err != nil {
			return TimeSlot{}, err
		}
		merged.Start = start
	}
	if uts.EndTime != nil {
		end, err := ParseClock(*uts.EndTime)
		if err != nil {
			return TimeSlot{}, err
		}
		merged.End = end
	}
	if uts.Color.Valid {
		merged.Color = uts.Color
	}
	// a single-sided time update is checked against the stored counterpart
	if merged.Start >= merged.End {
		return TimeSlot{}, core.NewValidationError(errors.New(errStartNotBeforeEnd),
			core.FieldError{Field: "startTime", Error: errStartNotBeforeEnd})
	}

	*ts = merged
	s.touch()
	return merged, nil
}

// DeleteTimeSlot removes the slot and cascades to every entry referencing it,
// preventing dangling references. Idempotent.
func (s *Store) DeleteTimeSlot(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.timeSlots[id]; !ok {
		return
	}
	delete(s.timeSlots, id)
	for eid, e := range s.entries {
		if e.TimeSlotID == id {
			delete(s.entries, eid)
		}
	}
	s.touch()
}

// Breaks

func (s *Store) Breaks() []Break {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	breaks := make([]Break, 0, len(s.breaks))
	for _, b := range s.breaks {
		breaks = append(breaks, *b)
	}
	sort.Slice(breaks, func(i, j int) bool {
		if breaks[i].Day != breaks[j].Day {
			return breaks[i].Day < breaks[j].Day
		}
		return breaks[i].AfterPeriod < breaks[j].AfterPeriod
	})
	return breaks
}

func (s *Store) BreaksForDay(day Weekday) []Break {
	all := s.Breaks()
	breaks := all[:0]
	for _, b := range all {
		if b.Day == day {
			breaks = append(breaks, b)
		}
	}
	return breaks
}

func (s *Store) SetBreaks(breaks []Break) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.breaks = make(map[string]*Break, len(breaks))
	for _, b := range breaks {
		cp := b
		s.breaks[b.ID] = &cp
	}
	s.states[ColBreaks] = StateLoaded
	s.touch()
}

func (s *Store) AddBreak(b Break) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if b.ID == "" {
		b.ID = "local-" + uuid.New().String()
	}
	cp := b
	s.breaks[b.ID] = &cp
	s.touch()
}

func (s *Store) UpdateBreak(id string, ub UpdateBreak) (Break, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, ok := s.breaks[id]
	if !ok {
		return Break{}, ErrNotFound
	}
	if ub.Name != nil {
		b.Name = *ub.Name
	}
	if ub.Type != nil {
		b.Type = *ub.Type
	}
	if ub.Day != nil {
		b.Day = *ub.Day
	}
	if ub.AfterPeriod != nil {
		b.AfterPeriod = *ub.AfterPeriod
	}
	if ub.Duration != nil {
		b.Duration = *ub.Duration
	}
	if ub.Icon.Valid {
		b.Icon = ub.Icon
	}
	if ub.Color.Valid {
		b.Color = ub.Color
	}
	s.touch()
	return *b, nil
}

func (s *Store) DeleteBreak(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.breaks[id]; !ok {
		return
	}
	delete(s.breaks, id)
	s.touch()
}

func (s *Store) DeleteAllBreaks() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.breaks) == 0 {
		return
	}
	s.breaks = make(map[string]*Break)
	s.touch()
}

// BulkSetSchedule replaces the TimeSlot and Break collections wholesale.
// Slot identifiers are not guaranteed stable across a re-configuration, so
// all entries are cleared too: stale foreign keys are worse than an empty
// schedule.
func (s *Store) BulkSetSchedule(slots []TimeSlot, breaks []Break) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeSlots = make(map[string]*TimeSlot, len(slots))
	for _, ts := range slots {
		cp := ts
		s.timeSlots[ts.ID] = &cp
	}
	s.breaks = make(map[string]*Break, len(breaks))
	for _, b := range breaks {
		cp := b
		s.breaks[b.ID] = &cp
	}
	s.entries = make(map[string]*Entry)
	s.states[ColTimeSlots] = StateLoaded
	s.states[ColBreaks] = StateLoaded
	s.touch()
}

// Reference collections (read-only in this subsystem)

func (s *Store) Teachers() []Teacher {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	teachers := make([]Teacher, 0, len(s.teachers))
	for _, t := range s.teachers {
		teachers = append(teachers, *t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	return teachers
}

func (s *Store) Teacher(id string) (Teacher, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if t, ok := s.teachers[id]; ok {
		return *t, true
	}
	return Teacher{}, false
}

func (s *Store) SetTeachers(teachers []Teacher) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.teachers = make(map[string]*Teacher, len(teachers))
	for _, t := range teachers {
		cp := t
		s.teachers[t.ID] = &cp
	}
	s.states[ColTeachers] = StateLoaded
	s.touch()
}

func (s *Store) Grades() []Grade {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	grades := make([]Grade, 0, len(s.grades))
	for _, g := range s.grades {
		grades = append(grades, *g)
	}
	sort.Slice(grades, func(i, j int) bool {
		if grades[i].Level != grades[j].Level {
			return grades[i].Level < grades[j].Level
		}
		return grades[i].Name < grades[j].Name
	})
	return grades
}

func (s *Store) Grade(id string) (Grade, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if g, ok := s.grades[id]; ok {
		return *g, true
	}
	return Grade{}, false
}

func (s *Store) SetGrades(grades []Grade) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.grades = make(map[string]*Grade, len(grades))
	for _, g := range grades {
		cp := g
		s.grades[g.ID] = &cp
	}
	s.states[ColGrades] = StateLoaded
	s.touch()
}

func (s *Store) Subjects() []Subject {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	subjects := make([]Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		subjects = append(subjects, *sub)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects
}

func (s *Store) Subject(id string) (Subject, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if sub, ok := s.subjects[id]; ok {
		return *sub, true
	}
	return Subject{}, false
}

func (s *Store) SetSubjects(subjects []Subject) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.subjects = make(map[string]*Subject, len(subjects))
	for _, sub := range subjects {
		cp := sub
		s.subjects[sub.ID] = &cp
	}
	s.states[ColSubjects] = StateLoaded
	s.touch()
}

// MarkUnsupported records that the deployment does not implement the
// operation backing col; the collection reads as empty but not broken.
func (s *Store) MarkUnsupported(col Collection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch col {
	case ColTeachers:
		s.teachers = make(map[string]*Teacher)
	case ColGrades:
		s.grades = make(map[string]*Grade)
	case ColSubjects:
		s.subjects = make(map[string]*Subject)
	case ColTimeSlots:
		s.timeSlots = make(map[string]*TimeSlot)
	case ColBreaks:
		s.breaks = make(map[string]*Break)
	case ColEntries:
		s.entries = make(map[string]*Entry)
	}
	s.states[col] = StateUnsupported
	s.touch()
}
