package rpcrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/timetable"
)

type timetableRepository struct {
	client *Client
}

func NewTimetableRepository(client *Client) timetable.Repository {
	return &timetableRepository{client: client}
}

// Wire shapes. Clock times travel as "HH:MM" strings and break days are
// 0-indexed on the wire; both are converted here, once, at the boundary.

type (
	slotPayload struct {
		ID           string      `json:"id"`
		PeriodNumber int         `json:"periodNumber"`
		DisplayTime  string      `json:"displayTime"`
		StartTime    string      `json:"startTime"`
		EndTime      string      `json:"endTime"`
		Color        null.String `json:"color"`
	}

	breakPayload struct {
		ID              string      `json:"id"`
		Name            string      `json:"name"`
		Type            string      `json:"type"`
		DayOfWeek       int         `json:"dayOfWeek"` // 0-indexed: 0=Monday
		AfterPeriod     int         `json:"afterPeriod"`
		DurationMinutes int         `json:"durationMinutes"`
		Icon            null.String `json:"icon"`
		Color           null.String `json:"color"`
	}

	teacherPayload struct {
		ID   string `json:"id"`
		User struct {
			Name      string      `json:"name"`
			FirstName string      `json:"firstName"`
			LastName  string      `json:"lastName"`
			Email     null.String `json:"email"`
		} `json:"user"`
		TenantSubjects    []string    `json:"tenantSubjects"`
		TenantGradeLevels []string    `json:"tenantGradeLevels"`
		Color             null.String `json:"color"`
	}

	gradePayload struct {
		ID     string      `json:"id"`
		Name   string      `json:"name"`
		Level  int         `json:"level"`
		Abbrev null.String `json:"abbrev"`
	}

	subjectPayload struct {
		ID         string      `json:"id"`
		Name       string      `json:"name"`
		Code       null.String `json:"code"`
		Color      null.String `json:"color"`
		Department null.String `json:"department"`
	}

	entryPayload struct {
		ID           string      `json:"id"`
		GradeID      string      `json:"gradeId"`
		SubjectID    string      `json:"subjectId"`
		TeacherID    string      `json:"teacherId"`
		TimeSlotID   string      `json:"timeSlotId"`
		DayOfWeek    int         `json:"dayOfWeek"`
		RoomNumber   null.String `json:"roomNumber"`
		DoublePeriod bool        `json:"doublePeriod"`
		Notes        null.String `json:"notes"`
		// nested objects also arrive here; the flat foreign keys above are
		// authoritative so the nesting is ignored.
	}
)

func (p slotPayload) toSlot() (timetable.TimeSlot, error) {
	start, err := timetable.ParseClock(p.StartTime)
	if err != nil {
		return timetable.TimeSlot{}, errors.Wrapf(err, "slot %s", p.ID)
	}
	end, err := timetable.ParseClock(p.EndTime)
	if err != nil {
		return timetable.TimeSlot{}, errors.Wrapf(err, "slot %s", p.ID)
	}
	label := p.DisplayTime
	if label == "" {
		label = start.String() + " - " + end.String()
	}
	return timetable.TimeSlot{
		ID:           p.ID,
		PeriodNumber: p.PeriodNumber,
		Label:        label,
		Start:        start,
		End:          end,
		Color:        p.Color,
	}, nil
}

func (p breakPayload) toBreak() timetable.Break {
	return timetable.Break{
		ID:          p.ID,
		Name:        p.Name,
		Type:        timetable.BreakType(p.Type),
		Day:         timetable.Weekday(p.DayOfWeek + 1), // wire is 0-indexed
		AfterPeriod: p.AfterPeriod,
		Duration:    p.DurationMinutes,
		Icon:        p.Icon,
		Color:       p.Color,
	}
}

func (p teacherPayload) toTeacher() timetable.Teacher {
	return timetable.Teacher{
		ID:          p.ID,
		FirstName:   p.User.FirstName,
		LastName:    p.User.LastName,
		Name:        p.User.Name,
		Email:       p.User.Email,
		Subjects:    p.TenantSubjects,
		GradeLevels: p.TenantGradeLevels,
		Color:       p.Color,
	}
}

func (p entryPayload) toEntry() timetable.Entry {
	return timetable.Entry{
		ID:           p.ID,
		GradeID:      p.GradeID,
		SubjectID:    p.SubjectID,
		TeacherID:    p.TeacherID,
		TimeSlotID:   p.TimeSlotID,
		Day:          timetable.Weekday(p.DayOfWeek),
		Room:         p.RoomNumber,
		DoublePeriod: p.DoublePeriod,
		Notes:        p.Notes,
	}
}

// Loads

func (repo *timetableRepository) FetchTeachers(ctx context.Context) ([]timetable.Teacher, error) {
	var data struct {
		Teachers []teacherPayload `json:"teachers"`
	}
	if err := repo.client.request(ctx, "getTeachers", nil, &data); err != nil {
		return nil, err
	}
	teachers := make([]timetable.Teacher, 0, len(data.Teachers))
	for _, p := range data.Teachers {
		teachers = append(teachers, p.toTeacher())
	}
	return teachers, nil
}

func (repo *timetableRepository) FetchGrades(ctx context.Context) ([]timetable.Grade, error) {
	var data struct {
		Grades []gradePayload `json:"grades"`
	}
	if err := repo.client.request(ctx, "getGrades", nil, &data); err != nil {
		return nil, err
	}
	grades := make([]timetable.Grade, 0, len(data.Grades))
	for _, p := range data.Grades {
		grades = append(grades, timetable.Grade{ID: p.ID, Name: p.Name, Level: p.Level, Abbrev: p.Abbrev})
	}
	return grades, nil
}

func (repo *timetableRepository) FetchSubjects(ctx context.Context) ([]timetable.Subject, error) {
	var data struct {
		Subjects []subjectPayload `json:"subjects"`
	}
	if err := repo.client.request(ctx, "getSubjects", nil, &data); err != nil {
		return nil, err
	}
	subjects := make([]timetable.Subject, 0, len(data.Subjects))
	for _, p := range data.Subjects {
		subjects = append(subjects, timetable.Subject{
			ID: p.ID, Name: p.Name, Code: p.Code, Color: p.Color, Department: p.Department,
		})
	}
	return subjects, nil
}

func (repo *timetableRepository) FetchTimeSlots(ctx context.Context) ([]timetable.TimeSlot, error) {
	var data struct {
		TimeSlots []slotPayload `json:"timeSlots"`
	}
	if err := repo.client.request(ctx, "getTimeSlots", nil, &data); err != nil {
		return nil, err
	}
	slots := make([]timetable.TimeSlot, 0, len(data.TimeSlots))
	for _, p := range data.TimeSlots {
		ts, err := p.toSlot()
		if err != nil {
			return nil, err
		}
		slots = append(slots, ts)
	}
	return slots, nil
}

func (repo *timetableRepository) FetchBreaks(ctx context.Context) ([]timetable.Break, error) {
	var data struct {
		Breaks []breakPayload `json:"breaks"`
	}
	if err := repo.client.request(ctx, "getBreaks", nil, &data); err != nil {
		return nil, err
	}
	breaks := make([]timetable.Break, 0, len(data.Breaks))
	for _, p := range data.Breaks {
		breaks = append(breaks, p.toBreak())
	}
	return breaks, nil
}

func (repo *timetableRepository) FetchEntries(ctx context.Context, termID string) ([]timetable.Entry, error) {
	var data struct {
		Timetable []entryPayload `json:"timetable"`
	}
	vars := map[string]interface{}{"termId": termID}
	if err := repo.client.request(ctx, "getTimetable", vars, &data); err != nil {
		return nil, err
	}
	entries := make([]timetable.Entry, 0, len(data.Timetable))
	for _, p := range data.Timetable {
		entries = append(entries, p.toEntry())
	}
	return entries, nil
}

// Writes

func (repo *timetableRepository) CreateTimeSlots(ctx context.Context, slots []timetable.NewTimeSlot) ([]timetable.TimeSlot, error) {
	var data struct {
		Created []slotPayload `json:"createTimeSlots"`
	}
	vars := map[string]interface{}{"slots": slots}
	if err := repo.client.request(ctx, "createTimeSlots", vars, &data); err != nil {
		return nil, err
	}
	created := make([]timetable.TimeSlot, 0, len(data.Created))
	for _, p := range data.Created {
		ts, err := p.toSlot()
		if err != nil {
			return nil, err
		}
		created = append(created, ts)
	}
	return created, nil
}

func (repo *timetableRepository) CreateBreak(ctx context.Context, nb timetable.NewBreak) (timetable.Break, error) {
	var data struct {
		Created breakPayload `json:"createBreak"`
	}
	vars := map[string]interface{}{
		"name":            nb.Name,
		"type":            nb.Type,
		"dayOfWeek":       int(nb.Day) - 1, // wire is 0-indexed
		"afterPeriod":     nb.AfterPeriod,
		"durationMinutes": nb.Duration,
		"icon":            nb.Icon,
		"color":           nb.Color,
	}
	if err := repo.client.request(ctx, "createBreak", vars, &data); err != nil {
		return timetable.Break{}, err
	}
	return data.Created.toBreak(), nil
}

func (repo *timetableRepository) CreateEntry(ctx context.Context, ne timetable.NewEntry) (timetable.Entry, error) {
	var data struct {
		Created entryPayload `json:"createTimetableEntry"`
	}
	if err := repo.client.request(ctx, "createTimetableEntry", ne, &data); err != nil {
		return timetable.Entry{}, err
	}
	return data.Created.toEntry(), nil
}

func (repo *timetableRepository) UpdateEntry(ctx context.Context, id string, ue timetable.UpdateEntry) (timetable.Entry, error) {
	var data struct {
		Updated entryPayload `json:"updateTimetableEntry"`
	}
	vars := map[string]interface{}{"id": id, "patch": ue}
	if err := repo.client.request(ctx, "updateTimetableEntry", vars, &data); err != nil {
		return timetable.Entry{}, err
	}
	return data.Updated.toEntry(), nil
}

func (repo *timetableRepository) DeleteEntry(ctx context.Context, id string) error {
	return repo.client.request(ctx, "deleteTimetableEntry", map[string]interface{}{"id": id}, nil)
}

func (repo *timetableRepository) DeleteTimeSlot(ctx context.Context, id string) error {
	return repo.client.request(ctx, "deleteTimeSlot", map[string]interface{}{"id": id}, nil)
}

func (repo *timetableRepository) DeleteBreak(ctx context.Context, id string) error {
	return repo.client.request(ctx, "deleteBreak", map[string]interface{}{"id": id}, nil)
}

func (repo *timetableRepository) DeleteAllBreaks(ctx context.Context) error {
	return repo.client.request(ctx, "deleteAllBreaks", nil, nil)
}
