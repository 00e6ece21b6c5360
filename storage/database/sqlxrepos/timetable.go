package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/timetable"
)

// undefinedTable is raised when a deployment's schema predates a timetable
// feature; it maps to the same degraded state as a remote "not available".
const undefinedTable = "42P01"

type timetableRepository struct {
	db *sqlx.DB
}

var _ timetable.Repository = (*timetableRepository)(nil)

func NewTimetableRepository(db *sqlx.DB) *timetableRepository {
	return &timetableRepository{db: db}
}

func wrap(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return timetable.ErrFeatureUnavailable
	}
	if errors.Is(err, sql.ErrNoRows) {
		return timetable.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// row types carry the db tags the core models do not.

type slotRow struct {
	ID           string      `db:"id"`
	PeriodNumber int         `db:"period_number"`
	Label        string      `db:"label"`
	Start        int         `db:"start_time"`
	End          int         `db:"end_time"`
	Color        null.String `db:"color"`
}

func (r slotRow) model() timetable.TimeSlot {
	return timetable.TimeSlot{
		ID:           r.ID,
		PeriodNumber: r.PeriodNumber,
		Label:        r.Label,
		Start:        timetable.ClockMinutes(r.Start),
		End:          timetable.ClockMinutes(r.End),
		Color:        r.Color,
	}
}

type breakRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Type        string      `db:"type"`
	Day         int         `db:"day_of_week"`
	AfterPeriod int         `db:"after_period"`
	Duration    int         `db:"duration_minutes"`
	Icon        null.String `db:"icon"`
	Color       null.String `db:"color"`
}

func (r breakRow) model() timetable.Break {
	return timetable.Break{
		ID:          r.ID,
		Name:        r.Name,
		Type:        timetable.BreakType(r.Type),
		Day:         timetable.Weekday(r.Day),
		AfterPeriod: r.AfterPeriod,
		Duration:    r.Duration,
		Icon:        r.Icon,
		Color:       r.Color,
	}
}

type teacherRow struct {
	ID          string         `db:"id"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	Name        string         `db:"name"`
	Email       null.String    `db:"email"`
	Subjects    pq.StringArray `db:"subjects"`
	GradeLevels pq.StringArray `db:"grade_levels"`
	Color       null.String    `db:"color"`
}

func (r teacherRow) model() timetable.Teacher {
	return timetable.Teacher{
		ID:          r.ID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Name:        r.Name,
		Email:       r.Email,
		Subjects:    r.Subjects,
		GradeLevels: r.GradeLevels,
		Color:       r.Color,
	}
}

type entryRow struct {
	ID           string      `db:"id"`
	GradeID      string      `db:"grade_id"`
	SubjectID    string      `db:"subject_id"`
	TeacherID    string      `db:"teacher_id"`
	TimeSlotID   string      `db:"time_slot_id"`
	Day          int         `db:"day_of_week"`
	TermID       string      `db:"term_id"`
	Room         null.String `db:"room_number"`
	DoublePeriod bool        `db:"double_period"`
	Notes        null.String `db:"notes"`
}

func (r entryRow) model() timetable.Entry {
	return timetable.Entry{
		ID:           r.ID,
		GradeID:      r.GradeID,
		SubjectID:    r.SubjectID,
		TeacherID:    r.TeacherID,
		TimeSlotID:   r.TimeSlotID,
		Day:          timetable.Weekday(r.Day),
		Room:         r.Room,
		DoublePeriod: r.DoublePeriod,
		Notes:        r.Notes,
	}
}

func (repo timetableRepository) FetchTeachers(ctx context.Context) ([]timetable.Teacher, error) {
	var rows []teacherRow
	q := `SELECT id, first_name, last_name, name, email, subjects, grade_levels, color FROM teacher ORDER BY name`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, wrap(err, "fetching teachers")
	}
	teachers := make([]timetable.Teacher, len(rows))
	for i, r := range rows {
		teachers[i] = r.model()
	}
	return teachers, nil
}

func (repo timetableRepository) FetchGrades(ctx context.Context) ([]timetable.Grade, error) {
	var grades []timetable.Grade
	q := `SELECT id, name, level, abbrev FROM grade ORDER BY level, name`
	rows, err := repo.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, wrap(err, "fetching grades")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var g timetable.Grade
		if err = rows.Scan(&g.ID, &g.Name, &g.Level, &g.Abbrev); err != nil {
			return nil, wrap(err, "fetching grades")
		}
		grades = append(grades, g)
	}
	return grades, wrap(rows.Err(), "fetching grades")
}

func (repo timetableRepository) FetchSubjects(ctx context.Context) ([]timetable.Subject, error) {
	var subjects []timetable.Subject
	q := `SELECT id, name, code, color, department FROM subject ORDER BY name`
	rows, err := repo.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, wrap(err, "fetching subjects")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var s timetable.Subject
		if err = rows.Scan(&s.ID, &s.Name, &s.Code, &s.Color, &s.Department); err != nil {
			return nil, wrap(err, "fetching subjects")
		}
		subjects = append(subjects, s)
	}
	return subjects, wrap(rows.Err(), "fetching subjects")
}

func (repo timetableRepository) FetchTimeSlots(ctx context.Context) ([]timetable.TimeSlot, error) {
	var rows []slotRow
	q := `SELECT id, period_number, label, start_time, end_time, color FROM time_slot ORDER BY period_number`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, wrap(err, "fetching time slots")
	}
	slots := make([]timetable.TimeSlot, len(rows))
	for i, r := range rows {
		slots[i] = r.model()
	}
	return slots, nil
}

func (repo timetableRepository) FetchBreaks(ctx context.Context) ([]timetable.Break, error) {
	var rows []breakRow
	q := `SELECT id, name, type, day_of_week, after_period, duration_minutes, icon, color FROM break ORDER BY day_of_week, after_period`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, wrap(err, "fetching breaks")
	}
	brks := make([]timetable.Break, len(rows))
	for i, r := range rows {
		brks[i] = r.model()
	}
	return brks, nil
}

func (repo timetableRepository) FetchEntries(ctx context.Context, termID string) ([]timetable.Entry, error) {
	var rows []entryRow
	// rows inserted without a term (the CreateEntry default) belong to every
	// term, so a scoped sync still sees entries created through the API
	q := `SELECT id, grade_id, subject_id, teacher_id, time_slot_id, day_of_week, term_id, room_number, double_period, notes
		FROM entry WHERE term_id IN ('', $1) ORDER BY day_of_week, time_slot_id`
	if err := repo.db.SelectContext(ctx, &rows, q, termID); err != nil {
		return nil, wrap(err, "fetching entries")
	}
	entries := make([]timetable.Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.model()
	}
	return entries, nil
}

func (repo timetableRepository) CreateTimeSlots(ctx context.Context, slots []timetable.NewTimeSlot) ([]timetable.TimeSlot, error) {
	created := make([]timetable.TimeSlot, 0, len(slots))
	q := `INSERT INTO time_slot (period_number, label, start_time, end_time, color)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, period_number, label, start_time, end_time, color`
	for _, ns := range slots {
		start, err := timetable.ParseClock(ns.StartTime)
		if err != nil {
			return nil, errors.Wrap(err, "creating time slots")
		}
		end, err := timetable.ParseClock(ns.EndTime)
		if err != nil {
			return nil, errors.Wrap(err, "creating time slots")
		}
		label := ns.Label
		if label == "" {
			label = start.String() + " - " + end.String()
		}
		var r slotRow
		if err = repo.db.GetContext(ctx, &r, q, ns.PeriodNumber, label, int(start), int(end), ns.Color); err != nil {
			return nil, wrap(err, "creating time slots")
		}
		created = append(created, r.model())
	}
	return created, nil
}

func (repo timetableRepository) CreateBreak(ctx context.Context, nb timetable.NewBreak) (timetable.Break, error) {
	q := `INSERT INTO break (name, type, day_of_week, after_period, duration_minutes, icon, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, name, type, day_of_week, after_period, duration_minutes, icon, color`
	var r breakRow
	err := repo.db.GetContext(ctx, &r, q,
		nb.Name, string(nb.Type), int(nb.Day), nb.AfterPeriod, nb.Duration, nb.Icon, nb.Color)
	if err != nil {
		return timetable.Break{}, wrap(err, "creating break")
	}
	return r.model(), nil
}

func (repo timetableRepository) CreateEntry(ctx context.Context, ne timetable.NewEntry) (timetable.Entry, error) {
	q := `INSERT INTO entry (grade_id, subject_id, teacher_id, time_slot_id, day_of_week, room_number, double_period, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, grade_id, subject_id, teacher_id, time_slot_id, day_of_week, term_id, room_number, double_period, notes`
	var r entryRow
	err := repo.db.GetContext(ctx, &r, q,
		ne.GradeID, ne.SubjectID, ne.TeacherID, ne.TimeSlotID, int(ne.Day), ne.Room, ne.DoublePeriod, ne.Notes)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return timetable.Entry{}, timetable.ErrDuplicateEntry
		}
		return timetable.Entry{}, wrap(err, "creating entry")
	}
	return r.model(), nil
}

func (repo timetableRepository) UpdateEntry(ctx context.Context, id string, ue timetable.UpdateEntry) (timetable.Entry, error) {
	q := `UPDATE entry SET
			grade_id      = COALESCE($2, grade_id),
			subject_id    = COALESCE($3, subject_id),
			teacher_id    = COALESCE($4, teacher_id),
			time_slot_id  = COALESCE($5, time_slot_id),
			day_of_week   = COALESCE($6, day_of_week),
			room_number   = COALESCE($7, room_number),
			double_period = COALESCE($8, double_period),
			notes         = COALESCE($9, notes)
		WHERE id = $1
		RETURNING id, grade_id, subject_id, teacher_id, time_slot_id, day_of_week, term_id, room_number, double_period, notes`

	var day *int
	if ue.Day != nil {
		d := int(*ue.Day)
		day = &d
	}
	var room, notes interface{}
	if ue.Room.Valid {
		room = ue.Room.String
	}
	if ue.Notes.Valid {
		notes = ue.Notes.String
	}

	var r entryRow
	err := repo.db.GetContext(ctx, &r, q,
		id, ue.GradeID, ue.SubjectID, ue.TeacherID, ue.TimeSlotID, day, room, ue.DoublePeriod, notes)
	if err != nil {
		return timetable.Entry{}, wrap(err, "updating entry")
	}
	return r.model(), nil
}

func (repo timetableRepository) DeleteEntry(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM entry WHERE id = $1`, id); err != nil {
		return wrap(err, "deleting entry")
	}
	return nil
}

func (repo timetableRepository) DeleteTimeSlot(ctx context.Context, id string) error {
	// referencing entries go with it (ON DELETE CASCADE)
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM time_slot WHERE id = $1`, id); err != nil {
		return wrap(err, "deleting time slot")
	}
	return nil
}

func (repo timetableRepository) DeleteBreak(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM break WHERE id = $1`, id); err != nil {
		return wrap(err, "deleting break")
	}
	return nil
}

func (repo timetableRepository) DeleteAllBreaks(ctx context.Context) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM break`); err != nil {
		return wrap(err, "deleting breaks")
	}
	return nil
}
