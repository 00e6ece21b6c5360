package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/volatiletech/null/v8"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
)

func setup(t *testing.T, repo *testRepo) echoapi.Server {
	t.Helper()

	conf := &core.Config{Env: "TEST", TestMode: true}
	validate, translator := core.NewValidator()
	timetable.RegisterValidators(validate, translator)

	store := timetable.NewStore()
	svc := timetable.NewService(store, repo, core.NopLogger{})

	return echoapi.NewServer(
		&echoapi.Deps{
			Conf:           conf,
			Logger:         core.NopLogger{},
			TimetableSvc:   svc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// testRepo is an in-memory Repository standing in for the remote backend.
type testRepo struct {
	teachers []timetable.Teacher
	grades   []timetable.Grade
	subjects []timetable.Subject
	slots    []timetable.TimeSlot
	breaks   []timetable.Break
	entries  []timetable.Entry

	unavailable map[timetable.Collection]bool
	nextID      int
}

var _ timetable.Repository = (*testRepo)(nil)

func (r *testRepo) check(col timetable.Collection) error {
	if r.unavailable[col] {
		return timetable.ErrFeatureUnavailable
	}
	return nil
}

func (r *testRepo) newID() string {
	r.nextID++
	return "r-" + strconv.Itoa(r.nextID)
}

func (r *testRepo) FetchTeachers(context.Context) ([]timetable.Teacher, error) {
	return r.teachers, r.check(timetable.ColTeachers)
}

func (r *testRepo) FetchGrades(context.Context) ([]timetable.Grade, error) {
	return r.grades, r.check(timetable.ColGrades)
}

func (r *testRepo) FetchSubjects(context.Context) ([]timetable.Subject, error) {
	return r.subjects, r.check(timetable.ColSubjects)
}

func (r *testRepo) FetchTimeSlots(context.Context) ([]timetable.TimeSlot, error) {
	return r.slots, r.check(timetable.ColTimeSlots)
}

func (r *testRepo) FetchBreaks(context.Context) ([]timetable.Break, error) {
	return r.breaks, r.check(timetable.ColBreaks)
}

func (r *testRepo) FetchEntries(context.Context, string) ([]timetable.Entry, error) {
	return r.entries, r.check(timetable.ColEntries)
}

func (r *testRepo) CreateTimeSlots(_ context.Context, slots []timetable.NewTimeSlot) ([]timetable.TimeSlot, error) {
	created := make([]timetable.TimeSlot, len(slots))
	for i, ns := range slots {
		created[i] = timetable.TimeSlot{
			ID:           r.newID(),
			PeriodNumber: ns.PeriodNumber,
			Label:        ns.Label,
			Start:        timetable.MustParseClock(ns.StartTime),
			End:          timetable.MustParseClock(ns.EndTime),
			Color:        ns.Color,
		}
	}
	r.slots = created
	return created, nil
}

func (r *testRepo) CreateBreak(_ context.Context, nb timetable.NewBreak) (timetable.Break, error) {
	if err := r.check(timetable.ColBreaks); err != nil {
		return timetable.Break{}, err
	}
	b := timetable.Break{
		ID:          r.newID(),
		Name:        nb.Name,
		Type:        nb.Type,
		Day:         nb.Day,
		AfterPeriod: nb.AfterPeriod,
		Duration:    nb.Duration,
		Icon:        nb.Icon,
		Color:       nb.Color,
	}
	r.breaks = append(r.breaks, b)
	return b, nil
}

func (r *testRepo) CreateEntry(_ context.Context, ne timetable.NewEntry) (timetable.Entry, error) {
	e := timetable.Entry{
		ID:           r.newID(),
		GradeID:      ne.GradeID,
		SubjectID:    ne.SubjectID,
		TeacherID:    ne.TeacherID,
		TimeSlotID:   ne.TimeSlotID,
		Day:          ne.Day,
		Room:         ne.Room,
		DoublePeriod: ne.DoublePeriod,
		Notes:        ne.Notes,
	}
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *testRepo) UpdateEntry(_ context.Context, id string, ue timetable.UpdateEntry) (timetable.Entry, error) {
	for i := range r.entries {
		if r.entries[i].ID != id {
			continue
		}
		e := &r.entries[i]
		if ue.SubjectID != nil {
			e.SubjectID = *ue.SubjectID
		}
		if ue.TeacherID != nil {
			e.TeacherID = *ue.TeacherID
		}
		if ue.TimeSlotID != nil {
			e.TimeSlotID = *ue.TimeSlotID
		}
		if ue.Day != nil {
			e.Day = *ue.Day
		}
		if ue.Room.Valid {
			e.Room = ue.Room
		}
		if ue.Notes.Valid {
			e.Notes = ue.Notes
		}
		return *e, nil
	}
	return timetable.Entry{}, timetable.ErrNotFound
}

func (r *testRepo) DeleteEntry(_ context.Context, id string) error {
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	return nil
}

func (r *testRepo) DeleteTimeSlot(_ context.Context, id string) error {
	for i := range r.slots {
		if r.slots[i].ID == id {
			r.slots = append(r.slots[:i], r.slots[i+1:]...)
			break
		}
	}
	return nil
}

func (r *testRepo) DeleteBreak(_ context.Context, id string) error {
	for i := range r.breaks {
		if r.breaks[i].ID == id {
			r.breaks = append(r.breaks[:i], r.breaks[i+1:]...)
			break
		}
	}
	return nil
}

func (r *testRepo) DeleteAllBreaks(context.Context) error {
	r.breaks = nil
	return nil
}

// Fixtures

func fixtureRepo() *testRepo {
	return &testRepo{
		teachers: []timetable.Teacher{
			{ID: "t1", FirstName: "Alice", LastName: "Banda", Name: "Alice Banda"},
			{ID: "t2", FirstName: "John", LastName: "Kasongo", Name: "John Kasongo"},
		},
		grades: []timetable.Grade{
			{ID: "g1", Name: "Grade 1", Level: 1},
			{ID: "g2", Name: "Grade 2", Level: 2},
		},
		subjects: []timetable.Subject{
			{ID: "sub1", Name: "Mathematics"},
			{ID: "sub2", Name: "English", Code: null.StringFrom("ENG")},
		},
		slots: []timetable.TimeSlot{
			{ID: "ts1", PeriodNumber: 1, Label: "08:00 - 08:45", Start: timetable.MustParseClock("08:00"), End: timetable.MustParseClock("08:45")},
			{ID: "ts2", PeriodNumber: 2, Label: "08:45 - 09:30", Start: timetable.MustParseClock("08:45"), End: timetable.MustParseClock("09:30")},
		},
		breaks: []timetable.Break{
			{ID: "b1", Name: "Morning Break", Type: timetable.BreakShort, Day: timetable.Monday, AfterPeriod: 1, Duration: 15},
		},
		entries: []timetable.Entry{
			{ID: "e1", GradeID: "g1", SubjectID: "sub1", TeacherID: "t1", TimeSlotID: "ts1", Day: timetable.Monday},
			{ID: "e2", GradeID: "g1", SubjectID: "sub2", TeacherID: "t2", TimeSlotID: "ts2", Day: timetable.Monday},
		},
	}
}

// sync populates the server's local snapshot for g1 through the API itself.
func sync(t *testing.T, app echoapi.Server) {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/v1/timetable/sync?gradeId=g1&termId=term-1")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync failed: %d %s", rec.Code, rec.Body.String())
	}
}
