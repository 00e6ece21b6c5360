package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ratiba/core/timetable"
)

func Test_home(t *testing.T) {
	app := setup(t, fixtureRepo())

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Ratiba API!", rec.Body.String())
}

func Test_timetableApi_sync(t *testing.T) {
	t.Run("all collections load", func(t *testing.T) {
		app := setup(t, fixtureRepo())
		sync(t, app)

		req, rec := newRequest(http.MethodGet, "/v1/timetable/status")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var status struct {
			Collections map[string]string `json:"collections"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("unmarshalling status: %v", err)
		}
		for _, col := range []string{"teachers", "grades", "subjects", "timeSlots", "breaks", "entries"} {
			assert.Equal(t, "loaded", status.Collections[col], col)
		}
	})

	t.Run("unavailable breaks degrade to unsupported", func(t *testing.T) {
		repo := fixtureRepo()
		repo.unavailable = map[timetable.Collection]bool{timetable.ColBreaks: true}
		app := setup(t, repo)
		sync(t, app)

		req, rec := newRequest(http.MethodGet, "/v1/timetable/status")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var status struct {
			Collections map[string]string `json:"collections"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("unmarshalling status: %v", err)
		}
		assert.Equal(t, "unsupported", status.Collections["breaks"])
		assert.Equal(t, "loaded", status.Collections["timeSlots"])

		// the degraded collection reads as empty
		req, rec = newRequest(http.MethodGet, "/v1/timetable/breaks")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func Test_timetableApi_weekSchedule(t *testing.T) {
	app := setup(t, fixtureRepo())
	sync(t, app)

	req, rec := newRequest(http.MethodGet, "/v1/timetable/grades/g1/week")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var week []timetable.DaySchedule
	if err := json.Unmarshal(rec.Body.Bytes(), &week); err != nil {
		t.Fatalf("unmarshalling week: %v", err)
	}
	if assert.Len(t, week, 5) {
		monday := week[0]
		// P1, Morning Break, P2
		if assert.Len(t, monday.Rows, 3) {
			assert.Equal(t, timetable.LessonRow, monday.Rows[0].Kind)
			assert.Equal(t, "Mathematics", monday.Rows[0].Entry.Subject.Name)
			assert.Equal(t, timetable.BreakRow, monday.Rows[1].Kind)
			assert.Equal(t, "Morning Break", monday.Rows[1].Break.Name)
			assert.Equal(t, timetable.LessonRow, monday.Rows[2].Kind)
		}
		// breaks are Monday-only in the fixture
		assert.Len(t, week[1].Rows, 2)
	}
}

func Test_timetableApi_currentLesson(t *testing.T) {
	app := setup(t, fixtureRepo())
	sync(t, app)

	t.Run("boundary minute belongs to the starting period", func(t *testing.T) {
		// Monday 08:45: P1 just ended, P2 starts
		req, rec := newRequest(http.MethodGet, "/v1/timetable/grades/g1/current?at=2021-03-01T08:45:00Z")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			InSession        bool                `json:"inSession"`
			Slot             *timetable.TimeSlot `json:"slot"`
			Entry            *timetable.Entry    `json:"entry"`
			RemainingMinutes int                 `json:"remainingMinutes"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		assert.True(t, got.InSession)
		if assert.NotNil(t, got.Slot) {
			assert.Equal(t, 2, got.Slot.PeriodNumber)
		}
		if assert.NotNil(t, got.Entry) {
			assert.Equal(t, "e2", got.Entry.ID)
		}
		assert.Equal(t, 45, got.RemainingMinutes)
	})

	t.Run("weekend is out of session", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/timetable/grades/g1/current?at=2021-03-06T09:00:00Z")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"inSession": false, "remainingMinutes": 0}`, rec.Body.String())
	})

	t.Run("malformed at", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/timetable/grades/g1/current?at=yesterday")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"at": "must be a valid RFC 3339 timestamp"}`, rec.Body.String())
	})
}

func Test_timetableApi_nextLesson(t *testing.T) {
	app := setup(t, fixtureRepo())
	sync(t, app)

	t.Run("later today", func(t *testing.T) {
		// Monday 08:00, during P1; next is P2's English lesson
		req, rec := newRequest(http.MethodGet, "/v1/timetable/grades/g1/next?at=2021-03-01T08:00:00Z")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Entry        timetable.Entry `json:"entry"`
			NextDay      bool            `json:"nextDay"`
			MinutesUntil int             `json:"minutesUntil"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		assert.Equal(t, "e2", got.Entry.ID)
		assert.False(t, got.NextDay)
		assert.Equal(t, 45, got.MinutesUntil)
	})

	t.Run("nothing scheduled ahead", func(t *testing.T) {
		// Tuesday has no entries and Wednesday is beyond the rollover window
		req, rec := newRequest(http.MethodGet, "/v1/timetable/grades/g1/next?at=2021-03-02T10:00:00Z")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_timetableApi_updateSlot(t *testing.T) {
	t.Run("end before the stored start is rejected", func(t *testing.T) {
		app := setup(t, fixtureRepo())
		sync(t, app) // ts1 runs 08:00 - 08:45

		body := marchallObj(t, map[string]string{"endTime": "07:00"})
		req, rec := newRequest(http.MethodPut, "/v1/timetable/slots/ts1", body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, string(marchallObj(t, map[string]string{
			"startTime": "startTime must be before endTime",
		})), rec.Body.String())
	})

	t.Run("consistent single-sided update goes through", func(t *testing.T) {
		app := setup(t, fixtureRepo())
		sync(t, app)

		body := marchallObj(t, map[string]string{"endTime": "08:40"})
		req, rec := newRequest(http.MethodPut, "/v1/timetable/slots/ts1", body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var slot timetable.TimeSlot
		if err := json.Unmarshal(rec.Body.Bytes(), &slot); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		assert.Equal(t, timetable.MustParseClock("08:40"), slot.End)
	})
}

func Test_timetableApi_createEntry(t *testing.T) {
	newEntryBody := func(gradeID, slotID string, day timetable.Weekday) []byte {
		return marchallObj(t, map[string]interface{}{
			"gradeId":    gradeID,
			"subjectId":  "sub1",
			"teacherId":  "t1",
			"timeSlotId": slotID,
			"dayOfWeek":  int(day),
		})
	}

	t.Run("missing fields are rejected", func(t *testing.T) {
		app := setup(t, fixtureRepo())
		sync(t, app)

		req, rec := newRequest(http.MethodPost, "/v1/timetable/entries", []byte(`{}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fldErrs map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		for _, fld := range []string{"gradeId", "subjectId", "teacherId", "timeSlotId", "dayOfWeek"} {
			assert.Equal(t, "this field is required", fldErrs[fld], fld)
		}
	})

	t.Run("occupied slot is rejected before the round trip", func(t *testing.T) {
		app := setup(t, fixtureRepo())
		sync(t, app)

		req, rec := newRequest(http.MethodPost, "/v1/timetable/entries", newEntryBody("g1", "ts1", timetable.Monday))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, string(marchallObj(t, map[string]string{
			"timeSlotId": timetable.ErrDuplicateEntry.Error(),
		})), rec.Body.String())
	})

	t.Run("created under its remote id", func(t *testing.T) {
		app := setup(t, fixtureRepo())
		sync(t, app)

		req, rec := newRequest(http.MethodPost, "/v1/timetable/entries", newEntryBody("g1", "ts1", timetable.Tuesday))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var created timetable.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		assert.Equal(t, "r-1", created.ID)

		// visible on subsequent reads
		req, rec = newRequest(http.MethodGet, "/v1/timetable/entries?gradeId=g1")
		app.ServeHTTP(rec, req)
		var entries []timetable.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		assert.Len(t, entries, 3)
	})
}

func Test_timetableApi_conflicts(t *testing.T) {
	repo := fixtureRepo()
	// t1 is double-booked: g1 and g2, both Monday P1
	repo.entries = append(repo.entries, timetable.Entry{
		ID: "e3", GradeID: "g2", SubjectID: "sub1", TeacherID: "t1", TimeSlotID: "ts1", Day: timetable.Monday,
	})
	app := setup(t, repo)
	sync(t, app)

	// pull in g2's entries as well
	req, rec := newRequest(http.MethodPost, "/v1/timetable/sync?gradeId=g2&termId=term-1")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newRequest(http.MethodGet, "/v1/timetable/conflicts")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var conflicts []timetable.Conflict
	if err := json.Unmarshal(rec.Body.Bytes(), &conflicts); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if assert.Len(t, conflicts, 1) {
		assert.Equal(t, timetable.TeacherConflict, conflicts[0].Kind)
		assert.Equal(t, "t1", conflicts[0].Key)
		assert.Len(t, conflicts[0].Entries, 2)
	}
}
