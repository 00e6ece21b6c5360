package sqlxrepos

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ratiba/core/timetable"
)

func newMockRepository(t *testing.T) (*timetableRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTimetableRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var entryColumns = []string{
	"id", "grade_id", "subject_id", "teacher_id", "time_slot_id",
	"day_of_week", "term_id", "room_number", "double_period", "notes",
}

func TestFetchEntriesIncludesUntermedRows(t *testing.T) {
	repo, mock := newMockRepository(t)

	// e1 was created through the API and carries no term; e2 was seeded
	// remotely for term-1. A sync scoped to term-1 must return both.
	mock.ExpectQuery(`FROM entry WHERE term_id IN \('', \$1\)`).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("e1", "g1", "sub1", "t1", "ts1", 1, "", nil, false, nil).
			AddRow("e2", "g1", "sub2", "t2", "ts2", 1, "term-1", nil, false, nil))

	entries, err := repo.FetchEntries(context.Background(), "term-1")
	if err != nil {
		t.Fatalf("FetchEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("FetchEntries() = %d entries, want 2", len(entries))
	}
	if entries[0].ID != "e1" || entries[0].Day != timetable.Monday {
		t.Errorf("entries[0] = %+v, want untermed e1 on Monday", entries[0])
	}

	if err = mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateEntryThenScopedFetchRoundTrip(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO entry`).
		WithArgs("g1", "sub1", "t1", "ts1", 1, nil, false, nil).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("e1", "g1", "sub1", "t1", "ts1", 1, "", nil, false, nil))

	created, err := repo.CreateEntry(ctx, timetable.NewEntry{
		GradeID: "g1", SubjectID: "sub1", TeacherID: "t1", TimeSlotID: "ts1", Day: timetable.Monday,
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	if created.ID != "e1" {
		t.Fatalf("CreateEntry() id = %q, want e1", created.ID)
	}

	// the freshly created row defaults to the empty term and must survive the
	// next sync regardless of the term it is issued for
	mock.ExpectQuery(`FROM entry WHERE term_id IN \('', \$1\)`).
		WithArgs("term-2").
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("e1", "g1", "sub1", "t1", "ts1", 1, "", nil, false, nil))

	entries, err := repo.FetchEntries(ctx, "term-2")
	if err != nil {
		t.Fatalf("FetchEntries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "e1" {
		t.Errorf("FetchEntries() = %+v, want the created entry", entries)
	}

	if err = mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
