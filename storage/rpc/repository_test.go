package rpcrepos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	srv := httptest.NewServer(handler)
	conf := &core.Config{}
	conf.Remote.Endpoint = srv.URL
	conf.Remote.Timeout = 5 * time.Second
	return NewClient(conf), srv.Close
}

func TestRequestEnvelope(t *testing.T) {
	var got envelope
	client, teardown := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding envelope: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":{"timeSlots":[]}}`))
	})
	defer teardown()

	repo := NewTimetableRepository(client)
	if _, err := repo.FetchTimeSlots(context.Background()); err != nil {
		t.Fatalf("FetchTimeSlots() error = %v", err)
	}
	if got.OperationName != "getTimeSlots" {
		t.Errorf("operationName = %q, want getTimeSlots", got.OperationName)
	}
}

func TestFetchTimeSlotsConvertsClockStrings(t *testing.T) {
	client, teardown := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"timeSlots":[
			{"id":"ts1","periodNumber":1,"displayTime":"8.00 AM","startTime":"08:00","endTime":"08:45"}
		]}}`))
	})
	defer teardown()

	slots, err := NewTimetableRepository(client).FetchTimeSlots(context.Background())
	if err != nil {
		t.Fatalf("FetchTimeSlots() error = %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("slots = %d, want 1", len(slots))
	}
	if slots[0].Start != timetable.MustParseClock("08:00") || slots[0].End != timetable.MustParseClock("08:45") {
		t.Errorf("slot times = %v-%v, want 08:00-08:45", slots[0].Start, slots[0].End)
	}
	if slots[0].Label != "8.00 AM" {
		t.Errorf("label = %q, want the wire displayTime", slots[0].Label)
	}
}

func TestFetchBreaksConvertsDayIndex(t *testing.T) {
	client, teardown := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"breaks":[
			{"id":"b1","name":"Lunch","type":"lunch","dayOfWeek":0,"afterPeriod":3,"durationMinutes":45}
		]}}`))
	})
	defer teardown()

	breaks, err := NewTimetableRepository(client).FetchBreaks(context.Background())
	if err != nil {
		t.Fatalf("FetchBreaks() error = %v", err)
	}
	if len(breaks) != 1 {
		t.Fatalf("breaks = %d, want 1", len(breaks))
	}
	// wire 0 = Monday = internal 1
	if breaks[0].Day != timetable.Monday {
		t.Errorf("Day = %v, want Monday", breaks[0].Day)
	}
}

func TestFetchTeachersFlattensUser(t *testing.T) {
	client, teardown := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"teachers":[
			{"id":"t1","user":{"name":"Alice Banda","firstName":"Alice","lastName":"Banda"},
			 "tenantSubjects":["Mathematics"],"tenantGradeLevels":["Grade 1"]}
		]}}`))
	})
	defer teardown()

	teachers, err := NewTimetableRepository(client).FetchTeachers(context.Background())
	if err != nil {
		t.Fatalf("FetchTeachers() error = %v", err)
	}
	if len(teachers) != 1 {
		t.Fatalf("teachers = %d, want 1", len(teachers))
	}
	tr := teachers[0]
	if tr.Name != "Alice Banda" || tr.FirstName != "Alice" {
		t.Errorf("flattening lost the user fields: %+v", tr)
	}
	if len(tr.Subjects) != 1 || tr.Subjects[0] != "Mathematics" {
		t.Errorf("Subjects = %v, want [Mathematics]", tr.Subjects)
	}
}

func TestFeatureUnavailableMapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "extensions code",
			body: `{"errors":[{"message":"nope","extensions":{"code":"FEATURE_NOT_AVAILABLE"}}]}`,
			want: true,
		},
		{
			name: "prose signal",
			body: `{"errors":[{"message":"operation getBreaks is not supported"}]}`,
			want: true,
		},
		{
			name: "ordinary remote error",
			body: `{"errors":[{"message":"internal failure"}]}`,
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, teardown := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			defer teardown()

			_, err := NewTimetableRepository(client).FetchBreaks(context.Background())
			if err == nil {
				t.Fatal("FetchBreaks() error = nil")
			}
			if got := errors.Cause(err) == timetable.ErrFeatureUnavailable; got != tt.want {
				t.Errorf("feature-unavailable = %v, want %v (err: %v)", got, tt.want, err)
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	client, teardown := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer teardown()

	_, err := NewTimetableRepository(client).FetchTeachers(context.Background())
	if err == nil {
		t.Fatal("FetchTeachers() error = nil, want transport failure")
	}
	if errors.Cause(err) == timetable.ErrFeatureUnavailable {
		t.Error("a 5xx must not read as feature-unavailable")
	}
}

func TestCreateBreakSendsZeroIndexedDay(t *testing.T) {
	var vars map[string]interface{}
	client, teardown := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var env struct {
			Variables map[string]interface{} `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&env)
		vars = env.Variables
		_, _ = w.Write([]byte(`{"data":{"createBreak":
			{"id":"srv-b1","name":"Lunch","type":"lunch","dayOfWeek":2,"afterPeriod":3,"durationMinutes":45}}}`))
	})
	defer teardown()

	nb := timetable.NewBreak{Name: "Lunch", Type: timetable.BreakLunch, Day: timetable.Wednesday, AfterPeriod: 3, Duration: 45}
	created, err := NewTimetableRepository(client).CreateBreak(context.Background(), nb)
	if err != nil {
		t.Fatalf("CreateBreak() error = %v", err)
	}
	if got, ok := vars["dayOfWeek"].(float64); !ok || int(got) != 2 {
		t.Errorf("wire dayOfWeek = %v, want 2 (0-indexed Wednesday)", vars["dayOfWeek"])
	}
	if created.ID != "srv-b1" || created.Day != timetable.Wednesday {
		t.Errorf("created = %+v, want srv-b1 on Wednesday", created)
	}
}
