package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
)

const atParam = "at" // RFC 3339; defaults to the server clock

type timetableApi struct {
	svc        *timetable.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerTimetableAPI(
	g *echo.Group,
	svc *timetable.Service,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := timetableApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	tg := g.Group("/timetable")

	tg.GET("/status", api.status)
	tg.POST("/sync", api.sync)

	tg.GET("/slots", api.querySlots)
	tg.PUT("/slots/:id", api.updateSlot)
	tg.DELETE("/slots/:id", api.destroySlot)
	tg.POST("/schedule", api.configureSchedule)

	tg.GET("/breaks", api.queryBreaks)
	tg.POST("/breaks", api.createBreak)
	tg.PUT("/breaks/:id", api.updateBreak)
	tg.DELETE("/breaks/:id", api.destroyBreak)
	tg.DELETE("/breaks", api.destroyAllBreaks)

	tg.GET("/entries", api.queryEntries)
	tg.POST("/entries", api.createEntry)
	tg.PUT("/entries/:id", api.updateEntry)
	tg.DELETE("/entries/:id", api.destroyEntry)

	tg.GET("/conflicts", api.queryConflicts)

	gg := tg.Group("/grades/:id")
	gg.GET("/week", api.weekSchedule)
	gg.GET("/entries", api.enrichedEntries)
	gg.GET("/current", api.currentLesson)
	gg.GET("/next", api.nextLesson)
}

// Handlers

type statusResponse struct {
	LastUpdated time.Time         `json:"lastUpdated"`
	Collections map[string]string `json:"collections"`
}

func (api *timetableApi) status(ctx echo.Context) error {
	store := api.svc.Store()
	cols := []timetable.Collection{
		timetable.ColTeachers, timetable.ColGrades, timetable.ColSubjects,
		timetable.ColTimeSlots, timetable.ColBreaks, timetable.ColEntries,
	}
	states := make(map[string]string, len(cols))
	for _, col := range cols {
		states[string(col)] = store.State(col).String()
	}
	return ctx.JSON(http.StatusOK, statusResponse{
		LastUpdated: store.LastUpdated(),
		Collections: states,
	})
}

func (api *timetableApi) sync(ctx echo.Context) error {
	if err := api.svc.LoadAll(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "syncing reference collections")
	}
	if gradeID := ctx.QueryParam("gradeId"); gradeID != "" {
		termID := ctx.QueryParam("termId")
		if err := api.svc.LoadEntries(ctx.Request().Context(), termID, gradeID); err != nil {
			return errors.Wrap(err, "syncing entries")
		}
	}
	return api.status(ctx)
}

func (api *timetableApi) querySlots(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Store().TimeSlots())
}

func (api *timetableApi) updateSlot(ctx echo.Context) error {
	var data timetable.UpdateTimeSlot
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTimeSlot")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	slot, err := api.svc.Store().UpdateTimeSlot(ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, slot)
}

func (api *timetableApi) destroySlot(ctx echo.Context) error {
	if err := api.svc.DeleteTimeSlot(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting time slot")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type scheduleConfigRequest struct {
	Slots  []timetable.NewTimeSlot `json:"slots" validate:"required,min=1,dive"`
	Breaks []timetable.NewBreak    `json:"breaks" validate:"dive"`
}

type scheduleConfigResponse struct {
	Slots  []timetable.TimeSlot `json:"slots"`
	Breaks []timetable.Break    `json:"breaks"`
}

func (api *timetableApi) configureSchedule(ctx echo.Context) error {
	var data scheduleConfigRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to scheduleConfigRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	for _, ns := range data.Slots {
		if err := ns.Validate(api.validate); err != nil {
			return err
		}
	}

	if err := api.svc.ConfigureSchedule(ctx.Request().Context(), data.Slots, data.Breaks); err != nil {
		return errors.Wrap(err, "configuring schedule")
	}

	store := api.svc.Store()
	return ctx.JSON(http.StatusCreated, scheduleConfigResponse{
		Slots:  store.TimeSlots(),
		Breaks: store.Breaks(),
	})
}

func (api *timetableApi) queryBreaks(ctx echo.Context) error {
	store := api.svc.Store()
	if dayParam := ctx.QueryParam("day"); dayParam != "" {
		day, err := bindWeekday(dayParam)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, store.BreaksForDay(day))
	}
	return ctx.JSON(http.StatusOK, store.Breaks())
}

func (api *timetableApi) createBreak(ctx echo.Context) error {
	var data timetable.NewBreak
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBreak")
	}
	if err := data.Validate(api.validate, api.svc.Store()); err != nil {
		return err
	}

	b, err := api.svc.CreateBreak(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating break")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *timetableApi) updateBreak(ctx echo.Context) error {
	var data timetable.UpdateBreak
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBreak")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.UpdateBreak(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *timetableApi) destroyBreak(ctx echo.Context) error {
	if err := api.svc.DeleteBreak(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting break")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *timetableApi) destroyAllBreaks(ctx echo.Context) error {
	if err := api.svc.DeleteAllBreaks(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "deleting all breaks")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *timetableApi) queryEntries(ctx echo.Context) error {
	store := api.svc.Store()
	if gradeID := ctx.QueryParam("gradeId"); gradeID != "" {
		return ctx.JSON(http.StatusOK, store.EntriesForGrade(gradeID))
	}
	if teacherID := ctx.QueryParam("teacherId"); teacherID != "" {
		return ctx.JSON(http.StatusOK, store.EntriesForTeacher(teacherID))
	}
	return ctx.JSON(http.StatusOK, store.Entries())
}

func (api *timetableApi) createEntry(ctx echo.Context) error {
	var data timetable.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.CreateEntry(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *timetableApi) updateEntry(ctx echo.Context) error {
	var data timetable.UpdateEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.UpdateEntry(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *timetableApi) destroyEntry(ctx echo.Context) error {
	if err := api.svc.DeleteEntry(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *timetableApi) queryConflicts(ctx echo.Context) error {
	store := api.svc.Store()
	conflicts := timetable.DetectConflicts(store.Entries())
	if conflicts == nil {
		conflicts = []timetable.Conflict{}
	}
	return ctx.JSON(http.StatusOK, conflicts)
}

func (api *timetableApi) weekSchedule(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Store().WeekSchedule(ctx.Param("id")))
}

func (api *timetableApi) enrichedEntries(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.EnrichEntriesForGrade(ctx.Param("id")))
}

type currentLessonResponse struct {
	InSession        bool                `json:"inSession"`
	Slot             *timetable.TimeSlot `json:"slot,omitempty"`
	Entry            *timetable.Entry    `json:"entry,omitempty"`
	RemainingMinutes int                 `json:"remainingMinutes"`
}

func (api *timetableApi) currentLesson(ctx echo.Context) error {
	at, err := bindAt(ctx)
	if err != nil {
		return err
	}
	ref := timetable.LessonRef{GradeID: ctx.Param("id"), TeacherID: ctx.QueryParam("teacherId")}

	store := api.svc.Store()
	lesson, ok := store.CurrentLesson(ref, at)
	if !ok { // outside school hours
		return ctx.JSON(http.StatusOK, currentLessonResponse{})
	}
	return ctx.JSON(http.StatusOK, currentLessonResponse{
		InSession:        true,
		Slot:             &lesson.Slot,
		Entry:            lesson.Entry,
		RemainingMinutes: store.RemainingMinutes(at),
	})
}

type nextLessonResponse struct {
	Entry        timetable.Entry    `json:"entry"`
	Slot         timetable.TimeSlot `json:"slot"`
	Day          timetable.Weekday  `json:"dayOfWeek"`
	NextDay      bool               `json:"nextDay"`
	MinutesUntil int                `json:"minutesUntil"`
}

func (api *timetableApi) nextLesson(ctx echo.Context) error {
	at, err := bindAt(ctx)
	if err != nil {
		return err
	}
	ref := timetable.LessonRef{GradeID: ctx.Param("id"), TeacherID: ctx.QueryParam("teacherId")}

	next := api.svc.Store().NextLesson(ref, at)
	if next == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, nextLessonResponse{
		Entry:        next.Entry,
		Slot:         next.Slot,
		Day:          next.Day,
		NextDay:      next.NextDay,
		MinutesUntil: next.ClampedMinutesUntil(),
	})
}

// Bindings

func bindAt(ctx echo.Context) (time.Time, error) {
	val := ctx.QueryParam(atParam)
	if val == "" {
		return time.Now(), nil
	}
	at, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil,
			core.FieldError{Field: atParam, Error: "must be a valid RFC 3339 timestamp"})
	}
	return at, nil
}

func bindWeekday(val string) (timetable.Weekday, error) {
	day, ok := timetable.ParseWeekday(val)
	if !ok {
		return 0, core.NewValidationError(nil,
			core.FieldError{Field: "day", Error: "must be a school day (1=Monday .. 5=Friday)"})
	}
	return day, nil
}
