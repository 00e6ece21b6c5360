package timetable

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	// errors
	ErrNotFound       = errors.New("timetable record not found")
	ErrDuplicateEntry = errors.New("an entry already exists for this grade, day and period")
	// ErrFeatureUnavailable is the remote's explicit "operation not
	// implemented by this deployment" signal. It is never surfaced to
	// callers of the sync layer: the affected collection resolves as empty.
	ErrFeatureUnavailable = errors.New("feature not available on this deployment")
)

type (
	// Repository is the authoritative remote store of truth, reached over a
	// transport-agnostic request/response boundary. Identifiers are assigned
	// remotely; local placeholder ids never cross this interface.
	Repository interface {
		FetchTeachers(ctx context.Context) ([]Teacher, error)
		FetchGrades(ctx context.Context) ([]Grade, error)
		FetchSubjects(ctx context.Context) ([]Subject, error)
		FetchTimeSlots(ctx context.Context) ([]TimeSlot, error)
		FetchBreaks(ctx context.Context) ([]Break, error)
		// FetchEntries returns the entire school's entries for a term in a
		// single round trip; scoping to a grade happens on install.
		FetchEntries(ctx context.Context, termID string) ([]Entry, error)

		CreateTimeSlots(ctx context.Context, slots []NewTimeSlot) ([]TimeSlot, error)
		CreateBreak(ctx context.Context, nb NewBreak) (Break, error)
		CreateEntry(ctx context.Context, ne NewEntry) (Entry, error)
		UpdateEntry(ctx context.Context, id string, ue UpdateEntry) (Entry, error)

		DeleteEntry(ctx context.Context, id string) error
		DeleteTimeSlot(ctx context.Context, id string) error
		DeleteBreak(ctx context.Context, id string) error
		DeleteAllBreaks(ctx context.Context) error
	}

	// Service keeps the local Store consistent with the Repository,
	// tolerating partial failure: a feature-not-available response degrades
	// the affected collection to empty instead of failing the caller, while
	// transport errors are surfaced and leave the store untouched.
	Service struct {
		store *Store
		repo  Repository
		log   core.Logger
	}
)

func NewService(store *Store, repo Repository, log core.Logger) *Service {
	return &Service{store: store, repo: repo, log: log}
}

// Store exposes the local aggregate for reads and engine queries.
func (svc *Service) Store() *Store { return svc.store }

// featureUnavailable absorbs the explicit unsupported signal: the collection
// is emptied and marked, a warning is logged, and no error reaches the caller.
func (svc *Service) featureUnavailable(col Collection, err error) bool {
	if errors.Cause(err) == ErrFeatureUnavailable {
		svc.store.MarkUnsupported(col)
		svc.log.Warn("timetable: "+string(col)+" not available on this deployment", err)
		return true
	}
	return false
}

// Loads

func (svc *Service) LoadTeachers(ctx context.Context) error {
	teachers, err := svc.repo.FetchTeachers(ctx)
	if err != nil {
		if svc.featureUnavailable(ColTeachers, err) {
			return nil
		}
		return errors.Wrap(err, "fetching teachers")
	}
	svc.store.SetTeachers(teachers)
	return nil
}

func (svc *Service) LoadGrades(ctx context.Context) error {
	grades, err := svc.repo.FetchGrades(ctx)
	if err != nil {
		if svc.featureUnavailable(ColGrades, err) {
			return nil
		}
		return errors.Wrap(err, "fetching grades")
	}
	svc.store.SetGrades(grades)
	return nil
}

func (svc *Service) LoadSubjects(ctx context.Context) error {
	subjects, err := svc.repo.FetchSubjects(ctx)
	if err != nil {
		if svc.featureUnavailable(ColSubjects, err) {
			return nil
		}
		return errors.Wrap(err, "fetching subjects")
	}
	svc.store.SetSubjects(subjects)
	return nil
}

func (svc *Service) LoadTimeSlots(ctx context.Context) error {
	slots, err := svc.repo.FetchTimeSlots(ctx)
	if err != nil {
		if svc.featureUnavailable(ColTimeSlots, err) {
			return nil
		}
		return errors.Wrap(err, "fetching time slots")
	}
	svc.store.SetTimeSlots(slots)
	return nil
}

func (svc *Service) LoadBreaks(ctx context.Context) error {
	breaks, err := svc.repo.FetchBreaks(ctx)
	if err != nil {
		if svc.featureUnavailable(ColBreaks, err) {
			return nil
		}
		return errors.Wrap(err, "fetching breaks")
	}
	svc.store.SetBreaks(breaks)
	return nil
}

// LoadEntries fetches the entire school's entries for termID but installs
// only gradeID's subset, leaving every other grade's previously loaded
// entries intact.
func (svc *Service) LoadEntries(ctx context.Context, termID, gradeID string) error {
	all, err := svc.repo.FetchEntries(ctx, termID)
	if err != nil {
		if svc.featureUnavailable(ColEntries, err) {
			return nil
		}
		return errors.Wrapf(err, "fetching entries for term %s", termID)
	}

	scoped := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.GradeID == gradeID {
			scoped = append(scoped, e)
		}
	}
	svc.store.MergeEntriesForGrade(gradeID, scoped)
	return nil
}

// LoadAll refreshes the five reference collections. Entries are loaded
// separately, per grade.
func (svc *Service) LoadAll(ctx context.Context) error {
	loaders := []func(context.Context) error{
		svc.LoadTeachers,
		svc.LoadGrades,
		svc.LoadSubjects,
		svc.LoadTimeSlots,
		svc.LoadBreaks,
	}
	for _, load := range loaders {
		if err := load(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Writes: the remote call resolves first; the store is only mutated after,
// so a failed round trip leaves the last-known-good state intact.

// CreateEntry validates the uniqueness invariant against the local store,
// creates remotely and installs the created entry under its remote id.
func (svc *Service) CreateEntry(ctx context.Context, ne NewEntry) (Entry, error) {
	if _, taken := svc.store.EntryAt(ne.GradeID, ne.Day, ne.TimeSlotID); taken {
		return Entry{}, core.NewValidationError(ErrDuplicateEntry,
			core.FieldError{Field: "timeSlotId", Error: ErrDuplicateEntry.Error()})
	}

	created, err := svc.repo.CreateEntry(ctx, ne)
	if err != nil {
		return Entry{}, errors.Wrap(err, "creating entry")
	}
	svc.store.UpsertEntry(created)
	return created, nil
}

func (svc *Service) UpdateEntry(ctx context.Context, id string, ue UpdateEntry) (Entry, error) {
	updated, err := svc.repo.UpdateEntry(ctx, id, ue)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "updating entry %s", id)
	}
	svc.store.UpsertEntry(updated)
	return updated, nil
}

func (svc *Service) DeleteEntry(ctx context.Context, id string) error {
	if err := svc.repo.DeleteEntry(ctx, id); err != nil {
		return errors.Wrapf(err, "deleting entry %s", id)
	}
	svc.store.DeleteEntry(id)
	return nil
}

func (svc *Service) DeleteTimeSlot(ctx context.Context, id string) error {
	if err := svc.repo.DeleteTimeSlot(ctx, id); err != nil {
		return errors.Wrapf(err, "deleting time slot %s", id)
	}
	svc.store.DeleteTimeSlot(id)
	return nil
}

func (svc *Service) CreateBreak(ctx context.Context, nb NewBreak) (Break, error) {
	created, err := svc.repo.CreateBreak(ctx, nb)
	if err != nil {
		return Break{}, errors.Wrap(err, "creating break")
	}
	svc.store.AddBreak(created)
	return created, nil
}

func (svc *Service) UpdateBreak(ctx context.Context, id string, ub UpdateBreak) (Break, error) {
	// the remote contract only has create/list/delete for breaks; edits are
	// optimistic local mutations, made durable by delete+create or discarded
	// on the next load.
	updated, err := svc.store.UpdateBreak(id, ub)
	if err != nil {
		return Break{}, err
	}
	return updated, nil
}

func (svc *Service) DeleteBreak(ctx context.Context, id string) error {
	if err := svc.repo.DeleteBreak(ctx, id); err != nil {
		return errors.Wrapf(err, "deleting break %s", id)
	}
	svc.store.DeleteBreak(id)
	return nil
}

func (svc *Service) DeleteAllBreaks(ctx context.Context) error {
	if err := svc.repo.DeleteAllBreaks(ctx); err != nil {
		return errors.Wrap(err, "deleting all breaks")
	}
	svc.store.DeleteAllBreaks()
	return nil
}

// ConfigureSchedule replaces the school's daily schedule wholesale: slots and
// breaks are created remotely first, then installed locally in one step.
// Because slot identifiers are reassigned, all entries are cleared.
func (svc *Service) ConfigureSchedule(ctx context.Context, slots []NewTimeSlot, breaks []NewBreak) error {
	createdSlots, err := svc.repo.CreateTimeSlots(ctx, slots)
	if err != nil {
		return errors.Wrap(err, "creating time slots")
	}

	var breaksUnsupported bool
	createdBreaks := make([]Break, 0, len(breaks))
	for _, nb := range breaks {
		b, err := svc.repo.CreateBreak(ctx, nb)
		if err != nil {
			if svc.featureUnavailable(ColBreaks, err) {
				breaksUnsupported = true
				break // schedule still usable without breaks
			}
			return errors.Wrap(err, "creating break")
		}
		createdBreaks = append(createdBreaks, b)
	}

	svc.store.BulkSetSchedule(createdSlots, createdBreaks)
	if breaksUnsupported {
		svc.store.MarkUnsupported(ColBreaks)
	}
	return nil
}

// EnrichEntriesForGrade enriches a grade's entries for display, logging a
// diagnostic per referential gap; bad records degrade, they never block
// rendering of the rest of the schedule.
func (svc *Service) EnrichEntriesForGrade(gradeID string) []EnrichedEntry {
	enriched := svc.store.EnrichEntries(svc.store.EntriesForGrade(gradeID))
	for _, ee := range enriched {
		for _, col := range ee.Missing {
			svc.log.Warn("timetable: entry "+ee.ID+" references a missing "+string(col)+" record",
				map[string]interface{}{"entryId": ee.ID, "collection": col})
		}
	}
	return enriched
}
