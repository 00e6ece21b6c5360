package timetable

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	breakTypeTag  = "breaktype"
	breakTypeText = "invalid break type"

	errStartNotBeforeEnd  = "startTime must be before endTime"
	errUnknownAfterPeriod = "afterPeriod does not match any configured period"
)

// RegisterValidators registers this package's custom validation tags.
// Call once after core.NewValidator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(breakTypeTag, breakTypeValidation)
	core.RegisterCustomTranslation(validate, translator, breakTypeTag, breakTypeText)
}

func breakTypeValidation(fl validator.FieldLevel) bool {
	return BreakType(fl.Field().String()).Valid()
}

func (nts NewTimeSlot) Validate(validate *validator.Validate) error {
	if err := validate.Struct(nts); err != nil {
		return err
	}
	start, err := ParseClock(nts.StartTime)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "startTime", Error: err.Error()})
	}
	end, err := ParseClock(nts.EndTime)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "endTime", Error: err.Error()})
	}
	if start >= end {
		return core.NewValidationError(errors.New(errStartNotBeforeEnd),
			core.FieldError{Field: "startTime", Error: errStartNotBeforeEnd})
	}
	return nil
}

// Validate checks nb against the store's configured periods: AfterPeriod must
// reference an existing period number.
func (nb NewBreak) Validate(validate *validator.Validate, store *Store) error {
	if err := validate.Struct(nb); err != nil {
		return err
	}
	for _, ts := range store.TimeSlots() {
		if ts.PeriodNumber == nb.AfterPeriod {
			return nil
		}
	}
	return core.NewValidationError(errors.New(errUnknownAfterPeriod),
		core.FieldError{Field: "afterPeriod", Error: errUnknownAfterPeriod})
}

func (ne NewEntry) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

func (ue UpdateEntry) Validate(validate *validator.Validate) error {
	return validate.Struct(ue)
}

func (ub UpdateBreak) Validate(validate *validator.Validate) error {
	return validate.Struct(ub)
}

func (uts UpdateTimeSlot) Validate(validate *validator.Validate) error {
	if err := validate.Struct(uts); err != nil {
		return err
	}
	if uts.StartTime != nil && uts.EndTime != nil {
		start, _ := ParseClock(*uts.StartTime)
		end, _ := ParseClock(*uts.EndTime)
		if start >= end {
			return core.NewValidationError(errors.New(errStartNotBeforeEnd),
				core.FieldError{Field: "startTime", Error: errStartNotBeforeEnd})
		}
	}
	return nil
}
