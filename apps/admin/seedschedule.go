package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/timetable"
)

func (cli *commandLine) seedSchedule(ctx context.Context, start, end string, lesson int) error {
	startMin, err := timetable.ParseClock(start)
	if err != nil {
		return err
	}
	endMin, err := timetable.ParseClock(end)
	if err != nil {
		return err
	}

	slots, err := buildDaySlots(startMin, endMin, lesson)
	if err != nil {
		return err
	}

	if err = cli.ttSvc.ConfigureSchedule(ctx, slots, nil); err != nil {
		return err
	}
	logger.Printf("configured %d periods of %dmin between %s and %s\n", len(slots), lesson, startMin, endMin)
	return nil
}

// buildDaySlots cuts the school day into back-to-back periods of equal
// duration; a trailing remainder shorter than one lesson is left unused.
func buildDaySlots(start, end timetable.ClockMinutes, lesson int) ([]timetable.NewTimeSlot, error) {
	if lesson <= 0 {
		return nil, errors.Errorf("lesson duration must be positive (got %d)", lesson)
	}
	if start >= end {
		return nil, errors.Errorf("start %s must precede end %s", start, end)
	}

	var slots []timetable.NewTimeSlot
	period := 1
	for cur := start; cur+timetable.ClockMinutes(lesson) <= end; cur += timetable.ClockMinutes(lesson) {
		slotEnd := cur + timetable.ClockMinutes(lesson)
		slots = append(slots, timetable.NewTimeSlot{
			PeriodNumber: period,
			Label:        fmt.Sprintf("%s - %s", cur, slotEnd),
			StartTime:    cur.String(),
			EndTime:      slotEnd.String(),
		})
		period++
	}
	if len(slots) == 0 {
		return nil, errors.Errorf("no full %dmin period fits between %s and %s", lesson, start, end)
	}
	return slots, nil
}
