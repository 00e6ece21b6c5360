package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/ratiba/core/timetable"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db    *sql.DB
	ttSvc *timetable.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args]                          - run DB migrations (up, down, status, version, ...)")
	fmt.Println("  seedschedule -start HH:MM -end HH:MM -lesson N  - configure the daily period grid")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCmd := flag.NewFlagSet("seedschedule", flag.ExitOnError)
	seedStart := seedCmd.String("start", "08:00", "First period's start time.")
	seedEnd := seedCmd.String("end", "16:00", "Last period's latest end time.")
	seedLesson := seedCmd.Int("lesson", 45, "Lesson duration in minutes.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seedschedule":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.seedSchedule(context.Background(), *seedStart, *seedEnd, *seedLesson)
	default:
		cli.printUsage()
		return errHelp
	}
}
