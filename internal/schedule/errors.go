package schedule

import "errors"

var (
	// ErrInvalidSchedule marks a cron expression the parser rejects.
	ErrInvalidSchedule = errors.New("invalid schedule expression")

	// ErrExecutionInFlight is returned when a manual run is requested while
	// the schedule already has an execution running.
	ErrExecutionInFlight = errors.New("schedule already has an execution in flight")
)
