package scheduler

import "errors"

var (
	// ErrSchedulerRunning is returned when registering a job after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrJobNotFound is returned for an unknown job name
	ErrJobNotFound = errors.New("job not found")

	// ErrJobBusy is returned when a run of the same job is in flight
	ErrJobBusy = errors.New("job is already running")

	// ErrInvalidConfig is returned for a non-positive interval or a duplicate name
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
