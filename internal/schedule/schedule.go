package schedule

import (
	"time"

	"github.com/cronburgundy/cronburgundy/internal/jobspec"
)

// IsReboot reports whether job's schedule normalizes to RebootMarker. Such
// jobs fire only through the native-trigger adapter's run-at-load path and
// are never due by interval/cron polling.
func IsReboot(job jobspec.Job) (bool, error) {
	if !job.HasSchedule() {
		return false, nil
	}
	expr, err := Normalize(job.Schedule)
	if err != nil {
		return false, err
	}
	return expr == RebootMarker, nil
}

// GetIntervalMs implements getIntervalMs: interval jobs
// report their configured interval directly; cron jobs report the gap
// between their next two fire times after now, falling back to 24h for
// irregular schedules. A @reboot job has no polling interval; callers
// needing a due/next-run answer for one should use IsReboot instead.
func GetIntervalMs(job jobspec.Job) (time.Duration, error) {
	if !job.HasSchedule() {
		return job.Interval(), nil
	}
	expr, err := Normalize(job.Schedule)
	if err != nil {
		return 0, err
	}
	if expr == RebootMarker {
		return 0, nil
	}
	c, err := ParseCron(expr)
	if err != nil {
		return 0, err
	}
	return c.IntervalFromTwoFires(time.Now()), nil
}

// ShouldRun implements shouldRun: due if never run, or if
// now - lastRun >= getIntervalMs(job). This wall-clock differencing
// applies uniformly to both interval and cron jobs; cron jobs are
// already anchored to wall time by the native scheduler, so the
// difference-based check agrees with "is it due" without re-walking the
// cron expression for every invocation. A @reboot job is never due here:
// launchd's RunAtLoad trigger is its only execution path.
func ShouldRun(job jobspec.Job, lastRun *time.Time) (bool, error) {
	reboot, err := IsReboot(job)
	if err != nil {
		return false, err
	}
	if reboot {
		return false, nil
	}
	if lastRun == nil {
		return true, nil
	}
	interval, err := GetIntervalMs(job)
	if err != nil {
		return false, err
	}
	return time.Since(*lastRun) >= interval, nil
}

// GetNextRun implements getNextRun:
// - schedule present -> cron's next fire time strictly after now.
// - interval present, no lastRun -> now.
// - interval present with lastRun -> lastRun + interval.
// - @reboot schedule -> zero time: its next run is "whenever launchd next
// loads the job", not a computable wall-clock instant.
func GetNextRun(job jobspec.Job, lastRun *time.Time) (time.Time, error) {
	if job.HasSchedule() {
		expr, err := Normalize(job.Schedule)
		if err != nil {
			return time.Time{}, err
		}
		if expr == RebootMarker {
			return time.Time{}, nil
		}
		c, err := ParseCron(expr)
		if err != nil {
			return time.Time{}, err
		}
		return c.Next(time.Now()), nil
	}
	if lastRun == nil {
		return time.Now(), nil
	}
	return lastRun.Add(job.Interval()), nil
}
