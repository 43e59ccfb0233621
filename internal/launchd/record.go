package launchd

import (
	"fmt"

	"github.com/cronburgundy/cronburgundy/internal/jobspec"
	"github.com/cronburgundy/cronburgundy/internal/schedule"
)

// CalendarEntry is one StartCalendarInterval record: the present cron
// field values, omitting wildcards. A nil pointer means
// "this field is unconstrained" and is omitted from the serialized dict.
type CalendarEntry struct {
	Minute, Hour, Day, Month, Weekday *int
}

// JobConfig is everything needed to render one job's plist.
type JobConfig struct {
	Label string
	ProgramArguments []string
	WorkingDirectory string
	StandardOutPath string
	StandardErrorPath string
	EnvPath string
	IntervalSeconds *int // set for interval jobs (StartInterval)
	Calendar []CalendarEntry // set for cron jobs (StartCalendarInterval)
	RunAtLoad bool // set for the wake trigger and @reboot jobs
}

// MinIntervalMs mirrors jobspec.MinIntervalMs: the adapter refuses to
// install an interval trigger faster than this.
const MinIntervalMs = jobspec.MinIntervalMs

// BuildJobConfig translates a job's normalized schedule into a JobConfig
// ready for serialization. cliPath is the cronburgundy binary path;
// runtimeDir is prepended to PATH so the job can find the binary.
func BuildJobConfig(qid string, job jobspec.Job, cliPath, runtimeDir, runnerLog, runnerErrLog string) (JobConfig, error) {
	label := labelForQid(qid)
	cfg := JobConfig{
		Label: label,
		ProgramArguments: []string{cliPath, "run", "--scheduled", qid},
		WorkingDirectory: job.SourceDir(),
		StandardOutPath: runnerLog,
		StandardErrorPath: runnerErrLog,
		EnvPath: runtimeDir + ":/usr/local/bin:/usr/bin:/bin",
	}

	if job.HasSchedule() {
		expr, err := schedule.Normalize(job.Schedule)
		if err != nil {
			return JobConfig{}, err
		}
		if expr == schedule.RebootMarker {
			cfg.RunAtLoad = true
			return cfg, nil
		}
		fields, err := schedule.ParseFields(expr)
		if err != nil {
			return JobConfig{}, err
		}
		cfg.Calendar = expandCalendar(fields)
		return cfg, nil
	}

	if job.IntervalMs < MinIntervalMs {
		return JobConfig{}, fmt.Errorf("launchd: interval %dms below minimum %dms for %s", job.IntervalMs, MinIntervalMs, qid)
	}
	seconds := int(job.IntervalMs / 1000)
	cfg.IntervalSeconds = &seconds
	return cfg, nil
}

// labelForQid splits a qualified id back into namespace/id (reusing the
// registry's own rule) and derives the label.
func labelForQid(qid string) string {
	for i := 0; i < len(qid); i++ {
		if qid[i] == '/' {
			return Label(qid[:i], qid[i+1:])
		}
	}
	return Label("", qid)
}

// lastDayCandidates is the set of day-of-month values that could be "the
// last day" across all months (28 for February in a non-leap year, up to
// 31). launchd's StartCalendarInterval has no native "last day" marker,
// so the cron "L" form expands into one entry per candidate day; the
// job fires on each day of the set that the month has, an over-trigger
// on every month except a non-leap February, which the runner's
// wall-clock shouldRun gate does not re-check for scheduled invocations
// (documented limitation, see DESIGN.md).
var lastDayCandidates = []int{28, 29, 30, 31}

// expandCalendar builds the Cartesian product of every present field's
// values into individual calendar records.
func expandCalendar(f schedule.Fields) []CalendarEntry {
	type dim struct {
		values []int
		assign func(*CalendarEntry, int)
	}
	days := f.Days
	if len(days) == 1 && days[0] == lastDayMarkerValue {
		days = lastDayCandidates
	}
	dims := []dim{
		{f.Minutes, func(e *CalendarEntry, v int) { e.Minute = intPtr(v) }},
		{f.Hours, func(e *CalendarEntry, v int) { e.Hour = intPtr(v) }},
		{days, func(e *CalendarEntry, v int) { e.Day = intPtr(v) }},
		{f.Months, func(e *CalendarEntry, v int) { e.Month = intPtr(v) }},
		{f.Weekdays, func(e *CalendarEntry, v int) { e.Weekday = intPtr(v) }},
	}

	entries := []CalendarEntry{{}}
	for _, d := range dims {
		if d.values == nil {
			continue
		}
		var next []CalendarEntry
		for _, e := range entries {
			for _, v := range d.values {
				ne := e
				d.assign(&ne, v)
				next = append(next, ne)
			}
		}
		entries = next
	}
	return entries
}

// lastDayMarkerValue mirrors schedule.lastDayMarker without exporting
// schedule's internals; it must equal the -1 that ParseFields returns for
// a day-of-month "L".
const lastDayMarkerValue = -1

func intPtr(v int) *int { return &v }
