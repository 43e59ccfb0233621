package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// parser matches the five-field grammar: minute hour dom month dow, no
// seconds field. This mirrors the robfig/cron/v3 usage in
// internal/cronjob.NewCronJob.
var parser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// Cron wraps a parsed five-field expression. RebootMarker is never passed
// to ParseCron; callers route it to IsReboot instead.
type Cron struct {
	expr string
	schedule cronlib.Schedule
}

// ParseCron parses a normalized five-field cron expression.
func ParseCron(expr string) (*Cron, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", expr, err)
	}
	return &Cron{expr: expr, schedule: sched}, nil
}

// Next returns the next fire time strictly after t, walking the schedule
// in the local time zone.
func (c *Cron) Next(t time.Time) time.Time {
	return c.schedule.Next(t)
}

// IntervalFromTwoFires returns t2-t1 for the schedule's next two fire
// times after t, the getIntervalMs fallback path for cron jobs.
func (c *Cron) IntervalFromTwoFires(t time.Time) time.Duration {
	t1 := c.schedule.Next(t)
	t2 := c.schedule.Next(t1)
	d := t2.Sub(t1)
	if d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Fields is the parsed raw value sets for each of the five cron fields,
// used by the native-trigger adapter to build calendar-interval
// records. cron.Schedule does not expose these, so they are parsed
// directly off the normalized expression text and cross-checked in
// tests against the walker's Next() output.
type Fields struct {
	Minutes []int // 0-59
	Hours []int // 0-23
	Days []int // 1-31, nil means every day
	Months []int // 1-12, nil means every month
	Weekdays []int // 0-6 (Sunday=0), nil means every weekday
}

// ParseFields extracts the raw value sets from a five-field cron
// expression. Wildcards produce a nil slice for that field (no
// constraint); everything else is expanded to its explicit value list.
func ParseFields(expr string) (Fields, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return Fields{}, fmt.Errorf("schedule: expected 5 cron fields, got %d in %q", len(parts), expr)
	}
	minutes, err := expandField(parts[0], 0, 59)
	if err != nil {
		return Fields{}, fmt.Errorf("minute field: %w", err)
	}
	hours, err := expandField(parts[1], 0, 23)
	if err != nil {
		return Fields{}, fmt.Errorf("hour field: %w", err)
	}
	days, err := expandField(parts[2], 1, 31)
	if err != nil {
		return Fields{}, fmt.Errorf("day-of-month field: %w", err)
	}
	months, err := expandField(parts[3], 1, 12)
	if err != nil {
		return Fields{}, fmt.Errorf("month field: %w", err)
	}
	weekdays, err := expandField(parts[4], 0, 6)
	if err != nil {
		return Fields{}, fmt.Errorf("weekday field: %w", err)
	}
	return Fields{Minutes: minutes, Hours: hours, Days: days, Months: months, Weekdays: weekdays}, nil
}

// expandField parses one cron field (*, N, a-b, a-b/n, */n, or a comma
// list of any of those) into its explicit sorted, deduplicated value
// list. A bare "*" returns nil: "no constraint on this field".
func expandField(field string, min, max int) ([]int, error) {
	if field == "*" {
		return nil, nil
	}
	if field == "L" && max == 31 {
		// Day-of-month "last day" marker: represented here by its own
		// sentinel value (-1) outside the valid range, interpreted specially
		// by the native-trigger adapter.
		return []int{lastDayMarker}, nil
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(field, ",") {
		vals, err := expandFieldPart(part, min, max)
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			seen[v] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sortInts(out)
	return out, nil
}

// lastDayMarker flags "day-of-month = last day", since cron's "L" has no
// fixed numeric value; the native-trigger adapter must special-case it.
const lastDayMarker = -1

func expandFieldPart(part string, min, max int) ([]int, error) {
	step := 1
	base := part
	if i := strings.IndexByte(part, '/'); i >= 0 {
		base = part[:i]
		n, err := strconv.Atoi(part[i+1:])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid step in %q", part)
		}
		step = n
	}

	var lo, hi int
	switch {
	case base == "*":
		lo, hi = min, max
	case strings.Contains(base, "-"):
		bounds := strings.SplitN(base, "-", 2)
		a, err1 := strconv.Atoi(bounds[0])
		b, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil || a > b {
			return nil, fmt.Errorf("invalid range %q", base)
		}
		lo, hi = a, b
	default:
		v, err := strconv.Atoi(base)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", base)
		}
		lo, hi = v, v
	}
	if lo < min || hi > max {
		return nil, fmt.Errorf("value out of range [%d,%d] in %q", min, max, part)
	}

	var out []int
	for v := lo; v <= hi; v += step {
		out = append(out, v)
	}
	return out, nil
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
