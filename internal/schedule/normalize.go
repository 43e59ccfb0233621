// Package schedule implements the schedule model:
// normalizing human schedule phrases to five-field cron, wall-clock
// cron evaluation via robfig/cron/v3 (same dependency as
// internal/cronjob.NewCronJob uses), and the due/next-run math used by
// the Runner.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RebootMarker is Normalize's output for the "reboot"/"startup" phrases.
// It is not a cron expression: ParseCron/ParseFields never see it. Callers
// check for it explicitly (see IsReboot) and route it to the native-trigger
// adapter's run-at-load path instead of cron/interval due-polling.
const RebootMarker = "@reboot"

var fiveFieldRe = regexp.MustCompile(`^[*0-9,\-/LW#]+$`)

var weekdayNames = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
	"thursday": 4, "friday": 5, "saturday": 6,
}

var periodAliases = map[string]string{
	"hourly": "0 * * * *", "daily": "0 0 * * *", "weekly": "0 0 * * 0",
	"monthly": "0 0 1 * *", "yearly": "0 0 1 1 *", "annually": "0 0 1 1 *",
}

var periodFields = map[string]int{
	// index into the five cron fields that "every N <unit>" steps: 0=min 1=hour 2=dom 3=month
	"minute": 0, "minutes": 0,
	"hour": 1, "hours": 1,
	"day": 2, "days": 2,
	"week": -1, "weeks": -1, // handled specially (no native weeks field)
	"month": 3, "months": 3,
}

// Normalize converts a free-text or cron schedule string into a five-field
// cron expression, per the supported phrase grammar. A string that
// already looks like five cron fields passes through unchanged.
func Normalize(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("schedule: empty expression")
	}

	if looksLikeCron(s) {
		return raw, nil
	}

	if expr, ok := matchSpecials(s); ok {
		return expr, nil
	}
	if expr, ok := matchPeriodWords(s); ok {
		return expr, nil
	}
	if expr, ok := matchQuantified(s); ok {
		return expr, nil
	}
	if expr, ok := matchTimes(s); ok {
		return expr, nil
	}
	if expr, ok := matchWeekdayForms(s); ok {
		return expr, nil
	}
	if expr, ok := matchMonthly(s); ok {
		return expr, nil
	}
	if s == "business hours" {
		return "0 9-17 * * 1-5", nil
	}

	return "", fmt.Errorf("schedule: unrecognized phrase %q", raw)
}

// looksLikeCron reports whether s already is a five-field cron
// expression: each field matches ^[*0-9,\-/LW#]+$.
func looksLikeCron(s string) bool {
	fields := strings.Fields(s)
	if len(fields) != 5 {
		return false
	}
	for _, f := range fields {
		if !fiveFieldRe.MatchString(f) {
			return false
		}
	}
	return true
}

func matchSpecials(s string) (string, bool) {
	switch s {
	case "never":
		// Feb 30 never occurs; any fixed nonsense day works as a marker.
		return "0 0 30 2 *", true
	case "reboot", "startup":
		return RebootMarker, true
	}
	return "", false
}

func matchPeriodWords(s string) (string, bool) {
	if expr, ok := periodAliases[s]; ok {
		return expr, true
	}
	switch s {
	case "every minute":
		return "* * * * *", true
	case "every hour":
		return "0 * * * *", true
	case "every day":
		return "0 0 * * *", true
	case "every week":
		return "0 0 * * 0", true
	case "every month":
		return "0 0 1 * *", true
	case "every year":
		return "0 0 1 1 *", true
	}
	return "", false
}

var quantifiedRe = regexp.MustCompile(`^(?:every\s+)?(\d+)\s+(minute|minutes|hour|hours|day|days|week|weeks|month|months)$`)

func matchQuantified(s string) (string, bool) {
	m := quantifiedRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", false
	}
	unit := m[2]

	if unit == "week" || unit == "weeks" {
		// No native "every N weeks" cron field; approximate as every N*7
		// days is not equivalent to wall-clock weeks, so express as a
		// day-of-month step is wrong too. Cron has no weeks unit, so the
		// recognized single-unit form is every week (dow 0); stepped weeks
		// are not part of the five-field grammar and fall through.
		return "", false
	}

	field := periodFields[unit]
	fields := []string{"*", "*", "*", "*", "*"}
	// Fields below the stepped unit are pinned to their first value, the
	// same way "every hour"/"every day"/"every month" pin them.
	for i := 0; i < field; i++ {
		fields[i] = "0"
		if i == 2 {
			fields[i] = "1"
		}
	}
	fields[field] = fmt.Sprintf("*/%d", n)
	return strings.Join(fields, " "), true
}

var timeAtRe = regexp.MustCompile(`^at\s+(\d{1,2}):(\d{2})\s*(am|pm)?$`)

func matchTimes(s string) (string, bool) {
	switch s {
	case "midnight":
		return "0 0 * * *", true
	case "noon":
		return "0 12 * * *", true
	case "morning":
		return "0 9 * * *", true
	case "evening":
		return "0 18 * * *", true
	}
	if m := timeAtRe.FindStringSubmatch(s); m != nil {
		hour, minute, ok := parseClockTime(m[1], m[2], m[3])
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%d %d * * *", minute, hour), true
	}
	return "", false
}

// parseClockTime applies AM/PM mapping: "12 am" -> 0,
// "12 pm" -> 12, otherwise "pm" adds 12 to a 1-11 hour.
func parseClockTime(hourStr, minuteStr, ampm string) (hour, minute int, ok bool) {
	h, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(minuteStr)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	switch ampm {
	case "am":
		if h == 12 {
			h = 0
		}
	case "pm":
		if h != 12 {
			h += 12
		}
	case "":
		if h < 0 || h > 23 {
			return 0, 0, false
		}
		return h, m, true
	}
	if h < 0 || h > 23 {
		return 0, 0, false
	}
	return h, m, true
}

var onListAtRe = regexp.MustCompile(`^on\s+([a-z,\s]+?)\s+at\s+(\d{1,2}):(\d{2})\s*(am|pm)?$`)

func matchWeekdayForms(s string) (string, bool) {
	if dow, ok := weekdayNames[s]; ok {
		return fmt.Sprintf("0 0 * * %d", dow), true
	}
	switch s {
	case "weekdays":
		return "0 0 * * 1-5", true
	case "weekends":
		return "0 0 * * 0,6", true
	}
	if m := onListAtRe.FindStringSubmatch(s); m != nil {
		hour, minute, ok := parseClockTime(m[2], m[3], m[4])
		if !ok {
			return "", false
		}
		dowExpr, ok := parseWeekdayList(m[1])
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, dowExpr), true
	}
	return "", false
}

func parseWeekdayList(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "weekdays":
		return "1-5", true
	case "weekends":
		return "0,6", true
	}
	parts := strings.Split(raw, ",")
	nums := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		dow, ok := weekdayNames[p]
		if !ok {
			return "", false
		}
		nums = append(nums, strconv.Itoa(dow))
	}
	if len(nums) == 0 {
		return "", false
	}
	return strings.Join(nums, ","), true
}

var onDayOfMonthRe = regexp.MustCompile(`^on\s+(\d{1,2})(?:st|nd|rd|th)\s+of\s+month(?:\s+at\s+(\d{1,2}):(\d{2})\s*(am|pm)?)?$`)

func matchMonthly(s string) (string, bool) {
	switch s {
	case "first day of month":
		return "0 0 1 * *", true
	case "middle of month":
		return "0 0 15 * *", true
	case "last day of month":
		return "0 0 L * *", true
	}
	if m := onDayOfMonthRe.FindStringSubmatch(s); m != nil {
		dom, err := strconv.Atoi(m[1])
		if err != nil || dom < 1 || dom > 31 {
			return "", false
		}
		hour, minute := 0, 0
		if m[2] != "" {
			h, mi, ok := parseClockTime(m[2], m[3], m[4])
			if !ok {
				return "", false
			}
			hour, minute = h, mi
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, dom), true
	}
	return "", false
}
