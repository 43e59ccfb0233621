// Package launchd implements the native-trigger adapter: translating
// normalized schedules into launchd's on-disk plist format, and
// managing the install/uninstall/sync/list lifecycle of those
// configurations via launchctl. No library in the reference corpus
// covers Apple's plist XML dialect (it is not a general XML shape —
// adjacent <key>/<value> pairs rather than per-field elements), so the
// serializer is hand-rolled text, the same way pkg/template builds its
// own generated config shapes; see DESIGN.md.
package launchd

import "strings"

const (
	labelPrefix = "com.cron-burgundy.job."
	wakeLabel = "com.cron-burgundy.wakecheck"
	plistSuffix = ".plist"
)

// Label returns the stable launchd label for a job:
// "com.cron-burgundy.job.<ns>.<id>" when namespaced, else
// "com.cron-burgundy.job.<id>".
func Label(namespace, id string) string {
	if namespace == "" {
		return labelPrefix + id
	}
	return labelPrefix + namespace + "." + id
}

// WakeLabel is the fixed label of the wake-trigger configuration.
func WakeLabel() string { return wakeLabel }

// PlistFilename returns the on-disk filename for a label.
func PlistFilename(label string) string { return label + plistSuffix }

// ParsePlistFilename recovers {namespace, id} from a job plist's
// filename. It returns ok=false for the wake-trigger
// plist or any name outside the job label prefix.
func ParsePlistFilename(name string) (namespace, id string, ok bool) {
	name = strings.TrimSuffix(name, plistSuffix)
	if name == wakeLabel {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, labelPrefix)
	if rest == name {
		return "", "", false // no job prefix
	}
	// Id validation forbids dots in ids, so the first dot in
	// the remainder is unambiguously the namespace/id separator.
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		return rest[:i], rest[i+1:], true
	}
	return "", rest, true
}
