package launchd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cronburgundy/cronburgundy/internal/jobspec"
)

// InstallResult is Install's report: the config either didn't exist and
// was written, already matched byte-for-byte, or replaced a stale copy.
type InstallResult string

const (
	Installed InstallResult = "installed"
	Unchanged InstallResult = "unchanged"
)

// PauseClearer is the minimal state-store surface Uninstall needs to
// clear a job's paused-state entry.
type PauseClearer interface {
	Resume(qid string) error
}

// LockReleaser is the minimal lock-manager surface Uninstall needs to
// clear a job's lock.
type LockReleaser interface {
	Release(qid string) error
}

// Adapter manages launchd plist files under ConfigDir (typically
// ~/Library/LaunchAgents) and their launchctl registration.
type Adapter struct {
	ConfigDir string
	CLIPath string
	RuntimeDir string
	RunnerLogPath string
	RunnerErrLogPath string

	State PauseClearer
	Locks LockReleaser
}

// Serialize renders a JobConfig into the plist XML bytes launchd
// consumes. Output is fully deterministic (stable key order, no
// timestamps) so Install's byte-equality check is meaningful.
func Serialize(cfg JobConfig) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString("<dict>\n")
	writeKeyString(&b, "Label", cfg.Label)
	writeKeyStringArray(&b, "ProgramArguments", cfg.ProgramArguments)
	if cfg.WorkingDirectory != "" {
		writeKeyString(&b, "WorkingDirectory", cfg.WorkingDirectory)
	}
	if cfg.IntervalSeconds != nil {
		writeKeyInt(&b, "StartInterval", *cfg.IntervalSeconds)
	}
	if len(cfg.Calendar) > 0 {
		writeCalendar(&b, cfg.Calendar)
	}
	if cfg.StandardOutPath != "" {
		writeKeyString(&b, "StandardOutPath", cfg.StandardOutPath)
	}
	if cfg.StandardErrorPath != "" {
		writeKeyString(&b, "StandardErrorPath", cfg.StandardErrorPath)
	}
	if cfg.EnvPath != "" {
		b.WriteString("\t<key>EnvironmentVariables</key>\n\t<dict>\n")
		writeKeyString(&b, "PATH", cfg.EnvPath, "\t\t")
		b.WriteString("\t</dict>\n")
	}
	if cfg.RunAtLoad {
		b.WriteString("\t<key>RunAtLoad</key>\n\t<true/>\n")
	}
	b.WriteString("</dict>\n</plist>\n")
	return []byte(b.String())
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
`

func writeKeyString(b *strings.Builder, key, value string, indent ...string) {
	ind := "\t"
	if len(indent) > 0 {
		ind = indent[0]
	}
	fmt.Fprintf(b, "%s<key>%s</key>\n%s<string>%s</string>\n", ind, escape(key), ind, escape(value))
}

func writeKeyInt(b *strings.Builder, key string, value int) {
	fmt.Fprintf(b, "\t<key>%s</key>\n\t<integer>%d</integer>\n", escape(key), value)
}

func writeKeyStringArray(b *strings.Builder, key string, values []string) {
	fmt.Fprintf(b, "\t<key>%s</key>\n\t<array>\n", escape(key))
	for _, v := range values {
		fmt.Fprintf(b, "\t\t<string>%s</string>\n", escape(v))
	}
	b.WriteString("\t</array>\n")
}

func writeCalendar(b *strings.Builder, entries []CalendarEntry) {
	if len(entries) == 1 {
		b.WriteString("\t<key>StartCalendarInterval</key>\n")
		writeCalendarDict(b, entries[0], "\t")
		return
	}
	b.WriteString("\t<key>StartCalendarInterval</key>\n\t<array>\n")
	for _, e := range entries {
		b.WriteString("\t\t<dict>\n")
		writeCalendarFields(b, e, "\t\t\t")
		b.WriteString("\t\t</dict>\n")
	}
	b.WriteString("\t</array>\n")
}

func writeCalendarDict(b *strings.Builder, e CalendarEntry, indent string) {
	fmt.Fprintf(b, "%s<dict>\n", indent)
	writeCalendarFields(b, e, indent+"\t")
	fmt.Fprintf(b, "%s</dict>\n", indent)
}

func writeCalendarFields(b *strings.Builder, e CalendarEntry, indent string) {
	type field struct {
		name string
		val *int
	}
	for _, f := range []field{
		{"Minute", e.Minute}, {"Hour", e.Hour}, {"Day", e.Day},
		{"Month", e.Month}, {"Weekday", e.Weekday},
	} {
		if f.val == nil {
			continue
		}
		fmt.Fprintf(b, "%s<key>%s</key>\n%s<integer>%d</integer>\n", indent, f.name, indent, *f.val)
	}
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func (a *Adapter) path(label string) string {
	return filepath.Join(a.ConfigDir, PlistFilename(label))
}

// Install writes qid's plist if it differs from any existing one, then
// (re)loads it via launchctl. Unload/load
// errors are tolerated: the config may not have been previously
// registered.
func (a *Adapter) Install(qid string, job jobspec.Job) (InstallResult, error) {
	cfg, err := BuildJobConfig(qid, job, a.CLIPath, a.RuntimeDir, a.RunnerLogPath, a.RunnerErrLogPath)
	if err != nil {
		return "", err
	}
	body := Serialize(cfg)
	path := a.path(cfg.Label)

	if existing, err := os.ReadFile(path); err == nil {
		if string(existing) == string(body) {
			return Unchanged, nil
		}
	}

	_ = a.launchctl("unload", path)
	if err := os.MkdirAll(a.ConfigDir, 0o755); err != nil {
		return "", fmt.Errorf("create launchd config dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write plist %s: %w", path, err)
	}
	_ = a.launchctl("load", "-w", path)
	return Installed, nil
}

// Uninstall unloads and deletes qid's plist, clears its lock, and clears
// its paused-state entry.
func (a *Adapter) Uninstall(qid string) error {
	namespace, id := splitQid(qid)
	path := a.path(Label(namespace, id))
	_ = a.launchctl("unload", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove plist %s: %w", path, err)
	}
	if a.Locks != nil {
		_ = a.Locks.Release(qid)
	}
	if a.State != nil {
		_ = a.State.Resume(qid)
	}
	return nil
}

func splitQid(qid string) (namespace, id string) {
	for i := 0; i < len(qid); i++ {
		if qid[i] == '/' {
			return qid[:i], qid[i+1:]
		}
	}
	return "", qid
}

func (a *Adapter) launchctl(args ...string) error {
	// #nosec G204 -- args are fixed subcommands plus our own plist paths.
	return exec.Command("launchctl", args...).Run()
}

// SyncEntry is one job considered by Sync.
type SyncEntry struct {
	Qid string
	Job jobspec.Job
}

// SyncSummary is Sync's report.
type SyncSummary struct {
	Installed []string
	Unchanged []string
	Disabled []string
	Orphaned []string
}

// Sync installs every enabled job, uninstalls every disabled one, then
// removes orphaned plists: existing files whose namespace matches but
// whose bare id is absent from the incoming set.
func (a *Adapter) Sync(namespace string, entries []SyncEntry) (SyncSummary, error) {
	var summary SyncSummary
	incoming := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		incoming[e.Qid] = struct{}{}
		if !e.Job.IsEnabled() {
			if err := a.Uninstall(e.Qid); err != nil {
				return summary, err
			}
			summary.Disabled = append(summary.Disabled, e.Qid)
			continue
		}
		result, err := a.Install(e.Qid, e.Job)
		if err != nil {
			return summary, err
		}
		switch result {
		case Installed:
			summary.Installed = append(summary.Installed, e.Qid)
		case Unchanged:
			summary.Unchanged = append(summary.Unchanged, e.Qid)
		}
	}

	installed, err := a.ListInstalledPlists()
	if err != nil {
		return summary, err
	}
	for _, name := range installed {
		ns, id, ok := ParsePlistFilename(name)
		if !ok || ns != namespace {
			continue
		}
		qid := id
		if ns != "" {
			qid = ns + "/" + id
		}
		if _, present := incoming[qid]; present {
			continue
		}
		if err := a.Uninstall(qid); err != nil {
			return summary, err
		}
		summary.Orphaned = append(summary.Orphaned, qid)
	}

	sort.Strings(summary.Installed)
	sort.Strings(summary.Unchanged)
	sort.Strings(summary.Disabled)
	sort.Strings(summary.Orphaned)
	return summary, nil
}

// ListInstalledPlists returns every filename in ConfigDir beginning with
// the fixed job-label prefix.
func (a *Adapter) ListInstalledPlists() ([]string, error) {
	entries, err := os.ReadDir(a.ConfigDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read launchd config dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), labelPrefix) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
