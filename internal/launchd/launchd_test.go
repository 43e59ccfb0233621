package launchd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cronburgundy/cronburgundy/internal/jobspec"
)

func TestParsePlistFilenameRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		wantNs string
		wantID string
		wantOK bool
	}{
		{"com.cron-burgundy.job.pm.tick.plist", "pm", "tick", true},
		{"com.cron-burgundy.job.x.plist", "", "x", true},
		{"com.cron-burgundy.wakecheck.plist", "", "", false},
	}
	for _, c := range cases {
		ns, id, ok := ParsePlistFilename(c.name)
		if ok != c.wantOK {
			t.Fatalf("%s: ok = %v, want %v", c.name, ok, c.wantOK)
		}
		if !ok {
			continue
		}
		if ns != c.wantNs || id != c.wantID {
			t.Fatalf("%s: got {%s %s}, want {%s %s}", c.name, ns, id, c.wantNs, c.wantID)
		}
	}
}

func TestLabelAndPlistFilenameAgree(t *testing.T) {
	label := Label("pm", "tick")
	if label != "com.cron-burgundy.job.pm.tick" {
		t.Fatalf("unexpected label %q", label)
	}
	ns, id, ok := ParsePlistFilename(PlistFilename(label))
	if !ok || ns != "pm" || id != "tick" {
		t.Fatalf("round trip failed: %s %s %v", ns, id, ok)
	}
}

func ints(vs ...int) []*int {
	out := make([]*int, len(vs))
	for i, v := range vs {
		out[i] = intPtr(v)
	}
	return out
}

func TestCronExpansionRanges(t *testing.T) {
	job := jobspec.Job{ID: "t", Schedule: "0 6-8 * * *", SourceFile: "/jobs/a.yaml"}
	cfg, err := BuildJobConfig("t", job, "/usr/local/bin/cronb", "/run", "/log/out", "/log/err")
	if err != nil {
		t.Fatalf("BuildJobConfig: %v", err)
	}
	if len(cfg.Calendar) != 3 {
		t.Fatalf("got %d calendar entries, want 3", len(cfg.Calendar))
	}
	for i, hour := range []int{6, 7, 8} {
		e := cfg.Calendar[i]
		if e.Minute == nil || *e.Minute != 0 || e.Hour == nil || *e.Hour != hour {
			t.Fatalf("entry %d = %+v, want Minute=0 Hour=%d", i, e, hour)
		}
	}
}

func TestCronExpansionStep(t *testing.T) {
	job := jobspec.Job{ID: "t", Schedule: "*/5 * * * *", SourceFile: "/jobs/a.yaml"}
	cfg, err := BuildJobConfig("t", job, "/cli", "/run", "/o", "/e")
	if err != nil {
		t.Fatalf("BuildJobConfig: %v", err)
	}
	if len(cfg.Calendar) != 12 {
		t.Fatalf("got %d entries, want 12", len(cfg.Calendar))
	}
	for i, e := range cfg.Calendar {
		want := i * 5
		if e.Minute == nil || *e.Minute != want {
			t.Fatalf("entry %d minute = %v, want %d", i, e.Minute, want)
		}
	}
}

func TestCronExpansionWeekdayRange(t *testing.T) {
	job := jobspec.Job{ID: "t", Schedule: "0 9 * * 1-5", SourceFile: "/jobs/a.yaml"}
	cfg, err := BuildJobConfig("t", job, "/cli", "/run", "/o", "/e")
	if err != nil {
		t.Fatalf("BuildJobConfig: %v", err)
	}
	if len(cfg.Calendar) != 5 {
		t.Fatalf("got %d entries, want 5", len(cfg.Calendar))
	}
	for i, e := range cfg.Calendar {
		want := i + 1
		if e.Weekday == nil || *e.Weekday != want {
			t.Fatalf("entry %d weekday = %v, want %d", i, e.Weekday, want)
		}
	}
}

func TestRebootJobHasRunAtLoadOnly(t *testing.T) {
	job := jobspec.Job{ID: "t", Schedule: "reboot", SourceFile: "/jobs/a.yaml"}
	cfg, err := BuildJobConfig("t", job, "/cli", "/run", "/o", "/e")
	if err != nil {
		t.Fatalf("BuildJobConfig: %v", err)
	}
	if !cfg.RunAtLoad {
		t.Errorf("expected RunAtLoad for a reboot job")
	}
	if cfg.Calendar != nil || cfg.IntervalSeconds != nil {
		t.Errorf("expected no calendar/interval trigger for a reboot job, got %+v", cfg)
	}
	body := string(Serialize(cfg))
	if !strings.Contains(body, "<key>RunAtLoad</key>") {
		t.Errorf("serialized plist missing RunAtLoad: %s", body)
	}
	if strings.Contains(body, "StartCalendarInterval") || strings.Contains(body, "StartInterval") {
		t.Errorf("serialized reboot plist should have no calendar/interval keys: %s", body)
	}
}

func TestInstallIsIdempotentWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	a := &Adapter{ConfigDir: dir, CLIPath: "/cli", RuntimeDir: "/run", RunnerLogPath: "/o", RunnerErrLogPath: "/e"}
	job := jobspec.Job{ID: "t", IntervalMs: 60_000, SourceFile: filepath.Join(dir, "jobs.yaml")}

	result, err := a.Install("t", job)
	if err != nil {
		t.Fatalf("first install: %v", err)
	}
	if result != Installed {
		t.Fatalf("first install result = %v, want Installed", result)
	}

	result, err = a.Install("t", job)
	if err != nil {
		t.Fatalf("second install: %v", err)
	}
	if result != Unchanged {
		t.Fatalf("second install result = %v, want Unchanged", result)
	}
}

func TestInstallRewritesOnChange(t *testing.T) {
	dir := t.TempDir()
	a := &Adapter{ConfigDir: dir, CLIPath: "/cli", RuntimeDir: "/run", RunnerLogPath: "/o", RunnerErrLogPath: "/e"}
	job := jobspec.Job{ID: "t", IntervalMs: 60_000, SourceFile: filepath.Join(dir, "jobs.yaml")}

	if _, err := a.Install("t", job); err != nil {
		t.Fatalf("install: %v", err)
	}
	job.IntervalMs = 120_000
	result, err := a.Install("t", job)
	if err != nil {
		t.Fatalf("reinstall: %v", err)
	}
	if result != Installed {
		t.Fatalf("reinstall result = %v, want Installed", result)
	}
}

func TestUninstallRemovesFile(t *testing.T) {
	dir := t.TempDir()
	a := &Adapter{ConfigDir: dir, CLIPath: "/cli"}
	job := jobspec.Job{ID: "t", IntervalMs: 60_000, SourceFile: filepath.Join(dir, "jobs.yaml")}
	if _, err := a.Install("t", job); err != nil {
		t.Fatalf("install: %v", err)
	}
	path := a.path(Label("", "t"))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected plist to exist: %v", err)
	}
	if err := a.Uninstall("t"); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected plist removed, stat err = %v", err)
	}
}

func TestSyncRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	a := &Adapter{ConfigDir: dir, CLIPath: "/cli"}
	srcDir := filepath.Join(dir, "src")
	makeJob := func(id string) jobspec.Job {
		return jobspec.Job{ID: id, IntervalMs: 60_000, SourceFile: filepath.Join(srcDir, "jobs.yaml")}
	}

	_, err := a.Sync("", []SyncEntry{
		{Qid: "keep", Job: makeJob("keep")},
		{Qid: "drop", Job: makeJob("drop")},
	})
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}

	summary, err := a.Sync("", []SyncEntry{
		{Qid: "keep", Job: makeJob("keep")},
	})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(summary.Orphaned) != 1 || summary.Orphaned[0] != "drop" {
		t.Fatalf("orphaned = %v, want [drop]", summary.Orphaned)
	}
	if _, err := os.Stat(a.path(Label("", "drop"))); !os.IsNotExist(err) {
		t.Fatalf("expected drop's plist removed")
	}
	if _, err := os.Stat(a.path(Label("", "keep"))); err != nil {
		t.Fatalf("expected keep's plist to remain: %v", err)
	}
}

func TestSyncUninstallsDisabledJobs(t *testing.T) {
	dir := t.TempDir()
	a := &Adapter{ConfigDir: dir, CLIPath: "/cli"}
	srcDir := filepath.Join(dir, "src")
	enabled := jobspec.Job{ID: "t", IntervalMs: 60_000, SourceFile: filepath.Join(srcDir, "jobs.yaml")}
	if _, err := a.Install("t", enabled); err != nil {
		t.Fatalf("install: %v", err)
	}

	off := false
	disabled := enabled
	disabled.Enabled = &off
	summary, err := a.Sync("", []SyncEntry{{Qid: "t", Job: disabled}})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(summary.Disabled) != 1 || summary.Disabled[0] != "t" {
		t.Fatalf("disabled = %v, want [t]", summary.Disabled)
	}
	if _, err := os.Stat(a.path(Label("", "t"))); !os.IsNotExist(err) {
		t.Fatalf("expected disabled job's plist removed")
	}
}

func TestListInstalledPlistsFiltersWakeTrigger(t *testing.T) {
	dir := t.TempDir()
	a := &Adapter{ConfigDir: dir, CLIPath: "/cli"}
	job := jobspec.Job{ID: "t", IntervalMs: 60_000, SourceFile: filepath.Join(dir, "jobs.yaml")}
	if _, err := a.Install("t", job); err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := a.InstallWake(); err != nil {
		t.Fatalf("install wake: %v", err)
	}
	names, err := a.ListInstalledPlists()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != PlistFilename(Label("", "t")) {
		t.Fatalf("names = %v, want only the job plist", names)
	}
}

func TestSerializeIsDeterministic(t *testing.T) {
	cfg := JobConfig{
		Label: "com.cron-burgundy.job.t",
		ProgramArguments: []string{"/cli", "run", "--scheduled", "t"},
		WorkingDirectory: "/jobs",
		IntervalSeconds: intPtr(60),
		EnvPath: "/run:/usr/bin",
	}
	a := Serialize(cfg)
	b := Serialize(cfg)
	if string(a) != string(b) {
		t.Fatalf("Serialize not deterministic")
	}
}
