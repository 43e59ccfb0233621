package jobconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJobFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write job file: %v", err)
	}
	return path
}

func TestLoadJobFileAcceptsValidJob(t *testing.T) {
	path := writeJobFile(t, "jobs:\n  - id: backup\n    command: /usr/bin/true\n    interval_ms: 60000\n")
	jobs, err := LoadJobFile(path)
	if err != nil {
		t.Fatalf("LoadJobFile: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "backup" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestLoadJobFileRejectsMissingCommand(t *testing.T) {
	path := writeJobFile(t, "jobs:\n  - id: backup\n    interval_ms: 60000\n")
	if _, err := LoadJobFile(path); err == nil {
		t.Fatal("expected an error for a job with no command")
	}
}

func TestLoadJobFileRejectsInvalidID(t *testing.T) {
	path := writeJobFile(t, "jobs:\n  - id: \"bad id\"\n    command: /usr/bin/true\n    interval_ms: 60000\n")
	if _, err := LoadJobFile(path); err == nil {
		t.Fatal("expected an error for a job id containing a space")
	}
}
