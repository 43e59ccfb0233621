// Package jobspec defines the user-supplied job definition
// and its id validation rules. It has no knowledge of namespaces,
// schedules-as-cron, or persistence; those live in registry, schedule,
// and state respectively.
package jobspec

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MinIntervalMs is the minimum accepted interval for an interval job.
const MinIntervalMs = 10_000

// Job is one job definition loaded from a job source file.
type Job struct {
	ID string `mapstructure:"id" json:"id" yaml:"id" validate:"required,cronid"`
	Description string `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Schedule string `mapstructure:"schedule" json:"schedule,omitempty" yaml:"schedule,omitempty"`
	IntervalMs int64 `mapstructure:"interval_ms" json:"interval_ms,omitempty" yaml:"interval_ms,omitempty"`
	Enabled *bool `mapstructure:"enabled" json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Command string `mapstructure:"command" json:"command" yaml:"command" validate:"required"`
	WorkDir string `mapstructure:"work_dir" json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	Env []string `mapstructure:"env" json:"env,omitempty" yaml:"env,omitempty"`

	// SourceFile and Namespace are populated by the loader (internal/registry),
	// never set directly in a job source file.
	SourceFile string `mapstructure:"-" json:"-" yaml:"-"`
	Namespace string `mapstructure:"-" json:"-" yaml:"-"`
}

// IsEnabled applies the documented default (true).
func (j Job) IsEnabled() bool {
	if j.Enabled == nil {
		return true
	}
	return *j.Enabled
}

// HasSchedule reports whether this job uses a cron/human schedule rather
// than a plain interval.
func (j Job) HasSchedule() bool { return strings.TrimSpace(j.Schedule) != "" }

// Interval returns the configured interval as a time.Duration.
func (j Job) Interval() time.Duration { return time.Duration(j.IntervalMs) * time.Millisecond }

// SourceDir returns the directory of the job source file this job was
// loaded from, the working directory the runner and native-trigger
// adapter invoke it in.
func (j Job) SourceDir() string {
	if j.SourceFile == "" {
		return ""
	}
	return filepath.Dir(j.SourceFile)
}

// Validate enforces data-model invariants for a single job,
// independent of its siblings (duplicate-id checks are the loader's job).
func (j Job) Validate() error {
	if err := ValidateID(j.ID); err != nil {
		return err
	}
	if strings.TrimSpace(j.Command) == "" {
		return fmt.Errorf("job %q: command is required", j.ID)
	}
	hasSchedule := j.HasSchedule()
	hasInterval := j.IntervalMs != 0
	switch {
	case hasSchedule && hasInterval:
		return fmt.Errorf("job %q: exactly one of schedule or interval_ms may be set, not both", j.ID)
	case !hasSchedule && !hasInterval:
		return fmt.Errorf("job %q: one of schedule or interval_ms is required", j.ID)
	case hasInterval && j.IntervalMs < MinIntervalMs:
		return fmt.Errorf("job %q: interval_ms must be >= %d", j.ID, MinIntervalMs)
	}
	return nil
}

// ValidateID enforces the id grammar:
// 1-100 chars; first char alphanumeric or underscore; remainder
// alphanumeric, underscore, or hyphen; no dots, slashes, whitespace,
// control chars, or shell metacharacters.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("job id must be a non-empty string")
	}
	if len(id) > 100 {
		return fmt.Errorf("job id %q: must be 1-100 characters", id)
	}
	first := rune(id[0])
	if !isAlnum(first) && first != '_' {
		return fmt.Errorf("job id %q: must start with an alphanumeric character or underscore", id)
	}
	for _, r := range id[1:] {
		if isAlnum(r) || r == '_' || r == '-' {
			continue
		}
		if r == '.' {
			return fmt.Errorf("job id %q: cannot contain dots", id)
		}
		return fmt.Errorf("job id %q: contains an invalid character %q", id, r)
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
