package launchd

import (
	"fmt"
	"os"
)

// wakeJobConfig builds the fixed "run-at-load" configuration that invokes
// `<cli> check-missed` on login and wake.
// It has no calendar or interval trigger: RunAtLoad is its only trigger.
func wakeJobConfig(cliPath string) JobConfig {
	return JobConfig{
		Label: wakeLabel,
		ProgramArguments: []string{cliPath, "check-missed"},
		RunAtLoad: true,
	}
}

// InstallWake installs (or refreshes) the wake-trigger configuration.
func (a *Adapter) InstallWake() (InstallResult, error) {
	cfg := wakeJobConfig(a.CLIPath)
	body := Serialize(cfg)
	path := a.path(cfg.Label)

	if existing, err := os.ReadFile(path); err == nil && string(existing) == string(body) {
		return Unchanged, nil
	}

	_ = a.launchctl("unload", path)
	if err := os.MkdirAll(a.ConfigDir, 0o755); err != nil {
		return "", fmt.Errorf("create launchd config dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write wake plist %s: %w", path, err)
	}
	_ = a.launchctl("load", "-w", path)
	return Installed, nil
}

// UninstallWake removes the wake-trigger configuration. Its lifecycle
// is tied to the no-namespace (global) uninstall path only: callers
// doing a per-namespace uninstall must not call this.
func (a *Adapter) UninstallWake() error {
	path := a.path(wakeLabel)
	_ = a.launchctl("unload", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove wake plist %s: %w", path, err)
	}
	return nil
}
