package runner

import (
	"os"
	"os/exec"
	"strings"
)

// shellMetachars are the characters whose presence forces a job command
// through /bin/sh -c rather than a direct argv exec.
const shellMetachars = "|&;<>*?`$\"'(){}[]~"

// explicitShellPrefixes are the "already shelled" forms buildCommand must
// not double-wrap, e.g. a job command of "sh -c 'echo hi; echo bye'".
var explicitShellPrefixes = []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}

// buildCommand constructs an *exec.Cmd for a job's command string: a plain
// argv runs directly, an already-explicit shell invocation is honored
// as-is, and anything else containing shell metacharacters falls back to
// /bin/sh -c.
func buildCommand(cmdStr, workDir string, env []string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)

	var cmd *exec.Cmd
	switch {
	case cmdStr == "":
		// #nosec G204 -- fixed binary, no user input.
		cmd = exec.Command("/bin/true")
	default:
		if script, ok := stripExplicitShell(cmdStr); ok {
			// #nosec G204 -- caller already opted into a shell; job commands
			// come from operator-authored job source files, not untrusted input.
			cmd = exec.Command("/bin/sh", "-c", script)
		} else if strings.ContainsAny(cmdStr, shellMetachars) {
			// #nosec G204 -- same trust boundary as above.
			cmd = exec.Command("/bin/sh", "-c", cmdStr)
		} else {
			name, args := splitArgv(cmdStr)
			// #nosec G204 -- argv comes from the job's own command field.
			cmd = exec.Command(name, args...)
		}
	}

	if workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Env = append(os.Environ(), env...)
	return cmd
}

func splitArgv(cmdStr string) (name string, args []string) {
	parts := strings.Fields(cmdStr)
	if len(parts) > 1 {
		args = parts[1:]
	}
	return parts[0], args
}

// stripExplicitShell recognizes an already-shelled command ("sh -c ARG",
// "/bin/sh -c ARG", "/usr/bin/sh -c ARG") and returns the script portion
// with at most one layer of surrounding quotes removed, so the shell sees
// the intended script rather than a literally quoted string.
func stripExplicitShell(cmdStr string) (script string, ok bool) {
	trimmed := strings.TrimLeft(cmdStr, " \t")
	for _, prefix := range explicitShellPrefixes {
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		script = trimmed[len(prefix):]
		if n := len(script); n >= 2 {
			if (script[0] == '\'' && script[n-1] == '\'') || (script[0] == '"' && script[n-1] == '"') {
				script = script[1 : n-1]
			}
		}
		return script, true
	}
	return "", false
}
