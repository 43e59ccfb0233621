//go:build unix

package lock

import (
	"errors"
	"os"
	"syscall"
)

// signalZero sends the null signal to pid, the standard liveness probe
// (same approach as internal/process.DetectAlive's syscall.Kill(pid, 0)).
func signalZero(pid int) error {
	err := syscall.Kill(pid, 0)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

func isPermissionDenied(err error) bool {
	return errors.Is(err, syscall.EPERM)
}
