package workflow

import (
	"errors"
	"os/exec"
)

// ExitCode maps a workflow error to the wrapper's exit status. When a
// child process failed, its own exit code is propagated so callers and
// CI can distinguish tool failures; every other error is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}

	return 1
}
