package workflow

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// execRecorder builds exec.Cmds that re-invoke the test binary as a
// helper process, recording every spawn. It traces which steps spawn
// processes without running the real tools. See
// https://npf.io/2015/06/testing-exec-command/
type execRecorder struct {
	mode  string
	calls [][]string
}

func (r *execRecorder) execCC(ctx context.Context, argv0 string, args ...string) *exec.Cmd {
	r.calls = append(r.calls, append([]string{argv0}, args...))
	cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--", r.mode)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

// TestHelperProcess isn't a real test. It's used as a helper process
// standing in for the external tools. See
// https://github.com/golang/go/blob/master/src/os/exec/exec_test.go
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) == 0 {
		return
	}

	mode := args[0]
	switch {
	case mode == "exit0":
		os.Exit(0)
	case mode == "exit1":
		os.Exit(1)
	case mode == "exit2":
		os.Exit(2)
	case strings.HasPrefix(mode, "touch="):
		path := strings.TrimPrefix(mode, "touch=")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			os.Exit(1)
		}
		if err := os.WriteFile(path, []byte("msi"), 0644); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	os.Exit(0)
}
