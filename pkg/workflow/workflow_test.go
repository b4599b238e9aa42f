package workflow

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/msidev/msidev/pkg/msiexec"
	"github.com/msidev/msidev/pkg/wixproj"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, dir string) string {
	t.Helper()

	projectFile := filepath.Join(dir, "example.wixproj")
	require.NoError(t, os.WriteFile(projectFile, []byte("<Project/>"), 0644))
	return projectFile
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	projectFile := writeProjectFile(t, dir)
	logPath := filepath.Join(dir, "install.log")

	artifact := filepath.Join(dir, "target", "debug", "example.msi")

	buildRecorder := &execRecorder{mode: "touch=" + artifact}
	installRecorder := &execRecorder{mode: "exit0"}

	builder, err := wixproj.New(projectFile, wixproj.WithExecCC(buildRecorder.execCC))
	require.NoError(t, err)
	require.Equal(t, artifact, builder.ArtifactPath())

	wf := New(builder, WithInstallOptions(
		msiexec.WithLog(logPath),
		msiexec.WithExecCC(installRecorder.execCC),
	))

	require.NoError(t, wf.Run(context.Background()))

	require.Len(t, buildRecorder.calls, 1)
	require.Len(t, installRecorder.calls, 1)
	require.Equal(t, "msiexec", installRecorder.calls[0][0])
	require.Equal(t, "/i", installRecorder.calls[0][1])
	require.Equal(t, artifact, installRecorder.calls[0][2])

	_, err = os.Stat(logPath)
	require.NoError(t, err)
}

func TestRunBuildFailureSkipsInstall(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	projectFile := writeProjectFile(t, dir)

	buildRecorder := &execRecorder{mode: "exit1"}
	installRecorder := &execRecorder{mode: "exit0"}

	builder, err := wixproj.New(projectFile, wixproj.WithExecCC(buildRecorder.execCC))
	require.NoError(t, err)

	wf := New(builder, WithInstallOptions(
		msiexec.WithExecCC(installRecorder.execCC),
	))

	err = wf.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "build step")

	require.Len(t, buildRecorder.calls, 1)
	require.Empty(t, installRecorder.calls, "install must never run after a failed build")
}

func TestRunInstallFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	projectFile := writeProjectFile(t, dir)

	artifact := filepath.Join(dir, "target", "debug", "example.msi")

	buildRecorder := &execRecorder{mode: "touch=" + artifact}
	installRecorder := &execRecorder{mode: "exit1"}

	builder, err := wixproj.New(projectFile, wixproj.WithExecCC(buildRecorder.execCC))
	require.NoError(t, err)

	wf := New(builder, WithInstallOptions(
		msiexec.WithExecCC(installRecorder.execCC),
	))

	err = wf.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "install step")
	require.Len(t, installRecorder.calls, 1)
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(errors.New("boom")))

	// A real child process exit code survives error wrapping.
	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--", "exit2")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	err := cmd.Run()
	require.Error(t, err)

	wrapped := errors.Wrap(errors.Wrap(err, "running msiexec"), "install step")
	require.Equal(t, 2, ExitCode(wrapped))
}
