package msiexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log/level"
	"github.com/msidev/msidev/pkg/contexts/ctxlog"
	"github.com/pkg/errors"
)

// Installer wraps a single msiexec install invocation. Installing
// mutates live machine state and is not idempotent; re-running against
// an already installed package is governed by the executor's own
// upgrade and repair semantics, which this wrapper does not override.
type Installer struct {
	packagePath string
	msiexecPath string
	logPath     string
	ui          UILevel
	properties  []string

	execCC func(context.Context, string, ...string) *exec.Cmd // Allows test overrides
}

type Option func(*Installer)

func WithMsiexec(path string) Option {
	return func(i *Installer) {
		i.msiexecPath = path
	}
}

// WithLog requests verbose logging (/l*v) to the given file. A
// relative path is resolved against the current working directory,
// since msiexec resolves paths against its own working directory
// otherwise.
func WithLog(path string) Option {
	return func(i *Installer) {
		i.logPath = path
	}
}

func WithUI(ui UILevel) Option {
	return func(i *Installer) {
		i.ui = ui
	}
}

// WithProperty appends a PROP=VALUE installer property.
func WithProperty(property string) Option {
	return func(i *Installer) {
		i.properties = append(i.properties, property)
	}
}

// WithExecCC overrides how child processes are created. Test harnesses
// use it to trace spawns without running the real executor.
func WithExecCC(execCC func(context.Context, string, ...string) *exec.Cmd) Option {
	return func(i *Installer) {
		i.execCC = execCC
	}
}

func New(packagePath string, opts ...Option) (*Installer, error) {
	if packagePath == "" {
		return nil, errors.New("package path required")
	}

	i := &Installer{
		packagePath: packagePath,
		msiexecPath: "msiexec",

		execCC: exec.CommandContext,
	}

	for _, opt := range opts {
		opt(i)
	}

	for _, p := range i.properties {
		if err := ValidateProperty(p); err != nil {
			return nil, err
		}
	}

	return i, nil
}

// Install runs msiexec /i against the package. The package must exist
// before the executor is spawned; a missing artifact is an error here,
// never a half-started install. When a log was requested, install
// failures point at it for diagnosis.
func (i *Installer) Install(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if _, err := os.Stat(i.packagePath); err != nil {
		return errors.Wrapf(err, "package %s not found, build it first", i.packagePath)
	}

	pkg, err := filepath.Abs(i.packagePath)
	if err != nil {
		return errors.Wrapf(err, "resolving package path %s", i.packagePath)
	}

	args := []string{"/i", pkg}
	args = append(args, i.ui.Args()...)

	logPath := i.logPath
	if logPath != "" {
		logPath, err = filepath.Abs(logPath)
		if err != nil {
			return errors.Wrapf(err, "resolving log path %s", i.logPath)
		}

		// msiexec reports an unwritable log destination as an opaque
		// command line error, so probe it here where the underlying
		// filesystem error is still visible.
		if err := probeLogPath(logPath); err != nil {
			return err
		}

		args = append(args, "/l*v", logPath)
	}

	args = append(args, i.properties...)

	out, err := i.execOut(ctx, i.msiexecPath, args...)
	if err != nil {
		if logPath != "" {
			return errors.Wrapf(err, "running msiexec, see verbose log at %s", logPath)
		}
		return errors.Wrap(err, "running msiexec")
	}

	level.Debug(logger).Log(
		"msg", "msiexec finished",
		"package", pkg,
		"output", out,
	)

	return nil
}

// probeLogPath verifies the log file can be created or appended to.
// Whether the executor appends or truncates is its own affair; the
// probe deliberately does neither.
func probeLogPath(path string) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrapf(err, "log path %s is not writable", path)
	}
	return fh.Close()
}

func (i *Installer) execOut(ctx context.Context, argv0 string, args ...string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	cmd := i.execCC(ctx, argv0, args...)

	level.Debug(logger).Log(
		"msg", "execing",
		"cmd", strings.Join(cmd.Args, " "),
	)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.Stdout, cmd.Stderr = stdout, stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "run command %s %v\nstdout=%s\nstderr=%s", argv0, args, stdout, stderr)
	}
	return strings.TrimSpace(stdout.String()), nil
}
