package wixproj

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log/level"
	"github.com/msidev/msidev/pkg/contexts/ctxlog"
	"github.com/pkg/errors"
)

// Builder drives MSBuild against a wix project file. It always runs
// the Rebuild target, so stale intermediate state from earlier builds
// is discarded rather than reused.
type Builder struct {
	projectFile   string
	msbuildPath   string
	configuration string
	platform      string
	outputDir     string
	properties    []string

	execCC func(context.Context, string, ...string) *exec.Cmd // Allows test overrides
}

type Option func(*Builder)

func WithMSBuild(path string) Option {
	return func(b *Builder) {
		b.msbuildPath = path
	}
}

func WithConfiguration(configuration string) Option {
	return func(b *Builder) {
		b.configuration = configuration
	}
}

func WithPlatform(platform string) Option {
	return func(b *Builder) {
		b.platform = platform
	}
}

// WithOutputDir overrides where the built package lands. Must match
// the OutputPath the project file declares, since MSBuild, not this
// wrapper, decides where the artifact is written.
func WithOutputDir(dir string) Option {
	return func(b *Builder) {
		b.outputDir = dir
	}
}

// WithProperty adds an extra -p:NAME=VALUE pair to the MSBuild invocation.
func WithProperty(property string) Option {
	return func(b *Builder) {
		b.properties = append(b.properties, property)
	}
}

// WithExecCC overrides how child processes are created. Test harnesses
// use it to trace spawns without running the real tools.
func WithExecCC(execCC func(context.Context, string, ...string) *exec.Cmd) Option {
	return func(b *Builder) {
		b.execCC = execCC
	}
}

// New takes the path to a wixproj file and returns a Builder for it.
// The project file must already exist.
func New(projectFile string, opts ...Option) (*Builder, error) {
	if projectFile == "" {
		return nil, errors.New("project file required")
	}

	if _, err := os.Stat(projectFile); err != nil {
		return nil, errors.Wrapf(err, "stat project file %s", projectFile)
	}

	b := &Builder{
		projectFile:   projectFile,
		msbuildPath:   "msbuild",
		configuration: "Debug",

		execCC: exec.CommandContext,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.outputDir == "" {
		b.outputDir = filepath.Join(
			filepath.Dir(projectFile),
			"target",
			strings.ToLower(b.configuration),
		)
	}

	return b, nil
}

// ArtifactPath is the deterministic location of the built package:
// <output dir>/<project name>.msi. The install step depends on this
// being predictable across rebuilds.
func (b *Builder) ArtifactPath() string {
	name := filepath.Base(b.projectFile)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(b.outputDir, name+".msi")
}

// Rebuild invokes MSBuild with the Rebuild target and verifies the
// package artifact exists afterwards. A non-zero exit from MSBuild is
// returned with the tool's stdout and stderr intact, so diagnostics
// reach the caller unmodified.
func (b *Builder) Rebuild(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	args := []string{
		"-nologo",
		"-t:Rebuild",
		fmt.Sprintf("-p:Configuration=%s", b.configuration),
	}

	if b.platform != "" {
		args = append(args, fmt.Sprintf("-p:Platform=%s", b.platform))
	}

	for _, p := range b.properties {
		args = append(args, fmt.Sprintf("-p:%s", p))
	}

	args = append(args, b.projectFile)

	out, err := b.execOut(ctx, b.msbuildPath, args...)
	if err != nil {
		return errors.Wrap(err, "running msbuild")
	}

	level.Debug(logger).Log(
		"msg", "msbuild finished",
		"project", b.projectFile,
		"output", out,
	)

	artifact := b.ArtifactPath()
	if _, err := os.Stat(artifact); err != nil {
		return errors.Wrapf(err, "msbuild succeeded but artifact %s is missing", artifact)
	}

	return nil
}

func (b *Builder) execOut(ctx context.Context, argv0 string, args ...string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	cmd := b.execCC(ctx, argv0, args...)

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
