package toolcheck

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/go-kit/kit/log/level"
	"github.com/msidev/msidev/pkg/contexts/ctxlog"
	"github.com/pkg/errors"
)

// WixConstraint is the supported WiX toolset range. The v4 toolset
// replaced candle and light with a different build pipeline, so
// projects targeting it cannot be built by this workflow.
const WixConstraint = ">= 3.10, < 4.0"

// Checker verifies the external tools the workflow needs are present
// and usable, before any of them is invoked for real. Failures here
// are fatal and need operator action (install or upgrade the tool).
type Checker struct {
	msbuildPath string
	candlePath  string
	msiexecPath string

	execCC   func(context.Context, string, ...string) *exec.Cmd // Allows test overrides
	lookPath func(string) (string, error)
}

type Option func(*Checker)

func WithMSBuild(path string) Option {
	return func(c *Checker) {
		c.msbuildPath = path
	}
}

func WithCandle(path string) Option {
	return func(c *Checker) {
		c.candlePath = path
	}
}

func WithMsiexec(path string) Option {
	return func(c *Checker) {
		c.msiexecPath = path
	}
}

func New(opts ...Option) *Checker {
	c := &Checker{
		msbuildPath: "msbuild",
		candlePath:  "candle",
		msiexecPath: "msiexec",

		execCC:   exec.CommandContext,
		lookPath: exec.LookPath,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check runs every prerequisite check in order and returns the first
// failure.
func (c *Checker) Check(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	msbuildVer, err := c.CheckMSBuild(ctx)
	if err != nil {
		return err
	}

	wixVer, err := c.CheckWix(ctx)
	if err != nil {
		return err
	}

	if err := c.CheckMsiexec(); err != nil {
		return err
	}

	level.Debug(logger).Log(
		"msg", "prerequisites ok",
		"msbuild", msbuildVer,
		"wix", wixVer,
	)

	return nil
}

// CheckMSBuild verifies MSBuild runs and reports its version.
func (c *Checker) CheckMSBuild(ctx context.Context) (string, error) {
	out, err := c.execOut(ctx, c.msbuildPath, "-version", "-nologo")
	if err != nil {
		return "", errors.Wrap(err, "msbuild not usable, is the build toolchain installed?")
	}

	ver := parseVersion(out)
	if ver == "" {
		return "", errors.Errorf("could not find a version in msbuild output %q", out)
	}

	return ver, nil
}

// CheckWix verifies the WiX compiler runs and its version satisfies
// WixConstraint.
func (c *Checker) CheckWix(ctx context.Context) (string, error) {
	out, err := c.execOut(ctx, c.candlePath, "-help")
	if err != nil {
		return "", errors.Wrap(err, "wix candle not usable, is the WiX toolset installed?")
	}

	ver := parseVersion(out)
	if ver == "" {
		return "", errors.Errorf("could not find a version in candle output %q", out)
	}

	if err := versionCompatible(ver, WixConstraint); err != nil {
		return "", err
	}

	return ver, nil
}

// CheckMsiexec verifies the installer executor is on the path. There
// is no safe version flag to probe it with; asking msiexec for help
// pops a dialog.
func (c *Checker) CheckMsiexec() error {
	if _, err := c.lookPath(c.msiexecPath); err != nil {
		return errors.Wrapf(err, "installer executor %s not found", c.msiexecPath)
	}
	return nil
}

func versionCompatible(version, constraint string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "parse tool version %q as semver", version)
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "parse constraint %q", constraint)
	}

	if !c.Check(v) {
		return errors.Errorf("workflow requires WiX toolset %s, have %s", constraint, version)
	}
	return nil
}

// toolVersionRegexp matches the first dotted version in a tool's
// banner output. Tools in this space report four-part versions
// (3.11.2.4516); only the first three parts are kept, since that is
// all semver can compare.
var toolVersionRegexp = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?(?:\.\d+)?`)

func parseVersion(output string) string {
	matches := toolVersionRegexp.FindStringSubmatch(output)
	if matches == nil {
		return ""
	}

	major, minor, patch := matches[1], matches[2], matches[3]
	if patch == "" {
		patch = "0"
	}

	return strings.Join([]string{major, minor, patch}, ".")
}

func (c *Checker) execOut(ctx context.Context, argv0 string, args ...string) (string, error) {
	cmd := c.execCC(ctx, argv0, args...)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.Stdout, cmd.Stderr = stdout, stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "run command %s %v, stderr=%s", argv0, args, stderr)
	}
	return strings.TrimSpace(stdout.String()), nil
}
