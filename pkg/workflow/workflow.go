package workflow

import (
	"context"

	"github.com/go-kit/kit/log/level"
	"github.com/msidev/msidev/pkg/contexts/ctxlog"
	"github.com/msidev/msidev/pkg/msiexec"
	"github.com/msidev/msidev/pkg/toolcheck"
	"github.com/msidev/msidev/pkg/wixproj"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Workflow chains the build and install steps. It is strictly
// sequential: install consumes the artifact build produced, so it
// never starts unless build finished successfully and the artifact is
// on disk. There is no retry and no rollback; the first failing step
// stops everything.
type Workflow struct {
	checker     *toolcheck.Checker
	builder     *wixproj.Builder
	installOpts []msiexec.Option
}

type Option func(*Workflow)

// WithChecker runs prerequisite checks before the build step. Missing
// tools are reported before anything is invoked.
func WithChecker(c *toolcheck.Checker) Option {
	return func(w *Workflow) {
		w.checker = c
	}
}

// WithInstallOptions forwards options (log path, ui level, properties)
// to the install step.
func WithInstallOptions(opts ...msiexec.Option) Option {
	return func(w *Workflow) {
		w.installOpts = append(w.installOpts, opts...)
	}
}

func New(builder *wixproj.Builder, opts ...Option) *Workflow {
	w := &Workflow{
		builder: builder,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run executes the pipeline: prerequisites (if configured), build,
// then install against the freshly built artifact.
func (w *Workflow) Run(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "workflow.Run")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	if w.checker != nil {
		if err := w.checker.Check(ctx); err != nil {
			return errors.Wrap(err, "checking prerequisites")
		}
	}

	if err := w.build(ctx); err != nil {
		return errors.Wrap(err, "build step")
	}

	artifact := w.builder.ArtifactPath()
	level.Info(logger).Log(
		"msg", "built package",
		"artifact", artifact,
	)

	if err := w.install(ctx, artifact); err != nil {
		return errors.Wrap(err, "install step")
	}

	level.Info(logger).Log(
		"msg", "installed package",
		"artifact", artifact,
	)

	return nil
}

func (w *Workflow) build(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "workflow.build")
	defer span.End()

	return w.builder.Rebuild(ctx)
}

func (w *Workflow) install(ctx context.Context, artifact string) error {
	ctx, span := trace.StartSpan(ctx, "workflow.install")
	defer span.End()

	installer, err := msiexec.New(artifact, w.installOpts...)
	if err != nil {
		return err
	}

	return installer.Install(ctx)
}
