package main

import (
	"context"
	"flag"

	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/env"
	"github.com/kolide/kit/logutil"
	"github.com/msidev/msidev/pkg/config"
	"github.com/msidev/msidev/pkg/contexts/ctxlog"
	"github.com/msidev/msidev/pkg/wixproj"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
)

func runBuild(args []string) error {
	flagset := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		flDebug = flagset.Bool(
			"debug",
			false,
			"enable debug logging",
		)
		flConfig = flagset.String(
			"config",
			env.String("MSIDEV_CONFIG", config.DefaultPath),
			"path to the msidev defaults file",
		)
		flConfiguration = flagset.String(
			"configuration",
			"",
			"build configuration, Debug or Release (default Debug)",
		)
		flPlatform = flagset.String(
			"platform",
			"",
			"build platform, for example x86 or x64",
		)
		flMSBuild = flagset.String(
			"msbuild",
			"",
			"path to the msbuild executable",
		)
		flOutput = flagset.String(
			"output",
			"",
			"override the artifact output directory",
		)
	)

	flagset.Usage = usageFor(flagset, "msidev build [flags] <project.wixproj>")
	if err := ff.Parse(flagset, args, ff.WithEnvVarPrefix("MSIDEV")); err != nil {
		return errors.Wrap(err, "parsing flags")
	}

	if flagset.NArg() != 1 {
		flagset.Usage()
		return errors.New("build takes exactly one project file")
	}

	cfg, err := config.Load(*flConfig)
	if err != nil {
		return err
	}

	logger := logutil.NewServerLogger(*flDebug)
	ctx := ctxlog.NewContext(context.Background(), logger)

	builder, err := newBuilder(flagset.Arg(0), cfg, *flMSBuild, *flConfiguration, *flPlatform, *flOutput)
	if err != nil {
		return err
	}

	if err := builder.Rebuild(ctx); err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "built package",
		"artifact", builder.ArtifactPath(),
	)

	return nil
}

// newBuilder merges flag values over config file defaults and
// constructs the wixproj builder. Empty strings mean "not set" at
// every layer, so wixproj's own defaults still apply last.
func newBuilder(projectFile string, cfg config.Config, msbuild, configuration, platform, output string) (*wixproj.Builder, error) {
	var opts []wixproj.Option

	if p := config.Fallback(msbuild, cfg.MSBuild); p != "" {
		opts = append(opts, wixproj.WithMSBuild(p))
	}

	if c := config.Fallback(configuration, cfg.Configuration); c != "" {
		opts = append(opts, wixproj.WithConfiguration(c))
	}

	if p := config.Fallback(platform, cfg.Platform); p != "" {
		opts = append(opts, wixproj.WithPlatform(p))
	}

	if output != "" {
		opts = append(opts, wixproj.WithOutputDir(output))
	}

	return wixproj.New(projectFile, opts...)
}
