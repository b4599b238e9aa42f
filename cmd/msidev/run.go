package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kolide/kit/env"
	"github.com/kolide/kit/logutil"
	"github.com/msidev/msidev/pkg/config"
	"github.com/msidev/msidev/pkg/contexts/ctxlog"
	"github.com/msidev/msidev/pkg/msiexec"
	"github.com/msidev/msidev/pkg/workflow"
	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
)

func runRun(args []string) error {
	positional, properties := splitProperties(args)

	flagset := flag.NewFlagSet("run", flag.ExitOnError)
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
		flMsiexec = flagset.String(
			"msiexec",
			"",
			"path to the installer executor",
		)
		flLog = flagset.String(
			"log",
			"",
			"write a verbose install log to this file",
		)
		flSkipChecks = flagset.Bool(
			"skip-checks",
			false,
			"skip the tool prerequisite checks",
		)
		flUI msiexec.UILevel
	)
	flagset.Var(&flUI, "ui", "installer ui level: default, none, basic, reduced, or full")

	flagset.Usage = usageFor(flagset, "msidev run [flags] <project.wixproj> [-- PROP=VALUE ...]")
	if err := ff.Parse(flagset, positional, ff.WithEnvVarPrefix("MSIDEV")); err != nil {
		return errors.Wrap(err, "parsing flags")
	}

	if flagset.NArg() != 1 {
		flagset.Usage()
		return errors.New("run takes exactly one project file")
	}

	uiSet := false
	flagset.Visit(func(f *flag.Flag) {
		if f.Name == "ui" {
			uiSet = true
		}
	})

	cfg, err := config.Load(*flConfig)
	if err != nil {
		return err
	}

	logger := logutil.NewServerLogger(*flDebug)

	builder, err := newBuilder(flagset.Arg(0), cfg, *flMSBuild, *flConfiguration, *flPlatform, *flOutput)
	if err != nil {
		return err
	}

	installOpts, err := installOptions(cfg, *flLog, *flMsiexec, uiSet, flUI, properties)
	if err != nil {
		return err
	}

	workflowOpts := []workflow.Option{
		workflow.WithInstallOptions(installOpts...),
	}

	if !*flSkipChecks {
		workflowOpts = append(workflowOpts, workflow.WithChecker(newChecker(cfg, *flMSBuild, "", *flMsiexec)))
	}

	wf := workflow.New(builder, workflowOpts...)

	ctx, cancel := context.WithCancel(ctxlog.NewContext(context.Background(), logger))
	defer cancel()

	var runGroup run.Group

	// listen for signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	runGroup.Add(func() error {
		select {
		case sig := <-sigChan:
			return errors.Errorf("received signal %s", sig)
		case <-ctx.Done():
			return nil
		}
	}, func(error) {
		cancel()
	})

	// run the build and install pipeline
	runGroup.Add(func() error {
		return wf.Run(ctx)
	}, func(error) {
		cancel()
	})

	return runGroup.Run()
}
