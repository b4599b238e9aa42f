package main

import (
	"context"
	"flag"

	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/env"
	"github.com/kolide/kit/logutil"
	"github.com/msidev/msidev/pkg/config"
	"github.com/msidev/msidev/pkg/contexts/ctxlog"
	"github.com/msidev/msidev/pkg/msiexec"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
)

func runInstall(args []string) error {
	positional, properties := splitProperties(args)

	flagset := flag.NewFlagSet("install", flag.ExitOnError)
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
		flLog = flagset.String(
			"log",
			"",
			"write a verbose install log to this file",
		)
		flMsiexec = flagset.String(
			"msiexec",
			"",
			"path to the installer executor",
		)
		flUI msiexec.UILevel
	)
	flagset.Var(&flUI, "ui", "installer ui level: default, none, basic, reduced, or full")

	flagset.Usage = usageFor(flagset, "msidev install [flags] <package.msi> [-- PROP=VALUE ...]")
	if err := ff.Parse(flagset, positional, ff.WithEnvVarPrefix("MSIDEV")); err != nil {
		return errors.Wrap(err, "parsing flags")
	}

	if flagset.NArg() != 1 {
		flagset.Usage()
		return errors.New("install takes exactly one package path")
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
	ctx := ctxlog.NewContext(context.Background(), logger)

	opts, err := installOptions(cfg, *flLog, *flMsiexec, uiSet, flUI, properties)
	if err != nil {
		return err
	}

	installer, err := msiexec.New(flagset.Arg(0), opts...)
	if err != nil {
		return err
	}

	if err := installer.Install(ctx); err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "installed package",
		"package", flagset.Arg(0),
	)

	return nil
}

// installOptions merges flag values over config file defaults into
// msiexec options.
func installOptions(cfg config.Config, logPath, msiexecPath string, uiSet bool, ui msiexec.UILevel, properties []string) ([]msiexec.Option, error) {
	var opts []msiexec.Option

	if p := config.Fallback(msiexecPath, cfg.Msiexec); p != "" {
		opts = append(opts, msiexec.WithMsiexec(p))
	}

	if l := config.Fallback(logPath, cfg.Log); l != "" {
		opts = append(opts, msiexec.WithLog(l))
	}

	if !uiSet && cfg.UI != "" {
		if err := ui.Set(cfg.UI); err != nil {
			return nil, err
		}
	}
	opts = append(opts, msiexec.WithUI(ui))

	for _, p := range properties {
		opts = append(opts, msiexec.WithProperty(p))
	}

	return opts, nil
}
