package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kolide/kit/env"
	"github.com/kolide/kit/logutil"
	"github.com/msidev/msidev/pkg/config"
	"github.com/msidev/msidev/pkg/contexts/ctxlog"
	"github.com/msidev/msidev/pkg/toolcheck"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
)

func runDoctor(args []string) error {
	flagset := flag.NewFlagSet("doctor", flag.ExitOnError)
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
		flMSBuild = flagset.String(
			"msbuild",
			"",
			"path to the msbuild executable",
		)
		flCandle = flagset.String(
			"candle",
			"",
			"path to the wix candle executable",
		)
		flMsiexec = flagset.String(
			"msiexec",
			"",
			"path to the installer executor",
		)
	)

	flagset.Usage = usageFor(flagset, "msidev doctor [flags]")
	if err := ff.Parse(flagset, args, ff.WithEnvVarPrefix("MSIDEV")); err != nil {
		return errors.Wrap(err, "parsing flags")
	}

	cfg, err := config.Load(*flConfig)
	if err != nil {
		return err
	}

	logger := logutil.NewServerLogger(*flDebug)
	ctx := ctxlog.NewContext(context.Background(), logger)

	checker := newChecker(cfg, *flMSBuild, *flCandle, *flMsiexec)

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	failed := false

	msbuildVer, err := checker.CheckMSBuild(ctx)
	reportCheck(w, "msbuild", msbuildVer, err, &failed)

	wixVer, err := checker.CheckWix(ctx)
	reportCheck(w, "wix", wixVer, err, &failed)

	err = checker.CheckMsiexec()
	reportCheck(w, "msiexec", "", err, &failed)

	w.Flush()

	if failed {
		return errors.New("some prerequisites are missing, fix them before building")
	}
	return nil
}

func reportCheck(w *tabwriter.Writer, tool, version string, err error, failed *bool) {
	if err != nil {
		*failed = true
		fmt.Fprintf(w, "%s\tFAIL\t%v\n", tool, err)
		return
	}

	if version == "" {
		version = "ok"
	}
	fmt.Fprintf(w, "%s\tOK\t%s\n", tool, version)
}

// newChecker merges flag values over config file defaults into a
// prerequisite checker. Tool paths left empty fall through to
// toolcheck's own defaults.
func newChecker(cfg config.Config, msbuild, candle, msiexecPath string) *toolcheck.Checker {
	var opts []toolcheck.Option

	if p := config.Fallback(msbuild, cfg.MSBuild); p != "" {
		opts = append(opts, toolcheck.WithMSBuild(p))
	}

	if p := config.Fallback(candle, cfg.Candle); p != "" {
		opts = append(opts, toolcheck.WithCandle(p))
	}

	if p := config.Fallback(msiexecPath, cfg.Msiexec); p != "" {
		opts = append(opts, toolcheck.WithMsiexec(p))
	}

	return toolcheck.New(opts...)
}
