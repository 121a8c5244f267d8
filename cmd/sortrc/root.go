// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/sortrc/pkg/config"
	"github.com/walteh/sortrc/pkg/log"
	"github.com/walteh/sortrc/pkg/operation"
	"github.com/walteh/sortrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// rootOpts holds the flags of the root command
type rootOpts struct {
	configFile string
	cpuWorkers int
	ioLimit    int
	cpuExt     []string
	ignore     []string
	noLock     bool
	debug      bool
	quiet      bool
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}

	cmd := &cobra.Command{
		Use:   "sortrc [flags] <source> <destination>",
		Short: "Sort a directory tree into per-extension buckets",
		Long: `sortrc copies every regular file under <source> into <destination>/<ext>/<name>.
Files without an extension go to <destination>/unknown.

Archives (zip and rar by default) are copied on a pool sized to the CPU count
and get a sha256 digest; everything else runs on a wide io pool.
Existing targets are overwritten. Files sharing a name and extension collapse
to one target.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.configFile, "config", "c", "", "config file (.yaml, .yml, .hcl or .json)")
	flags.IntVar(&o.cpuWorkers, "cpu-workers", 0, "cpu pool size (default: number of cores)")
	flags.IntVar(&o.ioLimit, "io-limit", 0, "max concurrent io copies (default: 256)")
	flags.StringSliceVar(&o.cpuExt, "cpu-ext", nil, "extensions copied on the cpu pool (default: zip,rar)")
	flags.StringSliceVar(&o.ignore, "ignore", nil, "doublestar pattern of source paths to skip")
	flags.BoolVar(&o.noLock, "no-lock", false, "do not lock the destination")
	flags.BoolVarP(&o.debug, "debug", "d", false, "enable debug logging")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "only print the summary")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (o *rootOpts) run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	colorize := isTerminal(out)
	color.NoColor = !colorize
	if !colorize {
		pterm.DisableStyling()
	}

	logger := o.logger(cmd.ErrOrStderr(), colorize)
	ctx := logger.WithContext(cmd.Context())

	cfg, err := o.loadConfig(ctx, cmd, args)
	if err != nil {
		return err
	}

	progress := status.NewManager(nil)
	reporter := status.Tee(progress)
	var console *log.Logger
	if !o.quiet {
		console = log.New(out, logger).WithRoot(cfg.Source)
		console.Header(fmt.Sprintf("%s -> %s", cfg.Source, cfg.Destination))
		reporter = status.Tee(console, progress)
	}

	report, err := operation.Sort(ctx, operation.Options{Config: cfg, Reporter: reporter})
	if err != nil {
		return errors.Errorf("sorting %s: %w", cfg.Source, err)
	}

	processed, failed, total := progress.Progress()
	logger.Debug().
		Int("processed", processed).
		Int("failed", failed).
		Int("total", total).
		Msg("progress settled")

	var n notifier = ptermNotifier{w: out}
	if console != nil {
		console.LogNewline()
		n = console
	}
	renderReport(out, n, report)
	return nil
}

// loadConfig merges the config file, positional args and flags, in that
// order of increasing precedence.
func (o *rootOpts) loadConfig(ctx context.Context, cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := &config.Config{}
	if o.configFile != "" {
		loaded, err := config.Load(ctx, o.configFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	cfg.Source, cfg.Destination = args[0], args[1]

	flags := cmd.Flags()
	if flags.Changed("cpu-workers") {
		cfg.CPUWorkers = o.cpuWorkers
	}
	if flags.Changed("io-limit") {
		cfg.IOLimit = o.ioLimit
	}
	if flags.Changed("cpu-ext") {
		cfg.CPUExtensions = o.cpuExt
	}
	cfg.Ignore = append(cfg.Ignore, o.ignore...)
	if o.noLock {
		lock := false
		cfg.Lock = &lock
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("config", cfg.String()).Msg("configuration loaded")
	return cfg, nil
}

// logger builds the stderr console logger
func (o *rootOpts) logger(w io.Writer, colorize bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case o.debug:
		level = zerolog.DebugLevel
	case o.quiet:
		level = zerolog.WarnLevel
	}
	cw := zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
		cw.Out = w
		cw.NoColor = !colorize
	})
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
