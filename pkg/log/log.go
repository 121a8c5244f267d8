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

package log

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/status"
	"github.com/walteh/sortrc/pkg/work"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	bucketWidth = 15 // Width for bucket name
	statusWidth = 8  // Width for status text
)

// 🎯 Logger prints one console line per outcome and mirrors everything to
// zerolog.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	root    string

	mu       sync.Mutex
	total    int
	outcomes int
	failed   int
}

var _ status.Reporter = (*Logger)(nil)

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// WithRoot makes outcome lines show source paths relative to root.
func (l *Logger) WithRoot(root string) *Logger {
	l.root = root
	return l
}

func (l *Logger) displayPath(p string) string {
	if l.root == "" {
		return p
	}
	rel, err := filepath.Rel(l.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}

// 📝 formatOutcome formats an outcome for display
func (l *Logger) formatOutcome(o work.Outcome) string {
	symbol, symbolColor := '✓', color.FgGreen
	state, detail := "copied", humanize.IBytes(uint64(o.Bytes))
	if !o.OK() {
		symbol, symbolColor = '✗', color.FgRed
		state, detail = "failed", o.Err.Error()
	}

	bucketColor := color.FgBlue
	if o.Class == work.CPUBound {
		bucketColor = color.FgMagenta
	}

	return fmt.Sprintf("%s%s %s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, l.displayPath(o.SourcePath)),
		color.New(bucketColor).Sprint(fmt.Sprintf("%-*s", bucketWidth, o.Bucket+"/"+o.Class.String())),
		fmt.Sprintf("%-*s", statusWidth, state),
		color.New(color.Faint).Sprint(detail))
}

// StartOperation prints the run header.
func (l *Logger) StartOperation(ctx context.Context, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total = total
	l.outcomes = 0
	l.failed = 0

	fmt.Fprintf(l.console, "[sorting %s files]\n", color.New(color.FgCyan).Sprint(total))
	l.zlog.Info().Int("total", total).Msg("starting sort")
}

// 📝 TrackOutcome logs a single outcome
func (l *Logger) TrackOutcome(ctx context.Context, o work.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.outcomes++
	if !o.OK() {
		l.failed++
	}

	fmt.Fprintln(l.console, l.formatOutcome(o))

	evt := l.zlog.Debug()
	if !o.OK() {
		evt = l.zlog.Warn().Err(o.Err)
	}
	evt.
		Str("source", o.SourcePath).
		Str("target", o.TargetPath).
		Str("bucket", o.Bucket).
		Str("class", o.Class.String()).
		Int64("bytes", o.Bytes).
		Msg("file outcome")
}

// FinishOperation logs the run totals.
func (l *Logger) FinishOperation(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.zlog.Info().
		Int("total", l.total).
		Int("outcomes", l.outcomes).
		Int("failed", l.failed).
		Msg("sort complete")
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("sortrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
