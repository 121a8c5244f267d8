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
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/walteh/sortrc/pkg/aggregate"
)

// 📣 notifier prints the closing messages of a run
type notifier interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Successf(format string, args ...interface{})
}

// ptermNotifier is used when no console logger is attached (--quiet).
type ptermNotifier struct {
	w io.Writer
}

func (p ptermNotifier) Infof(format string, args ...interface{}) {
	pterm.Info.WithWriter(p.w).Printfln(format, args...)
}

func (p ptermNotifier) Errorf(format string, args ...interface{}) {
	pterm.Error.WithWriter(p.w).Printfln(format, args...)
}

func (p ptermNotifier) Warningf(format string, args ...interface{}) {
	pterm.Warning.WithWriter(p.w).Printfln(format, args...)
}

func (p ptermNotifier) Successf(format string, args ...interface{}) {
	pterm.Success.WithWriter(p.w).Printfln(format, args...)
}

// 📋 renderReport prints the bucket table, any failures and a closing banner
func renderReport(w io.Writer, n notifier, report *aggregate.Report) {
	if report.Total() == 0 {
		n.Infof("no files found")
		return
	}

	rows := make([][]string, 0, len(report.Buckets))
	for _, b := range report.Buckets {
		rows = append(rows, []string{
			b.Bucket,
			b.Class.String(),
			strconv.Itoa(b.Succeeded),
			strconv.Itoa(b.Failed),
			humanize.IBytes(uint64(b.Bytes)),
		})
	}
	footer := []string{
		"total",
		"",
		strconv.Itoa(len(report.Succeeded)),
		strconv.Itoa(len(report.Failed)),
		humanize.IBytes(uint64(report.Bytes)),
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Bucket", "Class", "Copied", "Failed", "Size"},
		rows,
		footer,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	fmt.Fprintln(w)

	if !report.OK() {
		for _, o := range report.Failed {
			n.Errorf("%s: %v", o.SourcePath, o.Err)
		}
		n.Warningf("%d of %d files failed (run %s)", len(report.Failed), report.Total(), report.RunID)
		return
	}

	n.Successf("sorted %d files, %s (run %s)", report.Total(), humanize.IBytes(uint64(report.Bytes)), report.RunID)
}
